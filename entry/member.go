package entry

import (
	"fmt"
)

const (
	ConstructorName       = "<init>"
	StaticInitializerName = "<clinit>"
)

// FieldEntry is a field addressed by owner, simple name and type.
type FieldEntry struct {
	owner ClassEntry
	name  string
	typ   Type
}

func NewFieldEntry(owner ClassEntry, name string, typ Type) FieldEntry {
	return FieldEntry{owner: owner, name: name, typ: typ}
}

func (f FieldEntry) Kind() Kind             { return KindField }
func (f FieldEntry) Name() string           { return f.name }
func (f FieldEntry) Type() Type             { return f.typ }
func (f FieldEntry) ClassEntry() ClassEntry { return f.owner }
func (f FieldEntry) String() string         { return f.owner.name + "." + f.name + ":" + string(f.typ) }
func (FieldEntry) sealed()                  {}

func (f FieldEntry) WithName(name string) FieldEntry {
	f.name = name
	return f
}

func (f FieldEntry) WithType(typ Type) FieldEntry {
	f.typ = typ
	return f
}

// MethodEntry is a method addressed by owner, simple name and signature.
type MethodEntry struct {
	owner ClassEntry
	name  string
	sig   Signature
}

func NewMethodEntry(owner ClassEntry, name string, sig Signature) MethodEntry {
	return MethodEntry{owner: owner, name: name, sig: sig}
}

func (m MethodEntry) Kind() Kind             { return KindMethod }
func (m MethodEntry) Name() string           { return m.name }
func (m MethodEntry) Signature() Signature   { return m.sig }
func (m MethodEntry) ClassEntry() ClassEntry { return m.owner }
func (m MethodEntry) String() string         { return m.owner.name + "." + m.name + string(m.sig) }
func (MethodEntry) sealed()                  {}
func (MethodEntry) behavior()                {}

func (m MethodEntry) WithName(name string) MethodEntry {
	m.name = name
	return m
}

func (m MethodEntry) WithSignature(sig Signature) MethodEntry {
	m.sig = sig
	return m
}

// ConstructorEntry is an instance constructor or, when static, the class
// initialiser. The class initialiser carries no signature.
type ConstructorEntry struct {
	owner  ClassEntry
	sig    Signature
	static bool
}

func NewConstructorEntry(owner ClassEntry, sig Signature) ConstructorEntry {
	return ConstructorEntry{owner: owner, sig: sig}
}

func NewStaticInitializer(owner ClassEntry) ConstructorEntry {
	return ConstructorEntry{owner: owner, static: true}
}

func (c ConstructorEntry) Kind() Kind             { return KindConstructor }
func (c ConstructorEntry) Signature() Signature   { return c.sig }
func (c ConstructorEntry) ClassEntry() ClassEntry { return c.owner }
func (c ConstructorEntry) IsStatic() bool         { return c.static }
func (ConstructorEntry) sealed()                  {}
func (ConstructorEntry) behavior()                {}

func (c ConstructorEntry) Name() string {
	if c.static {
		return StaticInitializerName
	}
	return ConstructorName
}

func (c ConstructorEntry) String() string {
	if c.static {
		return c.owner.name + "." + StaticInitializerName
	}
	return c.owner.name + "." + ConstructorName + string(c.sig)
}

func (c ConstructorEntry) WithSignature(sig Signature) ConstructorEntry {
	if !c.static {
		c.sig = sig
	}
	return c
}

// NewBehaviorEntry builds the behavior entry a class file member describes.
func NewBehaviorEntry(owner ClassEntry, name string, sig Signature) BehaviorEntry {
	switch name {
	case ConstructorName:
		return NewConstructorEntry(owner, sig)
	case StaticInitializerName:
		return NewStaticInitializer(owner)
	}
	return NewMethodEntry(owner, name, sig)
}

// WithBehaviorSignature replaces the signature of b.
func WithBehaviorSignature(b BehaviorEntry, sig Signature) BehaviorEntry {
	switch v := b.(type) {
	case MethodEntry:
		return v.WithSignature(sig)
	case ConstructorEntry:
		return v.WithSignature(sig)
	}
	panic(fmt.Sprintf("entry: unknown behavior type %T", b))
}

// ArgumentEntry is a positional argument of a behavior.
type ArgumentEntry struct {
	behavior BehaviorEntry
	index    int
	name     string
}

func NewArgumentEntry(behavior BehaviorEntry, index int, name string) ArgumentEntry {
	return ArgumentEntry{behavior: behavior, index: index, name: name}
}

// ObfArgumentName is the placeholder name of an argument that has no
// recorded name. Decompiler adapters report arguments under this name.
func ObfArgumentName(index int) string {
	return fmt.Sprintf("arg%d", index)
}

func (a ArgumentEntry) Kind() Kind              { return KindArgument }
func (a ArgumentEntry) Name() string            { return a.name }
func (a ArgumentEntry) Index() int              { return a.index }
func (a ArgumentEntry) Behavior() BehaviorEntry { return a.behavior }
func (a ArgumentEntry) ClassEntry() ClassEntry  { return a.behavior.ClassEntry() }
func (ArgumentEntry) sealed()                   {}

func (a ArgumentEntry) String() string {
	return fmt.Sprintf("%s#%d:%s", a.behavior, a.index, a.name)
}

func (a ArgumentEntry) WithName(name string) ArgumentEntry {
	a.name = name
	return a
}

func (a ArgumentEntry) WithBehavior(b BehaviorEntry) ArgumentEntry {
	a.behavior = b
	return a
}
