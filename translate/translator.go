// Package translate rewrites entries between their obfuscated and their
// deobfuscated names through a mapping store.
//
// Methods are named by their override family: a method translates to the
// name recorded on the first of its override roots that has one, so every
// override of a root reads the same name. The obfuscating direction
// searches the candidates a deobfuscated name could come from and checks
// each by translating it back, which keeps both directions exact
// inverses.
package translate

import (
	"fmt"

	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
)

type Direction int

const (
	Deobfuscating Direction = iota
	Obfuscating
)

func (d Direction) String() string {
	if d == Obfuscating {
		return "obfuscating"
	}
	return "deobfuscating"
}

// Inverse returns the other direction.
func (d Direction) Inverse() Direction {
	if d == Obfuscating {
		return Deobfuscating
	}
	return Obfuscating
}

// Translator is a read-only view of a store. It must not be used while the
// store is being edited.
type Translator struct {
	dir   Direction
	index *jarindex.Index
	store *mapping.Store
}

// New returns a translator for dir. index may be nil, in which case
// methods are translated by their own record only.
func New(dir Direction, index *jarindex.Index, store *mapping.Store) *Translator {
	return &Translator{dir: dir, index: index, store: store}
}

func (t *Translator) Direction() Direction { return t.dir }

// Inverse returns a translator over the same store for the other
// direction.
func (t *Translator) Inverse() *Translator {
	return New(t.dir.Inverse(), t.index, t.store)
}

// Translate translates any entry.
func (t *Translator) Translate(e entry.Entry) entry.Entry {
	switch v := e.(type) {
	case entry.ClassEntry:
		return t.Class(v)
	case entry.FieldEntry:
		return t.Field(v)
	case entry.MethodEntry, entry.ConstructorEntry:
		return t.Behavior(v.(entry.BehaviorEntry))
	case entry.ArgumentEntry:
		return t.Argument(v)
	}
	panic(fmt.Sprintf("translate: unknown entry type %T", e))
}

// Reference translates the referenced entry and the use site.
func (t *Translator) Reference(r entry.Reference) entry.Reference {
	out := entry.Reference{Entry: t.Translate(r.Entry), Location: t.Class(r.Location)}
	if r.Context != nil {
		out.Context = t.Behavior(r.Context)
	}
	return out
}

func (t *Translator) Class(c entry.ClassEntry) entry.ClassEntry {
	if t.dir == Obfuscating {
		return t.obfClass(c)
	}
	return t.deobfClass(c)
}

func (t *Translator) Type(typ entry.Type) entry.Type {
	return typ.MapClasses(t.Class)
}

func (t *Translator) Signature(sig entry.Signature) entry.Signature {
	return sig.MapClasses(t.Class)
}

func (t *Translator) Field(f entry.FieldEntry) entry.FieldEntry {
	if t.dir == Obfuscating {
		return t.obfField(f)
	}
	return t.deobfField(f)
}

func (t *Translator) Behavior(b entry.BehaviorEntry) entry.BehaviorEntry {
	m, ok := b.(entry.MethodEntry)
	if !ok {
		owner := t.Class(b.ClassEntry())
		c := entry.WithClass(b, owner).(entry.ConstructorEntry)
		return c.WithSignature(t.Signature(b.Signature()))
	}
	if t.dir == Obfuscating {
		return t.obfMethod(m)
	}
	return t.deobfMethod(m)
}

func (t *Translator) Argument(a entry.ArgumentEntry) entry.ArgumentEntry {
	if t.dir == Obfuscating {
		obf := t.Behavior(a.Behavior())
		out := a.WithBehavior(obf)
		if name, ok := t.store.ArgumentName(obf, a.Index()); ok && name == a.Name() {
			out = out.WithName(entry.ObfArgumentName(a.Index()))
		}
		return out
	}
	out := a.WithBehavior(t.Behavior(a.Behavior()))
	if name, ok := t.store.ArgumentName(a.Behavior(), a.Index()); ok {
		out = out.WithName(name)
	}
	return out
}

func (t *Translator) deobfClass(c entry.ClassEntry) entry.ClassEntry {
	chain := c.Chain()
	out := chain[0]
	if name, ok := t.store.ClassName(chain[0]); ok {
		out = entry.NewClassEntry(name)
	}
	for _, link := range chain[1:] {
		name, ok := t.store.ClassName(link)
		if !ok {
			name = link.InnermostName()
		}
		out = out.BuildChild(name)
	}
	return out
}

func (t *Translator) obfClass(c entry.ClassEntry) entry.ClassEntry {
	chain := c.Chain()
	out := chain[0]
	if obf, ok := t.store.ObfClass(chain[0].Name()); ok {
		out = obf
	}
	for _, link := range chain[1:] {
		simple := link.InnermostName()
		if cm, ok := t.store.Class(out); ok {
			if obf, ok := cm.ObfInner(simple); ok {
				simple = obf
			}
		}
		out = out.BuildChild(simple)
	}
	return out
}

func (t *Translator) deobfField(f entry.FieldEntry) entry.FieldEntry {
	out := entry.NewFieldEntry(t.deobfClass(f.ClassEntry()), f.Name(), t.Type(f.Type()))
	if name, ok := t.store.FieldName(f); ok {
		out = out.WithName(name)
	}
	return out
}

func (t *Translator) obfField(f entry.FieldEntry) entry.FieldEntry {
	owner := t.obfClass(f.ClassEntry())
	typ := t.Type(f.Type())
	out := entry.NewFieldEntry(owner, f.Name(), typ)
	if cm, ok := t.store.Class(owner); ok {
		if fm, ok := cm.ObfField(f.Name()); ok && fm.ObfType() == typ {
			out = out.WithName(fm.ObfName())
		}
	}
	return out
}

// MethodName returns the name recorded for the obfuscated method m: the
// record of the first root of its family that names it, or the record of
// m itself.
func (t *Translator) MethodName(m entry.BehaviorEntry) (string, bool) {
	if t.index != nil {
		for _, r := range t.index.Family(m) {
			if name, ok := t.store.MethodName(r); ok {
				return name, true
			}
		}
	}
	return t.store.MethodName(m)
}

func (t *Translator) deobfMethod(m entry.MethodEntry) entry.MethodEntry {
	out := entry.NewMethodEntry(t.deobfClass(m.ClassEntry()), m.Name(), t.Signature(m.Signature()))
	if name, ok := t.MethodName(m); ok {
		out = out.WithName(name)
	}
	return out
}

func (t *Translator) obfMethod(m entry.MethodEntry) entry.MethodEntry {
	owner := t.obfClass(m.ClassEntry())
	sig := t.Signature(m.Signature())
	for _, name := range t.methodCandidates(owner, m.Name(), sig) {
		obf := entry.NewMethodEntry(owner, name, sig)
		if got, ok := t.MethodName(obf); ok && got == m.Name() {
			return obf
		}
	}
	return entry.NewMethodEntry(owner, m.Name(), sig)
}

// methodCandidates lists the obfuscated names a method of owner with the
// obfuscated signature sig may have when it reads as deobf: records that
// carry the name on owner and its ancestors first, then every method of
// that signature they declare.
func (t *Translator) methodCandidates(owner entry.ClassEntry, deobf string, sig entry.Signature) []string {
	classes := []entry.ClassEntry{owner}
	if t.index != nil {
		classes = append(classes, t.index.Ancestors(owner)...)
	}
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, c := range classes {
		if cm, ok := t.store.Class(c); ok {
			if mm, ok := cm.ObfMethod(deobf, sig); ok {
				add(mm.ObfName())
			}
		}
	}
	if t.index != nil {
		for _, c := range classes {
			for _, b := range t.index.Behaviors(c) {
				if b.Kind() == entry.KindMethod && b.Signature() == sig {
					add(b.Name())
				}
			}
		}
	}
	return names
}
