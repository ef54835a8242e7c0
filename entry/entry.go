// Package entry holds the identifier values of the workbench: classes,
// fields, behaviors (methods and constructors) and method arguments, plus
// references to them from a use site.
//
// All entries are small comparable values and can be used as map keys.
// The set of kinds is closed; callers dispatch with a type switch or Kind.
package entry

import (
	"fmt"

	"github.com/swind/go-enigma/enigmaerr"
)

type Kind int

const (
	KindClass Kind = iota
	KindField
	KindMethod
	KindConstructor
	KindArgument
)

var kindNames = [...]string{"class", "field", "method", "constructor", "argument"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Entry is one of ClassEntry, FieldEntry, MethodEntry, ConstructorEntry or
// ArgumentEntry.
type Entry interface {
	Kind() Kind
	// Name is the simple name of the entry. For classes it is the full
	// slash separated name.
	Name() string
	// ClassEntry is the class that contains the entry, or the class itself.
	ClassEntry() ClassEntry
	String() string

	sealed()
}

// BehaviorEntry is a MethodEntry or a ConstructorEntry.
type BehaviorEntry interface {
	Entry
	Signature() Signature
	behavior()
}

// OutermostClass returns the top-level class that contains e.
func OutermostClass(e Entry) ClassEntry {
	return e.ClassEntry().OutermostClass()
}

// WithClass returns a copy of e that lives in class c instead of its
// current class. For classes it returns c.
func WithClass(e Entry, c ClassEntry) Entry {
	switch v := e.(type) {
	case ClassEntry:
		return c
	case FieldEntry:
		return NewFieldEntry(c, v.name, v.typ)
	case MethodEntry:
		return NewMethodEntry(c, v.name, v.sig)
	case ConstructorEntry:
		v.owner = c
		return v
	case ArgumentEntry:
		v.behavior = WithClass(v.behavior, c).(BehaviorEntry)
		return v
	}
	panic(fmt.Sprintf("entry: unknown entry type %T", e))
}

// Rename returns a copy of e carrying newName as its simple name. The name
// is validated against the identifier grammar for the entry kind.
func Rename(e Entry, newName string) (Entry, error) {
	switch v := e.(type) {
	case ClassEntry:
		return v.Rename(newName)
	case FieldEntry:
		if err := ValidateIdentifier(newName); err != nil {
			return nil, err
		}
		return v.WithName(newName), nil
	case MethodEntry:
		if err := ValidateIdentifier(newName); err != nil {
			return nil, err
		}
		return v.WithName(newName), nil
	case ConstructorEntry:
		return nil, fmt.Errorf("%s: constructors take their class name: %w", v, enigmaerr.ErrNonRenameable)
	case ArgumentEntry:
		if err := ValidateIdentifier(newName); err != nil {
			return nil, err
		}
		return v.WithName(newName), nil
	}
	return nil, fmt.Errorf("entry: unknown entry type %T", e)
}
