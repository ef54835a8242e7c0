package entry

import (
	"strings"
)

// ClassEntry names a class in internal (slash separated) form. Inner
// classes use '$' between the outer name and the inner simple name.
type ClassEntry struct {
	name string
}

// NewClassEntry accepts either internal ("a/b/C") or external ("a.b.C")
// names and stores the internal form.
func NewClassEntry(name string) ClassEntry {
	return ClassEntry{name: strings.ReplaceAll(name, ".", "/")}
}

func (c ClassEntry) Kind() Kind             { return KindClass }
func (c ClassEntry) Name() string           { return c.name }
func (c ClassEntry) ClassEntry() ClassEntry { return c }
func (c ClassEntry) String() string         { return c.name }
func (c ClassEntry) IsZero() bool           { return c.name == "" }
func (ClassEntry) sealed()                  {}

// ExternalName is the dotted form, e.g. "a.b.C$D".
func (c ClassEntry) ExternalName() string {
	return strings.ReplaceAll(c.name, "/", ".")
}

// SimpleName is the name without its package, e.g. "C$D".
func (c ClassEntry) SimpleName() string {
	return c.name[strings.LastIndex(c.name, "/")+1:]
}

// Package is the slash separated package, empty for the default package.
func (c ClassEntry) Package() string {
	i := strings.LastIndex(c.name, "/")
	if i < 0 {
		return ""
	}
	return c.name[:i]
}

// innerSeparator returns the index in name of the '$' that splits the
// innermost class from its outer class, or -1 for top-level classes.
// A '$' at the very start or end of the simple name does not count.
func (c ClassEntry) innerSeparator() int {
	start := strings.LastIndex(c.name, "/") + 1
	i := strings.LastIndex(c.name, "$")
	if i <= start || i == len(c.name)-1 {
		return -1
	}
	return i
}

func (c ClassEntry) IsInner() bool {
	return c.innerSeparator() >= 0
}

// InnermostName is the last '$' segment for inner classes and the simple
// name otherwise.
func (c ClassEntry) InnermostName() string {
	if i := c.innerSeparator(); i >= 0 {
		return c.name[i+1:]
	}
	return c.SimpleName()
}

// OuterClass returns the directly enclosing class. ok is false for
// top-level classes.
func (c ClassEntry) OuterClass() (outer ClassEntry, ok bool) {
	i := c.innerSeparator()
	if i < 0 {
		return ClassEntry{}, false
	}
	return ClassEntry{name: c.name[:i]}, true
}

// OutermostClass returns the top-level class containing c, or c itself.
func (c ClassEntry) OutermostClass() ClassEntry {
	for {
		outer, ok := c.OuterClass()
		if !ok {
			return c
		}
		c = outer
	}
}

// Chain splits c into its nesting path, outermost first. For "A$B$C" it
// returns [A, A$B, A$B$C].
func (c ClassEntry) Chain() []ClassEntry {
	var chain []ClassEntry
	for cur := c; ; {
		chain = append(chain, cur)
		outer, ok := cur.OuterClass()
		if !ok {
			break
		}
		cur = outer
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// BuildChild returns the inner class of c with the given simple name.
func (c ClassEntry) BuildChild(simpleName string) ClassEntry {
	return ClassEntry{name: c.name + "$" + simpleName}
}

// JoinInner recomposes a class from an outer class and inner simple names.
func JoinInner(outer ClassEntry, inner ...string) ClassEntry {
	for _, name := range inner {
		outer = outer.BuildChild(name)
	}
	return outer
}

// Rename returns c with a new name. Inner classes take a simple name and
// keep their outer path; top-level classes take a full name that may carry
// a package.
func (c ClassEntry) Rename(newName string) (ClassEntry, error) {
	newName = strings.ReplaceAll(newName, ".", "/")
	if outer, ok := c.OuterClass(); ok {
		if err := ValidateClassName(newName, true); err != nil {
			return ClassEntry{}, err
		}
		return outer.BuildChild(newName), nil
	}
	if err := ValidateClassName(newName, false); err != nil {
		return ClassEntry{}, err
	}
	return ClassEntry{name: newName}, nil
}
