// Package source connects decompiled Java source to the entries of a jar.
//
// A Decompiler turns one obfuscated class into a Unit: the source text and
// the spans where that text names an entry. An Index built over a unit
// answers position lookups in both directions, and Remap rewrites every
// span through a translator, so mapped names never pass through the
// decompiler itself.
package source

import (
	"context"

	"github.com/swind/go-enigma/entry"
)

// Token is the byte range [Start, End) of a source text.
type Token struct {
	Start int
	End   int
}

func (t Token) Len() int { return t.End - t.Start }

// Form is how a span spells its entry.
type Form int

const (
	// Simple spells a class by its innermost simple name and a member by
	// its name.
	Simple Form = iota
	// Qualified spells a class by its dotted Java name, e.g. a.b.C.D.
	Qualified
	// Package is a whole package statement of the class, including the
	// blank line after it. It renders empty for the default package and is
	// not a reference token.
	Package
)

// Span ties a token to the obfuscated reference it spells.
type Span struct {
	Token     Token
	Reference entry.Reference
	Form      Form
}

// Unit is the decompiled form of one top-level class. Spans may come in
// any order but must not overlap.
type Unit struct {
	Class  entry.ClassEntry
	Source string
	Spans  []Span
}

// Decompiler produces units from obfuscated classes. Implementations need
// not be safe for concurrent use; Cache serialises calls.
type Decompiler interface {
	Decompile(ctx context.Context, class entry.ClassEntry) (*Unit, error)
}

// DecompilerFunc adapts a function to a Decompiler.
type DecompilerFunc func(ctx context.Context, class entry.ClassEntry) (*Unit, error)

func (f DecompilerFunc) Decompile(ctx context.Context, class entry.ClassEntry) (*Unit, error) {
	return f(ctx, class)
}

// ReadableToken is a token as an editor shows it: 1-based line, 1-based
// start column and exclusive end column.
type ReadableToken struct {
	Line        int
	StartColumn int
	EndColumn   int
}
