package source

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/translate"
)

// Index answers position queries over one unit. References stay
// obfuscated, also in a remapped index.
type Index struct {
	class   entry.ClassEntry
	source  string
	spans   []Span // by start, no overlaps
	tokens  []Token
	refs    map[Token]entry.Reference
	reverse map[entry.Reference][]Token
	lines   []int // byte offset of every line start
}

// NewIndex indexes u. Spans outside the text or overlapping an earlier
// span are ignored.
func NewIndex(u *Unit) *Index {
	spans := make([]Span, 0, len(u.Spans))
	for _, sp := range u.Spans {
		if sp.Token.Start >= 0 && sp.Token.Start <= sp.Token.End && sp.Token.End <= len(u.Source) {
			spans = append(spans, sp)
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Token.Start < spans[j].Token.Start })
	kept := spans[:0]
	end := 0
	for _, sp := range spans {
		if sp.Token.Start < end {
			continue
		}
		kept = append(kept, sp)
		end = sp.Token.End
	}
	return newIndex(u.Class, u.Source, kept)
}

func newIndex(class entry.ClassEntry, src string, spans []Span) *Index {
	x := &Index{
		class:   class,
		source:  src,
		spans:   spans,
		refs:    make(map[Token]entry.Reference),
		reverse: make(map[entry.Reference][]Token),
		lines:   []int{0},
	}
	for _, sp := range spans {
		if sp.Form == Package || sp.Token.Len() == 0 {
			continue
		}
		x.tokens = append(x.tokens, sp.Token)
		x.refs[sp.Token] = sp.Reference
		x.reverse[sp.Reference] = append(x.reverse[sp.Reference], sp.Token)
	}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			x.lines = append(x.lines, i+1)
		}
	}
	return x
}

func (x *Index) Class() entry.ClassEntry { return x.class }

func (x *Index) Source() string { return x.source }

// Text returns the characters of t.
func (x *Index) Text(t Token) string { return x.source[t.Start:t.End] }

// ReferenceTokens lists every reference token in source order.
func (x *Index) ReferenceTokens() []Token { return x.tokens }

// TokenAt returns the reference token covering byte offset pos.
func (x *Index) TokenAt(pos int) (Token, bool) {
	i := sort.Search(len(x.tokens), func(i int) bool { return x.tokens[i].End > pos })
	if i < len(x.tokens) && x.tokens[i].Start <= pos {
		return x.tokens[i], true
	}
	return Token{}, false
}

// Reference returns the obfuscated reference spelled by t.
func (x *Index) Reference(t Token) (entry.Reference, bool) {
	r, ok := x.refs[t]
	return r, ok
}

// Tokens returns the tokens spelling the obfuscated reference r.
func (x *Index) Tokens(r entry.Reference) []Token { return x.reverse[r] }

// DeclarationTokens returns the tokens declaring obf.
func (x *Index) DeclarationTokens(obf entry.Entry) []Token {
	return x.reverse[entry.DeclarationReference(obf)]
}

// Readable converts t to line and column numbers. Columns count
// characters, not bytes.
func (x *Index) Readable(t Token) ReadableToken {
	line := sort.Search(len(x.lines), func(i int) bool { return x.lines[i] > t.Start }) - 1
	start := x.lines[line]
	col := utf8.RuneCountInString(x.source[start:t.Start]) + 1
	return ReadableToken{
		Line:        line + 1,
		StartColumn: col,
		EndColumn:   col + utf8.RuneCountInString(x.source[t.Start:t.End]),
	}
}

// Remap spells every span through tr and returns the index of the new
// text. Text between spans is copied unchanged.
func (x *Index) Remap(tr *translate.Translator) *Index {
	var sb strings.Builder
	sb.Grow(len(x.source))
	spans := make([]Span, len(x.spans))
	last := 0
	for i, sp := range x.spans {
		sb.WriteString(x.source[last:sp.Token.Start])
		start := sb.Len()
		sb.WriteString(spell(tr, sp, x.Text(sp.Token)))
		spans[i] = Span{Token: Token{Start: start, End: sb.Len()}, Reference: sp.Reference, Form: sp.Form}
		last = sp.Token.End
	}
	sb.WriteString(x.source[last:])
	return newIndex(x.class, sb.String(), spans)
}

func spell(tr *translate.Translator, sp Span, text string) string {
	e := sp.Reference.Entry
	if sp.Form == Package {
		pkg := tr.Class(e.ClassEntry().OutermostClass()).Package()
		if pkg == "" {
			return ""
		}
		return "package " + strings.ReplaceAll(pkg, "/", ".") + ";\n\n"
	}
	var name string
	switch v := e.(type) {
	case entry.ClassEntry:
		name = className(tr.Class(v), sp.Form)
	case entry.ConstructorEntry:
		name = className(tr.Class(v.ClassEntry()), sp.Form)
	default:
		name = tr.Translate(e).Name()
	}
	if name == "" {
		return text
	}
	return name
}

func className(c entry.ClassEntry, form Form) string {
	if form == Qualified {
		return entry.ClassType(c).Java()
	}
	return c.InnermostName()
}
