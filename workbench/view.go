package workbench

import (
	"context"
	"fmt"

	"github.com/apex/log"

	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/source"
)

// View is one top-level class as the user sees it: deobfuscated text and
// its tokens sorted into highlighting buckets.
type View struct {
	// Class is the obfuscated class.
	Class      entry.ClassEntry
	Generation uint64
	Index      *source.Index

	// Obfuscated holds renameable tokens without a name, Deobfuscated
	// renameable tokens with one, Other everything else.
	Obfuscated   []source.Token
	Deobfuscated []source.Token
	Other        []source.Token
}

func (v *View) Source() string { return v.Index.Source() }

// render decompiles class and remaps it against the newest generation.
// The decompiled unit does not depend on mappings, so an edit published
// meanwhile only costs another remap.
func (c *Controller) render(ctx context.Context, s *session, class entry.ClassEntry) (*View, error) {
	u, err := s.cache.Decompile(ctx, class)
	if err != nil {
		return nil, enigmaerr.ForClass(enigmaerr.ErrDecompile, class.Name(), err)
	}
	base := source.NewIndex(u)
	for {
		snap := s.deobf.Snapshot()
		v := &View{Class: class, Generation: snap.Generation, Index: base.Remap(snap.Deobfuscating)}
		for _, tok := range v.Index.ReferenceTokens() {
			ref, _ := v.Index.Reference(tok)
			switch {
			case !s.deobf.IsRenameable(ref):
				v.Other = append(v.Other, tok)
			case s.deobf.HasDeobfuscatedName(ref.NameableEntry()):
				v.Deobfuscated = append(v.Deobfuscated, tok)
			default:
				v.Obfuscated = append(v.Obfuscated, tok)
			}
		}
		if s.deobf.Generation() == snap.Generation {
			return v, nil
		}
	}
}

// publishLocked makes v the current view unless a newer view of the same
// class is already there.
func (c *Controller) publishLocked(v *View) *View {
	if cur := c.current; cur != nil && cur.Class == v.Class && cur.Generation > v.Generation {
		return cur
	}
	c.current = v
	return v
}

func (c *Controller) refreshLocked(ctx context.Context) {
	if c.current == nil || c.s == nil {
		return
	}
	v, err := c.render(ctx, c.s, c.current.Class)
	if err != nil {
		c.logger.WithError(err).WithField("class", c.current.Class.Name()).Warn("cannot refresh class")
		return
	}
	c.publishLocked(v)
}

// OpenClass shows the top-level class holding the deobfuscated class.
func (c *Controller) OpenClass(ctx context.Context, deobfClass entry.ClassEntry) (*View, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	return c.openObf(ctx, s, outermost(s.index, c.obfuscating(s).Class(deobfClass)))
}

func (c *Controller) openObf(ctx context.Context, s *session, class entry.ClassEntry) (*View, error) {
	if !s.deobf.IsObfuscatedIdentifier(class) {
		return nil, fmt.Errorf("class %s: %w", class, enigmaerr.ErrUnknownOwner)
	}
	v, err := c.render(ctx, s, class)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.s != s {
		return nil, ErrNoJar
	}
	return c.publishLocked(v), nil
}

// Current returns the class on display, or nil.
func (c *Controller) Current() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// TokenAt returns the reference token of the current view at byte offset
// pos.
func (c *Controller) TokenAt(pos int) (source.Token, bool) {
	v := c.Current()
	if v == nil {
		return source.Token{}, false
	}
	return v.Index.TokenAt(pos)
}

func (c *Controller) ReadableToken(t source.Token) (source.ReadableToken, bool) {
	v := c.Current()
	if v == nil {
		return source.ReadableToken{}, false
	}
	return v.Index.Readable(t), true
}

// DeobfReference returns the deobfuscated reference spelled by t in the
// current view.
func (c *Controller) DeobfReference(t source.Token) (entry.Reference, bool) {
	s, err := c.session()
	v := c.Current()
	if err != nil || v == nil {
		return entry.Reference{}, false
	}
	ref, ok := v.Index.Reference(t)
	if !ok {
		return entry.Reference{}, false
	}
	return c.deobfuscating(s).Reference(ref), true
}

// OpenDeclaration shows the declaration of the deobfuscated entry.
func (c *Controller) OpenDeclaration(ctx context.Context, deobfEntry entry.Entry) ([]source.Token, error) {
	return c.OpenReference(ctx, entry.DeclarationReference(deobfEntry))
}

// OpenReference shows the class holding the deobfuscated reference and
// returns the tokens spelling it there.
func (c *Controller) OpenReference(ctx context.Context, deobfRef entry.Reference) ([]source.Token, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	obf := c.obfuscating(s).Reference(deobfRef)
	class := outermost(s.index, obf.LocationClass())
	v := c.Current()
	if v == nil || v.Class != class || v.Generation != s.deobf.Generation() {
		if v, err = c.openObf(ctx, s, class); err != nil {
			return nil, err
		}
	}
	tokens := v.Index.Tokens(obf)
	if len(tokens) == 0 {
		c.logger.WithFields(log.Fields{"reference": deobfRef.String(), "class": class.Name()}).Warn("no tokens found")
	}
	return tokens, nil
}

// SavePreviousReference pushes a reference to come back to.
func (c *Controller) SavePreviousReference(deobfRef entry.Reference) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	obf := c.obfuscating(s).Reference(deobfRef)
	c.mu.Lock()
	c.back = append(c.back, obf)
	c.mu.Unlock()
	return nil
}

func (c *Controller) HasPreviousLocation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.back) > 0
}

// OpenPreviousReference pops the last saved reference and opens it. It
// does nothing when there is none.
func (c *Controller) OpenPreviousReference(ctx context.Context) ([]source.Token, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if len(c.back) == 0 {
		c.mu.Unlock()
		return nil, nil
	}
	obf := c.back[len(c.back)-1]
	c.back = c.back[:len(c.back)-1]
	c.mu.Unlock()
	return c.OpenReference(ctx, c.deobfuscating(s).Reference(obf))
}
