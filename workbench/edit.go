package workbench

import (
	"context"

	"github.com/swind/go-enigma/archive"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/metrics"
	"github.com/swind/go-enigma/progress"
	"github.com/swind/go-enigma/source"
	"github.com/swind/go-enigma/translate"
)

// editAt applies fn to the entry a rename at the deobfuscated reference
// targets, then marks the mappings dirty and refreshes the view.
func (c *Controller) editAt(ctx context.Context, deobfRef entry.Reference, fn func(s *session, obf entry.Entry) error) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	obf := c.obfuscating(s).Reference(deobfRef)
	if err := fn(s, obf.NameableEntry()); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
	c.refreshLocked(ctx)
	return nil
}

// Rename names the entry at the deobfuscated reference.
func (c *Controller) Rename(ctx context.Context, deobfRef entry.Reference, newName string) error {
	return c.editAt(ctx, deobfRef, func(s *session, obf entry.Entry) error {
		return s.deobf.Rename(obf, newName)
	})
}

func (c *Controller) RemoveMapping(ctx context.Context, deobfRef entry.Reference) error {
	return c.editAt(ctx, deobfRef, func(s *session, obf entry.Entry) error {
		return s.deobf.RemoveMapping(obf)
	})
}

func (c *Controller) MarkAsDeobfuscated(ctx context.Context, deobfRef entry.Reference) error {
	return c.editAt(ctx, deobfRef, func(s *session, obf entry.Entry) error {
		return s.deobf.MarkAsDeobfuscated(obf)
	})
}

// FixNames gives default names to every field and class of the jar.
func (c *Controller) FixNames(ctx context.Context, l progress.Listener) (int, error) {
	s, err := c.session()
	if err != nil {
		return 0, err
	}
	n, err := s.deobf.FixNames(ctx, l)
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 {
		c.dirty = true
		c.refreshLocked(ctx)
	}
	return n, err
}

// ExportSource writes every top-level class to path, a directory or a
// .zip/.jar file, with the loaded regex list applied.
func (c *Controller) ExportSource(ctx context.Context, path string, l progress.Listener) (*source.ExportReport, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	rules := c.rules
	c.mu.Unlock()

	sink, err := archive.OpenSink(path)
	if err != nil {
		return nil, err
	}
	report, err := source.Export(ctx, s.index, c.deobfuscating(s), s.cache, sink,
		source.WithRules(rules),
		source.WithLogger(c.logger),
		source.WithProgress(l))
	if cerr := sink.Close(); err == nil && cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, err
	}
	metrics.ObserveExport(len(report.Written), len(report.Failed))
	return report, nil
}

func translateTree(tr *translate.Translator, n *jarindex.Node) *jarindex.Node {
	if n == nil {
		return nil
	}
	out := &jarindex.Node{Entry: tr.Translate(n.Entry)}
	for _, child := range n.Children {
		out.Children = append(out.Children, translateTree(tr, child))
	}
	return out
}

// ClassInheritance is the subclass tree around the deobfuscated class.
func (c *Controller) ClassInheritance(deobfClass entry.ClassEntry) (*jarindex.Node, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	obf := c.obfuscating(s).Class(deobfClass)
	return translateTree(c.deobfuscating(s), s.index.ClassInheritanceTree(obf)), nil
}

func (c *Controller) ClassImplementations(deobfClass entry.ClassEntry) (*jarindex.Node, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	obf := c.obfuscating(s).Class(deobfClass)
	return translateTree(c.deobfuscating(s), s.index.ClassImplementationsTree(obf)), nil
}

// MethodInheritance is the overrider tree of the deobfuscated behavior,
// or nil when the jar does not declare it.
func (c *Controller) MethodInheritance(deobfBehavior entry.BehaviorEntry) (*jarindex.Node, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	obf := c.obfuscating(s).Behavior(deobfBehavior)
	if !s.index.Contains(obf) {
		return nil, nil
	}
	return translateTree(c.deobfuscating(s), s.index.MethodInheritanceTree(obf)), nil
}

func (c *Controller) MethodImplementations(deobfBehavior entry.BehaviorEntry) (*jarindex.Node, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	obf := c.obfuscating(s).Behavior(deobfBehavior)
	return translateTree(c.deobfuscating(s), s.index.MethodImplementationsTree(obf)), nil
}

// References lists every use of the deobfuscated entry, deobfuscated.
func (c *Controller) References(deobfEntry entry.Entry) ([]entry.Reference, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	tr := c.deobfuscating(s)
	var out []entry.Reference
	for _, r := range s.index.ReferencesTo(c.obfuscating(s).Translate(deobfEntry)) {
		out = append(out, tr.Reference(r))
	}
	return out, nil
}
