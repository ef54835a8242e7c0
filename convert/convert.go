package convert

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/swind/go-enigma/checker"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
	"github.com/swind/go-enigma/progress"
	"github.com/swind/go-enigma/translate"
)

// Tables are the three match tables of a conversion. Member tables may be
// nil; members they do not list are carried over by name.
type Tables struct {
	Classes   *Matches[entry.ClassEntry]
	Fields    *Matches[entry.FieldEntry]
	Behaviors *Matches[entry.BehaviorEntry]
}

// Compute builds all three tables from scratch.
func Compute(src, dst *jarindex.Index, s *mapping.Store) Tables {
	classes := ComputeClassMatches(src, dst, s)
	fields, behaviors := ComputeMemberMatches(src, dst, classes, s)
	return Tables{Classes: classes, Fields: fields, Behaviors: behaviors}
}

type options struct {
	logger   log.Interface
	listener progress.Listener
}

type Option func(*options)

func WithLogger(l log.Interface) Option {
	return func(o *options) { o.logger = l }
}

func WithProgress(l progress.Listener) Option {
	return func(o *options) { o.listener = l }
}

// Result is a converted store with the records left behind.
type Result struct {
	Store *mapping.Store
	// Unmatched lists source records whose entry has no match.
	Unmatched *checker.Report
	// Broken lists converted records the dest jar does not declare.
	Broken *checker.Report
}

// Warnings prints one line per record left behind.
func (r *Result) Warnings() []string {
	var lines []string
	for _, l := range r.Unmatched.Lines() {
		lines = append(lines, "unmatched: "+l)
	}
	for _, l := range r.Broken.Lines() {
		lines = append(lines, "broken: "+l)
	}
	return lines
}

type converter struct {
	src, dst *jarindex.Index
	tables   Tables
	srcTr    *translate.Translator
	logger   log.Interface
	out      *mapping.Store
	report   *checker.Report
}

// Convert builds a store for dst from s, a store for src: class records
// move to their matched dest class first, then member records to their
// matched members. Records of unmatched entries are dropped, and the
// result is checked against dst. s is not modified and nothing is returned
// on cancellation.
func Convert(ctx context.Context, src, dst *jarindex.Index, s *mapping.Store, t Tables, opts ...Option) (*Result, error) {
	if t.Classes == nil {
		return nil, errors.New("convert: no class matches")
	}
	o := options{logger: log.Log}
	for _, opt := range opts {
		opt(&o)
	}
	l := progress.OrNop(o.listener)

	c := &converter{
		src:    src,
		dst:    dst,
		tables: t,
		srcTr:  translate.New(translate.Deobfuscating, src, s),
		logger: o.logger,
		out:    mapping.New(),
		report: &checker.Report{},
	}

	var records []*mapping.ClassMapping
	s.Walk(func(cm *mapping.ClassMapping) { records = append(records, cm) })
	counter := progress.NewCounter(l, len(records), "Converting mappings")
	for _, cm := range records {
		if err := progress.Check(ctx, l); err != nil {
			return nil, err
		}
		c.class(cm)
		counter.Step(cm.Obf().Name())
	}
	for _, line := range s.Extra() {
		c.out.AddExtra(line)
	}

	broken := checker.Check(dst, c.out, o.logger)
	o.logger.WithFields(log.Fields{
		"unmatched": c.report.Len(),
		"broken":    broken.Len(),
	}).Info("converted mappings")
	return &Result{Store: c.out, Unmatched: c.report, Broken: broken}, nil
}

// rewrite moves the class references of a descriptor to the dest jar.
func (c *converter) rewrite(ce entry.ClassEntry) entry.ClassEntry {
	if d, ok := c.tables.Classes.Dest(ce); ok {
		return d
	}
	return ce
}

func (c *converter) class(cm *mapping.ClassMapping) {
	sc := cm.Obf()
	dc, ok := c.tables.Classes.Dest(sc)
	if !ok {
		if sc.IsInner() {
			c.report.InnerClasses = append(c.report.InnerClasses, sc)
		} else {
			c.report.Classes = append(c.report.Classes, sc)
		}
		return
	}

	out := c.out.EnsureClass(dc)
	for _, line := range cm.Extra() {
		out.AddExtra(line)
	}
	if name := cm.DeobfName(); name != "" {
		if sc.IsInner() != dc.IsInner() {
			full := c.srcTr.Class(sc)
			name = full.Name()
			if dc.IsInner() {
				name = full.InnermostName()
			}
		}
		if err := c.out.SetClassName(dc, name); err != nil {
			c.logger.WithError(err).WithField("class", sc.Name()).Warn("cannot carry class name")
			c.report.Classes = append(c.report.Classes, sc)
		}
	}

	for _, fm := range cm.Fields() {
		sf := fm.Entry(sc)
		df, ok := memberDest(c.tables.Fields, sf, func() entry.FieldEntry {
			return entry.NewFieldEntry(dc, sf.Name(), sf.Type().MapClasses(c.rewrite))
		})
		if !ok {
			c.report.Fields = append(c.report.Fields, sf)
			continue
		}
		c.out.EnsureClass(df.ClassEntry())
		if err := c.out.SetFieldName(df, fm.DeobfName()); err != nil {
			c.logger.WithError(err).WithField("field", sf.String()).Warn("cannot carry field name")
			c.report.Fields = append(c.report.Fields, sf)
		}
	}

	for _, mm := range cm.Methods() {
		sb := mm.Entry(sc)
		db, ok := memberDest(c.tables.Behaviors, sb, func() entry.BehaviorEntry {
			moved := entry.WithClass(sb, dc).(entry.BehaviorEntry)
			return entry.WithBehaviorSignature(moved, sb.Signature().MapClasses(c.rewrite))
		})
		if !ok {
			c.report.Behaviors = append(c.report.Behaviors, sb)
			continue
		}
		if err := c.method(mm, db); err != nil {
			c.logger.WithError(err).WithField("behavior", sb.String()).Warn("cannot carry method mapping")
			c.report.Behaviors = append(c.report.Behaviors, sb)
		}
	}
}

func (c *converter) method(mm *mapping.MethodMapping, db entry.BehaviorEntry) error {
	c.out.EnsureClass(db.ClassEntry())
	out, err := c.out.AddMethod(db)
	if err != nil {
		return err
	}
	for _, line := range mm.Extra() {
		out.AddExtra(line)
	}
	if name := mm.DeobfName(); name != "" {
		if err := c.out.SetMethodName(db, name); err != nil {
			return err
		}
	}
	for _, a := range mm.Arguments() {
		if err := c.out.SetArgumentName(entry.NewArgumentEntry(db, a.Index, ""), a.Name); err != nil {
			return fmt.Errorf("argument %d: %w", a.Index, err)
		}
	}
	return nil
}

// memberDest returns the dest of src in t, or carry() when t does not list
// src at all.
func memberDest[E entry.Entry](t *Matches[E], src E, carry func() E) (E, bool) {
	if t == nil || !t.Contains(src) {
		return carry(), true
	}
	return t.Dest(src)
}

// BuildIndices indexes the two jars of a conversion at the same time.
func BuildIndices(ctx context.Context, src, dst jarindex.Source, opts ...jarindex.Option) (*jarindex.Index, *jarindex.Index, error) {
	var srcIndex, dstIndex *jarindex.Index
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		x, err := jarindex.Build(ctx, src, opts...)
		if err != nil {
			return fmt.Errorf("index source jar: %w", err)
		}
		srcIndex = x
		return nil
	})
	g.Go(func() error {
		x, err := jarindex.Build(ctx, dst, opts...)
		if err != nil {
			return fmt.Errorf("index dest jar: %w", err)
		}
		dstIndex = x
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return srcIndex, dstIndex, nil
}
