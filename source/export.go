package source

import (
	"context"
	"fmt"

	"github.com/apex/log"

	"github.com/swind/go-enigma/archive"
	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/progress"
	"github.com/swind/go-enigma/regexlist"
	"github.com/swind/go-enigma/translate"
)

type exportOptions struct {
	logger   log.Interface
	listener progress.Listener
	rules    regexlist.List
}

type ExportOption func(*exportOptions)

func WithLogger(l log.Interface) ExportOption {
	return func(o *exportOptions) { o.logger = l }
}

func WithProgress(l progress.Listener) ExportOption {
	return func(o *exportOptions) { o.listener = l }
}

// WithRules adds a regex list that runs after the built-in rules.
func WithRules(l regexlist.List) ExportOption {
	return func(o *exportOptions) { o.rules = l }
}

// ExportReport lists what an export wrote and which classes failed.
type ExportReport struct {
	Written []string
	// Failed holds one *enigmaerr.ClassError per class that did not
	// decompile.
	Failed []error
}

// TopLevelClasses lists the classes of x that are not nested in another
// class, in name order.
func TopLevelClasses(x *jarindex.Index) []entry.ClassEntry {
	var out []entry.ClassEntry
	for _, c := range x.Classes() {
		if _, inner := x.OuterClass(c); inner || c.IsInner() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Render decompiles class and returns its source with every name spelled
// through tr and the cosmetic rules applied. Rules target the obfuscated
// class name.
func Render(ctx context.Context, d Decompiler, tr *translate.Translator, class entry.ClassEntry, rules regexlist.List) (string, error) {
	u, err := d.Decompile(ctx, class)
	if err != nil {
		return "", enigmaerr.ForClass(enigmaerr.ErrDecompile, class.Name(), err)
	}
	text := NewIndex(u).Remap(tr).Source()
	text = regexlist.Builtin.Apply(class.Name(), text)
	return rules.Apply(class.Name(), text), nil
}

// Export writes every top-level class of x to sink as <deobfName>.java.
// A class that fails to decompile is logged and reported, and the export
// goes on. Sink failures and cancellation abort it.
func Export(ctx context.Context, x *jarindex.Index, tr *translate.Translator, d Decompiler, sink archive.Sink, opts ...ExportOption) (*ExportReport, error) {
	o := exportOptions{logger: log.Log}
	for _, opt := range opts {
		opt(&o)
	}
	l := progress.OrNop(o.listener)

	classes := TopLevelClasses(x)
	counter := progress.NewCounter(l, len(classes), "Exporting sources")
	report := &ExportReport{}
	for _, c := range classes {
		if err := progress.Check(ctx, l); err != nil {
			return nil, err
		}
		text, err := Render(ctx, d, tr, c, o.rules)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.logger.WithError(err).WithField("class", c.Name()).Warn("cannot decompile class")
			report.Failed = append(report.Failed, err)
			counter.Step(c.Name())
			continue
		}
		name := tr.Class(c).Name() + ".java"
		if err := sink.WriteFile(name, []byte(text)); err != nil {
			return nil, fmt.Errorf("export %s: %w", c.Name(), err)
		}
		report.Written = append(report.Written, name)
		counter.Step(name)
	}
	o.logger.WithFields(log.Fields{
		"written": len(report.Written),
		"failed":  len(report.Failed),
	}).Info("exported sources")
	return report, nil
}
