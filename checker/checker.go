// Package checker drops mapping records that no longer resolve against a
// jar index.
package checker

import (
	"fmt"

	"github.com/apex/log"

	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
)

// Report lists the dropped records by kind.
type Report struct {
	Classes      []entry.ClassEntry
	InnerClasses []entry.ClassEntry
	Fields       []entry.FieldEntry
	Behaviors    []entry.BehaviorEntry
	Arguments    []entry.ArgumentEntry

	// Shadowing lists classes whose new name was dropped because an
	// unmapped class of the jar already goes by it.
	Shadowing []entry.ClassEntry
}

func (r *Report) Len() int {
	return len(r.Classes) + len(r.InnerClasses) + len(r.Fields) + len(r.Behaviors) + len(r.Arguments) + len(r.Shadowing)
}

func (r *Report) Empty() bool { return r.Len() == 0 }

// Lines prints one warning per dropped record.
func (r *Report) Lines() []string {
	var lines []string
	for _, c := range r.Classes {
		lines = append(lines, fmt.Sprintf("dropped class %s", c))
	}
	for _, c := range r.InnerClasses {
		lines = append(lines, fmt.Sprintf("dropped inner class %s", c))
	}
	for _, f := range r.Fields {
		lines = append(lines, fmt.Sprintf("dropped field %s", f))
	}
	for _, b := range r.Behaviors {
		lines = append(lines, fmt.Sprintf("dropped behavior %s", b))
	}
	for _, a := range r.Arguments {
		lines = append(lines, fmt.Sprintf("dropped argument %d of %s", a.Index(), a.Behavior()))
	}
	for _, c := range r.Shadowing {
		lines = append(lines, fmt.Sprintf("dropped name of class %s, it shadows an unmapped class", c))
	}
	return lines
}

// Check removes from s every record whose obfuscated key is not part of
// x and reports what it removed. Records nested in a dropped class are
// dropped with it and not reported separately. A class name that equals
// the name of an unmapped class of x is dropped as well, keeping the
// members. Running Check again on the result drops nothing.
func Check(x *jarindex.Index, s *mapping.Store, logger log.Interface) *Report {
	if logger == nil {
		logger = log.Log
	}
	r := &Report{}
	var classes []*mapping.ClassMapping
	s.Walk(func(cm *mapping.ClassMapping) { classes = append(classes, cm) })

	gone := make(map[*mapping.ClassMapping]bool)
	for _, cm := range classes {
		if cm.Outer() != nil && gone[cm.Outer()] {
			gone[cm] = true
			continue
		}
		c := cm.Obf()
		if !x.ContainsClass(c) {
			gone[cm] = true
			if cm.Outer() != nil {
				r.InnerClasses = append(r.InnerClasses, c)
			} else {
				r.Classes = append(r.Classes, c)
			}
			s.RemoveClass(c)
			logger.WithField("class", c.Name()).Info("dropped mapping of missing class")
			continue
		}

		for _, fm := range cm.Fields() {
			if f := fm.Entry(c); !x.Contains(f) {
				r.Fields = append(r.Fields, f)
				s.RemoveField(f)
				logger.WithField("entry", f.String()).Info("dropped mapping of missing field")
			}
		}
		for _, mm := range cm.Methods() {
			b := mm.Entry(c)
			if !x.Contains(b) {
				r.Behaviors = append(r.Behaviors, b)
				s.RemoveMethod(b)
				logger.WithField("entry", b.String()).Info("dropped mapping of missing behavior")
				continue
			}
			for _, am := range mm.Arguments() {
				if a := entry.NewArgumentEntry(b, am.Index, am.Name); !x.Contains(a) {
					r.Arguments = append(r.Arguments, a)
					s.RemoveArgument(a)
					logger.WithField("entry", a.String()).Info("dropped mapping of missing argument")
				}
			}
		}
	}
	dropShadowing(x, s, r, logger)
	return r
}

func dropShadowing(x *jarindex.Index, s *mapping.Store, r *Report, logger log.Interface) {
	var classes []*mapping.ClassMapping
	s.Walk(func(cm *mapping.ClassMapping) { classes = append(classes, cm) })
	for _, cm := range classes {
		name := cm.DeobfName()
		if name == "" {
			continue
		}
		c := cm.Obf()
		taken := entry.NewClassEntry(name)
		if outer, ok := c.OuterClass(); ok {
			taken = outer.BuildChild(name)
		}
		if taken == c || !x.ContainsClass(taken) {
			continue
		}
		if _, renamed := s.ClassName(taken); renamed {
			continue
		}
		r.Shadowing = append(r.Shadowing, c)
		s.RemoveClassName(c)
		logger.WithFields(log.Fields{"class": c.Name(), "name": name}).Warn("dropped class name taken by an unmapped class")
	}
}
