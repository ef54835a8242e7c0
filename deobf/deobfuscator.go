// Package deobf is the editing side of a workbench session: it owns the
// mapping store of one jar index and applies validated renames to it.
//
// Edits are serialised. Each edit works on a private copy of the store
// and publishes it only when the whole edit succeeded, so readers holding
// a Snapshot never see a half applied rename and a failed edit leaves no
// trace. Every published edit bumps the generation number.
package deobf

import (
	"sort"
	"sync"

	"github.com/apex/log"

	"github.com/swind/go-enigma/checker"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
	"github.com/swind/go-enigma/translate"
)

type Option func(*Deobfuscator)

func WithLogger(l log.Interface) Option {
	return func(d *Deobfuscator) { d.logger = l }
}

// WithRenameHook registers fn to be called after every successful edit.
func WithRenameHook(fn func(kind string)) Option {
	return func(d *Deobfuscator) { d.hook = fn }
}

type Deobfuscator struct {
	index  *jarindex.Index
	logger log.Interface
	hook   func(kind string)

	mu    sync.RWMutex
	store *mapping.Store // published stores are never modified
	gen   uint64
}

func New(index *jarindex.Index, opts ...Option) *Deobfuscator {
	d := &Deobfuscator{
		index:  index,
		logger: log.Log,
		store:  mapping.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Deobfuscator) Index() *jarindex.Index { return d.index }

// Snapshot is a consistent read-only view of one generation.
type Snapshot struct {
	Generation uint64
	// Store must not be modified.
	Store         *mapping.Store
	Deobfuscating *translate.Translator
	Obfuscating   *translate.Translator
}

func (d *Deobfuscator) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		Generation:    d.gen,
		Store:         d.store,
		Deobfuscating: translate.New(translate.Deobfuscating, d.index, d.store),
		Obfuscating:   translate.New(translate.Obfuscating, d.index, d.store),
	}
}

func (d *Deobfuscator) Generation() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.gen
}

// Translator returns a translator over the current generation.
func (d *Deobfuscator) Translator(dir translate.Direction) *translate.Translator {
	s := d.Snapshot()
	if dir == translate.Obfuscating {
		return s.Obfuscating
	}
	return s.Deobfuscating
}

// Mappings returns a copy of the current store.
func (d *Deobfuscator) Mappings() *mapping.Store {
	return d.Snapshot().Store.Clone()
}

// SetMappings replaces the store with a checked copy of s and reports the
// records that did not resolve against the index. A nil store clears all
// mappings.
func (d *Deobfuscator) SetMappings(s *mapping.Store) *checker.Report {
	next := mapping.New()
	if s != nil {
		next = s.Clone()
	}
	report := checker.Check(d.index, next, d.logger)
	if !report.Empty() {
		d.logger.WithField("dropped", report.Len()).Warn("mappings do not match the jar")
	}

	d.mu.Lock()
	d.store = next
	d.gen++
	d.mu.Unlock()
	return report
}

// edit runs fn on a copy of the store and publishes the copy when fn
// reports a change.
func (d *Deobfuscator) edit(kind string, fn func(e *editor) (bool, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := newEditor(d.index, d.store.Clone())
	changed, err := fn(e)
	if err != nil || !changed {
		return err
	}
	d.store = e.store
	d.gen++
	if d.hook != nil {
		d.hook(kind)
	}
	return nil
}

// Rename gives the obfuscated entry obf the name newName. Methods are
// renamed on every root of their family and bridges on their delegate.
// Constructors, entries outside the jar and members of library classes
// fail with ErrNonRenameable; names that break the identifier grammar
// with ErrInvalidName; names already used by a sibling with
// ErrDuplicateName. On failure nothing changes.
func (d *Deobfuscator) Rename(obf entry.Entry, newName string) error {
	err := d.edit("rename", func(e *editor) (bool, error) {
		return true, e.rename(obf, newName)
	})
	if err == nil {
		d.logger.WithFields(log.Fields{"entry": obf.String(), "name": newName}).Debug("renamed")
	}
	return err
}

// RemoveMapping clears the name of obf.
func (d *Deobfuscator) RemoveMapping(obf entry.Entry) error {
	return d.edit("remove", func(e *editor) (bool, error) {
		return e.remove(obf)
	})
}

// MarkAsDeobfuscated records the obfuscated name of obf as its real name.
func (d *Deobfuscator) MarkAsDeobfuscated(obf entry.Entry) error {
	return d.edit("mark", func(e *editor) (bool, error) {
		return true, e.rename(obf, obfSimpleName(obf))
	})
}

func obfSimpleName(obf entry.Entry) string {
	if c, ok := obf.(entry.ClassEntry); ok && c.IsInner() {
		return c.InnermostName()
	}
	return obf.Name()
}

// IsRenameable reports whether a rename at ref is allowed to go ahead.
// A constructor reference is renamed through its class.
func (d *Deobfuscator) IsRenameable(ref entry.Reference) bool {
	_, err := newEditor(d.index, nil).target(ref.NameableEntry())
	return err == nil
}

// HasDeobfuscatedName reports whether obf has a recorded name.
func (d *Deobfuscator) HasDeobfuscatedName(obf entry.Entry) bool {
	s := d.Snapshot()
	switch v := obf.(type) {
	case entry.ClassEntry:
		_, ok := s.Store.ClassName(v)
		return ok
	case entry.FieldEntry:
		_, ok := s.Store.FieldName(v)
		return ok
	case entry.MethodEntry:
		_, ok := s.Deobfuscating.MethodName(v)
		return ok
	case entry.ArgumentEntry:
		_, ok := s.Store.ArgumentName(v.Behavior(), v.Index())
		return ok
	}
	return false
}

// IsObfuscatedIdentifier reports whether obf is declared by the jar
// rather than by a library it links against. A method that overrides a
// library method belongs to the library.
func (d *Deobfuscator) IsObfuscatedIdentifier(obf entry.Entry) bool {
	switch v := obf.(type) {
	case entry.MethodEntry:
		if !d.index.Contains(v) {
			return false
		}
		for _, r := range d.index.Family(v) {
			if d.index.IsBoundary(r) {
				return false
			}
		}
		return true
	case entry.ArgumentEntry:
		return d.IsObfuscatedIdentifier(v.Behavior()) && d.index.Contains(v)
	}
	return d.index.Contains(obf)
}

// SeparatedClasses splits the top-level classes of the jar into those
// that still look obfuscated and those that do not: renamed classes and
// classes that live in a package. Both lists hold obfuscated entries; the
// first is sorted by obfuscated name, the second by deobfuscated name.
func (d *Deobfuscator) SeparatedClasses() (obf, deobf []entry.ClassEntry) {
	s := d.Snapshot()
	names := make(map[entry.ClassEntry]string)
	for _, c := range d.index.Classes() {
		if _, inner := d.index.OuterClass(c); inner || c.IsInner() {
			continue
		}
		_, renamed := s.Store.ClassName(c)
		if renamed || c.Package() != "" {
			deobf = append(deobf, c)
			names[c] = s.Deobfuscating.Class(c).Name()
		} else {
			obf = append(obf, c)
		}
	}
	sort.SliceStable(deobf, func(i, j int) bool { return names[deobf[i]] < names[deobf[j]] })
	return obf, deobf
}
