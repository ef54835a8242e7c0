// Package workbench is the headless controller of an editing session: one
// open jar with its mappings, the class currently shown, and the reference
// history used for back navigation. Every call takes and returns
// deobfuscated entries, the way a user sees them; obfuscated entries stay
// inside.
package workbench

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/apex/log"

	"github.com/swind/go-enigma/archive"
	"github.com/swind/go-enigma/checker"
	"github.com/swind/go-enigma/deobf"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
	"github.com/swind/go-enigma/metrics"
	"github.com/swind/go-enigma/progress"
	"github.com/swind/go-enigma/regexlist"
	"github.com/swind/go-enigma/source"
	"github.com/swind/go-enigma/source/skeleton"
	"github.com/swind/go-enigma/translate"
)

var ErrNoJar = errors.New("workbench: no jar open")

type Option func(*Controller)

func WithLogger(l log.Interface) Option {
	return func(c *Controller) { c.logger = l }
}

// WithWorkers sets the class scan width of OpenJar.
func WithWorkers(n int) Option {
	return func(c *Controller) { c.workers = n }
}

// WithCacheSize sets how many decompiled classes are kept.
func WithCacheSize(n int) Option {
	return func(c *Controller) { c.cacheSize = n }
}

// WithDecompiler replaces the skeleton decompiler.
func WithDecompiler(fn func(x *jarindex.Index) source.Decompiler) Option {
	return func(c *Controller) { c.newDecompiler = fn }
}

type session struct {
	jar   *archive.Archive
	index *jarindex.Index
	deobf *deobf.Deobfuscator
	cache *source.Cache
}

type Controller struct {
	logger        log.Interface
	workers       int
	cacheSize     int
	newDecompiler func(x *jarindex.Index) source.Decompiler

	mu      sync.Mutex
	s       *session
	rules   regexlist.List
	dirty   bool
	current *View
	back    []entry.Reference // obfuscated
}

func New(opts ...Option) *Controller {
	c := &Controller{
		logger:    log.Log,
		workers:   runtime.GOMAXPROCS(0),
		cacheSize: source.DefaultCacheSize,
		newDecompiler: func(x *jarindex.Index) source.Decompiler {
			return skeleton.New(x)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) session() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.s == nil {
		return nil, ErrNoJar
	}
	return c.s, nil
}

// OpenJar indexes the jar at path and makes it the open jar. On failure
// the previous jar stays open.
func (c *Controller) OpenJar(ctx context.Context, path string, l progress.Listener) error {
	jar, err := archive.Open(path)
	if err != nil {
		return err
	}
	x, err := jarindex.Build(ctx, jar,
		jarindex.WithLogger(c.logger),
		jarindex.WithWorkers(c.workers),
		jarindex.WithProgress(l))
	if err != nil {
		jar.Close()
		return err
	}
	cache, err := source.NewCache(c.newDecompiler(x), c.cacheSize)
	if err != nil {
		jar.Close()
		return err
	}
	cache.OnLookup(metrics.ObserveCacheLookup)
	metrics.ObserveIndex(x.Len())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	c.s = &session{
		jar:   jar,
		index: x,
		deobf: deobf.New(x, deobf.WithLogger(c.logger), deobf.WithRenameHook(metrics.ObserveEdit)),
		cache: cache,
	}
	c.logger.WithFields(log.Fields{"jar": path, "classes": x.Len()}).Info("opened jar")
	return nil
}

// CloseJar closes the open jar and forgets its mappings.
func (c *Controller) CloseJar() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Controller) closeLocked() {
	if c.s != nil {
		c.s.jar.Close()
	}
	c.s = nil
	c.dirty = false
	c.current = nil
	c.back = nil
}

// Index returns the index of the open jar.
func (c *Controller) Index() (*jarindex.Index, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	return s.index, nil
}

// IsDirty reports whether the mappings changed since they were opened or
// saved.
func (c *Controller) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// OpenMappings loads the mappings file at path and reports the records
// that do not fit the jar; those are dropped.
func (c *Controller) OpenMappings(path string) (*checker.Report, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	store, err := mapping.ReadFile(path)
	if err != nil {
		return nil, err
	}
	report := s.deobf.SetMappings(store)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
	c.refreshLocked(context.Background())
	return report, nil
}

// SaveMappings writes the current mappings to path.
func (c *Controller) SaveMappings(path string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	if err := mapping.WriteFile(path, s.deobf.Mappings()); err != nil {
		return err
	}
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// CloseMappings drops every mapping.
func (c *Controller) CloseMappings() error {
	s, err := c.session()
	if err != nil {
		return err
	}
	s.deobf.SetMappings(nil)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
	c.refreshLocked(context.Background())
	return nil
}

// OpenRegexList loads the cosmetic rules used by ExportSource.
func (c *Controller) OpenRegexList(path string) error {
	rules, err := regexlist.ReadFile(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.rules = rules
	c.mu.Unlock()
	return nil
}

func (c *Controller) CloseRegexList() {
	c.mu.Lock()
	c.rules = nil
	c.mu.Unlock()
}

func (c *Controller) deobfuscating(s *session) *translate.Translator {
	return s.deobf.Translator(translate.Deobfuscating)
}

func (c *Controller) obfuscating(s *session) *translate.Translator {
	return s.deobf.Translator(translate.Obfuscating)
}

// SeparatedClasses lists the top-level classes that still look
// obfuscated and, by their deobfuscated names, the others.
func (c *Controller) SeparatedClasses() (obfClasses, deobfClasses []entry.ClassEntry, err error) {
	s, err := c.session()
	if err != nil {
		return nil, nil, err
	}
	obfClasses, named := s.deobf.SeparatedClasses()
	tr := c.deobfuscating(s)
	for _, cls := range named {
		deobfClasses = append(deobfClasses, tr.Class(cls))
	}
	return obfClasses, deobfClasses, nil
}

// ObfuscateReference maps a reference the user sees to the jar.
func (c *Controller) ObfuscateReference(r entry.Reference) (entry.Reference, error) {
	s, err := c.session()
	if err != nil {
		return entry.Reference{}, err
	}
	return c.obfuscating(s).Reference(r), nil
}

func (c *Controller) DeobfuscateReference(r entry.Reference) (entry.Reference, error) {
	s, err := c.session()
	if err != nil {
		return entry.Reference{}, err
	}
	return c.deobfuscating(s).Reference(r), nil
}

// EntryHasDeobfuscatedName reports whether the entry has a mapping.
func (c *Controller) EntryHasDeobfuscatedName(deobfEntry entry.Entry) bool {
	s, err := c.session()
	if err != nil {
		return false
	}
	return s.deobf.HasDeobfuscatedName(c.obfuscating(s).Translate(deobfEntry))
}

// EntryIsInJar reports whether the entry is declared by the open jar.
func (c *Controller) EntryIsInJar(deobfEntry entry.Entry) bool {
	s, err := c.session()
	if err != nil {
		return false
	}
	return s.deobf.IsObfuscatedIdentifier(c.obfuscating(s).Translate(deobfEntry))
}

func (c *Controller) ReferenceIsRenameable(deobfRef entry.Reference) bool {
	s, err := c.session()
	if err != nil {
		return false
	}
	return s.deobf.IsRenameable(c.obfuscating(s).Reference(deobfRef))
}

// outermost finds the top-level class holding c, following the inner
// class metadata of the jar.
func outermost(x *jarindex.Index, c entry.ClassEntry) entry.ClassEntry {
	if !x.ContainsClass(c) {
		return c.OutermostClass()
	}
	seen := map[entry.ClassEntry]bool{c: true}
	for {
		outer, ok := x.OuterClass(c)
		if !ok || seen[outer] {
			return c
		}
		seen[outer] = true
		c = outer
	}
}
