package jarindex

import (
	"context"
	"runtime"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/progress"
)

// Source is what Build reads classes from; *archive.Archive implements it.
type Source interface {
	ClassNames() []string
	ReadClass(name string) ([]byte, error)
}

type options struct {
	logger   log.Interface
	workers  int
	listener progress.Listener
}

type Option func(*options)

func WithLogger(l log.Interface) Option {
	return func(o *options) { o.logger = l }
}

// WithWorkers bounds the number of classes parsed concurrently.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithProgress(l progress.Listener) Option {
	return func(o *options) { o.listener = l }
}

// Build scans every class of src and links the result. Classes that fail
// to parse are logged and skipped. A failure to read the source aborts the
// build, as does cancellation through ctx or the progress listener.
func Build(ctx context.Context, src Source, opts ...Option) (*Index, error) {
	o := options{logger: log.Log, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	o.listener = progress.OrNop(o.listener)

	parsed, err := scan(ctx, src, &o)
	if err != nil {
		return nil, err
	}
	if err := progress.Check(ctx, o.listener); err != nil {
		return nil, err
	}

	b := newBuilder(o.logger)
	b.addClasses(parsed)
	b.wireInnerClasses(parsed)
	b.scanReferences(parsed)
	b.linkBridges(parsed)
	b.linkFamilies(b.linkOverrides())
	return b.x, nil
}

func scan(ctx context.Context, src Source, o *options) ([]*classfile.Class, error) {
	names := src.ClassNames()
	parsed := make([]*classfile.Class, len(names))
	counter := progress.NewCounter(o.listener, len(names), "Indexing classes")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, name := range names {
		if gctx.Err() != nil {
			break
		}
		i, name := i, name // per-iteration copy; go.mod targets go1.21
		g.Go(func() error {
			if err := progress.Check(gctx, o.listener); err != nil {
				return err
			}
			data, err := src.ReadClass(name)
			if err != nil {
				return err
			}
			cls, err := classfile.Parse(data)
			if err != nil {
				o.logger.WithError(err).WithField("class", name).Warn("skipping corrupt class")
			} else {
				parsed[i] = cls
			}
			counter.Step(name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parsed, nil
}

type builder struct {
	x      *Index
	logger log.Interface
}

func newBuilder(logger log.Interface) *builder {
	return &builder{
		logger: logger,
		x: &Index{
			classIDs:    make(map[entry.ClassEntry]int),
			fieldIDs:    make(map[entry.FieldEntry]int),
			behaviorIDs: make(map[entry.BehaviorEntry]int),
			families:    make(map[int][]int),
		},
	}
}

func (b *builder) internClass(c entry.ClassEntry) int {
	if id, ok := b.x.classIDs[c]; ok {
		return id
	}
	id := len(b.x.classes)
	b.x.classes = append(b.x.classes, classNode{
		entry:      c,
		super:      none,
		outer:      none,
		fieldByKey: make(map[string]int),
		byKey:      make(map[string]int),
	})
	b.x.classIDs[c] = id
	return id
}

func (b *builder) internField(owner int, f entry.FieldEntry) int {
	if id, ok := b.x.fieldIDs[f]; ok {
		return id
	}
	id := len(b.x.fields)
	b.x.fields = append(b.x.fields, fieldNode{entry: f, owner: owner})
	b.x.fieldIDs[f] = id
	c := &b.x.classes[owner]
	c.fieldByKey[fieldKey(f)] = id
	c.fields = append(c.fields, id)
	return id
}

func (b *builder) internBehavior(owner int, m entry.BehaviorEntry) int {
	if id, ok := b.x.behaviorIDs[m]; ok {
		return id
	}
	id := len(b.x.behaviors)
	b.x.behaviors = append(b.x.behaviors, behaviorNode{entry: m, owner: owner, bridgeTarget: none})
	b.x.behaviorIDs[m] = id
	c := &b.x.classes[owner]
	c.byKey[memberKey(m)] = id
	c.behaviors = append(c.behaviors, id)
	return id
}

func (b *builder) addClasses(parsed []*classfile.Class) {
	for i, cls := range parsed {
		if cls == nil {
			continue
		}
		c := entry.NewClassEntry(cls.Name)
		if id, ok := b.x.classIDs[c]; ok && b.x.classes[id].indexed {
			b.logger.WithField("class", cls.Name).Warn("duplicate class, keeping the first")
			parsed[i] = nil
			continue
		}
		id := b.internClass(c)
		node := &b.x.classes[id]
		node.indexed = true
		node.access = cls.Access
		b.x.names = append(b.x.names, c)

		for _, f := range cls.Fields {
			fid := b.internField(id, entry.NewFieldEntry(c, f.Name, entry.Type(f.Descriptor)))
			b.x.fields[fid].declared = true
			b.x.fields[fid].access = f.Access
		}
		for _, m := range cls.Methods {
			mid := b.internBehavior(id, entry.NewBehaviorEntry(c, m.Name, entry.Signature(m.Descriptor)))
			b.x.behaviors[mid].declared = true
			b.x.behaviors[mid].access = m.Access
			b.x.classes[id].strings = append(b.x.classes[id].strings, m.Strings...)
		}
	}

	// Supertypes are interned after all jar classes so boundary classes
	// never shadow a jar class that appears later in the scan.
	for _, cls := range parsed {
		if cls == nil {
			continue
		}
		id := b.x.classIDs[entry.NewClassEntry(cls.Name)]
		if cls.Super != "" {
			super := b.internClass(entry.NewClassEntry(cls.Super))
			b.x.classes[id].super = super
			b.x.classes[super].subclasses = append(b.x.classes[super].subclasses, id)
		}
		for _, name := range cls.Interfaces {
			iface := b.internClass(entry.NewClassEntry(name))
			b.x.classes[id].interfaces = append(b.x.classes[id].interfaces, iface)
			b.x.classes[iface].implementers = append(b.x.classes[iface].implementers, id)
		}
	}
}

// wireInnerClasses relates inner classes to their outer class. An
// InnerClasses row naming an outer class wins over the '$' in the name.
func (b *builder) wireInnerClasses(parsed []*classfile.Class) {
	rows := make(map[string]classfile.InnerClass)
	for _, cls := range parsed {
		if cls == nil {
			continue
		}
		for _, row := range cls.InnerClasses {
			// Prefer the row the inner class records about itself.
			if _, seen := rows[row.Inner]; !seen || row.Inner == cls.Name {
				rows[row.Inner] = row
			}
		}
	}

	for _, c := range b.x.names {
		id := b.x.classIDs[c]
		byName, hasOuter := c.OuterClass()
		outer := byName
		if row, ok := rows[c.Name()]; ok {
			if row.Outer != "" {
				outer, hasOuter = entry.NewClassEntry(row.Outer), true
				if outer != byName {
					b.logger.WithFields(log.Fields{"class": c.Name(), "outer": row.Outer}).Debug("inner class metadata overrides name")
				}
			}
			b.x.classes[id].anonymous = row.Outer == "" && row.Name == ""
		}
		if !hasOuter {
			continue
		}
		oid, ok := b.x.classIDs[outer]
		if !ok || !b.x.classes[oid].indexed || oid == id {
			continue
		}
		b.x.classes[id].outer = oid
		b.x.classes[oid].inner = append(b.x.classes[oid].inner, id)
	}
}

func (b *builder) addRef(kind classfile.RefKind, target entry.Entry, caller int) int {
	id := len(b.x.refs)
	b.x.refs = append(b.x.refs, ref{kind: kind, target: target, caller: caller})
	b.x.behaviors[caller].calls = append(b.x.behaviors[caller].calls, id)
	return id
}

func (b *builder) scanReferences(parsed []*classfile.Class) {
	for _, cls := range parsed {
		if cls == nil {
			continue
		}
		c := entry.NewClassEntry(cls.Name)
		for _, m := range cls.Methods {
			caller := b.x.behaviorIDs[entry.NewBehaviorEntry(c, m.Name, entry.Signature(m.Descriptor))]
			for _, r := range m.Refs {
				owner := b.internClass(entry.NewClassEntry(r.Owner))
				switch r.Kind {
				case classfile.FieldRead, classfile.FieldWrite:
					fid := b.resolveField(owner, r.Name, entry.Type(r.Descriptor))
					rid := b.addRef(r.Kind, b.x.fields[fid].entry, caller)
					b.x.fields[fid].refs = append(b.x.fields[fid].refs, rid)
				case classfile.Invoke:
					mid := b.resolveBehavior(owner, r.Name, entry.Signature(r.Descriptor))
					rid := b.addRef(r.Kind, b.x.behaviors[mid].entry, caller)
					b.x.behaviors[mid].refs = append(b.x.behaviors[mid].refs, rid)
				case classfile.Instantiate:
					rid := b.addRef(r.Kind, b.x.classes[owner].entry, caller)
					b.x.classes[owner].instantiated = append(b.x.classes[owner].instantiated, rid)
				}
			}
		}
	}
}

// resolveField follows the JVM field lookup: the class itself, its
// superinterfaces, then its superclass. Unresolved fields are interned on
// the first boundary class met, or on the referenced owner.
func (b *builder) resolveField(owner int, name string, typ entry.Type) int {
	key := name + ":" + string(typ)
	seen := make(map[int]bool)
	boundary := none
	var find func(c int) int
	find = func(c int) int {
		if c == none || seen[c] {
			return none
		}
		seen[c] = true
		n := &b.x.classes[c]
		if id, ok := n.fieldByKey[key]; ok {
			return id
		}
		if !n.indexed {
			if boundary == none {
				boundary = c
			}
			return none
		}
		for _, iface := range n.interfaces {
			if id := find(iface); id != none {
				return id
			}
		}
		return find(n.super)
	}
	if id := find(owner); id != none {
		return id
	}
	if boundary == none {
		boundary = owner
	}
	return b.internField(boundary, entry.NewFieldEntry(b.x.classes[boundary].entry, name, typ))
}

// resolveBehavior walks the superclass chain, then every superinterface.
// Constructors and static initializers resolve to the owner only.
func (b *builder) resolveBehavior(owner int, name string, sig entry.Signature) int {
	key := memberKey(entry.NewBehaviorEntry(entry.ClassEntry{}, name, sig))
	if name == entry.ConstructorName || name == entry.StaticInitializerName {
		if id, ok := b.x.classes[owner].byKey[key]; ok {
			return id
		}
		return b.internBehavior(owner, entry.NewBehaviorEntry(b.x.classes[owner].entry, name, sig))
	}

	boundary := none
	seen := make(map[int]bool)
	var chain []int
	for c := owner; c != none && !seen[c]; c = b.x.classes[c].super {
		seen[c] = true
		n := &b.x.classes[c]
		if id, ok := n.byKey[key]; ok {
			return id
		}
		if !n.indexed {
			boundary = c
			break
		}
		chain = append(chain, c)
	}

	var find func(c int) int
	find = func(c int) int {
		if seen[c] {
			return none
		}
		seen[c] = true
		n := &b.x.classes[c]
		if id, ok := n.byKey[key]; ok {
			return id
		}
		for _, iface := range n.interfaces {
			if id := find(iface); id != none {
				return id
			}
		}
		return none
	}
	for _, c := range chain {
		for _, iface := range b.x.classes[c].interfaces {
			if id := find(iface); id != none {
				return id
			}
		}
	}

	if boundary == none {
		boundary = owner
	}
	return b.internBehavior(boundary, entry.NewBehaviorEntry(b.x.classes[boundary].entry, name, sig))
}
