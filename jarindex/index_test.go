package jarindex_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/archive"
	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/jartest"
	"github.com/swind/go-enigma/progress"
)

var (
	pub  = classfile.AccPublic
	abst = classfile.AccPublic | classfile.AccAbstract
)

func cls(name string) entry.ClassEntry { return entry.NewClassEntry(name) }

func method(owner, name, sig string) entry.MethodEntry {
	return entry.NewMethodEntry(cls(owner), name, entry.Signature(sig))
}

func TestBuildStructure(t *testing.T) {
	a := jartest.NewClass("p/A")
	a.Field(classfile.AccPrivate, "a", "I")
	a.Method(pub, "<init>", "()V").InvokeSpecial("java/lang/Object", "<init>", "()V")
	a.Method(pub, "m", "()V")
	b := jartest.NewClass("p/B").Extends("p/A").Implements("p/I")
	i := jartest.NewClass("p/I").Interface()

	x := jartest.Index(t, b, a, i)

	assert.Equal(t, []entry.ClassEntry{cls("p/A"), cls("p/B"), cls("p/I")}, x.Classes())
	assert.True(t, x.ContainsClass(cls("p/A")))
	assert.False(t, x.ContainsClass(cls("java/lang/Object")))
	assert.True(t, x.IsBoundary(cls("java/lang/Object")))

	assert.Equal(t, []entry.FieldEntry{entry.NewFieldEntry(cls("p/A"), "a", "I")}, x.Fields(cls("p/A")))
	assert.Equal(t, []entry.BehaviorEntry{
		entry.NewConstructorEntry(cls("p/A"), "()V"),
		method("p/A", "m", "()V"),
	}, x.Behaviors(cls("p/A")))

	super, ok := x.Superclass(cls("p/B"))
	require.True(t, ok)
	assert.Equal(t, cls("p/A"), super)
	assert.Equal(t, []entry.ClassEntry{cls("p/I")}, x.Interfaces(cls("p/B")))
	assert.Equal(t, []entry.ClassEntry{cls("p/B")}, x.Subclasses(cls("p/A")))
	assert.Equal(t, []entry.ClassEntry{cls("p/B")}, x.Implementations(cls("p/I")))
	assert.Equal(t, []entry.ClassEntry{cls("p/A"), cls("java/lang/Object"), cls("p/I")}, x.Ancestors(cls("p/B")))
	assert.True(t, x.IsInterface(cls("p/I")))

	assert.True(t, x.Contains(method("p/A", "m", "()V")))
	assert.False(t, x.Contains(method("p/B", "m", "()V")))
	assert.False(t, x.Contains(entry.NewArgumentEntry(method("p/A", "m", "()V"), 0, "x")))

	acc, ok := x.Access(entry.NewFieldEntry(cls("p/A"), "a", "I"))
	require.True(t, ok)
	assert.True(t, acc.Has(classfile.AccPrivate))
}

func TestOverrideRoots(t *testing.T) {
	a := jartest.NewClass("A")
	a.Method(pub, "m", "()V")
	a.Method(classfile.AccPrivate, "p", "()V")
	b := jartest.NewClass("B").Extends("A")
	b.Method(pub, "m", "()V")
	b.Method(pub, "p", "()V")
	c := jartest.NewClass("C").Extends("B")
	c.Method(pub, "m", "()V")

	i := jartest.NewClass("I").Interface()
	i.Method(abst, "run", "()V")
	j := jartest.NewClass("J").Interface()
	j.Method(abst, "run", "()V")
	k := jartest.NewClass("K").Implements("J", "I")
	k.Method(pub, "run", "()V")

	d := jartest.NewClass("D").Implements("I")
	d.Method(pub, "m", "()V")
	e := jartest.NewClass("E").Extends("D").Implements("J")
	e.Method(pub, "run", "()V")

	x := jartest.Index(t, a, b, c, i, j, k, d, e)

	root := []entry.BehaviorEntry{method("A", "m", "()V")}
	assert.Equal(t, root, x.OverrideRoots(method("A", "m", "()V")))
	assert.Equal(t, root, x.OverrideRoots(method("B", "m", "()V")))
	assert.Equal(t, root, x.OverrideRoots(method("C", "m", "()V")))

	// private methods are not overridden
	assert.Equal(t, []entry.BehaviorEntry{method("B", "p", "()V")}, x.OverrideRoots(method("B", "p", "()V")))

	// interfaces in declaration order
	assert.Equal(t, []entry.BehaviorEntry{method("J", "run", "()V"), method("I", "run", "()V")},
		x.OverrideRoots(method("K", "run", "()V")))

	// superclass chain first
	assert.Equal(t, []entry.BehaviorEntry{method("I", "run", "()V"), method("J", "run", "()V")},
		x.OverrideRoots(method("E", "run", "()V")))

	assert.Equal(t, []entry.BehaviorEntry{method("A", "m", "()V")}, x.Overrides(method("B", "m", "()V")))
	assert.Equal(t, []entry.BehaviorEntry{method("B", "m", "()V")}, x.Overriders(method("A", "m", "()V")))
	assert.ElementsMatch(t, []entry.BehaviorEntry{method("K", "run", "()V"), method("E", "run", "()V")},
		x.MethodImplementations(method("J", "run", "()V")))

	tree := x.MethodInheritanceTree(method("C", "m", "()V"))
	var visited []string
	tree.Walk(func(n *jarindex.Node, depth int) {
		visited = append(visited, n.Entry.ClassEntry().Name())
	})
	assert.Equal(t, []string{"A", "B", "C"}, visited)
}

func TestBridge(t *testing.T) {
	g := jartest.NewClass("G")
	g.Method(pub, "id", "(Ljava/lang/String;)Ljava/lang/String;")
	g.Bridge("id", "(Ljava/lang/Object;)Ljava/lang/Object;", "(Ljava/lang/String;)Ljava/lang/String;")

	x := jartest.Index(t, g)

	bridge := method("G", "id", "(Ljava/lang/Object;)Ljava/lang/Object;")
	delegate := method("G", "id", "(Ljava/lang/String;)Ljava/lang/String;")

	target, ok := x.BridgeTarget(bridge)
	require.True(t, ok)
	assert.Equal(t, entry.BehaviorEntry(delegate), target)
	assert.Equal(t, []entry.BehaviorEntry{bridge}, x.Bridges(delegate))
	assert.Equal(t, []entry.BehaviorEntry{delegate}, x.OverrideRoots(bridge))
	assert.Equal(t, []entry.BehaviorEntry{delegate}, x.OverrideRoots(delegate))
}

func TestBridgeThroughInterface(t *testing.T) {
	f := jartest.NewClass("F").Interface()
	f.Method(abst, "apply", "(Ljava/lang/Object;)Ljava/lang/Object;")
	impl := jartest.NewClass("Impl").Implements("F")
	impl.Method(pub, "apply", "(Ljava/lang/String;)Ljava/lang/String;")
	impl.Bridge("apply", "(Ljava/lang/Object;)Ljava/lang/Object;", "(Ljava/lang/String;)Ljava/lang/String;")

	x := jartest.Index(t, f, impl)

	root := []entry.BehaviorEntry{method("F", "apply", "(Ljava/lang/Object;)Ljava/lang/Object;")}
	assert.Equal(t, root, x.OverrideRoots(method("Impl", "apply", "(Ljava/lang/String;)Ljava/lang/String;")))
	assert.Equal(t, root, x.OverrideRoots(method("Impl", "apply", "(Ljava/lang/Object;)Ljava/lang/Object;")))
}

func TestFamily(t *testing.T) {
	a := jartest.NewClass("A")
	a.Method(pub, "m", "()V")
	i := jartest.NewClass("I").Interface()
	i.Method(abst, "m", "()V")
	c := jartest.NewClass("C").Extends("A").Implements("I")

	x := jartest.Index(t, a, i, c)

	assert.Equal(t, []entry.BehaviorEntry{method("A", "m", "()V")}, x.OverrideRoots(method("A", "m", "()V")))
	assert.Equal(t, []entry.BehaviorEntry{method("A", "m", "()V"), method("I", "m", "()V")},
		x.Family(method("A", "m", "()V")))
	assert.Equal(t, []entry.BehaviorEntry{method("I", "m", "()V"), method("A", "m", "()V")},
		x.Family(method("I", "m", "()V")))
}

func TestBoundaryRoots(t *testing.T) {
	a := jartest.NewClass("A").Extends("lib/Base")
	a.Method(pub, "toString", "()Ljava/lang/String;")
	a.Method(pub, "run", "()V").InvokeVirtual("lib/Base", "tick", "()V")
	a.Method(pub, "tick", "()V")

	x := jartest.Index(t, a)

	roots := x.OverrideRoots(method("A", "toString", "()Ljava/lang/String;"))
	assert.Equal(t, []entry.BehaviorEntry{method("java/lang/Object", "toString", "()Ljava/lang/String;")}, roots)
	assert.True(t, x.IsBoundary(roots[0]))

	roots = x.OverrideRoots(method("A", "tick", "()V"))
	assert.Equal(t, []entry.BehaviorEntry{method("lib/Base", "tick", "()V")}, roots)
	assert.True(t, x.IsBoundary(roots[0]))

	assert.Equal(t, []string{"lib/Base.tick()V"}, x.ExternalReferences(cls("A")))
}

func TestReferences(t *testing.T) {
	base := jartest.NewClass("Base")
	base.Field(classfile.AccProtected, "hp", "I")
	base.Method(pub, "heal", "()V")
	sub := jartest.NewClass("Sub").Extends("Base")
	caller := jartest.NewClass("Caller")
	caller.Method(pub, "go", "(LSub;)V").
		GetField("Sub", "hp", "I").
		PutField("Sub", "hp", "I").
		InvokeVirtual("Sub", "heal", "()V").
		New("Sub", "()V").
		LdcString("ouch")

	x := jartest.Index(t, base, sub, caller)

	goM := method("Caller", "go", "(LSub;)V")
	hp := entry.NewFieldEntry(cls("Base"), "hp", "I")
	reads, writes := x.FieldAccesses(hp)
	assert.Equal(t, []entry.Reference{entry.NewReference(hp, cls("Caller"), goM)}, reads)
	assert.Equal(t, []entry.Reference{entry.NewReference(hp, cls("Caller"), goM)}, writes)
	assert.Len(t, x.ReferencesTo(hp), 2)

	heal := method("Base", "heal", "()V")
	assert.Equal(t, []entry.Reference{entry.NewReference(heal, cls("Caller"), goM)}, x.ReferencesTo(heal))

	// Sub declares no constructor, so the reference stays on Sub.
	ctor := entry.NewConstructorEntry(cls("Sub"), "()V")
	assert.Len(t, x.ReferencesTo(ctor), 1)
	assert.False(t, x.Contains(ctor))
	assert.Len(t, x.ReferencesTo(cls("Sub")), 1)

	assert.Len(t, x.ReferencesFrom(goM), 5)
	assert.Equal(t, []string{"ouch"}, x.Strings(cls("Caller")))
}

func TestInnerClasses(t *testing.T) {
	outer := jartest.NewClass("Outer").
		InnerClass("Outer$Inner", "Outer", "Inner", classfile.AccStatic).
		InnerClass("Outer$1", "", "", 0)
	inner := jartest.NewClass("Outer$Inner").InnerClass("Outer$Inner", "Outer", "Inner", classfile.AccStatic)
	anon := jartest.NewClass("Outer$1").InnerClass("Outer$1", "", "", 0)
	// Metadata wins over the name.
	odd := jartest.NewClass("x").InnerClass("x", "Outer", "x", 0)

	x := jartest.Index(t, outer, inner, anon, odd)

	got, ok := x.OuterClass(cls("Outer$Inner"))
	require.True(t, ok)
	assert.Equal(t, cls("Outer"), got)
	assert.True(t, x.IsAnonymous(cls("Outer$1")))
	assert.False(t, x.IsAnonymous(cls("Outer$Inner")))
	assert.ElementsMatch(t, []entry.ClassEntry{cls("Outer$Inner"), cls("Outer$1"), cls("x")}, x.InnerClasses(cls("Outer")))
	got, ok = x.OuterClass(cls("x"))
	require.True(t, ok)
	assert.Equal(t, cls("Outer"), got)
}

func TestCorruptClassSkipped(t *testing.T) {
	data := jartest.Jar(jartest.Classes(jartest.NewClass("Good")),
		jartest.File{Name: "Bad.class", Data: []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0}})
	arc, err := archive.FromBytes("mixed.jar", data)
	require.NoError(t, err)

	x, err := jarindex.Build(context.Background(), arc, jarindex.WithLogger(jartest.Quiet), jarindex.WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, []entry.ClassEntry{cls("Good")}, x.Classes())
}

type failingSource struct{}

func (failingSource) ClassNames() []string { return []string{"A"} }
func (failingSource) ReadClass(string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestBuildReadFailure(t *testing.T) {
	_, err := jarindex.Build(context.Background(), failingSource{})
	assert.ErrorContains(t, err, "disk on fire")
}

type recorder struct {
	total   int
	label   string
	current int
}

func (r *recorder) Init(total int, label string) { r.total, r.label = total, label }
func (r *recorder) OnProgress(current int, _ string) {
	if current > r.current {
		r.current = current
	}
}

func TestBuildProgressAndCancel(t *testing.T) {
	arc := jartest.Archive(t, jartest.NewClass("A"), jartest.NewClass("B"))

	rec := &recorder{}
	_, err := jarindex.Build(context.Background(), arc, jarindex.WithProgress(rec), jarindex.WithWorkers(1))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.total)
	assert.Equal(t, 2, rec.current)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = jarindex.Build(ctx, arc)
	assert.True(t, errors.Is(err, context.Canceled))

	flag := progress.WithCancel(nil)
	flag.Cancel()
	_, err = jarindex.Build(context.Background(), arc, jarindex.WithProgress(flag))
	assert.True(t, errors.Is(err, progress.ErrCanceled))
}

func TestClassTrees(t *testing.T) {
	x := jartest.Index(t,
		jartest.NewClass("A"),
		jartest.NewClass("B").Extends("A"),
		jartest.NewClass("C").Extends("B"),
		jartest.NewClass("D").Extends("A").Implements("I"),
		jartest.NewClass("I").Interface(),
	)

	tree := x.ClassInheritanceTree(cls("C"))
	assert.Equal(t, cls("A"), tree.Entry)
	require.Len(t, tree.Children, 2)

	impls := x.ClassImplementationsTree(cls("I"))
	require.Len(t, impls.Children, 1)
	assert.Equal(t, cls("D"), impls.Children[0].Entry)
}
