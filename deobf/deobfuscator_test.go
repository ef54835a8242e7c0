package deobf_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/deobf"
	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jartest"
	"github.com/swind/go-enigma/mapping"
	"github.com/swind/go-enigma/progress"
	"github.com/swind/go-enigma/translate"
)

var pub = classfile.AccPublic

func cls(name string) entry.ClassEntry { return entry.NewClassEntry(name) }

func method(owner, name, sig string) entry.MethodEntry {
	return entry.NewMethodEntry(cls(owner), name, entry.Signature(sig))
}

func newDeobfuscator(t *testing.T, classes ...*jartest.ClassBuilder) *deobf.Deobfuscator {
	return deobf.New(jartest.Index(t, classes...), deobf.WithLogger(jartest.Quiet))
}

func TestRenameSubclassMethodGoesToRoot(t *testing.T) {
	a := jartest.NewClass("A")
	a.Method(pub, "m", "()V")
	b := jartest.NewClass("B").Extends("A")
	b.Method(pub, "m", "()V")
	d := newDeobfuscator(t, a, b)

	require.NoError(t, d.Rename(method("B", "m", "()V"), "run"))

	tr := d.Translator(translate.Deobfuscating)
	assert.Equal(t, "run", tr.Behavior(method("A", "m", "()V")).Name())
	assert.Equal(t, "run", tr.Behavior(method("B", "m", "()V")).Name())

	s := d.Mappings()
	_, _, methods, _ := s.Counts()
	assert.Equal(t, 1, methods)
	_, ok := s.Method(method("A", "m", "()V"))
	assert.True(t, ok, "the record is owned by A")
}

func TestRenameBridgeRedirectsToDelegate(t *testing.T) {
	g := jartest.NewClass("G")
	g.Method(pub, "id", "(Ljava/lang/String;)Ljava/lang/String;")
	g.Bridge("id", "(Ljava/lang/Object;)Ljava/lang/Object;", "(Ljava/lang/String;)Ljava/lang/String;")
	d := newDeobfuscator(t, g)

	bridge := method("G", "id", "(Ljava/lang/Object;)Ljava/lang/Object;")
	delegate := method("G", "id", "(Ljava/lang/String;)Ljava/lang/String;")
	require.NoError(t, d.Rename(bridge, "identify"))

	s := d.Mappings()
	name, ok := s.MethodName(delegate)
	assert.True(t, ok)
	assert.Equal(t, "identify", name)
	_, ok = s.Method(bridge)
	assert.False(t, ok, "nothing is recorded on the bridge")

	tr := d.Translator(translate.Deobfuscating)
	assert.Equal(t, "identify", tr.Behavior(bridge).Name())
}

func TestRenameDuplicateFieldIsRejected(t *testing.T) {
	c := jartest.NewClass("C")
	c.Field(classfile.AccPrivate, "a", "I")
	c.Field(classfile.AccPrivate, "b", "I")
	d := newDeobfuscator(t, c)

	require.NoError(t, d.Rename(entry.NewFieldEntry(cls("C"), "a", "I"), "count"))
	before, gen := d.Mappings().Text(), d.Generation()

	err := d.Rename(entry.NewFieldEntry(cls("C"), "b", "I"), "count")
	assert.ErrorIs(t, err, enigmaerr.ErrDuplicateName)
	assert.Equal(t, before, d.Mappings().Text())
	assert.Equal(t, gen, d.Generation())
}

func TestRenameChecksUnmappedSiblings(t *testing.T) {
	c := jartest.NewClass("C")
	c.Field(classfile.AccPrivate, "a", "I")
	c.Field(classfile.AccPrivate, "b", "J")
	c.Method(pub, "x", "()V")
	c.Method(pub, "y", "()V")
	c.Method(pub, "z", "(I)V")
	o := jartest.NewClass("o")
	p := jartest.NewClass("p")
	in1 := jartest.NewClass("o$a")
	in2 := jartest.NewClass("o$b")
	d := newDeobfuscator(t, c, o, p, in1, in2)

	assert.ErrorIs(t, d.Rename(entry.NewFieldEntry(cls("C"), "a", "I"), "b"), enigmaerr.ErrDuplicateName)
	assert.ErrorIs(t, d.Rename(method("C", "x", "()V"), "y"), enigmaerr.ErrDuplicateName)
	assert.NoError(t, d.Rename(method("C", "x", "()V"), "z"), "different signature")
	assert.ErrorIs(t, d.Rename(cls("o"), "p"), enigmaerr.ErrDuplicateName)
	assert.ErrorIs(t, d.Rename(cls("o$a"), "b"), enigmaerr.ErrDuplicateName)
	assert.NoError(t, d.Rename(entry.NewArgumentEntry(method("C", "z", "(I)V"), 0, "arg0"), "x"))
}

func TestRenameOverrideCollision(t *testing.T) {
	a := jartest.NewClass("A")
	a.Method(pub, "m", "()V")
	b := jartest.NewClass("B").Extends("A")
	b.Method(pub, "m", "()V")
	b.Method(pub, "n", "()V")
	d := newDeobfuscator(t, a, b)

	err := d.Rename(method("A", "m", "()V"), "n")
	assert.ErrorIs(t, err, enigmaerr.ErrDuplicateName, "B.m would clash with B.n")
}

func TestRenameChecksSupertypesAndSubtypes(t *testing.T) {
	a := jartest.NewClass("A")
	a.Method(pub, "b", "()V")
	a.Method(pub, "e", "()V")
	b := jartest.NewClass("B").Extends("A")
	b.Method(pub, "c", "()V")
	sibling := jartest.NewClass("C").Extends("A")
	sibling.Method(pub, "d", "()V")
	d := newDeobfuscator(t, a, b, sibling)

	assert.ErrorIs(t, d.Rename(method("B", "c", "()V"), "b"), enigmaerr.ErrDuplicateName, "B.b would override A.b")
	assert.ErrorIs(t, d.Rename(method("A", "b", "()V"), "c"), enigmaerr.ErrDuplicateName, "B.c would override A.c")

	require.NoError(t, d.Rename(method("A", "e", "()V"), "run"))
	assert.ErrorIs(t, d.Rename(method("B", "c", "()V"), "run"), enigmaerr.ErrDuplicateName, "mapped names count too")

	assert.NoError(t, d.Rename(method("B", "c", "()V"), "d"), "C is not related to B")
}

func TestNonRenameable(t *testing.T) {
	a := jartest.NewClass("A")
	a.Method(pub, "<init>", "()V")
	a.Method(pub, "toString", "()Ljava/lang/String;")
	a.Method(pub, "m", "()V").InvokeVirtual("lib/L", "x", "()V")
	d := newDeobfuscator(t, a)

	for name, e := range map[string]entry.Entry{
		"constructor": entry.NewConstructorEntry(cls("A"), "()V"),
		"library":     method("lib/L", "x", "()V"),
		"override":    method("A", "toString", "()Ljava/lang/String;"),
		"missing":     method("A", "q", "()V"),
		"class":       cls("lib/L"),
		"argument":    entry.NewArgumentEntry(method("A", "m", "()V"), 0, "arg0"),
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, d.Rename(e, "valid"), enigmaerr.ErrNonRenameable)
		})
	}

	assert.ErrorIs(t, d.Rename(cls("A"), "class"), enigmaerr.ErrInvalidName)
	assert.ErrorIs(t, d.Rename(method("A", "m", "()V"), "1st"), enigmaerr.ErrInvalidName)
	assert.False(t, d.IsObfuscatedIdentifier(method("A", "toString", "()Ljava/lang/String;")))
	assert.True(t, d.IsObfuscatedIdentifier(method("A", "m", "()V")))
	assert.False(t, d.IsObfuscatedIdentifier(cls("lib/L")))
}

func TestIsRenameable(t *testing.T) {
	a := jartest.NewClass("A")
	a.Method(pub, "<init>", "()V")
	d := newDeobfuscator(t, a)

	ctor := entry.NewConstructorEntry(cls("A"), "()V")
	assert.True(t, d.IsRenameable(entry.NewReference(ctor, cls("A"), nil)), "constructor references rename the class")
	assert.False(t, d.IsRenameable(entry.DeclarationReference(method("lib/L", "x", "()V"))))
}

func TestInnerClassRenameRoundTrip(t *testing.T) {
	outer := jartest.NewClass("Outer").InnerClass("Outer$Inner", "Outer", "Inner", pub)
	inner := jartest.NewClass("Outer$Inner").InnerClass("Outer$Inner", "Outer", "Inner", pub)
	d := newDeobfuscator(t, outer, inner)

	require.NoError(t, d.Rename(cls("Outer$Inner"), "Helper"))

	var sb strings.Builder
	require.NoError(t, mapping.Write(&sb, d.Mappings()))
	back, err := mapping.Read(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.True(t, d.SetMappings(back).Empty())

	tr := d.Translator(translate.Deobfuscating)
	assert.Equal(t, cls("Outer$Helper"), tr.Class(cls("Outer$Inner")))
}

func TestNamesFollowDollarNotMetadata(t *testing.T) {
	outer := jartest.NewClass("Outer").InnerClass("x", "Outer", "x", pub)
	x := jartest.NewClass("x").InnerClass("x", "Outer", "x", pub)
	d := newDeobfuscator(t, outer, x, jartest.NewClass("y"))

	assert.ErrorIs(t, d.Rename(cls("x"), "y"), enigmaerr.ErrDuplicateName, "x is named among top-level classes")
	require.NoError(t, d.Rename(cls("x"), "pkg.Widget"))
	assert.Equal(t, cls("pkg/Widget"), d.Translator(translate.Deobfuscating).Class(cls("x")))
	assert.Equal(t, "CLASS x pkg/Widget\n", d.Mappings().Text())
}

func TestRemoveAndMark(t *testing.T) {
	a := jartest.NewClass("A")
	a.Method(pub, "m", "()V")
	b := jartest.NewClass("B").Extends("A")
	b.Method(pub, "m", "()V")
	d := newDeobfuscator(t, a, b)

	require.NoError(t, d.Rename(method("B", "m", "()V"), "run"))
	assert.True(t, d.HasDeobfuscatedName(method("B", "m", "()V")))

	gen := d.Generation()
	require.NoError(t, d.RemoveMapping(method("B", "m", "()V")))
	assert.False(t, d.HasDeobfuscatedName(method("A", "m", "()V")))
	assert.Greater(t, d.Generation(), gen)

	gen = d.Generation()
	require.NoError(t, d.RemoveMapping(method("B", "m", "()V")))
	assert.Equal(t, gen, d.Generation(), "removing nothing is not an edit")

	require.NoError(t, d.MarkAsDeobfuscated(cls("A")))
	assert.True(t, d.HasDeobfuscatedName(cls("A")))
	assert.Equal(t, cls("A"), d.Translator(translate.Deobfuscating).Class(cls("A")))

	assert.ErrorIs(t, d.RemoveMapping(entry.NewConstructorEntry(cls("A"), "()V")), enigmaerr.ErrNonRenameable)
}

func TestSnapshotsAreStable(t *testing.T) {
	a := jartest.NewClass("a")
	d := newDeobfuscator(t, a)

	before := d.Snapshot()
	require.NoError(t, d.Rename(cls("a"), "Player"))
	after := d.Snapshot()

	assert.Equal(t, cls("a"), before.Deobfuscating.Class(cls("a")))
	assert.Equal(t, cls("Player"), after.Deobfuscating.Class(cls("a")))
	assert.Greater(t, after.Generation, before.Generation)
}

func TestSeparatedClasses(t *testing.T) {
	d := newDeobfuscator(t,
		jartest.NewClass("a"), jartest.NewClass("b"), jartest.NewClass("b$c"), jartest.NewClass("net/Lib"))
	require.NoError(t, d.Rename(cls("b"), "Zed"))

	obf, deobfed := d.SeparatedClasses()
	assert.Equal(t, []entry.ClassEntry{cls("a")}, obf)
	assert.Equal(t, []entry.ClassEntry{cls("b"), cls("net/Lib")}, deobfed, "sorted by deobfuscated name")
}

func TestSetMappingsDropsBrokenRecords(t *testing.T) {
	d := newDeobfuscator(t, jartest.NewClass("a"))
	s, err := mapping.Read(strings.NewReader("CLASS a Player\nCLASS z Gone\n"))
	require.NoError(t, err)

	report := d.SetMappings(s)
	assert.Equal(t, []entry.ClassEntry{cls("z")}, report.Classes)
	assert.Equal(t, "CLASS a Player\n", d.Mappings().Text())
	assert.Equal(t, "CLASS a Player\nCLASS z Gone\n", s.Text(), "the caller's store is not modified")

	d.SetMappings(nil)
	assert.Empty(t, d.Mappings().Text())
}

func TestFixNames(t *testing.T) {
	a := jartest.NewClass("a")
	a.Field(classfile.AccPrivate, "a", "I")
	a.Field(classfile.AccPrivate, "b", "I")
	b := jartest.NewClass("pkg/bx")
	inner := jartest.NewClass("a$b")
	kw := jartest.NewClass("c")
	kw.Field(classfile.AccPrivate, "field3", "I")
	d := newDeobfuscator(t, a, b, inner, kw)

	n, err := d.FixNames(context.Background(), nil)
	require.NoError(t, err)

	tr := d.Translator(translate.Deobfuscating)
	assert.Equal(t, "field1", tr.Field(entry.NewFieldEntry(cls("a"), "a", "I")).Name())
	assert.Equal(t, "field2", tr.Field(entry.NewFieldEntry(cls("a"), "b", "I")).Name())
	assert.Equal(t, "field3", tr.Field(entry.NewFieldEntry(cls("c"), "field3", "I")).Name(), "already named")
	assert.Equal(t, cls("A1"), tr.Class(cls("a")))
	assert.Equal(t, cls("A1$Class2"), tr.Class(cls("a$b")))
	assert.Equal(t, cls("C3"), tr.Class(cls("c")))
	assert.Equal(t, cls("pkg/Bx"), tr.Class(cls("pkg/bx")))
	assert.Equal(t, 6, n)
}

func TestFixNamesCanceled(t *testing.T) {
	a := jartest.NewClass("a")
	a.Field(classfile.AccPrivate, "a", "I")
	d := newDeobfuscator(t, a)

	flag := progress.WithCancel(nil)
	flag.Cancel()
	_, err := d.FixNames(context.Background(), flag)
	assert.ErrorIs(t, err, progress.ErrCanceled)
	assert.Empty(t, d.Mappings().Text())
	assert.Zero(t, d.Generation())
}
