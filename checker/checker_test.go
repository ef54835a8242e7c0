package checker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/checker"
	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jartest"
	"github.com/swind/go-enigma/mapping"
)

func TestCheck(t *testing.T) {
	a := jartest.NewClass("a")
	a.Field(classfile.AccPrivate, "a", "I")
	a.Method(classfile.AccPublic, "a", "(I)V")
	inner := jartest.NewClass("a$b")
	x := jartest.Index(t, a, inner)

	s, err := mapping.Read(strings.NewReader(`CLASS a Player
	FIELD a health I
	FIELD z gone J
	METHOD a heal (I)V
		ARG 0 amount
	METHOD b vanished ()V
	CLASS a$b Helper
	CLASS a$c Missing
		FIELD a x I
CLASS q Removed
	CLASS q$r Nested
`))
	require.NoError(t, err)

	r := checker.Check(x, s, jartest.Quiet)
	assert.Equal(t, []entry.ClassEntry{entry.NewClassEntry("q")}, r.Classes)
	assert.Equal(t, []entry.ClassEntry{entry.NewClassEntry("a$c")}, r.InnerClasses)
	assert.Equal(t, []entry.FieldEntry{entry.NewFieldEntry(entry.NewClassEntry("a"), "z", "J")}, r.Fields)
	assert.Equal(t, []entry.BehaviorEntry{entry.NewMethodEntry(entry.NewClassEntry("a"), "b", "()V")}, r.Behaviors)
	assert.Empty(t, r.Arguments)
	assert.Equal(t, 4, r.Len())
	assert.Len(t, r.Lines(), 4)

	assert.Equal(t, "CLASS a Player\n\tFIELD a health I\n\tMETHOD a heal (I)V\n\t\tARG 0 amount\n\tCLASS a$b Helper\n", s.Text())

	again := checker.Check(x, s, jartest.Quiet)
	assert.True(t, again.Empty())
	assert.Equal(t, "CLASS a Player\n\tFIELD a health I\n\tMETHOD a heal (I)V\n\t\tARG 0 amount\n\tCLASS a$b Helper\n", s.Text())
}

func TestCheckArguments(t *testing.T) {
	a := jartest.NewClass("a")
	a.Method(classfile.AccPublic, "a", "(I)V")
	x := jartest.Index(t, a)

	s := mapping.New()
	m := entry.NewMethodEntry(entry.NewClassEntry("a"), "a", "(I)V")
	require.NoError(t, s.SetArgumentName(entry.NewArgumentEntry(m, 0, ""), "ok"))
	require.NoError(t, s.SetArgumentName(entry.NewArgumentEntry(m, 3, ""), "stale"))

	r := checker.Check(x, s, jartest.Quiet)
	require.Len(t, r.Arguments, 1)
	assert.Equal(t, 3, r.Arguments[0].Index())
	name, ok := s.ArgumentName(m, 0)
	assert.True(t, ok)
	assert.Equal(t, "ok", name)
}

func TestCheckDropsShadowingNames(t *testing.T) {
	a := jartest.NewClass("a")
	a.Field(classfile.AccPrivate, "f", "I")
	x := jartest.Index(t,
		a, jartest.NewClass("b"), jartest.NewClass("c"), jartest.NewClass("d"),
		jartest.NewClass("a$x"), jartest.NewClass("a$y"))

	s, err := mapping.Read(strings.NewReader(`CLASS a b
	FIELD f count I
	CLASS a$x y
CLASS c d
CLASS d Door
`))
	require.NoError(t, err)

	r := checker.Check(x, s, jartest.Quiet)
	assert.Equal(t, []entry.ClassEntry{entry.NewClassEntry("a"), entry.NewClassEntry("a$x")}, r.Shadowing)
	assert.Equal(t, 2, r.Len())
	assert.Contains(t, r.Lines()[0], "shadows an unmapped class")
	assert.Equal(t, "CLASS a\n\tFIELD f count I\nCLASS c d\nCLASS d Door\n", s.Text())

	assert.True(t, checker.Check(x, s, jartest.Quiet).Empty())
}
