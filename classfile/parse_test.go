package classfile_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/jartest"
)

func TestParse(t *testing.T) {
	b := jartest.NewClass("p/A").Extends("p/Base").Implements("p/I", "p/J")
	b.Field(classfile.AccPrivate, "a", "I")
	b.Method(classfile.AccPublic, "m", "(Lp/B;)V").
		GetField("p/A", "a", "I").
		PutStatic("p/C", "s", "Ljava/lang/String;").
		LdcString("hello").
		New("p/B", "()V").
		InvokeInterface("p/I", "run", "()V")
	b.Method(classfile.AccPublic|classfile.AccAbstract, "n", "()I")
	b.InnerClass("p/A$In", "p/A", "In", classfile.AccStatic)

	cls, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "p/A", cls.Name)
	assert.Equal(t, "p/Base", cls.Super)
	assert.Equal(t, []string{"p/I", "p/J"}, cls.Interfaces)
	assert.Equal(t, []classfile.Field{{Access: classfile.AccPrivate, Name: "a", Descriptor: "I"}}, cls.Fields)
	require.Len(t, cls.Methods, 2)

	m := cls.Methods[0]
	assert.Equal(t, []classfile.Ref{
		{Kind: classfile.FieldRead, Owner: "p/A", Name: "a", Descriptor: "I"},
		{Kind: classfile.FieldWrite, Owner: "p/C", Name: "s", Descriptor: "Ljava/lang/String;"},
		{Kind: classfile.Instantiate, Owner: "p/B"},
		{Kind: classfile.Invoke, Owner: "p/B", Name: "<init>", Descriptor: "()V"},
		{Kind: classfile.Invoke, Owner: "p/I", Name: "run", Descriptor: "()V", Interface: true},
	}, m.Refs)
	assert.Equal(t, []string{"hello"}, m.Strings)
	assert.Empty(t, cls.Methods[1].Refs)

	assert.Equal(t, []classfile.InnerClass{
		{Inner: "p/A$In", Outer: "p/A", Name: "In", Access: classfile.AccStatic},
	}, cls.InnerClasses)
}

func TestParseSwitches(t *testing.T) {
	b := jartest.NewClass("S")
	// iconst_0 then a tableswitch at pc 1 (padding 2) with low=0 high=1,
	// followed by a lookupswitch at pc 24 (padding 3) with one pair.
	b.Method(classfile.AccStatic, "s", "()V").
		Raw(0x03,
			0xaa, 0, 0,
			0, 0, 0, 0,
			0, 0, 0, 0,
			0, 0, 0, 1,
			0, 0, 0, 0,
			0, 0, 0, 0,
		).
		Raw(
			0xab, 0, 0, 0,
			0, 0, 0, 0,
			0, 0, 0, 1,
			0, 0, 0, 5,
			0, 0, 0, 0,
		).
		Raw(0xc4, 0x84, 0, 1, 0, 1).
		InvokeStatic("S", "t", "()V")

	cls, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []classfile.Ref{
		{Kind: classfile.Invoke, Owner: "S", Name: "t", Descriptor: "()V"},
	}, cls.Methods[0].Refs)
}

func TestParseBridge(t *testing.T) {
	b := jartest.NewClass("G")
	b.Method(classfile.AccPublic, "id", "(Ljava/lang/String;)Ljava/lang/String;")
	b.Bridge("id", "(Ljava/lang/Object;)Ljava/lang/Object;", "(Ljava/lang/String;)Ljava/lang/String;")

	cls, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)
	assert.False(t, cls.Methods[0].IsBridge())
	assert.True(t, cls.Methods[1].IsBridge())
}

func TestParseCorrupt(t *testing.T) {
	_, err := classfile.Parse([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.True(t, errors.Is(err, classfile.ErrBadMagic))

	data := jartest.NewClass("p/A").Bytes()
	_, err = classfile.Parse(data[:len(data)-3])
	assert.Error(t, err)

	b := jartest.NewClass("X")
	b.Method(classfile.AccStatic, "x", "()V").Raw(0xfe)
	_, err = classfile.Parse(b.Bytes())
	assert.ErrorContains(t, err, "undefined opcode")
}
