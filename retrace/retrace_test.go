package retrace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/mapping"
)

const playerMappings = "CLASS a com/game/Player\n" +
	"\tFIELD a health I\n" +
	"\tMETHOD a copy (La;)V\n" +
	"\tMETHOD b tick ()V\n" +
	"\tMETHOD b reset (I)V\n" +
	"\tCLASS b Helper\n"

func newRetrace(t *testing.T, opts ...Option) *Retrace {
	t.Helper()
	s, err := mapping.Read(strings.NewReader(playerMappings))
	require.NoError(t, err)
	return New(NewFrameRemapper(s, nil), opts...)
}

func retraceString(t *testing.T, r *Retrace, in string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, r.Retrace(strings.NewReader(in), &out))
	return out.String()
}

func TestRetraceFrames(t *testing.T) {
	r := newRetrace(t)

	for _, tc := range []struct {
		name, in, want string
	}{
		{
			name: "method with line",
			in:   "\tat a.a(SourceFile:12)\n",
			want: "\tat com.game.Player.copy(Player.java:12)\n",
		},
		{
			name: "inner class",
			in:   "\tat a$b.run(Unknown Source)\n",
			want: "\tat com.game.Player$Helper.run(Unknown Source)\n",
		},
		{
			name: "ambiguous without line",
			in:   "\tat a.b(SourceFile)\n",
			want: "\tat com.game.Player.tick(Player.java)\n" +
				strings.Repeat(" ", 20) + "reset(Player.java)\n",
		},
		{
			name: "null field",
			in:   "java.lang.NullPointerException: Attempt to read from field 'int a.a' on a null object reference\n",
			want: "java.lang.NullPointerException: Attempt to read from field 'int com.game.Player.health' on a null object reference\n",
		},
		{
			name: "cause",
			in:   "Caused by: a",
			want: "Caused by: com.game.Player",
		},
		{
			name: "unmapped",
			in:   "\tat java.lang.Thread.run(Thread.java:748)\n",
			want: "\tat java.lang.Thread.run(Thread.java:748)\n",
		},
		{
			name: "not a frame",
			in:   "object a$b leaked (a)\n",
			want: "object a$b leaked (a)\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, retraceString(t, r, tc.in))
		})
	}
}

func TestTransform(t *testing.T) {
	s, err := mapping.Read(strings.NewReader(playerMappings))
	require.NoError(t, err)
	r := NewFrameRemapper(s, nil)

	obf := FrameInfo{ClassName: "a", SourceFile: "SourceFile", LineNumber: 12, MethodName: "b"}
	assert.Equal(t, entry.NewClassEntry("a"), obf.Class())
	frames := r.Transform(obf)
	require.Len(t, frames, 2)
	for i, name := range []string{"tick", "reset"} {
		assert.Equal(t, name, frames[i].MethodName)
		assert.Equal(t, "com.game.Player", frames[i].ClassName)
		assert.Equal(t, "Player.java", frames[i].SourceFile)
		assert.Equal(t, 12, frames[i].LineNumber)
	}
	assert.Equal(t, "int", frames[1].Arguments)

	frames = r.Transform(FrameInfo{ClassName: "a$b", SourceFile: "Unknown Source", MethodName: "zz"})
	require.Len(t, frames, 1)
	assert.Equal(t, FrameInfo{ClassName: "com.game.Player$Helper", SourceFile: "Unknown Source", MethodName: "zz"}, frames[0])
}

func TestRetraceAllClassNames(t *testing.T) {
	r := newRetrace(t, WithAllClassNames())
	assert.Equal(t, "object com.game.Player$Helper leaked (com.game.Player)\n",
		retraceString(t, r, "object a$b leaked (a)\n"))
}

func TestRetraceVerbose(t *testing.T) {
	r := newRetrace(t, WithVerbose())
	assert.Equal(t, "\tat com.game.Player.void copy(com.game.Player)(Player.java:12)\n",
		retraceString(t, r, "\tat a.a(SourceFile:12)\n"))
}

func TestRetraceKeepsLastLine(t *testing.T) {
	r := newRetrace(t)
	got := retraceString(t, r, "java.lang.IllegalStateException: boom\n\tat a.a(SourceFile:1)")
	assert.Equal(t, "java.lang.IllegalStateException: boom\n\tat com.game.Player.copy(Player.java:1)", got)
}

func TestTrim(t *testing.T) {
	assert.Equal(t, 5, FirstNonCommonIndex("at a.b", "at a.c"))
	assert.Equal(t, "     c", Trim("at a.c", "at a.b"))
	assert.Equal(t, "abc", Trim("abc", ""))
}

func TestFramePatternParse(t *testing.T) {
	p := NewFramePattern(LineExpression, false)

	info, ok := p.Parse("\tat o.afc.b + 45(:45)")
	require.True(t, ok)
	assert.Equal(t, "o.afc", info.ClassName)
	assert.Equal(t, "b", info.MethodName)
	assert.Equal(t, 45, info.LineNumber)

	info, ok = p.Parse("java.lang.NullPointerException: Attempt to invoke virtual method 'void a.b(int,a[])' on a null object reference")
	require.True(t, ok)
	assert.Equal(t, "a", info.ClassName)
	assert.Equal(t, "void", info.Type)
	assert.Equal(t, "b", info.MethodName)
	assert.Equal(t, "int,a[]", info.Arguments)

	_, ok = NewFramePattern(SecondExpression, false).Parse("plain text")
	assert.False(t, ok)
}

func TestFramePatternFormat(t *testing.T) {
	p := NewFramePattern(`%c\.%m\(%s:%l\)`, false)
	line := "x.Y.z(SourceFile:7)"
	info, ok := p.Parse(line)
	require.True(t, ok)

	info.ClassName = "com.Foo"
	info.MethodName = "bar"
	info.SourceFile = "Foo.java"
	assert.Equal(t, "com.Foo.bar(Foo.java:7)", p.Format(line, info))
}
