package regexlist_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/regexlist"
)

func TestRead(t *testing.T) {
	list, err := regexlist.Read(strings.NewReader(
		"foo\tbar\n" +
			"\n" +
			"com.game.Player|com/game/Enemy\t(\\w+)Health\thp$1\n" +
			"*\tcost\\$\tprice\\$\n"))
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.True(t, list[0].IsTarget("anything"))
	assert.True(t, list[1].IsTarget("com/game/Player"))
	assert.True(t, list[1].IsTarget("com.game.Enemy"))
	assert.False(t, list[1].IsTarget("com/game/World"))
	assert.True(t, list[2].IsTarget("com/game/World"))

	assert.Equal(t, "bar hpmax", list.Apply("com/game/Player", "foo maxHealth"))
	assert.Equal(t, "bar maxHealth", list.Apply("com/game/World", "foo maxHealth"))
	assert.Equal(t, "price$ = 1", list.Apply("x", "cost$ = 1"))
}

func TestGroupReferenceEndsAtOneDigit(t *testing.T) {
	e, err := regexlist.NewEntry(nil, `(a)(b)`, "$1x$2")
	require.NoError(t, err)
	assert.Equal(t, "axb", e.ReplaceAll("ab"))
}

func TestReadErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		text string
		line int
	}{
		"missing data": {"a\tb\nlonely\n", 2},
		"too many":     {"a\tb\tc\td\n", 1},
		"bad regex":    {"a\tb\n\n(unclosed\tx\n", 3},
		"no targets":   {"|\ta\tb\n", 1},
		"lookahead":    {"a(?=b)\tc\n", 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := regexlist.Read(strings.NewReader(tc.text))
			require.Error(t, err)
			assert.ErrorIs(t, err, enigmaerr.ErrRegexSyntax)
			assert.Equal(t, tc.line, enigmaerr.LineOf(err))
		})
	}
}

func TestBuiltin(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"List<String> v1 = (List<String>)Lists.newArrayList();", "List<String> v1 = Lists.<String>newArrayList();"},
		{"Map<Integer, List<String>> m = (Map<Integer, List<String>>)Maps.newHashMap();", "Map<Integer, List<String>> m = Maps.<Integer, List<String>>newHashMap();"},
		{"this.field2833 = (Map<String, T>)Maps.newHashMap();", "this.field2833 = Maps.newHashMap();"},
		{"List<?> l = (List<?>)a.b();", "List<?> l = a.b();"},
		{"Qt q = new Qt<Object>(6.0f, 1.0, 1.2);", "Qt q = new Qt(6.0f, 1.0, 1.2);"},
		{"int n = (int)x;", "int n = (int)x;"},
	} {
		assert.Equal(t, tc.want, regexlist.Builtin.Apply("a/B", tc.in), tc.in)
	}
}
