package retrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldsFuncWithDelims(t *testing.T) {
	for _, tc := range []struct {
		name     string
		s        string
		f        func(rune) bool
		expected []string
	}{
		{
			name: "spaces",
			s:    "java.lang.NullPointerException: Attempt to invoke virtual method 'java.lang.String a.toString()' on a null object reference",
			f:    func(r rune) bool { return r == ' ' },
			expected: []string{
				"java.lang.NullPointerException:", " ", "Attempt", " ", "to", " ",
				"invoke", " ", "virtual", " ", "method", " ", "'java.lang.String", " ",
				"a.toString()'", " ", "on", " ", "a", " ", "null", " ", "object", " ", "reference",
			},
		},
		{
			name:     "class name delimiters",
			s:        "leaked (a$b, c)",
			f:        deobfuscateFieldsFunc,
			expected: []string{"leaked", " ", "(", "a$b", ",", " ", "c", ")"},
		},
		{
			name:     "only delimiters",
			s:        "()",
			f:        deobfuscateFieldsFunc,
			expected: []string{"(", ")"},
		},
		{
			name: "empty",
			s:    "",
			f:    deobfuscateFieldsFunc,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FieldsFuncWithDelims(tc.s, tc.f))
		})
	}
}
