package mapping

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff between the canonical text of two stores,
// or the empty string when they are equal.
func Diff(a, b *Store, nameA, nameB string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.Text()),
		B:        difflib.SplitLines(b.Text()),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	})
}
