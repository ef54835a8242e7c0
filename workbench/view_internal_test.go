package workbench

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swind/go-enigma/entry"
)

func TestPublishDropsStaleViews(t *testing.T) {
	c := New()
	a := entry.NewClassEntry("a")

	newer := &View{Class: a, Generation: 3}
	assert.Same(t, newer, c.publishLocked(newer))
	assert.Same(t, newer, c.publishLocked(&View{Class: a, Generation: 2}))

	other := &View{Class: entry.NewClassEntry("b"), Generation: 1}
	assert.Same(t, other, c.publishLocked(other), "another class always replaces the view")
}
