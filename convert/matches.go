// Package convert carries a mapping store from one version of a jar to the
// next by matching classes and members across the two indices.
package convert

import (
	"github.com/emirpasic/gods/maps/treemap"

	"github.com/swind/go-enigma/entry"
)

type Bucket int

const (
	Matched Bucket = iota
	Ambiguous
	Unmatched
)

var bucketNames = [...]string{"MATCHED", "AMBIGUOUS", "UNMATCHED"}

func (b Bucket) String() string {
	if b < 0 || int(b) >= len(bucketNames) {
		return "UNKNOWN"
	}
	return bucketNames[b]
}

// Pair is a one to one match.
type Pair[E entry.Entry] struct {
	Source E
	Dest   E
}

// Group is a set of source entries and the dest entries they could be.
type Group[E entry.Entry] struct {
	Source []E
	Dest   []E
}

// Matches relates source entries to dest entries in three buckets:
// matched pairs, ambiguous groups and unmatched entries of either side.
// Every entry is in at most one bucket. Listings are sorted by key.
type Matches[E entry.Entry] struct {
	matched   *treemap.Map // source key -> Pair
	byDest    map[string]string
	ambiguous []*Group[E]
	ambSource map[string]*Group[E]
	ambDest   map[string]*Group[E]
	unmatched *treemap.Map // source key -> E
	unclaimed *treemap.Map // dest key -> E
}

func NewMatches[E entry.Entry]() *Matches[E] {
	return &Matches[E]{
		matched:   treemap.NewWithStringComparator(),
		byDest:    make(map[string]string),
		unmatched: treemap.NewWithStringComparator(),
		unclaimed: treemap.NewWithStringComparator(),
		ambSource: make(map[string]*Group[E]),
		ambDest:   make(map[string]*Group[E]),
	}
}

// Identity matches every entry with itself.
func Identity[E entry.Entry](all []E) *Matches[E] {
	m := NewMatches[E]()
	for _, e := range all {
		m.Add([]E{e}, []E{e})
	}
	return m
}

// Add files a group under the bucket its shape calls for: one to one pairs
// are matched, groups with both sides are ambiguous and one sided groups
// are unmatched.
func (m *Matches[E]) Add(source, dest []E) {
	switch {
	case len(source) == 1 && len(dest) == 1:
		m.matched.Put(entry.Key(source[0]), Pair[E]{Source: source[0], Dest: dest[0]})
		m.byDest[entry.Key(dest[0])] = entry.Key(source[0])
	case len(source) > 0 && len(dest) > 0:
		g := &Group[E]{Source: append([]E(nil), source...), Dest: append([]E(nil), dest...)}
		m.ambiguous = append(m.ambiguous, g)
		for _, e := range source {
			m.ambSource[entry.Key(e)] = g
		}
		for _, e := range dest {
			m.ambDest[entry.Key(e)] = g
		}
	default:
		for _, e := range source {
			m.unmatched.Put(entry.Key(e), e)
		}
		for _, e := range dest {
			m.unclaimed.Put(entry.Key(e), e)
		}
	}
}

// Dest returns the entry src is matched with.
func (m *Matches[E]) Dest(src E) (E, bool) {
	if v, ok := m.matched.Get(entry.Key(src)); ok {
		return v.(Pair[E]).Dest, true
	}
	var zero E
	return zero, false
}

// Source returns the entry matched with dst.
func (m *Matches[E]) Source(dst E) (E, bool) {
	if key, ok := m.byDest[entry.Key(dst)]; ok {
		v, _ := m.matched.Get(key)
		return v.(Pair[E]).Source, true
	}
	var zero E
	return zero, false
}

// Contains reports whether src is in any bucket.
func (m *Matches[E]) Contains(src E) bool {
	key := entry.Key(src)
	if _, ok := m.matched.Get(key); ok {
		return true
	}
	if _, ok := m.unmatched.Get(key); ok {
		return true
	}
	_, ok := m.ambSource[key]
	return ok
}

// Bucket returns the bucket src is filed under.
func (m *Matches[E]) Bucket(src E) (Bucket, bool) {
	key := entry.Key(src)
	if _, ok := m.matched.Get(key); ok {
		return Matched, true
	}
	if _, ok := m.ambSource[key]; ok {
		return Ambiguous, true
	}
	if _, ok := m.unmatched.Get(key); ok {
		return Unmatched, true
	}
	return 0, false
}

// Match pairs src with dst, taking both out of their current buckets.
// Former partners become unmatched; what is left of an ambiguous group is
// filed again.
func (m *Matches[E]) Match(src, dst E) {
	m.detachSource(src)
	m.detachDest(dst)
	m.Add([]E{src}, []E{dst})
}

// Unmatch breaks the pair src is part of and reports whether there was one.
func (m *Matches[E]) Unmatch(src E) bool {
	dst, ok := m.Dest(src)
	if !ok {
		return false
	}
	m.removePair(entry.Key(src))
	m.Add([]E{src}, nil)
	m.Add(nil, []E{dst})
	return true
}

func (m *Matches[E]) removePair(srcKey string) {
	v, ok := m.matched.Get(srcKey)
	if !ok {
		return
	}
	m.matched.Remove(srcKey)
	delete(m.byDest, entry.Key(v.(Pair[E]).Dest))
}

func (m *Matches[E]) detachSource(src E) {
	key := entry.Key(src)
	if v, ok := m.matched.Get(key); ok {
		dst := v.(Pair[E]).Dest
		m.removePair(key)
		m.Add(nil, []E{dst})
	}
	m.unmatched.Remove(key)
	if g, ok := m.ambSource[key]; ok {
		m.dissolve(g, func(e E) bool { return entry.Key(e) == key }, nil)
	}
}

func (m *Matches[E]) detachDest(dst E) {
	key := entry.Key(dst)
	if srcKey, ok := m.byDest[key]; ok {
		v, _ := m.matched.Get(srcKey)
		m.removePair(srcKey)
		m.Add([]E{v.(Pair[E]).Source}, nil)
	}
	m.unclaimed.Remove(key)
	if g, ok := m.ambDest[key]; ok {
		m.dissolve(g, nil, func(e E) bool { return entry.Key(e) == key })
	}
}

// dissolve removes g, drops the entries the filters select and files the
// rest again.
func (m *Matches[E]) dissolve(g *Group[E], dropSource, dropDest func(E) bool) {
	for i, other := range m.ambiguous {
		if other == g {
			m.ambiguous = append(m.ambiguous[:i], m.ambiguous[i+1:]...)
			break
		}
	}
	var src, dst []E
	for _, e := range g.Source {
		delete(m.ambSource, entry.Key(e))
		if dropSource == nil || !dropSource(e) {
			src = append(src, e)
		}
	}
	for _, e := range g.Dest {
		delete(m.ambDest, entry.Key(e))
		if dropDest == nil || !dropDest(e) {
			dst = append(dst, e)
		}
	}
	m.Add(src, dst)
}

// Matched lists the pairs sorted by source key.
func (m *Matches[E]) Matched() []Pair[E] {
	out := make([]Pair[E], 0, m.matched.Size())
	for _, v := range m.matched.Values() {
		out = append(out, v.(Pair[E]))
	}
	return out
}

// Ambiguous lists the groups sorted by their first source key.
func (m *Matches[E]) Ambiguous() []Group[E] {
	sorted := treemap.NewWithStringComparator()
	for _, g := range m.ambiguous {
		sorted.Put(entry.Key(g.Source[0]), g)
	}
	out := make([]Group[E], 0, len(m.ambiguous))
	for _, v := range sorted.Values() {
		out = append(out, *v.(*Group[E]))
	}
	return out
}

func entries[E entry.Entry](tm *treemap.Map) []E {
	out := make([]E, 0, tm.Size())
	for _, v := range tm.Values() {
		out = append(out, v.(E))
	}
	return out
}

// UnmatchedSource lists the source entries without a candidate.
func (m *Matches[E]) UnmatchedSource() []E { return entries[E](m.unmatched) }

// UnmatchedDest lists the dest entries no source entry claimed.
func (m *Matches[E]) UnmatchedDest() []E { return entries[E](m.unclaimed) }

// Counts returns the size of each bucket, counting groups for ambiguous
// and source entries for unmatched.
func (m *Matches[E]) Counts() (matched, ambiguous, unmatched int) {
	return m.matched.Size(), len(m.ambiguous), m.unmatched.Size()
}
