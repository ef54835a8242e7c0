package convert

import (
	"github.com/emirpasic/gods/maps/treemap"

	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
)

// matcher files source and dest entries into a table: entries are grouped
// by key on both sides, one to one groups match, and larger groups are
// narrowed first by identical names, then by each refining key in turn.
type matcher[E entry.Entry] struct {
	out       *Matches[E]
	srcKey    func(E) string
	dstKey    func(E) string
	refineSrc []func(E) string
	refineDst []func(E) string
}

type keyedGroup[E entry.Entry] struct {
	source, dest []E
}

func group[E entry.Entry](src, dst []E, srcKey, dstKey func(E) string) []*keyedGroup[E] {
	groups := treemap.NewWithStringComparator()
	get := func(k string) *keyedGroup[E] {
		if v, ok := groups.Get(k); ok {
			return v.(*keyedGroup[E])
		}
		g := &keyedGroup[E]{}
		groups.Put(k, g)
		return g
	}
	for _, e := range src {
		g := get(srcKey(e))
		g.source = append(g.source, e)
	}
	for _, e := range dst {
		g := get(dstKey(e))
		g.dest = append(g.dest, e)
	}
	out := make([]*keyedGroup[E], 0, groups.Size())
	for _, v := range groups.Values() {
		out = append(out, v.(*keyedGroup[E]))
	}
	return out
}

func (mt *matcher[E]) run(src, dst []E) {
	for _, g := range group(src, dst, mt.srcKey, mt.dstKey) {
		switch {
		case len(g.source) == 0:
		case len(g.dest) == 0, len(g.source) == 1 && len(g.dest) == 1:
			mt.out.Add(g.source, g.dest)
		default:
			mt.resolve(g.source, g.dest)
		}
	}
}

func (mt *matcher[E]) resolve(src, dst []E) {
	src, dst = mt.pairNames(src, dst)
	for i := range mt.refineSrc {
		if len(src) == 0 || len(dst) == 0 || len(src) == 1 && len(dst) == 1 {
			break
		}
		var restSrc, restDst []E
		for _, g := range group(src, dst, mt.refineSrc[i], mt.refineDst[i]) {
			if len(g.source) == 1 && len(g.dest) == 1 {
				mt.out.Add(g.source, g.dest)
				continue
			}
			restSrc = append(restSrc, g.source...)
			restDst = append(restDst, g.dest...)
		}
		src, dst = restSrc, restDst
	}
	mt.out.Add(src, dst)
}

// pairNames matches the entries that kept their obfuscated name and
// returns the rest.
func (mt *matcher[E]) pairNames(src, dst []E) ([]E, []E) {
	byName := make(map[string]int, len(dst))
	for i, e := range dst {
		byName[e.Name()] = i
	}
	taken := make([]bool, len(dst))
	var restSrc []E
	for _, e := range src {
		if i, ok := byName[e.Name()]; ok && !taken[i] {
			taken[i] = true
			mt.out.Add([]E{e}, []E{dst[i]})
			continue
		}
		restSrc = append(restSrc, e)
	}
	var restDst []E
	for i, e := range dst {
		if !taken[i] {
			restDst = append(restDst, e)
		}
	}
	return restSrc, restDst
}

// ComputeClassMatches matches the classes mapped in s against the classes
// of dst.
func ComputeClassMatches(src, dst *jarindex.Index, s *mapping.Store) *Matches[entry.ClassEntry] {
	var mapped []entry.ClassEntry
	s.Walk(func(cm *mapping.ClassMapping) {
		if src.ContainsClass(cm.Obf()) {
			mapped = append(mapped, cm.Obf())
		}
	})

	fs, fd := newFingerprinter(src), newFingerprinter(dst)
	hex := func(f func(entry.ClassEntry) uint64) func(entry.ClassEntry) string {
		return func(c entry.ClassEntry) string { return formatHash(f(c)) }
	}
	mt := &matcher[entry.ClassEntry]{
		out:       NewMatches[entry.ClassEntry](),
		srcKey:    hex(fs.class),
		dstKey:    hex(fd.class),
		refineSrc: []func(entry.ClassEntry) string{hex(fs.content)},
		refineDst: []func(entry.ClassEntry) string{hex(fd.content)},
	}
	mt.run(mapped, dst.Classes())
	return mt.out
}

// ComputeMemberMatches matches, for every matched class pair, the fields
// and behaviors mapped in s against the members of the dest class.
func ComputeMemberMatches(src, dst *jarindex.Index, classes *Matches[entry.ClassEntry], s *mapping.Store) (*Matches[entry.FieldEntry], *Matches[entry.BehaviorEntry]) {
	fromSource, fromDest := memberErasers(src, dst, classes)
	fields := &matcher[entry.FieldEntry]{
		out:       NewMatches[entry.FieldEntry](),
		srcKey:    fieldKey(src, fromSource),
		dstKey:    fieldKey(dst, fromDest),
		refineSrc: []func(entry.FieldEntry) string{accessKey[entry.FieldEntry](src)},
		refineDst: []func(entry.FieldEntry) string{accessKey[entry.FieldEntry](dst)},
	}
	behaviors := &matcher[entry.BehaviorEntry]{
		out:       NewMatches[entry.BehaviorEntry](),
		srcKey:    behaviorKey(src, fromSource),
		dstKey:    behaviorKey(dst, fromDest),
		refineSrc: []func(entry.BehaviorEntry) string{accessKey[entry.BehaviorEntry](src)},
		refineDst: []func(entry.BehaviorEntry) string{accessKey[entry.BehaviorEntry](dst)},
	}

	for _, p := range classes.Matched() {
		cm, ok := s.Class(p.Source)
		if !ok {
			continue
		}
		var mappedFields []entry.FieldEntry
		for _, fm := range cm.Fields() {
			if f := fm.Entry(p.Source); src.Contains(f) {
				mappedFields = append(mappedFields, f)
			}
		}
		fields.run(mappedFields, dst.Fields(p.Dest))

		var mappedBehaviors []entry.BehaviorEntry
		for _, mm := range cm.Methods() {
			if b := mm.Entry(p.Source); src.Contains(b) {
				mappedBehaviors = append(mappedBehaviors, b)
			}
		}
		behaviors.run(mappedBehaviors, dst.Behaviors(p.Dest))
	}
	return fields.out, behaviors.out
}
