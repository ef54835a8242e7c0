package jarindex

import (
	"sort"
	"strings"

	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/entry"
)

// objectMethods are the overridable methods every class inherits from
// java/lang/Object, which is never part of the jar.
var objectMethods = map[string]bool{
	"equals(Ljava/lang/Object;)Z":  true,
	"hashCode()I":                  true,
	"toString()Ljava/lang/String;": true,
	"clone()Ljava/lang/Object;":    true,
	"finalize()V":                  true,
}

var javaLangObject = entry.NewClassEntry("java/lang/Object")

// linkBridges records the delegate of every synthetic bridge whose body
// makes exactly one call.
func (b *builder) linkBridges(parsed []*classfile.Class) {
	for _, cls := range parsed {
		if cls == nil {
			continue
		}
		c := entry.NewClassEntry(cls.Name)
		for i := range cls.Methods {
			m := &cls.Methods[i]
			if !m.IsBridge() {
				continue
			}
			id := b.x.behaviorIDs[entry.NewBehaviorEntry(c, m.Name, entry.Signature(m.Descriptor))]
			target := none
			invokes := 0
			for _, r := range b.x.behaviors[id].calls {
				if b.x.refs[r].kind != classfile.Invoke {
					continue
				}
				invokes++
				if t, ok := b.x.refs[r].target.(entry.MethodEntry); ok {
					target = b.x.behaviorIDs[t]
				}
			}
			if invokes != 1 || target == none || target == id || !b.x.behaviors[target].declared {
				continue
			}
			b.x.behaviors[id].bridgeTarget = target
			b.x.behaviors[target].bridges = append(b.x.behaviors[target].bridges, id)
		}
	}
}

func (b *builder) isVirtual(id int) bool {
	n := &b.x.behaviors[id]
	if _, ok := n.entry.(entry.MethodEntry); !ok {
		return false
	}
	return !n.declared || !n.access.Has(classfile.AccPrivate) && !n.access.Has(classfile.AccStatic)
}

// overridable reports whether the method id found on class c takes part
// in dispatch. Unresolved references interned on jar classes do not.
func (b *builder) overridable(c, id int) bool {
	return b.isVirtual(id) && (b.x.behaviors[id].declared || !b.x.classes[c].indexed)
}

type lookupKey struct {
	class int
	key   string
}

// linker computes override roots. The class graph may be malformed, so
// every recursion is guarded against cycles.
type linker struct {
	*builder
	memo     map[lookupKey][]int
	visiting map[lookupKey]bool
	done     []bool
	active   []bool
}

func (b *builder) linkOverrides() *linker {
	l := &linker{
		builder:  b,
		memo:     make(map[lookupKey][]int),
		visiting: make(map[lookupKey]bool),
	}
	// Boundary roots may be interned while linking, so iterate by index
	// over a growing arena.
	for id := 0; id < len(b.x.behaviors); id++ {
		l.rootsOf(id)
	}

	for id := range b.x.behaviors {
		n := &b.x.behaviors[id]
		if !n.declared || !b.isVirtual(id) || n.bridgeTarget != none {
			continue
		}
		for _, p := range l.directOverridden(n.owner, memberKey(n.entry), make(map[int]bool)) {
			n.overrides = append(n.overrides, p)
			b.x.behaviors[p].overriders = append(b.x.behaviors[p].overriders, id)
		}
	}
	sort.Slice(b.x.names, func(i, j int) bool { return b.x.names[i].Name() < b.x.names[j].Name() })
	return l
}

func (l *linker) grow() {
	for len(l.done) < len(l.x.behaviors) {
		l.done = append(l.done, false)
		l.active = append(l.active, false)
	}
}

func (l *linker) rootsOf(id int) []int {
	l.grow()
	if l.done[id] {
		return l.x.behaviors[id].roots
	}
	if l.active[id] {
		return []int{id}
	}
	l.active[id] = true

	n := &l.x.behaviors[id]
	var roots []int
	switch {
	case !n.declared || !l.isVirtual(id):
		roots = []int{id}
	case n.bridgeTarget != none:
		roots = l.rootsOf(n.bridgeTarget)
	default:
		owner, key := n.owner, memberKey(n.entry)
		roots = l.parentRoots(owner, key)
		for _, bridge := range l.x.behaviors[id].bridges {
			roots = union(roots, l.parentRoots(owner, memberKey(l.x.behaviors[bridge].entry)))
		}
		if len(roots) == 0 {
			roots = []int{id}
		}
	}

	l.grow()
	l.x.behaviors[id].roots = roots
	l.active[id] = false
	l.done[id] = true
	return roots
}

// lookup returns the roots of the method with key as seen from class c,
// whether c declares it or inherits it.
func (l *linker) lookup(c int, key string) []int {
	k := lookupKey{c, key}
	if r, ok := l.memo[k]; ok {
		return r
	}
	if l.visiting[k] {
		return nil
	}
	l.visiting[k] = true

	var roots []int
	n := &l.x.classes[c]
	if id, ok := n.byKey[key]; ok && l.overridable(c, id) {
		roots = l.rootsOf(id)
	} else if !n.indexed {
		if objectMethods[key] {
			obj := l.internClass(javaLangObject)
			name, sig, _ := strings.Cut(key, "(")
			roots = []int{l.internBehavior(obj, entry.NewMethodEntry(javaLangObject, name, entry.Signature("("+sig)))}
		}
	} else {
		roots = l.parentRoots(c, key)
	}

	delete(l.visiting, k)
	l.memo[k] = roots
	return roots
}

// parentRoots unions the roots found through the superclass of c, then
// through each interface of c in declaration order.
func (l *linker) parentRoots(c int, key string) []int {
	n := &l.x.classes[c]
	var roots []int
	if n.super != none {
		roots = union(roots, l.lookup(n.super, key))
	}
	for _, iface := range l.x.classes[c].interfaces {
		roots = union(roots, l.lookup(iface, key))
	}
	return roots
}

// directOverridden finds the nearest declarations of key above c along
// every parent edge.
func (l *linker) directOverridden(c int, key string, seen map[int]bool) []int {
	var out []int
	n := &l.x.classes[c]
	parents := n.interfaces
	if n.super != none {
		parents = append([]int{n.super}, parents...)
	}
	for _, p := range parents {
		if seen[p] {
			continue
		}
		seen[p] = true
		if id, ok := l.x.classes[p].byKey[key]; ok && l.overridable(p, id) {
			out = union(out, []int{id})
			continue
		}
		if l.x.classes[p].indexed {
			out = union(out, l.directOverridden(p, key, seen))
		}
	}
	return out
}

func union(a, b []int) []int {
	for _, v := range b {
		found := false
		for _, w := range a {
			if v == w {
				found = true
				break
			}
		}
		if !found {
			a = append(a, v)
		}
	}
	return a
}

// linkFamilies joins roots that must share a name. Beyond the roots of a
// single method, a class that inherits an implementation of an interface
// method from its superclass ties the two roots together.
func (b *builder) linkFamilies(l *linker) {
	var parent []int
	find := func(i int) int {
		for len(parent) <= i {
			parent = append(parent, len(parent))
		}
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	join := func(ids []int) {
		for _, id := range ids[1:] {
			if ra, rb := find(ids[0]), find(id); ra != rb {
				parent[rb] = ra
			}
		}
	}

	for id := range b.x.behaviors {
		if roots := b.x.behaviors[id].roots; len(roots) > 1 {
			join(roots)
		}
	}

	for _, c := range b.x.names {
		n := &b.x.classes[b.x.classIDs[c]]
		if n.access.Has(classfile.AccInterface) || n.super == none {
			continue
		}
		super, ifaces, declared := n.super, n.interfaces, n.byKey
		for _, iface := range ifaces {
			for _, key := range b.interfaceKeys(iface, make(map[int]bool)) {
				if id, ok := declared[key]; ok && b.x.behaviors[id].declared {
					continue
				}
				impl := l.lookup(super, key)
				if len(impl) == 0 {
					continue
				}
				join(append(append([]int(nil), impl...), l.lookup(iface, key)...))
			}
		}
	}

	for id := range b.x.behaviors {
		rep := find(id)
		b.x.behaviors[id].family = rep
		b.x.families[rep] = append(b.x.families[rep], id)
	}
	for rep, members := range b.x.families {
		if len(members) < 2 {
			delete(b.x.families, rep)
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			return entry.Key(b.x.behaviors[members[i]].entry) < entry.Key(b.x.behaviors[members[j]].entry)
		})
	}
}

// interfaceKeys lists the keys of the virtual methods iface declares or
// inherits from its superinterfaces.
func (b *builder) interfaceKeys(iface int, seen map[int]bool) []string {
	if seen[iface] {
		return nil
	}
	seen[iface] = true
	n := &b.x.classes[iface]
	var keys []string
	for _, id := range n.behaviors {
		if b.x.behaviors[id].declared && b.isVirtual(id) {
			keys = append(keys, memberKey(b.x.behaviors[id].entry))
		}
	}
	for _, sup := range n.interfaces {
		keys = append(keys, b.interfaceKeys(sup, seen)...)
	}
	return keys
}
