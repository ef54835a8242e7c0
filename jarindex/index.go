// Package jarindex builds the frozen, queryable model of a jar: classes,
// members, the inheritance graph, override roots, bridge links and the
// reverse reference tables.
//
// Every class, field and behavior the jar mentions is interned into an
// arena and all edges are integer adjacency lists. Classes and members
// that are referenced but not part of the jar are kept as boundary nodes.
package jarindex

import (
	"github.com/emirpasic/gods/sets/treeset"

	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/entry"
)

const none = -1

type classNode struct {
	entry   entry.ClassEntry
	indexed bool
	access  classfile.AccessFlags

	super      int
	interfaces []int
	fields     []int
	behaviors  []int
	fieldByKey map[string]int
	byKey      map[string]int

	outer     int
	inner     []int
	anonymous bool

	subclasses   []int
	implementers []int
	instantiated []int // refs

	strings []string
}

type fieldNode struct {
	entry    entry.FieldEntry
	owner    int
	access   classfile.AccessFlags
	declared bool
	refs     []int
}

type behaviorNode struct {
	entry    entry.BehaviorEntry
	owner    int
	access   classfile.AccessFlags
	declared bool

	bridgeTarget int
	bridges      []int

	roots      []int
	family     int
	overrides  []int
	overriders []int

	calls []int // outgoing refs
	refs  []int // incoming refs
}

type ref struct {
	kind   classfile.RefKind
	target entry.Entry
	caller int
}

// Index is safe for concurrent reads.
type Index struct {
	classes   []classNode
	fields    []fieldNode
	behaviors []behaviorNode
	refs      []ref
	families  map[int][]int

	classIDs    map[entry.ClassEntry]int
	fieldIDs    map[entry.FieldEntry]int
	behaviorIDs map[entry.BehaviorEntry]int

	names []entry.ClassEntry
}

func memberKey(b entry.BehaviorEntry) string {
	return b.Name() + string(b.Signature())
}

func fieldKey(f entry.FieldEntry) string {
	return f.Name() + ":" + string(f.Type())
}

func (x *Index) class(c entry.ClassEntry) (*classNode, bool) {
	id, ok := x.classIDs[c]
	if !ok {
		return nil, false
	}
	return &x.classes[id], true
}

func (x *Index) behavior(b entry.BehaviorEntry) (*behaviorNode, bool) {
	id, ok := x.behaviorIDs[b]
	if !ok {
		return nil, false
	}
	return &x.behaviors[id], true
}

func (x *Index) classEntries(ids []int) []entry.ClassEntry {
	out := make([]entry.ClassEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, x.classes[id].entry)
	}
	return out
}

func (x *Index) behaviorEntries(ids []int) []entry.BehaviorEntry {
	out := make([]entry.BehaviorEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, x.behaviors[id].entry)
	}
	return out
}

// Classes lists every class of the jar sorted by name.
func (x *Index) Classes() []entry.ClassEntry {
	return x.names
}

// Len is the number of indexed classes.
func (x *Index) Len() int { return len(x.names) }

// ContainsClass reports whether c is part of the jar.
func (x *Index) ContainsClass(c entry.ClassEntry) bool {
	n, ok := x.class(c)
	return ok && n.indexed
}

// Contains reports whether e is declared in the jar. Arguments must fall
// inside their behavior's argument list.
func (x *Index) Contains(e entry.Entry) bool {
	switch v := e.(type) {
	case entry.ClassEntry:
		return x.ContainsClass(v)
	case entry.FieldEntry:
		id, ok := x.fieldIDs[v]
		return ok && x.fields[id].declared
	case entry.MethodEntry, entry.ConstructorEntry:
		n, ok := x.behavior(v.(entry.BehaviorEntry))
		return ok && n.declared
	case entry.ArgumentEntry:
		b := v.Behavior()
		return x.Contains(b) && v.Index() >= 0 && v.Index() < b.Signature().ArgumentCount()
	}
	return false
}

// IsBoundary reports whether e is known only from references and lives
// outside the jar.
func (x *Index) IsBoundary(e entry.Entry) bool {
	switch v := e.(type) {
	case entry.ClassEntry:
		n, ok := x.class(v)
		return ok && !n.indexed
	case entry.FieldEntry:
		id, ok := x.fieldIDs[v]
		return ok && !x.classes[x.fields[id].owner].indexed
	case entry.MethodEntry, entry.ConstructorEntry:
		n, ok := x.behavior(v.(entry.BehaviorEntry))
		return ok && !x.classes[n.owner].indexed
	case entry.ArgumentEntry:
		return x.IsBoundary(v.Behavior())
	}
	return false
}

// Access returns the access flags of a declared class or member.
func (x *Index) Access(e entry.Entry) (classfile.AccessFlags, bool) {
	switch v := e.(type) {
	case entry.ClassEntry:
		if n, ok := x.class(v); ok && n.indexed {
			return n.access, true
		}
	case entry.FieldEntry:
		if id, ok := x.fieldIDs[v]; ok && x.fields[id].declared {
			return x.fields[id].access, true
		}
	case entry.MethodEntry, entry.ConstructorEntry:
		if n, ok := x.behavior(v.(entry.BehaviorEntry)); ok && n.declared {
			return n.access, true
		}
	}
	return 0, false
}

// Superclass returns the direct superclass of c.
func (x *Index) Superclass(c entry.ClassEntry) (entry.ClassEntry, bool) {
	n, ok := x.class(c)
	if !ok || n.super == none {
		return entry.ClassEntry{}, false
	}
	return x.classes[n.super].entry, true
}

// Interfaces returns the direct interfaces of c in declaration order.
func (x *Index) Interfaces(c entry.ClassEntry) []entry.ClassEntry {
	n, ok := x.class(c)
	if !ok {
		return nil
	}
	return x.classEntries(n.interfaces)
}

func (x *Index) IsInterface(c entry.ClassEntry) bool {
	n, ok := x.class(c)
	return ok && n.indexed && n.access.Has(classfile.AccInterface)
}

// Ancestors lists every supertype of c: the superclass chain first, then
// interfaces breadth first. Boundary classes end the walk.
func (x *Index) Ancestors(c entry.ClassEntry) []entry.ClassEntry {
	start, ok := x.classIDs[c]
	if !ok {
		return nil
	}
	seen := map[int]bool{start: true}
	var order []int
	for cur := x.classes[start].super; cur != none && !seen[cur]; cur = x.classes[cur].super {
		seen[cur] = true
		order = append(order, cur)
	}
	queue := append([]int{start}, order...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, iface := range x.classes[cur].interfaces {
			if !seen[iface] {
				seen[iface] = true
				order = append(order, iface)
				queue = append(queue, iface)
			}
		}
	}
	return x.classEntries(order)
}

// Subclasses lists the classes whose direct superclass is c.
func (x *Index) Subclasses(c entry.ClassEntry) []entry.ClassEntry {
	n, ok := x.class(c)
	if !ok {
		return nil
	}
	return x.classEntries(n.subclasses)
}

// Implementations lists the classes and interfaces that name iface as a
// direct interface.
func (x *Index) Implementations(iface entry.ClassEntry) []entry.ClassEntry {
	n, ok := x.class(iface)
	if !ok {
		return nil
	}
	return x.classEntries(n.implementers)
}

// Fields lists the declared fields of c in class file order.
func (x *Index) Fields(c entry.ClassEntry) []entry.FieldEntry {
	n, ok := x.class(c)
	if !ok || !n.indexed {
		return nil
	}
	out := make([]entry.FieldEntry, 0, len(n.fields))
	for _, id := range n.fields {
		if x.fields[id].declared {
			out = append(out, x.fields[id].entry)
		}
	}
	return out
}

// Behaviors lists the declared methods and constructors of c in class
// file order.
func (x *Index) Behaviors(c entry.ClassEntry) []entry.BehaviorEntry {
	n, ok := x.class(c)
	if !ok || !n.indexed {
		return nil
	}
	out := make([]entry.BehaviorEntry, 0, len(n.behaviors))
	for _, id := range n.behaviors {
		if x.behaviors[id].declared {
			out = append(out, x.behaviors[id].entry)
		}
	}
	return out
}

// Field looks up a declared field by name and type.
func (x *Index) Field(c entry.ClassEntry, name string, typ entry.Type) (entry.FieldEntry, bool) {
	f := entry.NewFieldEntry(c, name, typ)
	return f, x.Contains(f)
}

// InnerClasses lists the classes nested directly in c.
func (x *Index) InnerClasses(c entry.ClassEntry) []entry.ClassEntry {
	n, ok := x.class(c)
	if !ok {
		return nil
	}
	return x.classEntries(n.inner)
}

// OuterClass returns the class c is nested in, by InnerClasses metadata
// or, when that is absent, by its name. It decides source layout only;
// names are always scoped by the '$' in the class name.
func (x *Index) OuterClass(c entry.ClassEntry) (entry.ClassEntry, bool) {
	n, ok := x.class(c)
	if !ok || n.outer == none {
		return entry.ClassEntry{}, false
	}
	return x.classes[n.outer].entry, true
}

// IsAnonymous reports whether c is an anonymous class.
func (x *Index) IsAnonymous(c entry.ClassEntry) bool {
	n, ok := x.class(c)
	return ok && n.anonymous
}

// Strings lists the string constants loaded by the methods of c.
func (x *Index) Strings(c entry.ClassEntry) []string {
	n, ok := x.class(c)
	if !ok {
		return nil
	}
	return n.strings
}

// BridgeTarget returns the method a bridge delegates to.
func (x *Index) BridgeTarget(b entry.BehaviorEntry) (entry.BehaviorEntry, bool) {
	n, ok := x.behavior(b)
	if !ok || n.bridgeTarget == none {
		return nil, false
	}
	return x.behaviors[n.bridgeTarget].entry, true
}

// Bridges lists the bridges that delegate to m.
func (x *Index) Bridges(m entry.BehaviorEntry) []entry.BehaviorEntry {
	n, ok := x.behavior(m)
	if !ok {
		return nil
	}
	return x.behaviorEntries(n.bridges)
}

// OverrideRoots returns the topmost methods b overrides, superclass chain
// first, then interfaces in declaration order. A method that overrides
// nothing is its own root. Entries unknown to the index are returned
// as is.
func (x *Index) OverrideRoots(b entry.BehaviorEntry) []entry.BehaviorEntry {
	n, ok := x.behavior(b)
	if !ok || len(n.roots) == 0 {
		return []entry.BehaviorEntry{b}
	}
	return x.behaviorEntries(n.roots)
}

// Family returns every root that must carry the same name as b: the
// roots of b followed by roots linked to them through classes that
// inherit an implementation of an interface method.
func (x *Index) Family(b entry.BehaviorEntry) []entry.BehaviorEntry {
	n, ok := x.behavior(b)
	if !ok || len(n.roots) == 0 {
		return []entry.BehaviorEntry{b}
	}
	out := x.behaviorEntries(n.roots)
	seen := make(map[int]bool, len(n.roots))
	for _, id := range n.roots {
		seen[id] = true
	}
	for _, id := range x.families[x.behaviors[n.roots[0]].family] {
		if !seen[id] {
			out = append(out, x.behaviors[id].entry)
		}
	}
	return out
}

// Overrides lists the methods b directly overrides.
func (x *Index) Overrides(b entry.BehaviorEntry) []entry.BehaviorEntry {
	n, ok := x.behavior(b)
	if !ok {
		return nil
	}
	return x.behaviorEntries(n.overrides)
}

// Overriders lists the methods that directly override b.
func (x *Index) Overriders(b entry.BehaviorEntry) []entry.BehaviorEntry {
	n, ok := x.behavior(b)
	if !ok {
		return nil
	}
	return x.behaviorEntries(n.overriders)
}

// MethodImplementations lists every method in a non-interface class that
// overrides the interface method m, directly or transitively.
func (x *Index) MethodImplementations(m entry.BehaviorEntry) []entry.BehaviorEntry {
	start, ok := x.behaviorIDs[m]
	if !ok {
		return nil
	}
	var out []int
	seen := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, o := range x.behaviors[cur].overriders {
			if seen[o] {
				continue
			}
			seen[o] = true
			queue = append(queue, o)
			if !x.classes[x.behaviors[o].owner].access.Has(classfile.AccInterface) {
				out = append(out, o)
			}
		}
	}
	return x.behaviorEntries(out)
}

func (x *Index) references(ids []int) []entry.Reference {
	out := make([]entry.Reference, 0, len(ids))
	for _, id := range ids {
		r := x.refs[id]
		caller := x.behaviors[r.caller]
		out = append(out, entry.NewReference(r.target, x.classes[caller.owner].entry, caller.entry))
	}
	return out
}

// ReferencesTo lists every use of e. Classes report their instantiations.
func (x *Index) ReferencesTo(e entry.Entry) []entry.Reference {
	switch v := e.(type) {
	case entry.ClassEntry:
		if n, ok := x.class(v); ok {
			return x.references(n.instantiated)
		}
	case entry.FieldEntry:
		if id, ok := x.fieldIDs[v]; ok {
			return x.references(x.fields[id].refs)
		}
	case entry.MethodEntry, entry.ConstructorEntry:
		if n, ok := x.behavior(v.(entry.BehaviorEntry)); ok {
			return x.references(n.refs)
		}
	}
	return nil
}

// FieldAccesses lists the reads and writes of f, splitting them by kind.
func (x *Index) FieldAccesses(f entry.FieldEntry) (reads, writes []entry.Reference) {
	id, ok := x.fieldIDs[f]
	if !ok {
		return nil, nil
	}
	for _, r := range x.fields[id].refs {
		refs := x.references([]int{r})
		if x.refs[r].kind == classfile.FieldWrite {
			writes = append(writes, refs...)
		} else {
			reads = append(reads, refs...)
		}
	}
	return reads, writes
}

// ReferencesFrom lists what the body of b uses, in instruction order.
func (x *Index) ReferencesFrom(b entry.BehaviorEntry) []entry.Reference {
	n, ok := x.behavior(b)
	if !ok {
		return nil
	}
	return x.references(n.calls)
}

// ExternalReferences lists, sorted and without duplicates, the keys of the
// boundary members and classes that the methods of c use.
func (x *Index) ExternalReferences(c entry.ClassEntry) []string {
	n, ok := x.class(c)
	if !ok {
		return nil
	}
	set := treeset.NewWithStringComparator()
	for _, b := range n.behaviors {
		for _, r := range x.behaviors[b].calls {
			if target := x.refs[r].target; x.IsBoundary(target) {
				set.Add(entry.Key(target))
			}
		}
	}
	keys := make([]string, 0, set.Size())
	for _, k := range set.Values() {
		keys = append(keys, k.(string))
	}
	return keys
}
