package jarindex

import (
	"github.com/swind/go-enigma/entry"
)

// Node is one entry of an inheritance or implementation tree.
type Node struct {
	Entry    entry.Entry
	Children []*Node
}

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(n *Node, depth int)) {
	var walk func(*Node, int)
	walk = func(cur *Node, depth int) {
		fn(cur, depth)
		for _, c := range cur.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

// ClassInheritanceTree returns the tree rooted at the topmost ancestor of
// c inside the jar, holding every subclass below that ancestor.
func (x *Index) ClassInheritanceTree(c entry.ClassEntry) *Node {
	root := c
	seen := map[entry.ClassEntry]bool{c: true}
	for {
		super, ok := x.Superclass(root)
		if !ok || !x.ContainsClass(super) || seen[super] {
			break
		}
		seen[super] = true
		root = super
	}
	return x.subclassTree(root, make(map[entry.ClassEntry]bool))
}

func (x *Index) subclassTree(c entry.ClassEntry, seen map[entry.ClassEntry]bool) *Node {
	seen[c] = true
	n := &Node{Entry: c}
	for _, sub := range x.Subclasses(c) {
		if !seen[sub] {
			n.Children = append(n.Children, x.subclassTree(sub, seen))
		}
	}
	return n
}

// ClassImplementationsTree returns iface with its implementing classes and
// subinterfaces, recursively.
func (x *Index) ClassImplementationsTree(iface entry.ClassEntry) *Node {
	seen := make(map[entry.ClassEntry]bool)
	var build func(entry.ClassEntry) *Node
	build = func(c entry.ClassEntry) *Node {
		seen[c] = true
		n := &Node{Entry: c}
		children := x.Implementations(c)
		if !x.IsInterface(c) {
			children = x.Subclasses(c)
		}
		for _, impl := range children {
			if !seen[impl] {
				n.Children = append(n.Children, build(impl))
			}
		}
		return n
	}
	return build(iface)
}

// MethodInheritanceTree returns the tree of overriders below the first
// override root of m.
func (x *Index) MethodInheritanceTree(m entry.BehaviorEntry) *Node {
	root := x.OverrideRoots(m)[0]
	seen := make(map[entry.BehaviorEntry]bool)
	var build func(entry.BehaviorEntry) *Node
	build = func(b entry.BehaviorEntry) *Node {
		seen[b] = true
		n := &Node{Entry: b}
		for _, o := range x.Overriders(b) {
			if !seen[o] {
				n.Children = append(n.Children, build(o))
			}
		}
		return n
	}
	return build(root)
}

// MethodImplementationsTree returns the interface method m with every
// implementation below it as a flat list of children.
func (x *Index) MethodImplementationsTree(m entry.BehaviorEntry) *Node {
	n := &Node{Entry: m}
	for _, impl := range x.MethodImplementations(m) {
		n.Children = append(n.Children, &Node{Entry: impl})
	}
	return n
}
