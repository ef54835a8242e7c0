package deobf

import (
	"fmt"
	"strings"

	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
	"github.com/swind/go-enigma/translate"
)

// editor validates and applies edits to one working store.
type editor struct {
	x     *jarindex.Index
	store *mapping.Store
	tr    *translate.Translator

	// topLevel maps the deobfuscated name of every top-level class to the
	// class, built on first use.
	topLevel map[string]entry.ClassEntry
}

func newEditor(x *jarindex.Index, s *mapping.Store) *editor {
	return &editor{x: x, store: s, tr: translate.New(translate.Deobfuscating, x, s)}
}

func nonRenameable(obf entry.Entry, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", obf, fmt.Sprintf(format, args...), enigmaerr.ErrNonRenameable)
}

func duplicate(name string, format string, args ...any) error {
	return fmt.Errorf("%q: %s: %w", name, fmt.Sprintf(format, args...), enigmaerr.ErrDuplicateName)
}

// target resolves obf to the entries a rename of obf is written to.
func (e *editor) target(obf entry.Entry) ([]entry.Entry, error) {
	switch v := obf.(type) {
	case entry.ConstructorEntry:
		return nil, nonRenameable(obf, "constructors take their class name")
	case entry.MethodEntry:
		if !e.x.Contains(v) {
			return nil, nonRenameable(obf, "not declared in the jar")
		}
		var m entry.BehaviorEntry = v
		if delegate, ok := e.x.BridgeTarget(m); ok {
			m = delegate
		}
		family := e.x.Family(m)
		out := make([]entry.Entry, 0, len(family))
		for _, r := range family {
			if e.x.IsBoundary(r) {
				return nil, nonRenameable(obf, "overrides library method %s", r)
			}
			out = append(out, r)
		}
		return out, nil
	case entry.ArgumentEntry:
		if !e.x.Contains(v) {
			return nil, nonRenameable(obf, "not an argument of a method in the jar")
		}
		if delegate, ok := e.x.BridgeTarget(v.Behavior()); ok {
			v = v.WithBehavior(delegate)
		}
		return []entry.Entry{v}, nil
	}
	if !e.x.Contains(obf) {
		return nil, nonRenameable(obf, "not declared in the jar")
	}
	return []entry.Entry{obf}, nil
}

func (e *editor) rename(obf entry.Entry, name string) error {
	targets, err := e.target(obf)
	if err != nil {
		return err
	}
	if _, err := entry.Rename(obf, name); err != nil {
		return err
	}

	switch v := obf.(type) {
	case entry.ClassEntry:
		return e.renameClass(v, strings.ReplaceAll(name, ".", "/"))
	case entry.FieldEntry:
		return e.renameField(v, name)
	case entry.MethodEntry:
		return e.renameMethod(targets, name)
	case entry.ArgumentEntry:
		return e.renameArgument(targets[0].(entry.ArgumentEntry), name)
	}
	return nonRenameable(obf, "unsupported entry")
}

func (e *editor) innerName(c entry.ClassEntry) string {
	if name, ok := e.store.ClassName(c); ok {
		return name
	}
	return c.InnermostName()
}

func (e *editor) topLevelNames() map[string]entry.ClassEntry {
	if e.topLevel == nil {
		e.topLevel = make(map[string]entry.ClassEntry)
		for _, c := range e.x.Classes() {
			if !c.IsInner() {
				e.topLevel[e.tr.Class(c).Name()] = c
			}
		}
	}
	return e.topLevel
}

func (e *editor) renameClass(c entry.ClassEntry, name string) error {
	if outer, ok := c.OuterClass(); ok {
		for _, k := range e.x.Classes() {
			if o, ok := k.OuterClass(); ok && o == outer && k != c && e.innerName(k) == name {
				return duplicate(name, "inner class %s of %s uses it", k, outer)
			}
		}
		e.store.EnsureClass(outer)
		return e.store.SetClassName(c, name)
	}

	names := e.topLevelNames()
	if other, taken := names[name]; taken && other != c {
		return duplicate(name, "class %s uses it", other)
	}
	old := e.tr.Class(c).Name()
	if err := e.store.SetClassName(c, name); err != nil {
		return err
	}
	delete(names, old)
	names[name] = c
	return nil
}

func (e *editor) fieldName(f entry.FieldEntry) string {
	if name, ok := e.store.FieldName(f); ok {
		return name
	}
	return f.Name()
}

func (e *editor) renameField(f entry.FieldEntry, name string) error {
	for _, other := range e.x.Fields(f.ClassEntry()) {
		if other != f && e.fieldName(other) == name {
			return duplicate(name, "field %s uses it", other)
		}
	}
	e.store.EnsureClass(f.ClassEntry())
	return e.store.SetFieldName(f, name)
}

func (e *editor) methodName(b entry.BehaviorEntry) string {
	if name, ok := e.tr.MethodName(b); ok {
		return name
	}
	return b.Name()
}

// renameMethod checks name against every method of the same signature in
// the classes that declare a root or an override of one, and in their
// supertypes and subtypes, then writes it to every root.
func (e *editor) renameMethod(roots []entry.Entry, name string) error {
	family := make(map[entry.Entry]bool, len(roots))
	for _, r := range roots {
		family[r] = true
	}
	inFamily := func(b entry.BehaviorEntry) bool {
		for _, r := range e.x.Family(b) {
			if family[r] {
				return true
			}
		}
		return false
	}

	for _, r := range roots {
		root := r.(entry.BehaviorEntry)
		for _, c := range e.relatedClasses(e.declaringClasses(root)) {
			for _, b := range e.x.Behaviors(c) {
				if b.Kind() != entry.KindMethod || b.Signature() != root.Signature() || inFamily(b) {
					continue
				}
				if e.methodName(b) == name {
					return duplicate(name, "method %s uses it", b)
				}
			}
		}
		if cm, ok := e.store.Class(root.ClassEntry()); ok {
			if mm, ok := cm.ObfMethod(name, root.Signature()); ok && mm.ObfName() != root.Name() {
				return duplicate(name, "method %s of %s uses it", mm.ObfName(), root.ClassEntry())
			}
		}
	}

	for _, r := range roots {
		root := r.(entry.BehaviorEntry)
		e.store.EnsureClass(root.ClassEntry())
		if err := e.store.SetMethodName(root, name); err != nil {
			return err
		}
	}
	return nil
}

// declaringClasses lists the owner of root and of every method that
// overrides it, directly or not.
func (e *editor) declaringClasses(root entry.BehaviorEntry) []entry.ClassEntry {
	seen := map[entry.BehaviorEntry]bool{root: true}
	owners := []entry.ClassEntry{root.ClassEntry()}
	owned := map[entry.ClassEntry]bool{root.ClassEntry(): true}
	queue := []entry.BehaviorEntry{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, o := range e.x.Overriders(cur) {
			if seen[o] {
				continue
			}
			seen[o] = true
			queue = append(queue, o)
			if !owned[o.ClassEntry()] {
				owned[o.ClassEntry()] = true
				owners = append(owners, o.ClassEntry())
			}
		}
	}
	return owners
}

// relatedClasses returns owners followed by every supertype and subtype
// of them, each class once.
func (e *editor) relatedClasses(owners []entry.ClassEntry) []entry.ClassEntry {
	seen := make(map[entry.ClassEntry]bool)
	var out []entry.ClassEntry
	add := func(c entry.ClassEntry) bool {
		if seen[c] {
			return false
		}
		seen[c] = true
		out = append(out, c)
		return true
	}
	for _, c := range owners {
		add(c)
	}
	for _, c := range owners {
		for _, a := range e.x.Ancestors(c) {
			add(a)
		}
		queue := []entry.ClassEntry{c}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			subs := append(e.x.Subclasses(cur), e.x.Implementations(cur)...)
			for _, sub := range subs {
				if add(sub) {
					queue = append(queue, sub)
				}
			}
		}
	}
	return out
}

func (e *editor) renameArgument(a entry.ArgumentEntry, name string) error {
	b := a.Behavior()
	for i := 0; i < b.Signature().ArgumentCount(); i++ {
		if i == a.Index() {
			continue
		}
		other, ok := e.store.ArgumentName(b, i)
		if !ok {
			other = entry.ObfArgumentName(i)
		}
		if other == name {
			return duplicate(name, "argument %d of %s uses it", i, b)
		}
	}
	e.store.EnsureClass(b.ClassEntry())
	return e.store.SetArgumentName(a, name)
}

func (e *editor) remove(obf entry.Entry) (bool, error) {
	switch v := obf.(type) {
	case entry.ClassEntry:
		return e.store.RemoveClassName(v), nil
	case entry.FieldEntry:
		return e.store.RemoveField(v), nil
	case entry.ConstructorEntry:
		return false, nonRenameable(obf, "constructors take their class name")
	case entry.MethodEntry:
		var m entry.BehaviorEntry = v
		if delegate, ok := e.x.BridgeTarget(m); ok {
			m = delegate
		}
		changed := e.store.RemoveMethodName(m)
		for _, r := range e.x.Family(m) {
			if e.store.RemoveMethodName(r) {
				changed = true
			}
		}
		return changed, nil
	case entry.ArgumentEntry:
		if delegate, ok := e.x.BridgeTarget(v.Behavior()); ok {
			v = v.WithBehavior(delegate)
		}
		return e.store.RemoveArgument(v), nil
	}
	return false, nil
}
