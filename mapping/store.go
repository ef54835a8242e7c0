// Package mapping holds the editable name records of a workbench session
// and their text format.
//
// A Store is keyed by obfuscated entries. Classes are kept sorted by their
// obfuscated full name, members by their obfuscated key. Every record keeps
// a reverse index of the deobfuscated names of its children so the
// obfuscating translation is a lookup as well.
//
// The Store checks sibling uniqueness only among its own records. Whether
// a name collides with an unmapped member of the jar is decided by the
// deobf package, which sees the jar index.
package mapping

import (
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
)

// ClassMapping is the record of one class and what it declares.
type ClassMapping struct {
	obf   entry.ClassEntry
	deobf string // full name for top-level classes, simple name for inner ones
	outer *ClassMapping

	inner   *treemap.Map // obf innermost name -> *ClassMapping
	fields  *treemap.Map // obf name ":" obf type -> *FieldMapping
	methods *treemap.Map // obf name + obf signature -> *MethodMapping

	innerByDeobf  map[string]string
	fieldByDeobf  map[string]string
	methodByDeobf map[string]string

	extra []string
}

// FieldMapping names one field. It always carries a deobfuscated name.
type FieldMapping struct {
	obfName string
	obfType entry.Type
	deobf   string
}

// MethodMapping names a method and its arguments. Constructor records
// carry argument names only.
type MethodMapping struct {
	obfName string
	obfSig  entry.Signature
	deobf   string
	args    *treemap.Map // index -> name

	extra []string
}

// ArgumentMapping is one named argument of a MethodMapping.
type ArgumentMapping struct {
	Index int
	Name  string
}

func newClassMapping(obf entry.ClassEntry, outer *ClassMapping) *ClassMapping {
	return &ClassMapping{
		obf:           obf,
		outer:         outer,
		inner:         treemap.NewWithStringComparator(),
		fields:        treemap.NewWithStringComparator(),
		methods:       treemap.NewWithStringComparator(),
		innerByDeobf:  make(map[string]string),
		fieldByDeobf:  make(map[string]string),
		methodByDeobf: make(map[string]string),
	}
}

func (cm *ClassMapping) Obf() entry.ClassEntry { return cm.obf }

// DeobfName is the full name of a top-level class and the simple name of
// an inner class, or empty when the class is not renamed.
func (cm *ClassMapping) DeobfName() string { return cm.deobf }

func (cm *ClassMapping) Outer() *ClassMapping { return cm.outer }

// Empty reports whether the record holds nothing worth writing.
func (cm *ClassMapping) Empty() bool {
	return cm.deobf == "" && cm.inner.Empty() && cm.fields.Empty() && cm.methods.Empty() && len(cm.extra) == 0
}

func (cm *ClassMapping) InnerClasses() []*ClassMapping {
	out := make([]*ClassMapping, 0, cm.inner.Size())
	for _, v := range cm.inner.Values() {
		out = append(out, v.(*ClassMapping))
	}
	return out
}

func (cm *ClassMapping) Fields() []*FieldMapping {
	out := make([]*FieldMapping, 0, cm.fields.Size())
	for _, v := range cm.fields.Values() {
		out = append(out, v.(*FieldMapping))
	}
	return out
}

func (cm *ClassMapping) Methods() []*MethodMapping {
	out := make([]*MethodMapping, 0, cm.methods.Size())
	for _, v := range cm.methods.Values() {
		out = append(out, v.(*MethodMapping))
	}
	return out
}

// Extra returns the unrecognised lines kept inside this class.
func (cm *ClassMapping) Extra() []string { return cm.extra }

func (cm *ClassMapping) AddExtra(line string) { cm.extra = append(cm.extra, line) }

func (cm *ClassMapping) innerMapping(simple string) (*ClassMapping, bool) {
	v, ok := cm.inner.Get(simple)
	if !ok {
		return nil, false
	}
	return v.(*ClassMapping), true
}

func (cm *ClassMapping) field(f entry.FieldEntry) (*FieldMapping, bool) {
	v, ok := cm.fields.Get(f.Name() + ":" + string(f.Type()))
	if !ok {
		return nil, false
	}
	return v.(*FieldMapping), true
}

func (cm *ClassMapping) method(b entry.BehaviorEntry) (*MethodMapping, bool) {
	v, ok := cm.methods.Get(behaviorKey(b))
	if !ok {
		return nil, false
	}
	return v.(*MethodMapping), true
}

// ObfInner returns the obfuscated simple name of the inner class renamed
// to deobf.
func (cm *ClassMapping) ObfInner(deobf string) (string, bool) {
	obf, ok := cm.innerByDeobf[deobf]
	return obf, ok
}

// ObfField returns the field renamed to deobf.
func (cm *ClassMapping) ObfField(deobf string) (*FieldMapping, bool) {
	key, ok := cm.fieldByDeobf[deobf]
	if !ok {
		return nil, false
	}
	v, _ := cm.fields.Get(key)
	return v.(*FieldMapping), true
}

// ObfMethod returns the method renamed to deobf whose obfuscated
// signature is sig.
func (cm *ClassMapping) ObfMethod(deobf string, sig entry.Signature) (*MethodMapping, bool) {
	key, ok := cm.methodByDeobf[deobf+string(sig)]
	if !ok {
		return nil, false
	}
	v, _ := cm.methods.Get(key)
	return v.(*MethodMapping), true
}

func (fm *FieldMapping) ObfName() string     { return fm.obfName }
func (fm *FieldMapping) ObfType() entry.Type { return fm.obfType }
func (fm *FieldMapping) DeobfName() string   { return fm.deobf }
func (fm *FieldMapping) Key() string         { return fm.obfName + ":" + string(fm.obfType) }

func (mm *MethodMapping) ObfName() string               { return mm.obfName }
func (mm *MethodMapping) ObfSignature() entry.Signature { return mm.obfSig }
func (mm *MethodMapping) DeobfName() string             { return mm.deobf }
func (mm *MethodMapping) Key() string                   { return mm.obfName + string(mm.obfSig) }
func (mm *MethodMapping) Extra() []string               { return mm.extra }

func (mm *MethodMapping) AddExtra(line string) { mm.extra = append(mm.extra, line) }

// Entry rebuilds the obfuscated field entry on owner.
func (fm *FieldMapping) Entry(owner entry.ClassEntry) entry.FieldEntry {
	return entry.NewFieldEntry(owner, fm.obfName, fm.obfType)
}

// Entry rebuilds the obfuscated behavior entry on owner.
func (mm *MethodMapping) Entry(owner entry.ClassEntry) entry.BehaviorEntry {
	return entry.NewBehaviorEntry(owner, mm.obfName, mm.obfSig)
}

func (mm *MethodMapping) Arguments() []ArgumentMapping {
	out := make([]ArgumentMapping, 0, mm.args.Size())
	it := mm.args.Iterator()
	for it.Next() {
		out = append(out, ArgumentMapping{Index: it.Key().(int), Name: it.Value().(string)})
	}
	return out
}

func (mm *MethodMapping) Argument(index int) (string, bool) {
	v, ok := mm.args.Get(index)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// ObfArgument returns the index of the argument named deobf.
func (mm *MethodMapping) ObfArgument(deobf string) (int, bool) {
	it := mm.args.Iterator()
	for it.Next() {
		if it.Value().(string) == deobf {
			return it.Key().(int), true
		}
	}
	return 0, false
}

func (mm *MethodMapping) empty() bool {
	return mm.deobf == "" && mm.args.Empty() && len(mm.extra) == 0
}

func behaviorKey(b entry.BehaviorEntry) string {
	return b.Name() + string(recordSignature(b))
}

// recordSignature is the descriptor written for b. Static initializers
// carry none in their entries but are always ()V on disk.
func recordSignature(b entry.BehaviorEntry) entry.Signature {
	if c, ok := b.(entry.ConstructorEntry); ok && c.IsStatic() {
		return "()V"
	}
	return b.Signature()
}

// Store is the set of class records of one session. It is not safe for
// concurrent mutation; the deobf package serialises edits.
type Store struct {
	classes *treemap.Map      // obf full name -> *ClassMapping
	byDeobf map[string]string // deobf full name -> obf full name, top-level only
	extra   []string
}

func New() *Store {
	return &Store{
		classes: treemap.NewWithStringComparator(),
		byDeobf: make(map[string]string),
	}
}

// Classes lists the top-level records sorted by obfuscated name.
func (s *Store) Classes() []*ClassMapping {
	out := make([]*ClassMapping, 0, s.classes.Size())
	for _, v := range s.classes.Values() {
		out = append(out, v.(*ClassMapping))
	}
	return out
}

// Walk visits every class record, outer classes before their inner
// classes, in deterministic order.
func (s *Store) Walk(fn func(cm *ClassMapping)) {
	var walk func(cm *ClassMapping)
	walk = func(cm *ClassMapping) {
		fn(cm)
		for _, in := range cm.InnerClasses() {
			walk(in)
		}
	}
	for _, cm := range s.Classes() {
		walk(cm)
	}
}

// Extra returns the unrecognised top-level lines.
func (s *Store) Extra() []string { return s.extra }

func (s *Store) AddExtra(line string) { s.extra = append(s.extra, line) }

// Class returns the record of c, following the inner class path.
func (s *Store) Class(c entry.ClassEntry) (*ClassMapping, bool) {
	chain := c.Chain()
	v, ok := s.classes.Get(chain[0].Name())
	if !ok {
		return nil, false
	}
	cm := v.(*ClassMapping)
	for _, link := range chain[1:] {
		if cm, ok = cm.innerMapping(link.InnermostName()); !ok {
			return nil, false
		}
	}
	return cm, true
}

// ObfClass returns the obfuscated top-level class renamed to deobf.
func (s *Store) ObfClass(deobf string) (entry.ClassEntry, bool) {
	obf, ok := s.byDeobf[deobf]
	if !ok {
		return entry.ClassEntry{}, false
	}
	return entry.NewClassEntry(obf), true
}

// AddClass returns the record of c, creating an empty one when needed.
// The outer classes of an inner class must already have records.
func (s *Store) AddClass(c entry.ClassEntry) (*ClassMapping, error) {
	if cm, ok := s.Class(c); ok {
		return cm, nil
	}
	outer, isInner := c.OuterClass()
	if !isInner {
		cm := newClassMapping(c, nil)
		s.classes.Put(c.Name(), cm)
		return cm, nil
	}
	parent, ok := s.Class(outer)
	if !ok {
		return nil, fmt.Errorf("class %s: no mapping for outer class %s: %w", c, outer, enigmaerr.ErrUnknownOwner)
	}
	cm := newClassMapping(c, parent)
	parent.inner.Put(c.InnermostName(), cm)
	return cm, nil
}

// EnsureClass is AddClass that also creates records for missing outer
// classes.
func (s *Store) EnsureClass(c entry.ClassEntry) *ClassMapping {
	var cm *ClassMapping
	for _, link := range c.Chain() {
		// Outer records exist at every step, so AddClass cannot fail.
		cm, _ = s.AddClass(link)
	}
	return cm
}

// ClassName returns the deobfuscated name recorded for c: the full name
// for top-level classes, the simple name for inner ones.
func (s *Store) ClassName(c entry.ClassEntry) (string, bool) {
	cm, ok := s.Class(c)
	if !ok || cm.deobf == "" {
		return "", false
	}
	return cm.deobf, true
}

// SetClassName records name for c. An empty name clears it. A rejected
// name leaves the store unchanged.
func (s *Store) SetClassName(c entry.ClassEntry, name string) error {
	if name == "" {
		s.RemoveClassName(c)
		return nil
	}
	if outer, isInner := c.OuterClass(); isInner {
		if parent, ok := s.Class(outer); ok {
			if other, taken := parent.innerByDeobf[name]; taken && other != c.InnermostName() {
				return fmt.Errorf("inner class %s of %s: %w", name, outer, enigmaerr.ErrDuplicateName)
			}
		}
	} else if other, taken := s.byDeobf[name]; taken && other != c.Name() {
		return fmt.Errorf("class %s: %w", name, enigmaerr.ErrDuplicateName)
	}
	cm, err := s.AddClass(c)
	if err != nil {
		return err
	}
	names := s.byDeobf
	if cm.outer != nil {
		names = cm.outer.innerByDeobf
	}
	if cm.deobf != "" {
		delete(names, cm.deobf)
	}
	if cm.outer != nil {
		names[name] = c.InnermostName()
	} else {
		names[name] = c.Name()
	}
	cm.deobf = name
	return nil
}

// RemoveClassName clears the name of c. Records left empty are deleted.
func (s *Store) RemoveClassName(c entry.ClassEntry) bool {
	cm, ok := s.Class(c)
	if !ok || cm.deobf == "" {
		return false
	}
	if cm.outer != nil {
		delete(cm.outer.innerByDeobf, cm.deobf)
	} else {
		delete(s.byDeobf, cm.deobf)
	}
	cm.deobf = ""
	s.prune(cm)
	return true
}

// prune deletes cm and then each of its outer classes for as long as the
// record left behind is empty.
func (s *Store) prune(cm *ClassMapping) {
	for cm != nil && cm.Empty() {
		outer := cm.outer
		s.RemoveClass(cm.obf)
		cm = outer
	}
}

// RemoveClass deletes the record of c with everything nested in it.
func (s *Store) RemoveClass(c entry.ClassEntry) bool {
	cm, ok := s.Class(c)
	if !ok {
		return false
	}
	if cm.outer != nil {
		if cm.deobf != "" {
			delete(cm.outer.innerByDeobf, cm.deobf)
		}
		cm.outer.inner.Remove(c.InnermostName())
	} else {
		if cm.deobf != "" {
			delete(s.byDeobf, cm.deobf)
		}
		s.classes.Remove(c.Name())
	}
	return true
}

func (s *Store) Field(f entry.FieldEntry) (*FieldMapping, bool) {
	cm, ok := s.Class(f.ClassEntry())
	if !ok {
		return nil, false
	}
	return cm.field(f)
}

func (s *Store) FieldName(f entry.FieldEntry) (string, bool) {
	fm, ok := s.Field(f)
	if !ok {
		return "", false
	}
	return fm.deobf, true
}

// SetFieldName records name for f. Field names are unique per class.
func (s *Store) SetFieldName(f entry.FieldEntry, name string) error {
	if name == "" {
		s.RemoveField(f)
		return nil
	}
	key := f.Name() + ":" + string(f.Type())
	if cm, ok := s.Class(f.ClassEntry()); ok {
		if other, taken := cm.fieldByDeobf[name]; taken && other != key {
			return fmt.Errorf("field %s of %s: %w", name, cm.obf, enigmaerr.ErrDuplicateName)
		}
	}
	cm, err := s.AddClass(f.ClassEntry())
	if err != nil {
		return err
	}
	if fm, ok := cm.field(f); ok {
		delete(cm.fieldByDeobf, fm.deobf)
		fm.deobf = name
	} else {
		cm.fields.Put(key, &FieldMapping{obfName: f.Name(), obfType: f.Type(), deobf: name})
	}
	cm.fieldByDeobf[name] = key
	return nil
}

func (s *Store) RemoveField(f entry.FieldEntry) bool {
	cm, ok := s.Class(f.ClassEntry())
	if !ok {
		return false
	}
	fm, ok := cm.field(f)
	if !ok {
		return false
	}
	delete(cm.fieldByDeobf, fm.deobf)
	cm.fields.Remove(fm.Key())
	s.prune(cm)
	return true
}

func (s *Store) Method(b entry.BehaviorEntry) (*MethodMapping, bool) {
	cm, ok := s.Class(b.ClassEntry())
	if !ok {
		return nil, false
	}
	return cm.method(b)
}

func (s *Store) MethodName(b entry.BehaviorEntry) (string, bool) {
	mm, ok := s.Method(b)
	if !ok || mm.deobf == "" {
		return "", false
	}
	return mm.deobf, true
}

func (s *Store) addMethod(b entry.BehaviorEntry) (*ClassMapping, *MethodMapping, error) {
	cm, err := s.AddClass(b.ClassEntry())
	if err != nil {
		return nil, nil, err
	}
	if mm, ok := cm.method(b); ok {
		return cm, mm, nil
	}
	mm := &MethodMapping{obfName: b.Name(), obfSig: recordSignature(b), args: treemap.NewWithIntComparator()}
	cm.methods.Put(mm.Key(), mm)
	return cm, mm, nil
}

// AddMethod returns the record of b, creating an empty one when needed.
func (s *Store) AddMethod(b entry.BehaviorEntry) (*MethodMapping, error) {
	_, mm, err := s.addMethod(b)
	return mm, err
}

// SetMethodName records name for the method b. A name is unique per class
// together with the obfuscated signature.
func (s *Store) SetMethodName(b entry.BehaviorEntry, name string) error {
	if name == "" {
		s.RemoveMethodName(b)
		return nil
	}
	if _, ok := b.(entry.MethodEntry); !ok {
		return fmt.Errorf("%s: constructors take their class name: %w", b, enigmaerr.ErrNonRenameable)
	}
	cm, ok := s.Class(b.ClassEntry())
	if ok {
		if other, taken := cm.methodByDeobf[name+string(recordSignature(b))]; taken && other != behaviorKey(b) {
			return fmt.Errorf("method %s%s of %s: %w", name, b.Signature(), cm.obf, enigmaerr.ErrDuplicateName)
		}
	}
	cm, mm, err := s.addMethod(b)
	if err != nil {
		return err
	}
	if mm.deobf != "" {
		delete(cm.methodByDeobf, mm.deobf+string(mm.obfSig))
	}
	mm.deobf = name
	cm.methodByDeobf[name+string(mm.obfSig)] = mm.Key()
	return nil
}

// RemoveMethodName clears the name of b and keeps its argument names.
func (s *Store) RemoveMethodName(b entry.BehaviorEntry) bool {
	cm, ok := s.Class(b.ClassEntry())
	if !ok {
		return false
	}
	mm, ok := cm.method(b)
	if !ok || mm.deobf == "" {
		return false
	}
	delete(cm.methodByDeobf, mm.deobf+string(mm.obfSig))
	mm.deobf = ""
	if mm.empty() {
		cm.methods.Remove(mm.Key())
		s.prune(cm)
	}
	return true
}

// RemoveMethod deletes the record of b with its arguments.
func (s *Store) RemoveMethod(b entry.BehaviorEntry) bool {
	cm, ok := s.Class(b.ClassEntry())
	if !ok {
		return false
	}
	mm, ok := cm.method(b)
	if !ok {
		return false
	}
	if mm.deobf != "" {
		delete(cm.methodByDeobf, mm.deobf+string(mm.obfSig))
	}
	cm.methods.Remove(mm.Key())
	s.prune(cm)
	return true
}

func (s *Store) ArgumentName(b entry.BehaviorEntry, index int) (string, bool) {
	mm, ok := s.Method(b)
	if !ok {
		return "", false
	}
	return mm.Argument(index)
}

// SetArgumentName records the name of argument a. Argument names are
// unique per behavior.
func (s *Store) SetArgumentName(a entry.ArgumentEntry, name string) error {
	if name == "" {
		s.RemoveArgument(a)
		return nil
	}
	if mm, ok := s.Method(a.Behavior()); ok {
		if other, taken := mm.ObfArgument(name); taken && other != a.Index() {
			return fmt.Errorf("argument %s of %s: %w", name, a.Behavior(), enigmaerr.ErrDuplicateName)
		}
	}
	_, mm, err := s.addMethod(a.Behavior())
	if err != nil {
		return err
	}
	mm.args.Put(a.Index(), name)
	return nil
}

func (s *Store) RemoveArgument(a entry.ArgumentEntry) bool {
	cm, ok := s.Class(a.ClassEntry())
	if !ok {
		return false
	}
	mm, ok := cm.method(a.Behavior())
	if !ok {
		return false
	}
	if _, ok := mm.args.Get(a.Index()); !ok {
		return false
	}
	mm.args.Remove(a.Index())
	if mm.empty() {
		cm.methods.Remove(mm.Key())
		s.prune(cm)
	}
	return true
}

// Counts reports the number of records per kind.
func (s *Store) Counts() (classes, fields, methods, arguments int) {
	s.Walk(func(cm *ClassMapping) {
		classes++
		fields += cm.fields.Size()
		for _, mm := range cm.Methods() {
			methods++
			arguments += mm.args.Size()
		}
	})
	return
}

// Clone returns a deep copy of s.
func (s *Store) Clone() *Store {
	out := New()
	out.extra = append([]string(nil), s.extra...)
	var copyClass func(src *ClassMapping, outer *ClassMapping) *ClassMapping
	copyClass = func(src *ClassMapping, outer *ClassMapping) *ClassMapping {
		dst := newClassMapping(src.obf, outer)
		dst.deobf = src.deobf
		dst.extra = append([]string(nil), src.extra...)
		for k, v := range src.innerByDeobf {
			dst.innerByDeobf[k] = v
		}
		for k, v := range src.fieldByDeobf {
			dst.fieldByDeobf[k] = v
		}
		for k, v := range src.methodByDeobf {
			dst.methodByDeobf[k] = v
		}
		for _, fm := range src.Fields() {
			cp := *fm
			dst.fields.Put(fm.Key(), &cp)
		}
		for _, mm := range src.Methods() {
			cp := &MethodMapping{obfName: mm.obfName, obfSig: mm.obfSig, deobf: mm.deobf,
				args: treemap.NewWithIntComparator(), extra: append([]string(nil), mm.extra...)}
			for _, a := range mm.Arguments() {
				cp.args.Put(a.Index, a.Name)
			}
			dst.methods.Put(mm.Key(), cp)
		}
		for _, in := range src.InnerClasses() {
			dst.inner.Put(in.obf.InnermostName(), copyClass(in, dst))
		}
		return dst
	}
	for _, cm := range s.Classes() {
		out.classes.Put(cm.obf.Name(), copyClass(cm, nil))
	}
	for k, v := range s.byDeobf {
		out.byDeobf[k] = v
	}
	return out
}

// Equal compares the canonical text of both stores.
func (s *Store) Equal(other *Store) bool {
	return s.Text() == other.Text()
}
