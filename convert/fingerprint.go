package convert

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
)

// semanticAccess keeps the access bits obfuscators leave alone.
const semanticAccess = classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected |
	classfile.AccStatic | classfile.AccFinal | classfile.AccInterface | classfile.AccAbstract |
	classfile.AccAnnotation | classfile.AccEnum

// unknownClass stands in for a jar class whose name carries no meaning
// across versions.
var unknownClass = entry.NewClassEntry("?")

// eraser rewrites the class references of descriptors so descriptors of
// the two jars can be compared.
type eraser func(entry.ClassEntry) entry.ClassEntry

// eraseJarClasses replaces every class of x with unknownClass and keeps
// library classes.
func eraseJarClasses(x *jarindex.Index) eraser {
	return func(c entry.ClassEntry) entry.ClassEntry {
		if x.ContainsClass(c) {
			return unknownClass
		}
		return c
	}
}

type fingerprinter struct {
	x     *jarindex.Index
	erase eraser
	memo  map[entry.ClassEntry]uint64
}

func newFingerprinter(x *jarindex.Index) *fingerprinter {
	return &fingerprinter{x: x, erase: eraseJarClasses(x), memo: make(map[entry.ClassEntry]uint64)}
}

// class hashes the shape of c: its semantic access bits, the erased
// types of its fields and behaviors, its superclass when that is a
// library class and the shapes of its interfaces.
func (f *fingerprinter) class(c entry.ClassEntry) uint64 {
	if h, ok := f.memo[c]; ok {
		return h
	}
	// Interfaces form a DAG, but a broken jar may still loop.
	f.memo[c] = 0

	access, _ := f.x.Access(c)
	parts := []string{strconv.FormatUint(uint64(access&semanticAccess), 16)}

	fields := f.x.Fields(c)
	types := make([]string, 0, len(fields))
	for _, fe := range fields {
		types = append(types, string(fe.Type().MapClasses(f.erase)))
	}
	parts = append(parts, "fields", strconv.Itoa(len(fields)))
	parts = append(parts, sorted(types)...)

	behaviors := f.x.Behaviors(c)
	sigs := make([]string, 0, len(behaviors))
	for _, b := range behaviors {
		sigs = append(sigs, b.Kind().String()+string(b.Signature().MapClasses(f.erase)))
	}
	parts = append(parts, "behaviors", strconv.Itoa(len(behaviors)))
	parts = append(parts, sorted(sigs)...)

	super := "none"
	if s, ok := f.x.Superclass(c); ok {
		super = f.erase(s).Name()
	}
	parts = append(parts, "super", super)

	var ifaces []string
	for _, i := range f.x.Interfaces(c) {
		if f.x.ContainsClass(i) {
			ifaces = append(ifaces, formatHash(f.class(i)))
		} else {
			ifaces = append(ifaces, i.Name())
		}
	}
	parts = append(parts, "interfaces")
	parts = append(parts, sorted(ifaces)...)

	h := hash(parts)
	f.memo[c] = h
	return h
}

// content hashes the library references and string constants of c. It
// tells apart classes of equal shape.
func (f *fingerprinter) content(c entry.ClassEntry) uint64 {
	parts := append([]string{"refs"}, f.x.ExternalReferences(c)...)
	parts = append(parts, "strings")
	parts = append(parts, sorted(append([]string(nil), f.x.Strings(c)...))...)
	return hash(parts)
}

func sorted(s []string) []string {
	sort.Strings(s)
	return s
}

func formatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

func hash(parts []string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		d.WriteString(p)
		d.WriteString("\x00")
	}
	return d.Sum64()
}

// memberErasers rewrite member descriptors of both jars into a common form:
// matched classes take their dest name, other jar classes become
// unknownClass.
func memberErasers(src, dst *jarindex.Index, classes *Matches[entry.ClassEntry]) (fromSource, fromDest eraser) {
	fromSource = func(c entry.ClassEntry) entry.ClassEntry {
		if d, ok := classes.Dest(c); ok {
			return d
		}
		if src.ContainsClass(c) {
			return unknownClass
		}
		return c
	}
	fromDest = func(c entry.ClassEntry) entry.ClassEntry {
		if _, ok := classes.Source(c); ok {
			return c
		}
		if dst.ContainsClass(c) {
			return unknownClass
		}
		return c
	}
	return fromSource, fromDest
}

func fieldKey(x *jarindex.Index, erase eraser) func(entry.FieldEntry) string {
	return func(f entry.FieldEntry) string {
		access, _ := x.Access(f)
		return strings.Join([]string{
			strconv.FormatBool(access.Has(classfile.AccStatic)),
			string(f.Type().MapClasses(erase)),
		}, " ")
	}
}

func behaviorKey(x *jarindex.Index, erase eraser) func(entry.BehaviorEntry) string {
	return func(b entry.BehaviorEntry) string {
		access, _ := x.Access(b)
		return strings.Join([]string{
			b.Kind().String(),
			strconv.FormatBool(access.Has(classfile.AccStatic)),
			string(b.Signature().MapClasses(erase)),
		}, " ")
	}
}

// accessKey separates members of equal type by their access bits.
func accessKey[E entry.Entry](x *jarindex.Index) func(E) string {
	return func(e E) string {
		access, _ := x.Access(e)
		return strconv.FormatUint(uint64(access&semanticAccess), 16)
	}
}
