package entry

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is the textual form used by match files and the command line:
//
//	p/A                 class
//	p/A.a:I             field
//	p/A.m(I)V           method
//	p/A.<init>(I)V      constructor
//	p/A.<clinit>        static initializer
//	p/A.m(I)V#0:name    argument
//
// It equals String for every kind.
func Key(e Entry) string {
	return e.String()
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Entry, error) {
	if h := strings.LastIndexByte(key, '#'); h >= 0 {
		parent, err := ParseKey(key[:h])
		if err != nil {
			return nil, err
		}
		b, ok := parent.(BehaviorEntry)
		if !ok {
			return nil, fmt.Errorf("%q: argument of a non behavior", key)
		}
		idx, name, _ := strings.Cut(key[h+1:], ":")
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%q: bad argument index", key)
		}
		return NewArgumentEntry(b, n, name), nil
	}

	owner, member, ok := strings.Cut(key, ".")
	if owner == "" {
		return nil, fmt.Errorf("%q: empty class name", key)
	}
	class := ClassEntry{name: owner}
	if !ok {
		return class, nil
	}

	if i := strings.IndexByte(member, '('); i >= 0 {
		name, sig := member[:i], Signature(member[i:])
		if name == "" || !sig.Valid() {
			return nil, fmt.Errorf("%q: bad method key", key)
		}
		return NewBehaviorEntry(class, name, sig), nil
	}
	if member == StaticInitializerName {
		return NewStaticInitializer(class), nil
	}
	name, typ, ok := strings.Cut(member, ":")
	if !ok || name == "" || !Type(typ).Valid() {
		return nil, fmt.Errorf("%q: bad field key", key)
	}
	return NewFieldEntry(class, name, Type(typ)), nil
}
