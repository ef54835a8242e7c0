package entry

import (
	"strings"
)

// Type is a field type descriptor such as "I", "[Ljava/lang/String;".
type Type string

// Signature is a method descriptor such as "(ILa/B;)V".
type Signature string

// scanType returns the end offset of the single type descriptor starting
// at s[i], or -1 when s[i:] does not start with a valid type.
func scanType(s string, i int, allowVoid bool) int {
	for i < len(s) && s[i] == '[' {
		i++
		allowVoid = false
	}
	if i >= len(s) {
		return -1
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1
	case 'V':
		if allowVoid {
			return i + 1
		}
		return -1
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end <= 1 {
			return -1
		}
		return i + end + 1
	}
	return -1
}

func (t Type) Valid() bool {
	return len(t) > 0 && scanType(string(t), 0, false) == len(t)
}

func (t Type) IsPrimitive() bool {
	return len(t) == 1 && t != "V"
}

func (t Type) IsVoid() bool { return t == "V" }

func (t Type) IsArray() bool {
	return strings.HasPrefix(string(t), "[")
}

// ArrayDimension counts the leading '[' of t.
func (t Type) ArrayDimension() int {
	n := 0
	for n < len(t) && t[n] == '[' {
		n++
	}
	return n
}

// ElementType strips every array dimension.
func (t Type) ElementType() Type {
	return t[t.ArrayDimension():]
}

// ClassEntry returns the class t refers to, looking through arrays.
func (t Type) ClassEntry() (ClassEntry, bool) {
	e := t.ElementType()
	if len(e) > 2 && e[0] == 'L' && e[len(e)-1] == ';' {
		return ClassEntry{name: string(e[1 : len(e)-1])}, true
	}
	return ClassEntry{}, false
}

// MapClasses rewrites the class reference of t, if any.
func (t Type) MapClasses(fn func(ClassEntry) ClassEntry) Type {
	c, ok := t.ClassEntry()
	if !ok {
		return t
	}
	dims := t[:t.ArrayDimension()]
	return dims + "L" + Type(fn(c).name) + ";"
}

// ClassType builds the descriptor of a class type.
func ClassType(c ClassEntry) Type {
	return Type("L" + c.name + ";")
}

// Java renders t the way it reads in source, e.g. "java.lang.String[]".
func (t Type) Java() string {
	var base string
	switch t.ElementType() {
	case "B":
		base = "byte"
	case "C":
		base = "char"
	case "D":
		base = "double"
	case "F":
		base = "float"
	case "I":
		base = "int"
	case "J":
		base = "long"
	case "S":
		base = "short"
	case "Z":
		base = "boolean"
	case "V":
		base = "void"
	default:
		c, _ := t.ClassEntry()
		base = strings.ReplaceAll(c.ExternalName(), "$", ".")
	}
	return base + strings.Repeat("[]", t.ArrayDimension())
}

func (s Signature) Valid() bool {
	str := string(s)
	if !strings.HasPrefix(str, "(") {
		return false
	}
	i := 1
	for i < len(str) && str[i] != ')' {
		end := scanType(str, i, false)
		if end < 0 {
			return false
		}
		i = end
	}
	if i >= len(str) {
		return false
	}
	return scanType(str, i+1, true) == len(str)
}

// Arguments returns the argument types in order. It returns nil for an
// invalid signature.
func (s Signature) Arguments() []Type {
	str := string(s)
	if !strings.HasPrefix(str, "(") {
		return nil
	}
	var args []Type
	for i := 1; i < len(str) && str[i] != ')'; {
		end := scanType(str, i, false)
		if end < 0 {
			return nil
		}
		args = append(args, Type(str[i:end]))
		i = end
	}
	return args
}

// Return is the return type, "V" for void methods.
func (s Signature) Return() Type {
	i := strings.IndexByte(string(s), ')')
	if i < 0 {
		return ""
	}
	return Type(s[i+1:])
}

// MapClasses rewrites every class reference of s.
func (s Signature) MapClasses(fn func(ClassEntry) ClassEntry) Signature {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.WriteByte('(')
	for _, arg := range s.Arguments() {
		b.WriteString(string(arg.MapClasses(fn)))
	}
	b.WriteByte(')')
	b.WriteString(string(s.Return().MapClasses(fn)))
	return Signature(b.String())
}

// ClassEntries lists the classes s refers to, in order of appearance.
func (s Signature) ClassEntries() []ClassEntry {
	var classes []ClassEntry
	for _, t := range append(s.Arguments(), s.Return()) {
		if c, ok := t.ClassEntry(); ok {
			classes = append(classes, c)
		}
	}
	return classes
}

// ArgumentCount is the number of declared arguments.
func (s Signature) ArgumentCount() int {
	return len(s.Arguments())
}
