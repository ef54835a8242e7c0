// Package classfile reads the parts of a compiled class file the index
// needs: names, members, access flags, inner class metadata and the
// references each method body makes.
package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrBadMagic = errors.New("classfile: bad magic")

type Class struct {
	Access       AccessFlags
	Name         string
	Super        string // empty only for java/lang/Object
	Interfaces   []string
	Fields       []Field
	Methods      []Method
	InnerClasses []InnerClass
	SourceFile   string
}

type Field struct {
	Access     AccessFlags
	Name       string
	Descriptor string
}

type Method struct {
	Access     AccessFlags
	Name       string
	Descriptor string
	Refs       []Ref
	// Strings lists the string constants the body loads.
	Strings []string
}

func (m *Method) IsBridge() bool {
	return m.Access.Has(AccBridge) && m.Access.Has(AccSynthetic)
}

// InnerClass is one row of the InnerClasses attribute. Outer and Name are
// empty for local and anonymous classes.
type InnerClass struct {
	Inner  string
	Outer  string
	Name   string
	Access AccessFlags
}

type RefKind uint8

const (
	FieldRead RefKind = iota
	FieldWrite
	Invoke
	Instantiate
)

func (k RefKind) String() string {
	switch k {
	case FieldRead:
		return "read"
	case FieldWrite:
		return "write"
	case Invoke:
		return "invoke"
	}
	return "new"
}

// Ref is a member or class referenced by an instruction. Descriptor and
// Name are empty for Instantiate.
type Ref struct {
	Kind       RefKind
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

type reader struct {
	r   io.Reader
	err error
}

func (r *reader) readU1() uint8 {
	if r.err != nil {
		return 0
	}
	var buf [1]byte
	_, r.err = io.ReadFull(r.r, buf[:])
	return buf[0]
}

func (r *reader) readU2() uint16 {
	if r.err != nil {
		return 0
	}
	var buf [2]byte
	_, r.err = io.ReadFull(r.r, buf[:])
	return binary.BigEndian.Uint16(buf[:])
}

func (r *reader) readU4() uint32 {
	if r.err != nil {
		return 0
	}
	var buf [4]byte
	_, r.err = io.ReadFull(r.r, buf[:])
	return binary.BigEndian.Uint32(buf[:])
}

func (r *reader) readBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf := make([]byte, n)
	_, r.err = io.ReadFull(r.r, buf)
	return buf
}

// Parse decodes the class file in data.
func Parse(data []byte) (*Class, error) {
	r := &reader{r: bytes.NewReader(data)}

	if magic := r.readU4(); r.err != nil {
		return nil, fmt.Errorf("read magic: %w", r.err)
	} else if magic != Magic {
		return nil, fmt.Errorf("0x%X: %w", magic, ErrBadMagic)
	}
	r.readU2() // minor
	r.readU2() // major

	cp, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	cls := &Class{Access: AccessFlags(r.readU2())}
	if cls.Name, err = cp.className(r.readU2()); err != nil {
		return nil, fmt.Errorf("this class: %w", err)
	}
	if super := r.readU2(); super != 0 {
		if cls.Super, err = cp.className(super); err != nil {
			return nil, fmt.Errorf("super class: %w", err)
		}
	}
	count := r.readU2()
	for i := uint16(0); i < count && r.err == nil; i++ {
		iface, err := cp.className(r.readU2())
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		cls.Interfaces = append(cls.Interfaces, iface)
	}
	if r.err != nil {
		return nil, fmt.Errorf("read class info: %w", r.err)
	}

	count = r.readU2()
	for i := uint16(0); i < count && r.err == nil; i++ {
		f := Field{Access: AccessFlags(r.readU2())}
		f.Name = cp.utf8(r.readU2())
		f.Descriptor = cp.utf8(r.readU2())
		if err := skipAttributes(r); err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		cls.Fields = append(cls.Fields, f)
	}

	count = r.readU2()
	for i := uint16(0); i < count && r.err == nil; i++ {
		m, err := readMethod(r, cp)
		if err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		cls.Methods = append(cls.Methods, *m)
	}

	count = r.readU2()
	for i := uint16(0); i < count && r.err == nil; i++ {
		name := cp.utf8(r.readU2())
		info := r.readBytes(int(r.readU4()))
		switch name {
		case "InnerClasses":
			if cls.InnerClasses, err = parseInnerClasses(info, cp); err != nil {
				return nil, fmt.Errorf("inner classes: %w", err)
			}
		case "SourceFile":
			if len(info) == 2 {
				cls.SourceFile = cp.utf8(binary.BigEndian.Uint16(info))
			}
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("read attributes: %w", r.err)
	}
	if err := cp.err; err != nil {
		return nil, err
	}
	return cls, nil
}

func skipAttributes(r *reader) error {
	count := r.readU2()
	for i := uint16(0); i < count && r.err == nil; i++ {
		r.readU2()
		r.readBytes(int(r.readU4()))
	}
	return r.err
}

func readMethod(r *reader, cp *constantPool) (*Method, error) {
	m := &Method{Access: AccessFlags(r.readU2())}
	m.Name = cp.utf8(r.readU2())
	m.Descriptor = cp.utf8(r.readU2())

	count := r.readU2()
	for i := uint16(0); i < count && r.err == nil; i++ {
		name := cp.utf8(r.readU2())
		info := r.readBytes(int(r.readU4()))
		if name == "Code" && r.err == nil {
			if err := scanCode(info, cp, m); err != nil {
				return nil, fmt.Errorf("%s%s: code: %w", m.Name, m.Descriptor, err)
			}
		}
	}
	return m, r.err
}

func parseInnerClasses(info []byte, cp *constantPool) ([]InnerClass, error) {
	r := &reader{r: bytes.NewReader(info)}
	count := r.readU2()
	var rows []InnerClass
	for i := uint16(0); i < count && r.err == nil; i++ {
		var row InnerClass
		var err error
		if row.Inner, err = cp.className(r.readU2()); err != nil {
			return nil, err
		}
		if outer := r.readU2(); outer != 0 {
			if row.Outer, err = cp.className(outer); err != nil {
				return nil, err
			}
		}
		if name := r.readU2(); name != 0 {
			row.Name = cp.utf8(name)
		}
		row.Access = AccessFlags(r.readU2())
		rows = append(rows, row)
	}
	return rows, r.err
}
