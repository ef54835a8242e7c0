package classfile

import (
	"fmt"
)

type constant struct {
	tag  uint8
	a, b uint16
	str  string
}

// constantPool resolves indices lazily. The first bad lookup is kept in
// err so callers can check once at the end.
type constantPool struct {
	entries []constant
	err     error
}

func readConstantPool(r *reader) (*constantPool, error) {
	count := r.readU2()
	if r.err != nil {
		return nil, fmt.Errorf("read constant pool count: %w", r.err)
	}
	cp := &constantPool{entries: make([]constant, count)}
	for i := 1; i < int(count); i++ {
		c := constant{tag: r.readU1()}
		switch c.tag {
		case tagUtf8:
			c.str = decodeModifiedUtf8(r.readBytes(int(r.readU2())))
		case tagInteger, tagFloat:
			r.readU4()
		case tagLong, tagDouble:
			r.readU4()
			r.readU4()
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.a = r.readU2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			c.a = r.readU2()
			c.b = r.readU2()
		case tagMethodHandle:
			c.a = uint16(r.readU1())
			c.b = r.readU2()
		default:
			if r.err == nil {
				return nil, fmt.Errorf("constant pool entry %d: unknown tag %d", i, c.tag)
			}
		}
		if r.err != nil {
			return nil, fmt.Errorf("constant pool entry %d: %w", i, r.err)
		}
		cp.entries[i] = c
		if c.tag == tagLong || c.tag == tagDouble {
			i++
		}
	}
	return cp, nil
}

func (cp *constantPool) get(i uint16, tag uint8) (constant, bool) {
	if int(i) >= len(cp.entries) || i == 0 || cp.entries[i].tag != tag {
		if cp.err == nil {
			cp.err = fmt.Errorf("constant pool index %d: expected tag %d", i, tag)
		}
		return constant{}, false
	}
	return cp.entries[i], true
}

func (cp *constantPool) utf8(i uint16) string {
	c, _ := cp.get(i, tagUtf8)
	return c.str
}

func (cp *constantPool) className(i uint16) (string, error) {
	c, ok := cp.get(i, tagClass)
	if !ok {
		return "", cp.err
	}
	name := cp.utf8(c.a)
	if name == "" {
		return "", fmt.Errorf("constant pool index %d: empty class name", i)
	}
	return name, nil
}

// stringAt returns the value of i when it is a CONSTANT_String.
func (cp *constantPool) stringAt(i uint16) (string, bool) {
	if int(i) >= len(cp.entries) || cp.entries[i].tag != tagString {
		return "", false
	}
	return cp.utf8(cp.entries[i].a), true
}

// memberRef resolves a Fieldref, Methodref or InterfaceMethodref.
func (cp *constantPool) memberRef(i uint16) (Ref, error) {
	if int(i) >= len(cp.entries) || i == 0 {
		return Ref{}, fmt.Errorf("constant pool index %d out of range", i)
	}
	c := cp.entries[i]
	switch c.tag {
	case tagFieldref, tagMethodref, tagInterfaceMethodref:
	default:
		return Ref{}, fmt.Errorf("constant pool index %d: tag %d is not a member", i, c.tag)
	}
	owner, err := cp.className(c.a)
	if err != nil {
		return Ref{}, err
	}
	nt, ok := cp.get(c.b, tagNameAndType)
	if !ok {
		return Ref{}, cp.err
	}
	return Ref{
		Owner:      owner,
		Name:       cp.utf8(nt.a),
		Descriptor: cp.utf8(nt.b),
		Interface:  c.tag == tagInterfaceMethodref,
	}, nil
}

func decodeModifiedUtf8(b []byte) string {
	runes := make([]rune, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			runes = append(runes, rune(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			runes = append(runes, rune(c&0x1F)<<6|rune(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			r := rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			if r >= 0xD800 && r <= 0xDBFF && i+5 < len(b) && b[i+3] == 0xED {
				low := rune(b[i+3]&0x0F)<<12 | rune(b[i+4]&0x3F)<<6 | rune(b[i+5]&0x3F)
				if low >= 0xDC00 && low <= 0xDFFF {
					runes = append(runes, 0x10000+((r-0xD800)<<10)+(low-0xDC00))
					i += 6
					continue
				}
			}
			runes = append(runes, r)
			i += 3
		default:
			runes = append(runes, rune(c))
			i++
		}
	}
	return string(runes)
}
