// Package jartest assembles class files and jars in memory for tests.
//
//	a := jartest.NewClass("p/A")
//	a.Field(classfile.AccPrivate, "a", "I")
//	a.Method(classfile.AccPublic, "m", "()V").GetField("p/A", "a", "I")
//	jar := jartest.Jar(a, jartest.NewClass("p/B").Extends("p/A"))
package jartest

import (
	"bytes"
	"encoding/binary"

	"github.com/swind/go-enigma/classfile"
)

const javaLangObject = "java/lang/Object"

type poolKey struct {
	tag  uint8
	a, b uint16
	s    string
}

type pool struct {
	index   map[poolKey]uint16
	entries []poolKey
}

func newPool() *pool {
	return &pool{index: make(map[poolKey]uint16)}
}

func (p *pool) add(k poolKey) uint16 {
	if i, ok := p.index[k]; ok {
		return i
	}
	p.entries = append(p.entries, k)
	i := uint16(len(p.entries))
	p.index[k] = i
	return i
}

func (p *pool) utf8(s string) uint16 { return p.add(poolKey{tag: 1, s: s}) }
func (p *pool) class(name string) uint16 {
	return p.add(poolKey{tag: 7, a: p.utf8(name)})
}
func (p *pool) str(s string) uint16 { return p.add(poolKey{tag: 8, a: p.utf8(s)}) }
func (p *pool) nameAndType(name, desc string) uint16 {
	return p.add(poolKey{tag: 12, a: p.utf8(name), b: p.utf8(desc)})
}
func (p *pool) member(tag uint8, owner, name, desc string) uint16 {
	return p.add(poolKey{tag: tag, a: p.class(owner), b: p.nameAndType(name, desc)})
}

func (p *pool) write(w *bytes.Buffer) {
	u2(w, uint16(len(p.entries)+1))
	for _, e := range p.entries {
		w.WriteByte(e.tag)
		switch e.tag {
		case 1:
			u2(w, uint16(len(e.s)))
			w.WriteString(e.s)
		case 7, 8:
			u2(w, e.a)
		default:
			u2(w, e.a)
			u2(w, e.b)
		}
	}
}

func u2(w *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.Write(buf[:])
}

func u4(w *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

// ClassBuilder describes one class. Methods return the builder so calls
// chain.
type ClassBuilder struct {
	access     classfile.AccessFlags
	name       string
	super      string
	interfaces []string
	fields     []classfile.Field
	methods    []*MethodBuilder
	inner      []classfile.InnerClass
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{access: classfile.AccPublic | classfile.AccSuper, name: name, super: javaLangObject}
}

func (c *ClassBuilder) Name() string { return c.name }

func (c *ClassBuilder) Access(flags classfile.AccessFlags) *ClassBuilder {
	c.access = flags
	return c
}

// Interface marks the class as an interface.
func (c *ClassBuilder) Interface() *ClassBuilder {
	c.access = classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract
	return c
}

func (c *ClassBuilder) Extends(super string) *ClassBuilder {
	c.super = super
	return c
}

func (c *ClassBuilder) Implements(ifaces ...string) *ClassBuilder {
	c.interfaces = append(c.interfaces, ifaces...)
	return c
}

func (c *ClassBuilder) Field(access classfile.AccessFlags, name, desc string) *ClassBuilder {
	c.fields = append(c.fields, classfile.Field{Access: access, Name: name, Descriptor: desc})
	return c
}

// InnerClass adds an InnerClasses row. Pass empty outer and name for
// anonymous classes.
func (c *ClassBuilder) InnerClass(inner, outer, name string, access classfile.AccessFlags) *ClassBuilder {
	c.inner = append(c.inner, classfile.InnerClass{Inner: inner, Outer: outer, Name: name, Access: access})
	return c
}

// Method adds a method with a body that returns immediately; append
// instructions to the returned builder. Abstract and native methods get no
// Code attribute.
func (c *ClassBuilder) Method(access classfile.AccessFlags, name, desc string) *MethodBuilder {
	m := &MethodBuilder{access: access, name: name, desc: desc}
	c.methods = append(c.methods, m)
	return m
}

// Bridge adds a synthetic bridge method whose body invokes target.
func (c *ClassBuilder) Bridge(name, desc, targetDesc string) *MethodBuilder {
	m := c.Method(classfile.AccPublic|classfile.AccBridge|classfile.AccSynthetic, name, desc)
	return m.InvokeVirtual(c.name, name, targetDesc)
}

// Bytes encodes the class file.
func (c *ClassBuilder) Bytes() []byte {
	p := newPool()
	var body bytes.Buffer

	u2(&body, uint16(c.access))
	u2(&body, p.class(c.name))
	if c.super == "" {
		u2(&body, 0)
	} else {
		u2(&body, p.class(c.super))
	}
	u2(&body, uint16(len(c.interfaces)))
	for _, iface := range c.interfaces {
		u2(&body, p.class(iface))
	}

	u2(&body, uint16(len(c.fields)))
	for _, f := range c.fields {
		u2(&body, uint16(f.Access))
		u2(&body, p.utf8(f.Name))
		u2(&body, p.utf8(f.Descriptor))
		u2(&body, 0)
	}

	u2(&body, uint16(len(c.methods)))
	for _, m := range c.methods {
		m.write(&body, p)
	}

	if len(c.inner) == 0 {
		u2(&body, 0)
	} else {
		u2(&body, 1)
		u2(&body, p.utf8("InnerClasses"))
		u4(&body, uint32(2+8*len(c.inner)))
		u2(&body, uint16(len(c.inner)))
		for _, row := range c.inner {
			u2(&body, p.class(row.Inner))
			if row.Outer == "" {
				u2(&body, 0)
			} else {
				u2(&body, p.class(row.Outer))
			}
			if row.Name == "" {
				u2(&body, 0)
			} else {
				u2(&body, p.utf8(row.Name))
			}
			u2(&body, uint16(row.Access))
		}
	}

	var out bytes.Buffer
	u4(&out, classfile.Magic)
	u2(&out, 0)
	u2(&out, 52)
	p.write(&out)
	out.Write(body.Bytes())
	return out.Bytes()
}
