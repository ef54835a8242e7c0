package jartest

import (
	"bytes"

	"github.com/swind/go-enigma/classfile"
)

type insn struct {
	op                uint8
	owner, name, desc string
	iface             bool
	raw               []byte
}

type MethodBuilder struct {
	access classfile.AccessFlags
	name   string
	desc   string
	code   []insn
}

func (m *MethodBuilder) member(op uint8, owner, name, desc string, iface bool) *MethodBuilder {
	m.code = append(m.code, insn{op: op, owner: owner, name: name, desc: desc, iface: iface})
	return m
}

func (m *MethodBuilder) GetField(owner, name, desc string) *MethodBuilder {
	return m.member(classfile.OpGetField, owner, name, desc, false)
}

func (m *MethodBuilder) PutField(owner, name, desc string) *MethodBuilder {
	return m.member(classfile.OpPutField, owner, name, desc, false)
}

func (m *MethodBuilder) GetStatic(owner, name, desc string) *MethodBuilder {
	return m.member(classfile.OpGetStatic, owner, name, desc, false)
}

func (m *MethodBuilder) PutStatic(owner, name, desc string) *MethodBuilder {
	return m.member(classfile.OpPutStatic, owner, name, desc, false)
}

func (m *MethodBuilder) InvokeVirtual(owner, name, desc string) *MethodBuilder {
	return m.member(classfile.OpInvokeVirtual, owner, name, desc, false)
}

func (m *MethodBuilder) InvokeSpecial(owner, name, desc string) *MethodBuilder {
	return m.member(classfile.OpInvokeSpecial, owner, name, desc, false)
}

func (m *MethodBuilder) InvokeStatic(owner, name, desc string) *MethodBuilder {
	return m.member(classfile.OpInvokeStatic, owner, name, desc, false)
}

func (m *MethodBuilder) InvokeInterface(owner, name, desc string) *MethodBuilder {
	return m.member(classfile.OpInvokeInterface, owner, name, desc, true)
}

// New emits new + dup + invokespecial <init>.
func (m *MethodBuilder) New(class, ctorDesc string) *MethodBuilder {
	m.code = append(m.code, insn{op: classfile.OpNew, owner: class}, insn{raw: []byte{0x59}})
	return m.InvokeSpecial(class, "<init>", ctorDesc)
}

func (m *MethodBuilder) LdcString(s string) *MethodBuilder {
	m.code = append(m.code, insn{op: classfile.OpLdcW, name: s})
	return m
}

// Raw appends undecoded bytecode, e.g. switches.
func (m *MethodBuilder) Raw(code ...byte) *MethodBuilder {
	m.code = append(m.code, insn{raw: code})
	return m
}

func (m *MethodBuilder) write(w *bytes.Buffer, p *pool) {
	u2(w, uint16(m.access))
	u2(w, p.utf8(m.name))
	u2(w, p.utf8(m.desc))
	if m.access.Has(classfile.AccAbstract) || m.access.Has(classfile.AccNative) {
		u2(w, 0)
		return
	}

	var code bytes.Buffer
	for _, in := range m.code {
		if in.raw != nil {
			code.Write(in.raw)
			continue
		}
		code.WriteByte(in.op)
		switch in.op {
		case classfile.OpNew:
			u2(&code, p.class(in.owner))
		case classfile.OpLdcW:
			u2(&code, p.str(in.name))
		case classfile.OpInvokeInterface:
			u2(&code, p.member(11, in.owner, in.name, in.desc))
			code.WriteByte(1)
			code.WriteByte(0)
		case classfile.OpGetField, classfile.OpPutField, classfile.OpGetStatic, classfile.OpPutStatic:
			u2(&code, p.member(9, in.owner, in.name, in.desc))
		default:
			u2(&code, p.member(10, in.owner, in.name, in.desc))
		}
	}
	code.WriteByte(classfile.OpReturn)

	u2(w, 1)
	u2(w, p.utf8("Code"))
	u4(w, uint32(12+code.Len()))
	u2(w, 8) // max stack
	u2(w, 8) // max locals
	u4(w, uint32(code.Len()))
	w.Write(code.Bytes())
	u2(w, 0) // exception table
	u2(w, 0) // attributes
}
