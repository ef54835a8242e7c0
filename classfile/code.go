package classfile

import (
	"encoding/binary"
	"fmt"
)

// scanCode walks the instructions of a Code attribute and appends the
// member references and string constants it finds to m.
func scanCode(info []byte, cp *constantPool, m *Method) error {
	if len(info) < 8 {
		return fmt.Errorf("truncated code attribute")
	}
	n := int(binary.BigEndian.Uint32(info[4:8]))
	if n > len(info)-8 {
		return fmt.Errorf("code length %d exceeds attribute", n)
	}
	code := info[8 : 8+n]

	u2 := func(pc int) uint16 { return binary.BigEndian.Uint16(code[pc:]) }
	i4 := func(pc int) int { return int(int32(binary.BigEndian.Uint32(code[pc:]))) }

	for pc := 0; pc < len(code); {
		op := code[pc]
		size := int(opLength[op])
		switch op {
		case OpTableSwitch:
			base := pc + 1 + (3-pc%4)
			if base+12 > len(code) {
				return fmt.Errorf("pc %d: truncated tableswitch", pc)
			}
			low, high := i4(base+4), i4(base+8)
			if high < low {
				return fmt.Errorf("pc %d: tableswitch high < low", pc)
			}
			size = base + 12 + 4*(high-low+1) - pc
		case OpLookupSwitch:
			base := pc + 1 + (3-pc%4)
			if base+8 > len(code) {
				return fmt.Errorf("pc %d: truncated lookupswitch", pc)
			}
			pairs := i4(base + 4)
			if pairs < 0 {
				return fmt.Errorf("pc %d: negative lookupswitch size", pc)
			}
			size = base + 8 + 8*pairs - pc
		case OpWide:
			if pc+1 >= len(code) {
				return fmt.Errorf("pc %d: truncated wide", pc)
			}
			size = 4
			if code[pc+1] == OpIinc {
				size = 6
			}
		}
		if size == 0 {
			return fmt.Errorf("pc %d: undefined opcode 0x%02x", pc, op)
		}
		if pc+size > len(code) {
			return fmt.Errorf("pc %d: instruction 0x%02x runs past the end", pc, op)
		}

		switch op {
		case OpGetStatic, OpGetField, OpPutStatic, OpPutField,
			OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface:
			ref, err := cp.memberRef(u2(pc + 1))
			if err != nil {
				return fmt.Errorf("pc %d: %w", pc, err)
			}
			switch op {
			case OpGetStatic, OpGetField:
				ref.Kind = FieldRead
			case OpPutStatic, OpPutField:
				ref.Kind = FieldWrite
			default:
				ref.Kind = Invoke
			}
			m.Refs = append(m.Refs, ref)
		case OpNew:
			owner, err := cp.className(u2(pc + 1))
			if err != nil {
				return fmt.Errorf("pc %d: %w", pc, err)
			}
			m.Refs = append(m.Refs, Ref{Kind: Instantiate, Owner: owner})
		case OpLdc:
			if s, ok := cp.stringAt(uint16(code[pc+1])); ok {
				m.Strings = append(m.Strings, s)
			}
		case OpLdcW:
			if s, ok := cp.stringAt(u2(pc + 1)); ok {
				m.Strings = append(m.Strings, s)
			}
		}
		pc += size
	}
	return nil
}
