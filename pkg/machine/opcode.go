// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package machine

import (
	"fmt"

	"github.com/lassandro/lc3vm/pkg/encoding"
)

// Opcode is the operation selected by bits 15-12 of an instruction.
type Opcode uint8

const (
	OP_BR   Opcode = 0b0000
	OP_ADD  Opcode = 0b0001
	OP_LD   Opcode = 0b0010
	OP_ST   Opcode = 0b0011
	OP_JSR  Opcode = 0b0100
	OP_AND  Opcode = 0b0101
	OP_LDR  Opcode = 0b0110
	OP_STR  Opcode = 0b0111
	OP_RTI  Opcode = 0b1000
	OP_NOT  Opcode = 0b1001
	OP_LDI  Opcode = 0b1010
	OP_STI  Opcode = 0b1011
	OP_JMP  Opcode = 0b1100
	OP_LEA  Opcode = 0b1110
	OP_TRAP Opcode = 0b1111

	// Reserved
	OP_RES Opcode = 0b1101
)

var opcodeNames = [16]string{
	OP_BR:   "BR",
	OP_ADD:  "ADD",
	OP_LD:   "LD",
	OP_ST:   "ST",
	OP_JSR:  "JSR",
	OP_AND:  "AND",
	OP_LDR:  "LDR",
	OP_STR:  "STR",
	OP_RTI:  "RTI",
	OP_NOT:  "NOT",
	OP_LDI:  "LDI",
	OP_STI:  "STI",
	OP_JMP:  "JMP",
	OP_RES:  "RES",
	OP_LEA:  "LEA",
	OP_TRAP: "TRAP",
}

func (op Opcode) String() string {
	return opcodeNames[op&0xF]
}

var trapNames = map[uint8]string{
	uint8(TRAP_GETC):  "GETC",
	uint8(TRAP_OUT):   "OUT",
	uint8(TRAP_PUTS):  "PUTS",
	uint8(TRAP_IN):    "IN",
	uint8(TRAP_PUTSP): "PUTSP",
	uint8(TRAP_HALT):  "HALT",
}

// Instruction is a single fetched word. Its accessors extract the operand
// fields; which of them are meaningful depends on the opcode.
type Instruction uint16

func (in Instruction) Opcode() Opcode {
	return Opcode(in >> 12)
}

// DR is the destination register, or the source register for stores.
func (in Instruction) DR() uint16 {
	return (uint16(in) >> 9) & 0x7
}

// SR1 is the first source register, also the base register for JMP, JSRR,
// LDR and STR.
func (in Instruction) SR1() uint16 {
	return (uint16(in) >> 6) & 0x7
}

func (in Instruction) BaseR() uint16 {
	return in.SR1()
}

func (in Instruction) SR2() uint16 {
	return uint16(in) & 0x7
}

// Immediate reports whether ADD and AND use imm5 rather than SR2.
func (in Instruction) Immediate() bool {
	return (in>>5)&0x1 == 1
}

func (in Instruction) Imm5() uint16 {
	return encoding.SignExtend(uint16(in), 5)
}

func (in Instruction) Offset6() uint16 {
	return encoding.SignExtend(uint16(in), 6)
}

func (in Instruction) PCOffset9() uint16 {
	return encoding.SignExtend(uint16(in), 9)
}

func (in Instruction) PCOffset11() uint16 {
	return encoding.SignExtend(uint16(in), 11)
}

// NZP is the BR condition mask, laid out like the condition flags.
func (in Instruction) NZP() uint16 {
	return (uint16(in) >> 9) & 0x7
}

// Long reports whether JSR uses PCoffset11 rather than a base register.
func (in Instruction) Long() bool {
	return (in>>11)&0x1 == 1
}

func (in Instruction) TrapVector() uint8 {
	return uint8(encoding.ZeroExtend(uint16(in), 8))
}

func (in Instruction) String() string {
	op := in.Opcode()

	switch op {
	case OP_ADD, OP_AND:
		if in.Immediate() {
			return fmt.Sprintf(
				"%v R%d, R%d, #%d", op, in.DR(), in.SR1(), int16(in.Imm5()),
			)
		}
		return fmt.Sprintf("%v R%d, R%d, R%d", op, in.DR(), in.SR1(), in.SR2())

	case OP_NOT:
		return fmt.Sprintf("NOT R%d, R%d", in.DR(), in.SR1())

	case OP_BR:
		nzp := in.NZP()
		if nzp == 0 {
			return "NOP"
		}

		mnemonic := "BR"
		if nzp&FLAG_NEG != 0 {
			mnemonic += "n"
		}
		if nzp&FLAG_ZERO != 0 {
			mnemonic += "z"
		}
		if nzp&FLAG_POS != 0 {
			mnemonic += "p"
		}

		return fmt.Sprintf("%s #%d", mnemonic, int16(in.PCOffset9()))

	case OP_JMP:
		if in.BaseR() == 7 {
			return "RET"
		}
		return fmt.Sprintf("JMP R%d", in.BaseR())

	case OP_JSR:
		if in.Long() {
			return fmt.Sprintf("JSR #%d", int16(in.PCOffset11()))
		}
		return fmt.Sprintf("JSRR R%d", in.BaseR())

	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		return fmt.Sprintf("%v R%d, #%d", op, in.DR(), int16(in.PCOffset9()))

	case OP_LDR, OP_STR:
		return fmt.Sprintf(
			"%v R%d, R%d, #%d", op, in.DR(), in.BaseR(), int16(in.Offset6()),
		)

	case OP_TRAP:
		if name, ok := trapNames[in.TrapVector()]; ok {
			return name
		}
		return fmt.Sprintf("TRAP x%02X", in.TrapVector())

	case OP_RTI:
		return "RTI"

	default:
		return fmt.Sprintf("RES x%04X", uint16(in))
	}
}
