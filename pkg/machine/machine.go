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

// Package machine implements a 16-bit LC-3 style computer: a flat
// 65536 word memory with memory mapped keyboard registers, eight general
// purpose registers, a program counter, a condition code and the operating
// system traps for character I/O and halting.
package machine

import (
	"context"
)

func (mc *MachineState) Reset() {
	for i := range mc.Registers {
		mc.Registers[i] = 0x0000
	}

	for i := range mc.Memory {
		mc.Memory[i] = 0x0000
	}

	// Programs begin in user space with the zero flag set
	mc.Program = MEMSPACE_USER
	mc.Condition = FLAG_ZERO
	mc.Halted = false
	mc.Cycles = 0
}

func (mc *Machine) setFlags(value uint16) {
	if value == 0 {
		mc.State.Condition = FLAG_ZERO
	} else if value>>15 == 1 {
		mc.State.Condition = FLAG_NEG
	} else {
		mc.State.Condition = FLAG_POS
	}
}

func (mc *Machine) setRegister(reg uint16, value uint16) {
	mc.State.Registers[reg] = value
	mc.setFlags(value)
}

func (mc *Machine) fail(addr uint16, instruction Instruction, err error) error {
	return &ErrRuntime{Addr: addr, Instruction: instruction, Err: err}
}

// Run steps the machine until it halts, an instruction fails or ctx is done.
func (mc *Machine) Run(ctx context.Context) error {
	for !mc.State.Halted {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := mc.Step(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Step executes one instruction. A halted machine does nothing.
func (mc *Machine) Step(ctx context.Context) error {
	if mc.State.Halted {
		return nil
	}

	addr := mc.State.Program

	if mc.Fetchable != nil && !mc.Fetchable.Contains(addr) {
		return mc.fail(addr, 0, ErrFetch)
	}

	instruction := Instruction(mc.read(addr))

	mc.State.Program++

	if mc.Trace != nil {
		mc.Trace.Printf("%#04x %v", addr, instruction)
	}

	if err := mc.execute(ctx, instruction); err != nil {
		return mc.fail(addr, instruction, err)
	}

	mc.State.Cycles++

	return nil
}

func (mc *Machine) execute(ctx context.Context, instruction Instruction) error {
	regs := &mc.State.Registers

	switch instruction.Opcode() {
	// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
	// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ADD:
		operand := instruction.Imm5()
		if !instruction.Immediate() {
			operand = regs[instruction.SR2()]
		}

		mc.setRegister(instruction.DR(), regs[instruction.SR1()]+operand)

	// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
	// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_AND:
		operand := instruction.Imm5()
		if !instruction.Immediate() {
			operand = regs[instruction.SR2()]
		}

		mc.setRegister(instruction.DR(), regs[instruction.SR1()]&operand)

	// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_NOT:
		mc.setRegister(instruction.DR(), ^regs[instruction.SR1()])

	// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_BR:
		if instruction.NZP()&mc.State.Condition != 0 {
			mc.State.Program += instruction.PCOffset9()
		}

	// JMP  |1100    |000  |BaseR|000000      | Jump
	// RET  |1100    |000  |111  |000000      | Return
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JMP:
		mc.State.Program = regs[instruction.BaseR()]

	// JSR  |0100    |1|PCoffset11            | Jump to subroutine
	// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JSR:
		target := mc.State.Program + instruction.PCOffset11()
		if !instruction.Long() {
			// Read before R7 is replaced so JSRR R7 jumps to the old value
			target = regs[instruction.BaseR()]
		}

		regs[7] = mc.State.Program
		mc.State.Program = target

	// LD   |0010    |DR   |PCoffset9         | Load
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LD:
		addr := mc.State.Program + instruction.PCOffset9()

		mc.setRegister(instruction.DR(), mc.read(addr))

	// LDI  |1010    |DR   |PCoffset9         | Load indirect
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LDI:
		addr := mc.State.Program + instruction.PCOffset9()

		mc.setRegister(instruction.DR(), mc.read(mc.read(addr)))

	// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LDR:
		addr := regs[instruction.BaseR()] + instruction.Offset6()

		mc.setRegister(instruction.DR(), mc.read(addr))

	// LEA  |1110    |DR   |PCoffset9         | Load effective address
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LEA:
		mc.setRegister(
			instruction.DR(), mc.State.Program+instruction.PCOffset9(),
		)

	// ST   |0011    |SR   |PCoffset9         | Store
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ST:
		addr := mc.State.Program + instruction.PCOffset9()

		mc.write(addr, regs[instruction.DR()])

	// STI  |1011    |SR   |PCoffset9         | Store indirect
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_STI:
		addr := mc.State.Program + instruction.PCOffset9()

		mc.write(mc.read(addr), regs[instruction.DR()])

	// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_STR:
		addr := regs[instruction.BaseR()] + instruction.Offset6()

		mc.write(addr, regs[instruction.DR()])

	// TRAP |1111    |0000   |trapvect8       | System call
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_TRAP:
		return mc.trap(ctx, instruction.TrapVector())

	// RTI  |1000    |000000000000            | Return from interrupt
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_RTI:
		// There is no supervisor mode to return to
		return ErrPrivileged

	// RES  |1101    |                        | Reserved (illegal)
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_RES:
		if mc.Strict {
			return ErrIllegalOpcode
		}
	}

	return nil
}
