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
	"context"
	"io"
)

func (mc *Machine) display() io.Writer {
	if mc.Devices == nil || mc.Devices.Display == nil {
		return io.Discard
	}

	return mc.Devices.Display
}

func (mc *Machine) flush() error {
	if mc.Devices == nil || mc.Devices.Display == nil {
		return nil
	}

	return mc.Devices.Display.Flush()
}

func (mc *Machine) getKey(ctx context.Context) (byte, error) {
	kb := mc.keyboard()
	if kb == nil {
		return 0, ErrNoKeyboard
	}

	return kb.Take(ctx)
}

func (mc *Machine) trap(ctx context.Context, vector uint8) error {
	out := mc.display()
	regs := &mc.State.Registers

	switch uint16(vector) {
	// Read a single character without echo
	case TRAP_GETC:
		key, err := mc.getKey(ctx)
		if err != nil {
			return err
		}

		regs[0] = uint16(key)
		return nil

	// Write the character in R0[7:0]
	case TRAP_OUT:
		if _, err := out.Write([]byte{byte(regs[0])}); err != nil {
			return err
		}

	// Write one character per word from R0 until a zero word
	case TRAP_PUTS:
		for n, addr := 0, regs[0]; n < MEMORY_SIZE; n, addr = n+1, addr+1 {
			value := mc.Peek(addr)
			if value == 0 {
				break
			}

			if _, err := out.Write([]byte{byte(value)}); err != nil {
				return err
			}
		}

	// Prompt, read and echo a single character
	case TRAP_IN:
		if _, err := io.WriteString(out, PROMPT_IN); err != nil {
			return err
		}

		if err := mc.flush(); err != nil {
			return err
		}

		key, err := mc.getKey(ctx)
		if err != nil {
			return err
		}

		regs[0] = uint16(key)

		if _, err := out.Write([]byte{key}); err != nil {
			return err
		}

	// Write two characters per word from R0, low byte first, until a zero
	// byte
	case TRAP_PUTSP:
	putsp:
		for n, addr := 0, regs[0]; n < MEMORY_SIZE; n, addr = n+1, addr+1 {
			value := mc.Peek(addr)

			for _, char := range []byte{byte(value), byte(value >> 8)} {
				if char == 0 {
					break putsp
				}

				if _, err := out.Write([]byte{char}); err != nil {
					return err
				}
			}
		}

	case TRAP_HALT:
		mc.State.Halted = true
		return nil

	default:
		return ErrTrap(vector)
	}

	return mc.flush()
}
