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

// Peek reads memory without triggering device registers.
func (mc *Machine) Peek(addr uint16) uint16 {
	return mc.State.Memory[addr]
}

// Poke writes memory without triggering device registers.
func (mc *Machine) Poke(addr uint16, value uint16) {
	mc.State.Memory[addr] = value
}

func (mc *Machine) keyboard() Keyboard {
	if mc.Devices == nil {
		return nil
	}

	return mc.Devices.Keyboard
}

func (mc *Machine) read(addr uint16) uint16 {
	switch addr {
	case DEV_KBSR:
		if kb := mc.keyboard(); kb != nil && kb.Ready() {
			mc.State.Memory[DEV_KBSR] = KBSR_READY
		} else {
			mc.State.Memory[DEV_KBSR] = 0
		}

	case DEV_KBDR:
		// Reading the data register consumes the published character. With
		// nothing published it keeps returning the last one.
		if kb := mc.keyboard(); kb != nil {
			if key, ok := kb.TryTake(); ok {
				mc.State.Memory[DEV_KBDR] = uint16(key)
			}
		}
	}

	return mc.State.Memory[addr]
}

// Stores to KBSR and KBDR land in plain memory and have no effect on the
// keyboard. The next read of either register overwrites KBSR from the device.
func (mc *Machine) write(addr uint16, value uint16) {
	mc.State.Memory[addr] = value
}
