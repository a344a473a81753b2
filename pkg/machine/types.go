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
	"bufio"
	"context"
	"log"
)

// Keyboard is the synchronized single character cell the machine reads input
// from. A background poller fills it, the machine drains it.
type Keyboard interface {
	// Ready reports whether a character is waiting.
	Ready() bool
	// TryTake removes the waiting character, if any, without blocking.
	TryTake() (byte, bool)
	// Take blocks until a character is available, the input is closed, or
	// ctx is done.
	Take(ctx context.Context) (byte, error)
}

type DeviceHandler struct {
	Keyboard Keyboard
	Display  *bufio.Writer
}

type MachineState struct {
	Registers [8]uint16
	Program   uint16
	Condition uint16
	Halted    bool
	Cycles    uint64
	Memory    [MEMORY_SIZE]uint16
}

// Span is the half open address range [Start, End) covered by a loaded image.
type Span struct {
	Start uint32
	End   uint32
}

func (s Span) Contains(addr uint16) bool {
	return uint32(addr) >= s.Start && uint32(addr) < s.End
}

func (s Span) Len() int {
	return int(s.End - s.Start)
}

type Machine struct {
	Devices *DeviceHandler
	State   MachineState

	// Strict makes reserved opcodes fail with ErrIllegalOpcode instead of
	// executing as a no-op.
	Strict bool

	// Fetchable, when set, limits instruction fetch to the given range.
	Fetchable *Span

	// Trace receives one line per executed instruction when set.
	Trace *log.Logger
}
