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
	"errors"

	"github.com/lassandro/lc3vm/internal/translate"
)

var f = translate.From

var (
	// Execution errors
	ErrFetch         = errors.New(f("no instruction to fetch"))
	ErrUnknownTrap   = errors.New(f("unknown trap"))
	ErrPrivileged    = errors.New(f("privileged instruction"))
	ErrIllegalOpcode = errors.New(f("illegal opcode"))
	ErrNoKeyboard    = errors.New(f("no keyboard attached"))

	// Image errors
	ErrImageEmpty    = errors.New(f("image has no origin"))
	ErrImageOdd      = errors.New(f("image has a trailing byte"))
	ErrImageTooLarge = errors.New(f("image runs past the end of memory"))
)

// ErrTrap is returned for a TRAP whose vector has no service routine.
type ErrTrap uint8

func (et ErrTrap) Error() string {
	return f("unknown trap %#02x", uint8(et))
}

func (et ErrTrap) Is(err error) bool {
	return err == ErrUnknownTrap
}

// ErrRuntime records where in the program a run stopped.
type ErrRuntime struct {
	Addr        uint16
	Instruction Instruction
	Err         error
}

func (err *ErrRuntime) Error() string {
	if errors.Is(err.Err, ErrFetch) {
		return f("%#04x: %v", err.Addr, err.Err)
	}

	return f("%#04x %v: %v", err.Addr, err.Instruction, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrLoad identifies the image that failed to load.
type ErrLoad struct {
	Path string
	Err  error
}

func (err *ErrLoad) Error() string {
	return f("%v: %v", err.Path, err.Err)
}

func (err *ErrLoad) Unwrap() error {
	return err.Err
}
