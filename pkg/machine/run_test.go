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

package machine_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/lc3vm/pkg/machine"
)

// image encodes an object file: origin first, then the words.
func image(origin uint16, words ...uint16) []byte {
	data := make([]byte, 2*(len(words)+1))
	binary.BigEndian.PutUint16(data, origin)

	for i, word := range words {
		binary.BigEndian.PutUint16(data[2*(i+1):], word)
	}

	return data
}

func loadAndRun(t *testing.T, mc *machine.Machine, origin uint16, words ...uint16) error {
	span, err := mc.LoadImage(bytes.NewReader(image(origin, words...)))
	require.NoError(t, err)

	mc.State.Program = uint16(span.Start)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return mc.Run(ctx)
}

func TestRunHalt(t *testing.T) {
	assert := assert.New(t)

	mc, display := newTestMachine(t, "")

	err := loadAndRun(t, mc, 0x3000, 0xF025)
	assert.NoError(err)

	assert.True(mc.State.Halted)
	assert.Equal(uint64(1), mc.State.Cycles)
	assert.Equal(uint16(0x3001), mc.State.Program)
	assert.Empty(display.String())
}

func TestRunNothingAfterHalt(t *testing.T) {
	assert := assert.New(t)

	mc, _ := newTestMachine(t, "")

	err := loadAndRun(t, mc, 0x3000,
		0xF025,                 // HALT
		0b0001_000_000_1_00001, // ADD R0 R0 #1
	)
	assert.NoError(err)

	assert.Equal(uint16(0), mc.State.Registers[0])
	assert.Equal(uint64(1), mc.State.Cycles)

	// Running a halted machine again is a no-op
	assert.NoError(mc.Run(context.Background()))
	assert.NoError(mc.Step(context.Background()))
	assert.Equal(uint64(1), mc.State.Cycles)
}

func TestRunSubroutine(t *testing.T) {
	assert := assert.New(t)

	mc, _ := newTestMachine(t, "")

	err := loadAndRun(t, mc, 0x3000,
		0b0100_1_00000000010,   // 0x3000 JSR #2
		0xF025,                 // 0x3001 HALT
		0x0000,                 // 0x3002
		0b0001_000_000_1_00001, // 0x3003 ADD R0 R0 #1
		0b1100_000_111_000000,  // 0x3004 RET
	)
	assert.NoError(err)

	assert.Equal(uint16(1), mc.State.Registers[0])
	assert.Equal(uint16(0x3001), mc.State.Registers[7])
	assert.Equal(uint16(0x3002), mc.State.Program)
	assert.Equal(uint64(4), mc.State.Cycles)
}

func TestRunHello(t *testing.T) {
	mc, display := newTestMachine(t, "")

	err := loadAndRun(t, mc, 0x3000,
		0b1110_000_000000010, // LEA R0 #2
		0xF022,               // PUTS
		0xF025,               // HALT
		'H', 'i', '!', 0,
	)
	require.NoError(t, err)

	assert.Equal(t, "Hi!", display.String())
}

func TestRunPutsAcrossDevices(t *testing.T) {
	mc, display := newTestMachine(t, "k")

	mc.Poke(0xFDFF, 'a')
	mc.Poke(machine.DEV_KBSR, 'b')
	mc.Poke(0xFE01, 'c')
	mc.Poke(machine.DEV_KBDR, 'd')
	mc.Poke(0xFE03, 0)

	err := loadAndRun(t, mc, 0x3000,
		0b0010_000_000000011, // LD R0 #3
		0xF022,               // PUTS
		0xF020,               // GETC
		0xF025,               // HALT
		0xFDFF,
	)
	require.NoError(t, err)

	assert.Equal(t, "abcd", display.String())
	assert.Equal(t, uint16('k'), mc.State.Registers[0], "PUTS consumed the pending key")
}

func TestRunEcho(t *testing.T) {
	mc, display := newTestMachine(t, "x")

	err := loadAndRun(t, mc, 0x3000,
		0b1010_001_000000101, // 0x3000 LDI R1 #5 (KBSR)
		0b0000_011_111111110, // 0x3001 BRzp #-2
		0b1010_000_000000100, // 0x3002 LDI R0 #4 (KBDR)
		0xF021,               // 0x3003 OUT
		0xF025,               // 0x3004 HALT
		0x0000,               // 0x3005
		machine.DEV_KBSR,     // 0x3006
		machine.DEV_KBDR,     // 0x3007
	)
	require.NoError(t, err)

	assert.Equal(t, "x", display.String())
	assert.Equal(t, uint16('x'), mc.State.Registers[0])
}

func TestRunGetcExhausted(t *testing.T) {
	mc, _ := newTestMachine(t, "A")

	err := loadAndRun(t, mc, 0x3000,
		0xF020, // GETC
		0xF020, // GETC
		0xF025, // HALT
	)
	require.Error(t, err)

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, uint16('A'), mc.State.Registers[0])
	assert.Equal(t, uint64(1), mc.State.Cycles)
	assert.False(t, mc.State.Halted)
}

func TestRunErrors(t *testing.T) {
	for _, test := range []struct {
		Name   string
		Strict bool
		Word   uint16
		Err    error
	}{
		{"Unknown Trap", false, 0xF026, machine.ErrUnknownTrap},
		{"Unknown Trap Low", false, 0xF000, machine.ErrUnknownTrap},
		{"RTI", false, 0b1000_000000000000, machine.ErrPrivileged},
		{"RES Strict", true, 0b1101_000000000000, machine.ErrIllegalOpcode},
		{"GETC Without Keyboard", false, 0xF020, machine.ErrNoKeyboard},
	} {
		t.Run(test.Name, func(t *testing.T) {
			var mc machine.Machine
			mc.State.Reset()
			mc.Strict = test.Strict

			err := loadAndRun(t, &mc, 0x3000, test.Word, 0xF025)
			require.Error(t, err)
			assert.ErrorIs(t, err, test.Err)

			var runtime *machine.ErrRuntime
			require.True(t, errors.As(err, &runtime))
			assert.Equal(t, uint16(0x3000), runtime.Addr)
			assert.Equal(t, machine.Instruction(test.Word), runtime.Instruction)

			assert.False(t, mc.State.Halted)
			assert.Equal(t, uint64(0), mc.State.Cycles)
		})
	}
}

func TestRunUnknownTrapVector(t *testing.T) {
	var mc machine.Machine
	mc.State.Reset()

	err := loadAndRun(t, &mc, 0x3000, 0xF0FF)

	var trap machine.ErrTrap
	require.True(t, errors.As(err, &trap))
	assert.Equal(t, machine.ErrTrap(0xFF), trap)
	assert.Contains(t, err.Error(), "0xff")
}

func TestRunFetch(t *testing.T) {
	var mc machine.Machine
	mc.State.Reset()

	span, err := mc.LoadImage(bytes.NewReader(image(0x3000,
		0b0001_000_000_1_00001, // ADD R0 R0 #1
		0b0001_000_000_1_00001, // ADD R0 R0 #1
	)))
	require.NoError(t, err)

	mc.Fetchable = &span

	err = mc.Run(context.Background())
	assert.ErrorIs(t, err, machine.ErrFetch)
	assert.Equal(t, uint16(2), mc.State.Registers[0])
	assert.Equal(t, uint16(0x3002), mc.State.Program)
	assert.Equal(t, uint64(2), mc.State.Cycles)

	var runtime *machine.ErrRuntime
	require.True(t, errors.As(err, &runtime))
	assert.Equal(t, uint16(0x3002), runtime.Addr)
}

func TestRunCancel(t *testing.T) {
	var mc machine.Machine
	mc.State.Reset()
	mc.Poke(0x3000, 0b0000_111_111111111) // BRnzp #-1

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := mc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, mc.State.Cycles, uint64(0))
}

func TestRunCancelBlockedGetc(t *testing.T) {
	var mc machine.Machine
	mc.State.Reset()
	mc.Devices = &machine.DeviceHandler{Keyboard: blockingKeyboard{}}
	mc.Poke(0x3000, 0xF020)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := mc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingKeyboard struct{}

func (blockingKeyboard) Ready() bool           { return false }
func (blockingKeyboard) TryTake() (byte, bool) { return 0, false }

func (blockingKeyboard) Take(ctx context.Context) (byte, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestTrace(t *testing.T) {
	var trace bytes.Buffer

	var mc machine.Machine
	mc.State.Reset()
	mc.Trace = log.New(&trace, "", 0)

	err := loadAndRun(t, &mc, 0x3000,
		0b0001_000_000_1_11111, // ADD R0 R0 #-1
		0xF025,                 // HALT
	)
	require.NoError(t, err)

	assert.Equal(t, "0x3000 ADD R0, R0, #-1\n0x3001 HALT\n", trace.String())
}

func TestReset(t *testing.T) {
	assert := assert.New(t)

	var mc machine.Machine
	mc.State.Registers[3] = 0x1234
	mc.State.Halted = true
	mc.State.Cycles = 9
	mc.Poke(0x4000, 0xBEEF)

	mc.State.Reset()

	assert.Equal([8]uint16{}, mc.State.Registers)
	assert.Equal(machine.MEMSPACE_USER, mc.State.Program)
	assert.Equal(machine.FLAG_ZERO, mc.State.Condition)
	assert.False(mc.State.Halted)
	assert.Zero(mc.State.Cycles)
	assert.Zero(mc.Peek(0x4000))
}
