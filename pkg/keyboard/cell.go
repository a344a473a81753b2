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

// Package keyboard feeds input characters to the machine one at a time.
//
// A Cell holds at most one character. A Poller reads the input stream in the
// background and publishes each character into the Cell only after the
// previous one was consumed, so the machine observes input exactly as fast
// as it takes it.
package keyboard

import (
	"context"
	"io"
	"sync"
)

// Cell is a synchronized single character slot. It satisfies
// machine.Keyboard.
type Cell struct {
	mu     sync.Mutex
	char   byte
	full   bool
	closed bool

	filled  chan struct{}
	drained chan struct{}
}

func NewCell() *Cell {
	return &Cell{
		filled:  make(chan struct{}, 1),
		drained: make(chan struct{}, 1),
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Publish stores b if the cell is empty and open. It reports whether b was
// stored.
func (c *Cell) Publish(b byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.full || c.closed {
		return false
	}

	c.char = b
	c.full = true
	notify(c.filled)

	return true
}

func (c *Cell) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.full
}

func (c *Cell) TryTake() (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.full {
		return 0, false
	}

	c.full = false
	notify(c.drained)

	return c.char, true
}

// Take waits for a character. Once the cell is closed and empty it returns
// io.EOF.
func (c *Cell) Take(ctx context.Context) (byte, error) {
	for {
		c.mu.Lock()

		if c.full {
			c.full = false
			notify(c.drained)
			b := c.char
			c.mu.Unlock()

			return b, nil
		}

		closed := c.closed
		c.mu.Unlock()

		if closed {
			return 0, io.EOF
		}

		select {
		case <-c.filled:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Close marks the end of input. A character already published can still be
// taken.
func (c *Cell) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	notify(c.filled)
}

// Drained is signalled whenever a character is taken.
func (c *Cell) Drained() <-chan struct{} {
	return c.drained
}
