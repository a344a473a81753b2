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

package keyboard

import (
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const DefaultInterval = 10 * time.Millisecond

// Poller moves characters from Input into Cell.
type Poller struct {
	Input io.Reader
	Cell  *Cell

	// Interval bounds how long a terminal read waits before checking for
	// cancellation. Zero means DefaultInterval.
	Interval time.Duration
}

type readFunc func() (byte, error)

// Run publishes one character at a time until the input fails or ctx is
// done. Input errors, including EOF, close the cell and are not returned:
// the machine only ever sees that no character is available.
func (p *Poller) Run(ctx context.Context) error {
	defer p.Cell.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	read := p.reader(ctx)

	for {
		if err := p.waitDrained(ctx); err != nil {
			return err
		}

		b, err := read()
		if err != nil {
			return ctx.Err()
		}

		p.Cell.Publish(b)
	}
}

func (p *Poller) waitDrained(ctx context.Context) error {
	for p.Cell.Ready() {
		select {
		case <-p.Cell.Drained():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return ctx.Err()
}

func (p *Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}

	return p.Interval
}

func (p *Poller) reader(ctx context.Context) readFunc {
	if file, ok := p.Input.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return p.terminalReader(ctx, file)
	}

	return p.streamReader(ctx)
}

// terminalReader waits for the terminal to become readable in short slices
// so that cancellation never leaves a read blocked on the descriptor.
func (p *Poller) terminalReader(ctx context.Context, file *os.File) readFunc {
	fd := int(file.Fd())
	timeout := p.interval()

	return func() (byte, error) {
		for {
			if err := ctx.Err(); err != nil {
				return 0, err
			}

			ready, err := readable(fd, timeout)
			if err != nil {
				return 0, err
			}

			if !ready {
				continue
			}

			var b [1]byte
			if _, err := io.ReadFull(file, b[:]); err != nil {
				return 0, err
			}

			return b[0], nil
		}
	}
}

func readable(fd int, timeout time.Duration) (bool, error) {
	var set unix.FdSet
	set.Zero()
	set.Set(fd)

	tv := unix.NsecToTimeval(timeout.Nanoseconds())

	n, err := unix.Select(fd+1, &set, nil, nil, &tv)
	if err == unix.EINTR {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return n > 0, nil
}

type readResult struct {
	b   byte
	err error
}

// streamReader reads arbitrary readers from a helper goroutine. The helper
// only reads when asked, so nothing is consumed ahead of the cell. On
// cancellation a helper stuck in Read is abandoned rather than waited for.
func (p *Poller) streamReader(ctx context.Context) readFunc {
	requests := make(chan struct{})
	results := make(chan readResult)

	go func() {
		for {
			select {
			case <-requests:
			case <-ctx.Done():
				return
			}

			var b [1]byte
			_, err := io.ReadFull(p.Input, b[:])

			select {
			case results <- readResult{b[0], err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() (byte, error) {
		select {
		case requests <- struct{}{}:
		case <-ctx.Done():
			return 0, ctx.Err()
		}

		select {
		case r := <-results:
			return r.b, r.err
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}
