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

package main

import (
	"log"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// enterRawTerm switches the terminal on fd to unbuffered input without echo
// and returns a function restoring the previous settings.
func enterRawTerm(fd uintptr) (func(), error) {
	var termRestore unix.Termios

	if err := termios.Tcgetattr(fd, &termRestore); err != nil {
		return nil, err
	}

	termstate := termRestore

	termstate.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.INLCR
	termstate.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termstate.Cflag &^= unix.CSIZE | unix.PARENB
	termstate.Cflag |= unix.CS8

	termstate.Cc[unix.VMIN] = 1
	termstate.Cc[unix.VTIME] = 0

	if err := termios.Tcsetattr(fd, termios.TCSANOW, &termstate); err != nil {
		return nil, err
	}

	return func() {
		if err := termios.Tcsetattr(
			fd, termios.TCSANOW, &termRestore,
		); err != nil {
			log.Println(err)
		}
	}, nil
}
