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
	"encoding/binary"
	"io"
	"os"
)

// LoadImage copies an object image into memory. The image is a big-endian
// origin word followed by big-endian words stored from the origin upwards.
// Memory outside the image is left untouched so several images can be
// loaded into the same machine.
func (mc *Machine) LoadImage(reader io.Reader) (Span, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return Span{}, err
	}

	if len(data) < 2 {
		return Span{}, ErrImageEmpty
	} else if len(data)%2 != 0 {
		return Span{}, ErrImageOdd
	}

	origin := uint32(binary.BigEndian.Uint16(data))
	words := data[2:]
	span := Span{Start: origin, End: origin + uint32(len(words)/2)}

	if span.End > MEMORY_SIZE {
		return Span{}, ErrImageTooLarge
	}

	for i := 0; i < len(words); i += 2 {
		mc.State.Memory[origin] = binary.BigEndian.Uint16(words[i:])
		origin++
	}

	return span, nil
}

// LoadFile loads the object image at path.
func (mc *Machine) LoadFile(path string) (Span, error) {
	file, err := os.Open(path)
	if err != nil {
		return Span{}, err
	}

	defer file.Close()

	span, err := mc.LoadImage(file)
	if err != nil {
		return Span{}, &ErrLoad{Path: path, Err: err}
	}

	return span, nil
}
