// Package section implements the assembler's named, append-only byte
// buffer: little-endian append primitives, bounds-checked in-place
// overwrite, and a monotonically-raised alignment.
package section

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrOutOfBounds = errors.New("replace_bytes out of bounds")

// Section is {name, alignment, data}. The cursor always equals
// len(data); there is no separate cursor field to keep in sync.
type Section struct {
	Name      string
	Alignment uint64
	data      []byte
}

// New creates an empty section with the minimum alignment of 1.
func New(name string) *Section {
	return &Section{Name: name, Alignment: 1}
}

// Cursor returns the current write position, equal to Size().
func (s *Section) Cursor() uint64 { return uint64(len(s.data)) }

// Size returns the number of bytes written so far.
func (s *Section) Size() uint64 { return uint64(len(s.data)) }

// Bytes returns the section's raw backing buffer. Callers must not
// retain it past further mutation.
func (s *Section) Bytes() []byte { return s.data }

// AppendU8 appends a single byte.
func (s *Section) AppendU8(v uint8) {
	s.data = append(s.data, v)
}

// AppendU16 appends v little-endian.
func (s *Section) AppendU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	s.data = append(s.data, buf[:]...)
}

// AppendU32 appends v little-endian.
func (s *Section) AppendU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	s.data = append(s.data, buf[:]...)
}

// AppendU64 appends v little-endian.
func (s *Section) AppendU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	s.data = append(s.data, buf[:]...)
}

// WriteBytes appends raw bytes verbatim.
func (s *Section) WriteBytes(b []byte) {
	s.data = append(s.data, b...)
}

// Skip appends n copies of fill.
func (s *Section) Skip(n uint64, fill byte) {
	for i := uint64(0); i < n; i++ {
		s.data = append(s.data, fill)
	}
}

// ReplaceBytes overwrites len(b) bytes starting at off, failing if the
// range falls outside the written buffer.
func (s *Section) ReplaceBytes(off uint64, b []byte) error {
	end := off + uint64(len(b))
	if off > uint64(len(s.data)) || end > uint64(len(s.data)) {
		return fmt.Errorf("%w: offset %d len %d size %d", ErrOutOfBounds, off, len(b), len(s.data))
	}
	copy(s.data[off:end], b)
	return nil
}

// Align raises s.Alignment to max(current, n) and pads data with zero
// bytes until len(data) is a multiple of n.
func (s *Section) Align(n uint64) {
	if n > s.Alignment {
		s.Alignment = n
	}
	if n == 0 {
		return
	}
	for uint64(len(s.data))%n != 0 {
		s.data = append(s.data, 0)
	}
}
