package section_test

import (
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/section"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSection_AppendPrimitivesAreLittleEndian(t *testing.T) {
	s := section.New(".data")
	s.AppendU8(0x11)
	s.AppendU16(0x2233)
	s.AppendU32(0x44556677)
	s.AppendU64(0x8899AABBCCDDEEFF)

	expected := []byte{
		0x11,
		0x33, 0x22,
		0x77, 0x66, 0x55, 0x44,
		0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA, 0x99, 0x88,
	}
	assert.Equal(t, expected, s.Bytes())
	assert.Equal(t, uint64(len(expected)), s.Cursor())
}

func TestSection_AlignPadsToMultipleAndRaisesAlignment(t *testing.T) {
	s := section.New(".text")
	s.Skip(9, 0)
	s.Align(16)

	assert.Equal(t, uint64(16), s.Cursor())
	assert.Equal(t, uint64(16), s.Alignment)
	assert.Equal(t, uint64(0), s.Cursor()%16)
}

func TestSection_AlignNeverLowersAlignment(t *testing.T) {
	s := section.New(".text")
	s.Align(16)
	s.Align(4)
	assert.Equal(t, uint64(16), s.Alignment)
}

func TestSection_ReplaceBytesInPlace(t *testing.T) {
	s := section.New(".text")
	s.Skip(4, 0xFF)
	require.NoError(t, s.ReplaceBytes(1, []byte{0xAA, 0xBB}))
	assert.Equal(t, []byte{0xFF, 0xAA, 0xBB, 0xFF}, s.Bytes())
}

func TestSection_ReplaceBytesOutOfBoundsFails(t *testing.T) {
	s := section.New(".text")
	s.Skip(2, 0)
	err := s.ReplaceBytes(1, []byte{0x01, 0x02, 0x03})
	assert.ErrorIs(t, err, section.ErrOutOfBounds)
}

func TestSection_SkipAppendsFillByte(t *testing.T) {
	s := section.New(".bss")
	s.Skip(3, 0x7F)
	assert.Equal(t, []byte{0x7F, 0x7F, 0x7F}, s.Bytes())
}
