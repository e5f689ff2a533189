package isa_test

import (
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_MovHasDataTransferTemplate(t *testing.T) {
	templates, ok := isa.Lookup("mov")
	require.True(t, ok)
	require.Len(t, templates, 1)
	assert.True(t, templates[0].Options&isa.OptDataTransfer != 0)
	assert.Equal(t, 2, templates[0].NumOperands())
}

func TestLookup_UnknownMnemonic(t *testing.T) {
	_, ok := isa.Lookup("bogus")
	assert.False(t, ok)
}

func TestOperandClass_SingleBit(t *testing.T) {
	_, ok := (isa.ClassIMM8 | isa.ClassIMM16).SingleBit()
	assert.False(t, ok)

	bit, ok := isa.ClassIMM8.SingleBit()
	assert.True(t, ok)
	assert.Equal(t, isa.ClassIMM8, bit)
}

func TestRegister_EqualitySentinel(t *testing.T) {
	assert.False(t, isa.Invalid.Equal(isa.Invalid))
	assert.True(t, isa.GP(1).Equal(isa.GP(1)))
	assert.False(t, isa.GP(1).Equal(isa.GP(2)))
	assert.False(t, isa.SP.Equal(isa.IP))
}

func TestRelocationKind_WidthAndPCRelative(t *testing.T) {
	assert.Equal(t, 4, isa.RelocPC32.Width())
	assert.True(t, isa.RelocPC32.IsPCRelative())
	assert.False(t, isa.RelocAbs64.IsPCRelative())
	assert.Equal(t, 8, isa.RelocAbs64.Width())
}
