package module_test

import (
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/assembler"
	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/module"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_CrossSectionForwardReferenceBecomesRelocation(t *testing.T) {
	a := assembler.New("a.asm")
	ok := a.Assemble(token.New(".section .text\njmp extern\n"))
	require.True(t, ok)

	m, err := module.Build(a, "a.asm")
	require.NoError(t, err)
	require.Len(t, m.Relocations, 1)
	assert.Equal(t, "extern", m.Relocations[0].Symbol)
	assert.Equal(t, isa.RelocPC32, m.Relocations[0].Kind)
	assert.Equal(t, uint64(0), m.Relocations[0].Addend)
}

func TestBuild_GlobalWithoutDefinitionFails(t *testing.T) {
	a := assembler.New("a.asm")
	ok := a.Assemble(token.New(".section .text\n.global missing\n"))
	require.True(t, ok)

	_, err := module.Build(a, "a.asm")
	assert.ErrorIs(t, err, module.ErrGlobalUndefined)
}

func TestBuild_SameSectionLabelDifferenceFoldsToConstantAddend(t *testing.T) {
	a := assembler.New("a.asm")
	ok := a.Assemble(token.New(".section .text\na:\n.skip 1\nb:\njmp extern\nmov r0, b - a\n"))
	require.True(t, ok)

	m, err := module.Build(a, "a.asm")
	require.NoError(t, err)
	require.Len(t, m.Relocations, 1)
	assert.Equal(t, "extern", m.Relocations[0].Symbol)
}

// A label difference where both labels live outside the referencing
// expression's own section can't fold: each identifier is only resolved
// to a constant against the current section (§4.6), so two such labels
// reach the binary-Sub case still symbolic and are rejected, matching
// the original's "cannot perform an operation on two undefined symbols".
func TestBuild_ForeignSectionLabelDifferenceFails(t *testing.T) {
	a := assembler.New("a.asm")
	ok := a.Assemble(token.New(".section .data\na:\n.skip 1\nb:\n.section .text\nmov r0, b - a\n"))
	require.True(t, ok)

	_, err := module.Build(a, "a.asm")
	assert.ErrorIs(t, err, module.ErrUnrelocatable)
}
