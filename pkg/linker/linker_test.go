package linker_test

import (
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/assembler"
	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/linker"
	"github.com/SapphireAmoeba5/rasm/pkg/module"
	"github.com/SapphireAmoeba5/rasm/pkg/section"
	"github.com/SapphireAmoeba5/rasm/pkg/symtab"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildModule(t *testing.T, filename, src string) module.Module {
	t.Helper()
	a := assembler.New(filename)
	ok := a.Assemble(token.New(src))
	require.True(t, ok, "diagnostics: %v", a.Diagnostics())
	m, err := module.Build(a, filename)
	require.NoError(t, err)
	return m
}

// S4 — cross-section reference needing a linker PC32 fixup. Module A
// jumps to a label defined in module B's .text, which the script
// places right after A's.
func TestLink_S4_CrossModulePC32Fixup(t *testing.T) {
	a := buildModule(t, "a.asm", ".section .text\njmp extern\n")
	b := buildModule(t, "b.asm", ".section .text\n.global extern\nextern:\nnop\n")

	l := linker.New([]linker.Step{{Name: ".text"}, {Name: "*"}})
	l.AddModule(a)
	l.AddModule(b)

	prog, err := l.Link()
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(prog.Bytes), 5)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, prog.Bytes[1:5])
}

func TestLink_S5_Abs64FromModuleBuildSurvivesLinking(t *testing.T) {
	m := buildModule(t, "a.asm", ".section .data\nconst C = 0x1122334455667788\n.u64 C\n")
	require.Empty(t, m.Relocations, "Abs64 on a pure constant resolves intra-module, not at link time")

	l := linker.New(nil)
	l.AddModule(m)
	prog, err := l.Link()
	require.NoError(t, err)

	expected := []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}
	assert.Equal(t, expected, prog.Bytes)
}

func TestLink_UnknownSymbolFails(t *testing.T) {
	a := buildModule(t, "a.asm", ".section .text\njmp nowhere\n")

	l := linker.New(nil)
	l.AddModule(a)
	_, err := l.Link()
	assert.ErrorIs(t, err, linker.ErrUnknownSymbol)
}

func TestLink_SectionPlacedAtMostOnceAndAligned(t *testing.T) {
	a := buildModule(t, "a.asm", ".section .data\n.skip 1\n.align 8\n.u8 1\n")
	b := buildModule(t, "b.asm", ".section .data\n.u8 2\n")

	l := linker.New([]linker.Step{{Name: "*"}})
	l.AddModule(a)
	l.AddModule(b)

	prog, err := l.Link()
	require.NoError(t, err)

	offA := prog.SectionOffsets[0][".data"]
	offB := prog.SectionOffsets[1][".data"]
	assert.Equal(t, uint64(0), offA%8)
	assert.True(t, prog.SectionIncluded[0][".data"])
	assert.True(t, prog.SectionIncluded[1][".data"])
	assert.NotEqual(t, offA, offB)
}

func TestLink_GlobalSymbolResolvesAcrossModules(t *testing.T) {
	a := buildModule(t, "a.asm", ".section .text\njmp shared\n")
	b := buildModule(t, "b.asm", ".section .text\n.global shared\nshared:\nnop\n")

	l := linker.New([]linker.Step{{Name: ".text"}})
	l.AddModule(a)
	l.AddModule(b)

	prog, err := l.Link()
	require.NoError(t, err)
	assert.Contains(t, prog.Globals, "shared")
	assert.Equal(t, 1, prog.Globals["shared"])
}

// §4.7 Pass 2 step 3: Abs32, like Addr64/Abs64, only ever fixes up a
// Constant symbol's value; a label symbol (an in-section offset with
// no meaning until the section is placed) must be rejected here.
func TestLink_Abs32AgainstLabelSymbolFails(t *testing.T) {
	sect := section.New(".text")
	sect.AppendU32(0)

	syms := symtab.New()
	require.NoError(t, syms.Insert("target", symtab.Symbol{Kind: symtab.KindLabel, Section: ".text", HasSection: true, Value: 0}))

	m := module.Module{
		Filename:     "a.asm",
		Symbols:      syms,
		Globals:      map[string]bool{},
		Sections:     map[string]*section.Section{".text": sect},
		SectionOrder: []string{".text"},
		Relocations: []module.Relocation{{
			Kind:       isa.RelocAbs32,
			Symbol:     "target",
			Section:    ".text",
			ByteOffset: 0,
		}},
	}

	l := linker.New(nil)
	l.AddModule(m)
	_, err := l.Link()
	assert.ErrorIs(t, err, linker.ErrUnrelocatable)
}

func TestLink_RoundTripByteLengthMatchesIncludedSections(t *testing.T) {
	a := buildModule(t, "a.asm", ".section .text\nnop\nnop\n")

	l := linker.New(nil)
	l.AddModule(a)
	prog, err := l.Link()
	require.NoError(t, err)

	var total int
	for _, sect := range a.Sections {
		total += len(sect.Bytes())
	}
	assert.Equal(t, total, len(prog.Bytes))
}
