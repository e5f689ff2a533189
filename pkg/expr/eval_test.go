package expr_test

import (
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/expr"
	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/symtab"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *expr.Node {
	t.Helper()
	s := token.New(src)
	root, _, err := expr.ParseOperand(s)
	require.NoError(t, err)
	return root
}

func TestEvaluate_ConstantArithmetic(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "2 + 3 * 4\n")
	result, err := expr.Evaluate(root, "", syms)
	require.NoError(t, err)
	assert.Equal(t, expr.ResultConstant, result.Kind)
	assert.Equal(t, uint64(14), result.Immediate)
	assert.False(t, result.NeedsRelocation)
}

func TestEvaluate_BareRegister(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "r3\n")
	result, err := expr.Evaluate(root, "", syms)
	require.NoError(t, err)
	assert.Equal(t, expr.ResultRegister, result.Kind)
	assert.True(t, result.Register.Equal(isa.GP(3)))
}

func TestEvaluate_RegisterInArithmeticIsError(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "r1 + 2\n")
	_, err := expr.Evaluate(root, "", syms)
	assert.ErrorIs(t, err, expr.ErrRegisterInArith)
}

func TestEvaluate_UndefinedIdentifierNeedsRelocation(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "forward_label\n")
	result, err := expr.Evaluate(root, "", syms)
	require.NoError(t, err)
	assert.True(t, result.NeedsRelocation)
}

func TestEvaluate_DefinedConstantSymbol(t *testing.T) {
	syms := symtab.New()
	require.NoError(t, syms.Insert("FOO", symtab.Symbol{Value: 42, Kind: symtab.KindConstant}))
	root := parse(t, "FOO + 1\n")
	result, err := expr.Evaluate(root, "", syms)
	require.NoError(t, err)
	assert.Equal(t, uint64(43), result.Immediate)
	assert.False(t, result.IsLabel)
	assert.False(t, result.NeedsRelocation)
}

func TestEvaluate_SameSectionLabelResolvesWithoutRelocation(t *testing.T) {
	syms := symtab.New()
	require.NoError(t, syms.Insert("start", symtab.Symbol{Value: 4, Section: ".text", HasSection: true, Kind: symtab.KindLabel}))
	root := parse(t, "start\n")
	result, err := expr.Evaluate(root, ".text", syms)
	require.NoError(t, err)
	assert.True(t, result.IsLabel)
	assert.False(t, result.NeedsRelocation)
	assert.Equal(t, uint64(4), result.Immediate)
	assert.Equal(t, ".text", result.Section)
}

func TestEvaluate_ForeignSectionLabelNeedsRelocation(t *testing.T) {
	syms := symtab.New()
	require.NoError(t, syms.Insert("start", symtab.Symbol{Value: 4, Section: ".data", HasSection: true, Kind: symtab.KindLabel}))
	root := parse(t, "start\n")
	result, err := expr.Evaluate(root, ".text", syms)
	require.NoError(t, err)
	assert.True(t, result.IsLabel)
	assert.True(t, result.NeedsRelocation)
	assert.Equal(t, ".data", result.Section)
}

func TestEvaluate_UnaryNegation(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "-5\n")
	result, err := expr.Evaluate(root, "", syms)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFB), result.Immediate)
}

func TestEvaluateMemoryIndex_BaseOnly(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "r1\n")
	mi, needsReloc, err := expr.EvaluateMemoryIndex(root, "", syms)
	require.NoError(t, err)
	assert.False(t, needsReloc)
	assert.True(t, mi.Base.Equal(isa.GP(1)))
	assert.False(t, mi.Index.IsValid())
	assert.Equal(t, uint64(0), mi.Disp)
}

func TestEvaluateMemoryIndex_BasePlusDisp(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "r1 + 8\n")
	mi, _, err := expr.EvaluateMemoryIndex(root, "", syms)
	require.NoError(t, err)
	assert.True(t, mi.Base.Equal(isa.GP(1)))
	assert.Equal(t, uint64(8), mi.Disp)
}

func TestEvaluateMemoryIndex_BasePlusIndexTimesScale(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "r1 + r2 * 8\n")
	mi, _, err := expr.EvaluateMemoryIndex(root, "", syms)
	require.NoError(t, err)
	assert.True(t, mi.Base.Equal(isa.GP(1)))
	assert.True(t, mi.Index.Equal(isa.GP(2)))
	assert.Equal(t, 8, mi.Scale)
}

func TestEvaluateMemoryIndex_SubRewrittenToAddNeg(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "r1 - 4\n")
	mi, _, err := expr.EvaluateMemoryIndex(root, "", syms)
	require.NoError(t, err)
	assert.True(t, mi.Base.Equal(isa.GP(1)))
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFC), mi.Disp)
}

func TestEvaluateMemoryIndex_InvalidScaleRejected(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "r1 + r2 * 3\n")
	_, _, err := expr.EvaluateMemoryIndex(root, "", syms)
	assert.ErrorIs(t, err, expr.ErrUnsupportedScale)
}

func TestEvaluateMemoryIndex_DivScalesDownAnExistingIndex(t *testing.T) {
	syms := symtab.New()
	root := parse(t, "(r1 * 8) / 2\n")
	mi, _, err := expr.EvaluateMemoryIndex(root, "", syms)
	require.NoError(t, err)
	assert.True(t, mi.Index.Equal(isa.GP(1)))
	assert.Equal(t, 4, mi.Scale)
}
