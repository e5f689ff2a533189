package expr_test

import (
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/expr"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperand_PrecedenceMulBindsTighterThanAdd(t *testing.T) {
	s := token.New("a + b * c\n")
	root, prefix, err := expr.ParseOperand(s)
	require.NoError(t, err)
	assert.Equal(t, expr.PrefixNone, prefix)

	require.Equal(t, expr.NodeBinary, root.Kind)
	assert.Equal(t, expr.OpAdd, root.BinOp)
	assert.Equal(t, expr.NodeIdentifier, root.Left.Kind)
	assert.Equal(t, "a", root.Left.Identifier)

	require.Equal(t, expr.NodeBinary, root.Right.Kind)
	assert.Equal(t, expr.OpMul, root.Right.BinOp)
	assert.Equal(t, "b", root.Right.Left.Identifier)
	assert.Equal(t, "c", root.Right.Right.Identifier)
}

func TestParseOperand_ParensOverridePrecedence(t *testing.T) {
	s := token.New("(a + b) * c\n")
	root, _, err := expr.ParseOperand(s)
	require.NoError(t, err)

	require.Equal(t, expr.NodeBinary, root.Kind)
	assert.Equal(t, expr.OpMul, root.BinOp)

	require.Equal(t, expr.NodeParenthesized, root.Left.Kind)
	inner := root.Left.Child
	require.Equal(t, expr.NodeBinary, inner.Kind)
	assert.Equal(t, expr.OpAdd, inner.BinOp)

	assert.Equal(t, "c", root.Right.Identifier)
}

func TestParseOperand_ModePrefixes(t *testing.T) {
	cases := []struct {
		src    string
		prefix expr.Prefix
	}{
		{"$5\n", expr.PrefixImmediate},
		{"*r1\n", expr.PrefixMemory},
		{"@label\n", expr.PrefixAddress},
		{"&label\n", expr.PrefixPCRelative},
	}
	for _, c := range cases {
		s := token.New(c.src)
		_, prefix, err := expr.ParseOperand(s)
		require.NoError(t, err)
		assert.Equal(t, c.prefix, prefix)
	}
}

func TestParseOperand_UnaryMinus(t *testing.T) {
	s := token.New("-5\n")
	root, _, err := expr.ParseOperand(s)
	require.NoError(t, err)
	require.Equal(t, expr.NodeUnary, root.Kind)
	assert.Equal(t, expr.OpNeg, root.UnOp)
	assert.Equal(t, uint64(5), root.Child.Constant)
}

func TestParseOperand_XorIsLowestPrecedence(t *testing.T) {
	s := token.New("a ^ b + c\n")
	root, _, err := expr.ParseOperand(s)
	require.NoError(t, err)
	require.Equal(t, expr.NodeBinary, root.Kind)
	assert.Equal(t, expr.OpXor, root.BinOp)
	require.Equal(t, expr.NodeBinary, root.Right.Kind)
	assert.Equal(t, expr.OpAdd, root.Right.BinOp)
}

func TestParseOperand_LeftToRightSamePrecedence(t *testing.T) {
	s := token.New("a - b - c\n")
	root, _, err := expr.ParseOperand(s)
	require.NoError(t, err)
	require.Equal(t, expr.NodeBinary, root.Kind)
	assert.Equal(t, expr.OpSub, root.BinOp)
	assert.Equal(t, "c", root.Right.Identifier)
	require.Equal(t, expr.NodeBinary, root.Left.Kind)
	assert.Equal(t, "a", root.Left.Left.Identifier)
	assert.Equal(t, "b", root.Left.Right.Identifier)
}
