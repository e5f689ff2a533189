package token_test

import (
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	token.RegisterMnemonics("mov", "jmp")
}

func collect(t *testing.T, src string) []token.Token {
	t.Helper()
	s := token.New(src)
	var out []token.Token
	for {
		tok, err := s.Next()
		require.NoError(t, err)
		out = append(out, tok)
		if tok.Kind == token.KindEOF {
			return out
		}
	}
}

func TestLexer_ClassifiesMnemonicRegisterComma(t *testing.T) {
	toks := collect(t, "mov r1, r2\n")

	require.Len(t, toks, 6)
	assert.Equal(t, token.KindMnemonic, toks[0].Kind)
	assert.Equal(t, token.KindRegister, toks[1].Kind)
	assert.Equal(t, token.PunctComma, toks[2].Punct)
	assert.Equal(t, token.KindRegister, toks[3].Kind)
	assert.Equal(t, token.KindNewline, toks[4].Kind)
	assert.Equal(t, token.KindEOF, toks[5].Kind)
}

func TestLexer_HexAndDecimalNumbers(t *testing.T) {
	toks := collect(t, "0x10 42\n")
	assert.Equal(t, uint64(0x10), toks[0].Number)
	assert.Equal(t, uint64(42), toks[1].Number)
}

func TestLexer_AppendsMissingTrailingNewline(t *testing.T) {
	toks := collect(t, "mov r1, r2")
	assert.Equal(t, token.KindNewline, toks[len(toks)-2].Kind)
}

func TestLexer_IdentifierIsAnythingElse(t *testing.T) {
	toks := collect(t, "my_label.foo\n")
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, token.KindIdentifier, toks[0].Kind)
	assert.Equal(t, "my_label.foo", toks[0].Text)
}

func TestLexer_InvalidNumberErrors(t *testing.T) {
	s := token.New("0xZZ\n")
	_, err := s.Next()
	require.Error(t, err)
}

func TestLexer_SkipLineResumesAtNextStatement(t *testing.T) {
	s := token.New("mov r1,\nmov r2, r3\n")
	first, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, token.KindMnemonic, first.Kind)

	s.SkipLine()

	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, token.KindMnemonic, tok.Kind)
	assert.Equal(t, "mov", tok.Text)
}
