package diag_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/assembler"
	"github.com/SapphireAmoeba5/rasm/pkg/diag"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrint_FormatsAssemblerDiagnostic(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	d := assembler.Diagnostic{Filename: "a.asm", Line: 3, Message: "bogus mnemonic"}
	diag.Print(&buf, d)
	assert.Equal(t, "a.asm:3: bogus mnemonic\n", buf.String())
}

func TestPrint_FlattensJoinedErrors(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	joined := errors.Join(
		assembler.Diagnostic{Filename: "a.asm", Line: 1, Message: "first"},
		assembler.Diagnostic{Filename: "a.asm", Line: 2, Message: "second"},
	)
	diag.Print(&buf, joined)
	assert.Equal(t, "a.asm:1: first\na.asm:2: second\n", buf.String())
}

func TestPrint_GenericErrorFallback(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	diag.Print(&buf, errors.New("unresolved symbol"))
	assert.Equal(t, "error: unresolved symbol\n", buf.String())
}
