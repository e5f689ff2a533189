package assembler

import (
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/expr"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
)

func (a *Assembler) assembleDirective(stream *token.Stream, dir token.Token) error {
	switch dir.Text {
	case "section":
		return a.directiveSection(stream)
	case "align":
		return a.directiveAlign(stream)
	case "skip":
		return a.directiveSkip(stream)
	case "global":
		return a.directiveGlobal(stream)
	case "u8":
		return a.directiveData(stream, 1)
	case "u16":
		return a.directiveData(stream, 2)
	case "u32":
		return a.directiveData(stream, 4)
	case "u64":
		return a.directiveData(stream, 8)
	}
	return fmt.Errorf("unknown directive .%s", dir.Text)
}

func (a *Assembler) directiveSection(stream *token.Stream) error {
	nameTok, err := stream.Next()
	if err != nil {
		return err
	}
	if nameTok.Kind != token.KindIdentifier {
		return fmt.Errorf("expected section name after .section, got %v", nameTok)
	}
	if err := expectNewline(stream); err != nil {
		return err
	}
	a.section(nameTok.Text)
	a.currentSection = nameTok.Text
	return nil
}

func (a *Assembler) directiveAlign(stream *token.Stream) error {
	n, err := a.constOperand(stream)
	if err != nil {
		return err
	}
	if err := expectNewline(stream); err != nil {
		return err
	}
	sect, err := a.current()
	if err != nil {
		return err
	}
	sect.Align(n)
	return nil
}

func (a *Assembler) directiveSkip(stream *token.Stream) error {
	n, err := a.constOperand(stream)
	if err != nil {
		return err
	}

	fill := uint64(0)
	tok, err := stream.Peek()
	if err != nil {
		return err
	}
	if tok.Kind == token.KindPunctuator && tok.Punct == token.PunctComma {
		stream.Next()
		fill, err = a.constOperand(stream)
		if err != nil {
			return err
		}
	}
	if err := expectNewline(stream); err != nil {
		return err
	}

	sect, err := a.current()
	if err != nil {
		return err
	}
	sect.Skip(n, byte(fill))
	return nil
}

func (a *Assembler) directiveGlobal(stream *token.Stream) error {
	nameTok, err := stream.Next()
	if err != nil {
		return err
	}
	if nameTok.Kind != token.KindIdentifier {
		return fmt.Errorf("expected identifier after .global, got %v", nameTok)
	}
	if err := expectNewline(stream); err != nil {
		return err
	}
	a.Globals[nameTok.Text] = true
	return nil
}

func (a *Assembler) directiveData(stream *token.Stream, width int) error {
	node, _, err := expr.ParseOperand(stream)
	if err != nil {
		return err
	}
	if err := expectNewline(stream); err != nil {
		return err
	}

	result, err := expr.Evaluate(node, a.currentSection, a.Symbols)
	if err != nil {
		return err
	}
	if result.Kind == expr.ResultRegister {
		return fmt.Errorf("data directive operand cannot be a register")
	}
	if result.NeedsRelocation || result.IsLabel {
		return fmt.Errorf("data directive operand must be a fully resolved constant, no labels or undefined symbols")
	}
	if err := checkFitsWidth(result.Immediate, width); err != nil {
		return err
	}

	sect, err := a.current()
	if err != nil {
		return err
	}
	switch width {
	case 1:
		sect.AppendU8(uint8(result.Immediate))
	case 2:
		sect.AppendU16(uint16(result.Immediate))
	case 4:
		sect.AppendU32(uint32(result.Immediate))
	case 8:
		sect.AppendU64(result.Immediate)
	}
	return nil
}

func checkFitsWidth(v uint64, width int) error {
	var max uint64
	switch width {
	case 1:
		max = 0xFF
	case 2:
		max = 0xFFFF
	case 4:
		max = 0xFFFFFFFF
	case 8:
		return nil
	}
	if v > max {
		return fmt.Errorf("value 0x%X does not fit in %d byte(s)", v, width)
	}
	return nil
}

// constOperand parses one expression operand and requires it to
// evaluate, right now, to a fully resolved constant (used by .align and
// .skip, whose operands are never label- or symbol-deferred).
func (a *Assembler) constOperand(stream *token.Stream) (uint64, error) {
	node, _, err := expr.ParseOperand(stream)
	if err != nil {
		return 0, err
	}
	result, err := expr.Evaluate(node, a.currentSection, a.Symbols)
	if err != nil {
		return 0, err
	}
	if result.Kind != expr.ResultConstant || result.NeedsRelocation {
		return 0, fmt.Errorf("expected a constant expression")
	}
	return result.Immediate, nil
}
