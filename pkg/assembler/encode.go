package assembler

import (
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
)

func (a *Assembler) assembleInstruction(stream *token.Stream, mnemonicTok token.Token) error {
	operands, err := a.parseOperands(stream)
	if err != nil {
		return err
	}

	templates, ok := isa.Lookup(mnemonicTok.Text)
	if !ok {
		return fmt.Errorf("unknown mnemonic %q", mnemonicTok.Text)
	}

	tmpl, resolved, err := selectTemplate(templates, operands)
	if err != nil {
		return fmt.Errorf("%s: %w", mnemonicTok.Text, err)
	}

	sect, err := a.current()
	if err != nil {
		return err
	}

	return a.emit(sect, mnemonicTok, tmpl, operands, resolved)
}

// selectTemplate implements §4.5.2: the first template whose operand
// count matches and whose slots all intersect the parsed operands'
// masks wins; each operand's mask is then narrowed to a single bit.
func selectTemplate(templates []isa.Template, operands []ParsedOperand) (isa.Template, []isa.OperandClass, error) {
	for _, tmpl := range templates {
		if tmpl.NumOperands() != len(operands) {
			continue
		}

		resolved := make([]isa.OperandClass, len(operands))
		ok := true
		for i, op := range operands {
			bit, err := resolveOperandClass(tmpl.Operands[i], op)
			if err != nil {
				ok = false
				break
			}
			resolved[i] = bit
		}
		if ok {
			return tmpl, resolved, nil
		}
	}
	return isa.Template{}, nil, fmt.Errorf("no matching encoding for %d operand(s)", len(operands))
}

// resolveOperandClass narrows a template slot against a parsed
// operand's possible-classes mask to a single bit. REG/GPREG/INDEX/
// ADDR64/DISP32 slots are already unambiguous once intersected; a bare
// constant's IMM|ADDR|DISP ambiguity (and the "*" prefix's ADDR|DISP
// ambiguity) is resolved by chooseCategory.
func resolveOperandClass(slot isa.OperandClass, op ParsedOperand) (isa.OperandClass, error) {
	inter := slot & op.Mask
	if inter == 0 {
		return 0, fmt.Errorf("operand class %v does not match required %v", op.Mask, slot)
	}
	if bit, ok := inter.SingleBit(); ok {
		return bit, nil
	}
	return chooseCategory(inter, op)
}

// chooseCategory picks among an ambiguous IMM/ADDR/DISP intersection.
// A label always prefers its natural DISP (PC-relative) form; otherwise
// a bare immediate wins (narrowed to the smallest width that holds its
// value, or IMM64 if the value is still relocation-deferred), then
// ADDR, then DISP.
func chooseCategory(mask isa.OperandClass, op ParsedOperand) (isa.OperandClass, error) {
	if op.Scalar.IsLabel && mask&isa.ClassDISP32 != 0 {
		return isa.ClassDISP32, nil
	}
	if mask&isa.ClassIMM != 0 {
		bit := narrowImmediateWidth(op.Scalar.Immediate, op.NeedsRelocation)
		if bit&mask == 0 {
			return 0, fmt.Errorf("immediate width %v not permitted here", bit)
		}
		return bit, nil
	}
	if mask&isa.ClassADDR64 != 0 {
		return isa.ClassADDR64, nil
	}
	if mask&isa.ClassDISP32 != 0 {
		return isa.ClassDISP32, nil
	}
	return 0, fmt.Errorf("ambiguous operand class %v", mask)
}

// narrowImmediateWidth picks the smallest of {u8,u16,u32,u64} that
// holds value, or IMM64 when the value is not yet known (relocation
// deferred), per §4.5.4.
func narrowImmediateWidth(value uint64, deferred bool) isa.OperandClass {
	if deferred {
		return isa.ClassIMM64
	}
	switch {
	case value <= 0xFF:
		return isa.ClassIMM8
	case value <= 0xFFFF:
		return isa.ClassIMM16
	case value <= 0xFFFFFFFF:
		return isa.ClassIMM32
	default:
		return isa.ClassIMM64
	}
}

// relocKindForClass derives a relocation kind from a narrowed operand
// class, per §4.5.3.
func relocKindForClass(class isa.OperandClass) (isa.RelocationKind, error) {
	switch class {
	case isa.ClassIMM8:
		return isa.RelocAbs8, nil
	case isa.ClassIMM16:
		return isa.RelocAbs16, nil
	case isa.ClassIMM32:
		return isa.RelocAbs32, nil
	case isa.ClassIMM64:
		return isa.RelocAbs64, nil
	case isa.ClassDISP32:
		return isa.RelocPC32, nil
	case isa.ClassADDR64:
		return isa.RelocAddr64, nil
	}
	return isa.RelocNone, fmt.Errorf("no relocation kind for operand class %v", class)
}
