package assembler

import (
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/expr"
	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
)

// ParsedOperand is one operand after parsing and symbolic evaluation,
// carrying the mask of classes it could still narrow to.
type ParsedOperand struct {
	Mask            isa.OperandClass
	IsMemory        bool
	MemIndex        isa.MemoryIndex
	Scalar          expr.Result
	NeedsRelocation bool
	Node            *expr.Node
	Line            int
}

// parseOperands reads a comma-separated, newline-terminated operand
// list, per §4.5.1.
func (a *Assembler) parseOperands(stream *token.Stream) ([]ParsedOperand, error) {
	var operands []ParsedOperand

	tok, err := stream.Peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == token.KindNewline || tok.Kind == token.KindEOF {
		stream.Next()
		return nil, nil
	}

	for {
		op, err := a.parseOneOperand(stream)
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
		if len(operands) > MaxOperands {
			return nil, fmt.Errorf("too many operands (max %d)", MaxOperands)
		}

		next, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if next.Kind == token.KindNewline || next.Kind == token.KindEOF {
			break
		}
		if next.Kind != token.KindPunctuator || next.Punct != token.PunctComma {
			return nil, fmt.Errorf("expected ',' or newline between operands, got %v", next)
		}
	}

	return operands, nil
}

func (a *Assembler) parseOneOperand(stream *token.Stream) (ParsedOperand, error) {
	peeked, err := stream.Peek()
	if err != nil {
		return ParsedOperand{}, err
	}

	if peeked.Kind == token.KindPunctuator && peeked.Punct == token.PunctLBracket {
		stream.Next()
		node, _, err := expr.ParseOperand(stream)
		if err != nil {
			return ParsedOperand{}, err
		}
		closing, err := stream.Next()
		if err != nil {
			return ParsedOperand{}, err
		}
		if closing.Kind != token.KindPunctuator || closing.Punct != token.PunctRBracket {
			return ParsedOperand{}, fmt.Errorf("expected ']' to close memory operand, got %v", closing)
		}

		mi, needsReloc, err := expr.EvaluateMemoryIndex(node, a.currentSection, a.Symbols)
		if err != nil {
			return ParsedOperand{}, err
		}
		return ParsedOperand{
			Mask:            isa.ClassINDEX,
			IsMemory:        true,
			MemIndex:        mi,
			NeedsRelocation: needsReloc,
			Node:            node,
			Line:            peeked.Line,
		}, nil
	}

	node, prefix, err := expr.ParseOperand(stream)
	if err != nil {
		return ParsedOperand{}, err
	}
	result, err := expr.Evaluate(node, a.currentSection, a.Symbols)
	if err != nil {
		return ParsedOperand{}, err
	}

	if prefix != expr.PrefixNone && result.Kind == expr.ResultRegister {
		return ParsedOperand{}, fmt.Errorf("mode prefix %q cannot be combined with a register operand", prefix)
	}

	mask, err := operandMask(prefix, result)
	if err != nil {
		return ParsedOperand{}, err
	}

	return ParsedOperand{
		Mask:            mask,
		Scalar:          result,
		NeedsRelocation: result.NeedsRelocation,
		Node:            node,
		Line:            peeked.Line,
	}, nil
}

func operandMask(prefix expr.Prefix, result expr.Result) (isa.OperandClass, error) {
	switch prefix {
	case expr.PrefixImmediate:
		return isa.ClassIMM, nil
	case expr.PrefixMemory:
		return isa.ClassADDR | isa.ClassDISP, nil
	case expr.PrefixAddress:
		return isa.ClassADDR, nil
	case expr.PrefixPCRelative:
		return isa.ClassDISP, nil
	}

	if result.Kind == expr.ResultRegister {
		return result.Register.Classes(), nil
	}
	if result.IsLabel {
		return isa.ClassDISP, nil
	}
	return isa.ClassIMM | isa.ClassADDR | isa.ClassDISP, nil
}
