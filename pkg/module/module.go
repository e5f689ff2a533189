// Package module implements the module builder: it promotes an
// assembled unit into a linker-ready module by rewriting each surviving
// forward reference into a relocation entry, folding intra-section
// label differences and constant math into the addend.
package module

import (
	"errors"
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/assembler"
	"github.com/SapphireAmoeba5/rasm/pkg/expr"
	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/section"
	"github.com/SapphireAmoeba5/rasm/pkg/symtab"
	"github.com/SapphireAmoeba5/rasm/pkg/utils"
)

var (
	ErrGlobalUndefined     = errors.New("global symbol has no definition in this module")
	ErrUnrelocatable       = errors.New("failed to create relocation")
	ErrRegisterInRelocExpr = errors.New("register cannot appear in a relocation expression")
)

// Relocation is {kind, symbol_name (may be empty), addend, section, offset}.
// An empty symbol name denotes a pure constant fixup.
type Relocation struct {
	Kind       isa.RelocationKind
	Symbol     string
	Addend     uint64
	Section    string
	ByteOffset uint64
	Line       int
}

// Module is {filename, symbols, globals, relocations, sections},
// produced from one assembled file; it is the linker's unit of input.
type Module struct {
	Filename     string
	Symbols      *symtab.Table
	Globals      map[string]bool
	Relocations  []Relocation
	Sections     map[string]*section.Section
	SectionOrder []string
}

// Build promotes a.Assemble()'s output into a Module. a must have
// already been fully assembled (Assemble returned, successfully or
// not); Build still runs so every diagnostic is surfaced, but returns
// an error if any forward reference could not be reduced or a global
// is undefined.
func Build(a *assembler.Assembler, filename string) (Module, error) {
	m := Module{
		Filename:     filename,
		Symbols:      a.Symbols,
		Globals:      a.Globals,
		Sections:     a.Sections,
		SectionOrder: a.SectionOrder,
	}

	var errs []error
	for _, ref := range a.ForwardReferences() {
		symbolName, addend, err := reduce(ref.Node(), a.Symbols, ref.SectionName())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: %w", filename, ref.LineNumber(), err))
			continue
		}
		m.Relocations = append(m.Relocations, Relocation{
			Kind:       ref.Kind(),
			Symbol:     symbolName,
			Addend:     addend,
			Section:    ref.SectionName(),
			ByteOffset: ref.ByteOffset(),
			Line:       ref.LineNumber(),
		})
	}

	for _, name := range utils.Keys(a.Globals) {
		if _, ok := a.Symbols.Get(name); !ok {
			errs = append(errs, fmt.Errorf("%s: %w: %q", filename, ErrGlobalUndefined, name))
		}
	}

	if len(errs) > 0 {
		return m, errors.Join(errs...)
	}
	return m, nil
}

// reduce folds a surviving forward-reference expression into
// (symbol_name, addend), per §4.6.
func reduce(n *expr.Node, syms *symtab.Table, section string) (string, uint64, error) {
	switch n.Kind {
	case expr.NodeConstant:
		return "", n.Constant, nil

	case expr.NodeRegister:
		return "", 0, ErrRegisterInRelocExpr

	case expr.NodeIdentifier:
		sym, ok := syms.Get(n.Identifier)
		if !ok {
			return n.Identifier, 0, nil
		}
		if sym.Kind == symtab.KindConstant {
			return "", sym.Value, nil
		}
		if sym.Section == section {
			return "", sym.Value, nil
		}
		return n.Identifier, 0, nil

	case expr.NodeUnary:
		name, addend, err := reduce(n.Child, syms, section)
		if err != nil {
			return "", 0, err
		}
		if name != "" {
			return "", 0, fmt.Errorf("%w: unary operator on a symbolic reference", ErrUnrelocatable)
		}
		return "", -addend, nil

	case expr.NodeParenthesized:
		return reduce(n.Child, syms, section)

	case expr.NodeBinary:
		return reduceBinary(n, syms, section)
	}

	return "", 0, fmt.Errorf("%w: unsupported node kind", ErrUnrelocatable)
}

func reduceBinary(n *expr.Node, syms *symtab.Table, section string) (string, uint64, error) {
	leftName, leftAddend, err := reduce(n.Left, syms, section)
	if err != nil {
		return "", 0, err
	}
	rightName, rightAddend, err := reduce(n.Right, syms, section)
	if err != nil {
		return "", 0, err
	}

	switch {
	case leftName == "" && rightName == "":
		v, err := applyConst(n.BinOp, leftAddend, rightAddend)
		return "", v, err

	case leftName != "" && rightName == "":
		switch n.BinOp {
		case expr.OpAdd:
			return leftName, leftAddend + rightAddend, nil
		case expr.OpSub:
			return leftName, leftAddend - rightAddend, nil
		default:
			return "", 0, fmt.Errorf("%w: operator %v not allowed on a symbolic left operand", ErrUnrelocatable, n.BinOp)
		}

	case leftName == "" && rightName != "":
		if n.BinOp == expr.OpAdd {
			return rightName, leftAddend + rightAddend, nil
		}
		return "", 0, fmt.Errorf("%w: operator %v not allowed with a symbolic right operand", ErrUnrelocatable, n.BinOp)

	default:
		if n.BinOp != expr.OpSub {
			return "", 0, fmt.Errorf("%w: two symbolic operands require Sub", ErrUnrelocatable)
		}
		leftSym, ok1 := syms.Get(leftName)
		rightSym, ok2 := syms.Get(rightName)
		if !ok1 || !ok2 {
			return "", 0, fmt.Errorf("%w: undefined symbol in same-section difference", ErrUnrelocatable)
		}
		if leftSym.Kind != symtab.KindLabel || rightSym.Kind != symtab.KindLabel {
			return "", 0, fmt.Errorf("%w: symbolic difference requires two labels", ErrUnrelocatable)
		}
		if leftSym.Section != rightSym.Section || leftSym.Section != section {
			return "", 0, fmt.Errorf("%w: symbolic difference requires two labels in the same section as the referencing expression", ErrUnrelocatable)
		}
		return "", (leftSym.Value + leftAddend) - (rightSym.Value + rightAddend), nil
	}
}

func applyConst(op expr.BinaryOperator, left, right uint64) (uint64, error) {
	switch op {
	case expr.OpAdd:
		return left + right, nil
	case expr.OpSub:
		return left - right, nil
	case expr.OpMul:
		return left * right, nil
	case expr.OpDiv:
		if right == 0 {
			return 0, errors.New("division by zero")
		}
		return left / right, nil
	case expr.OpXor:
		return left ^ right, nil
	}
	return 0, fmt.Errorf("unknown operator %v", op)
}
