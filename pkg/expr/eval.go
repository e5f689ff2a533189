package expr

import (
	"errors"
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/symtab"
)

var (
	ErrUndefinedSymbol   = errors.New("undefined symbol")
	ErrRegisterInArith   = errors.New("register used in arithmetic expression")
	ErrInvalidMemIndex   = errors.New("invalid memory index expression")
	ErrScaleNotConstant  = errors.New("scale factor must be a constant")
	ErrUnsupportedScale  = errors.New("unsupported scale factor")
)

// ResultKind tags whether an evaluated scalar operand is a bare register
// or a numeric value (immediate or symbolic).
type ResultKind int

const (
	ResultConstant ResultKind = iota
	ResultRegister
)

// Result is the outcome of evaluating a scalar operand expression.
type Result struct {
	Kind      ResultKind
	Immediate uint64
	Register  isa.Register

	// IsLabel is set when the constant value came from (or was derived
	// from) a label symbol, rather than a bare numeric literal.
	IsLabel bool
	// NeedsRelocation is set when the final value cannot be resolved
	// until link time: either the symbol is a forward reference not yet
	// defined in this module, or it is a label in a section other than
	// the current one (the linker supplies that section's base address).
	NeedsRelocation bool
	// Section is the home section of the label contributing to this
	// result, when IsLabel is true and the symbol is already defined in
	// this module.
	Section string
}

// Lookup is the minimal symbol-table view expr needs: resolve a name to
// its bound symbol, if any is bound yet. Forward references — names not
// yet bound — are legal; the caller decides how to defer them.
type Lookup interface {
	Get(name string) (symtab.Symbol, bool)
}

// Evaluate folds expr into a scalar Result, given the current section
// (used to detect same-section label math) and a symbol lookup.
//
// Per-kind rules:
//   - Constant: itself, not a label, no relocation.
//   - Register: itself.
//   - Identifier: three cases — unresolved (forward reference, needs
//     relocation), resolved constant symbol (itself, not a label), or
//     resolved label symbol: a label in currentSection resolves now
//     (its byte offset is stable within the module); a label in a
//     foreign section needs relocation (the linker supplies the final
//     address once sections are placed).
//   - BinaryOp: evaluate both sides; a register operand on either side
//     is an error (arithmetic never mixes a register with anything);
//     relocation need propagates if either side needs it.
//   - UnaryOp(Neg): evaluate child, negate (two's complement); a
//     register child is an error; relocation need propagates.
//   - Parenthesized: transparent, evaluates the child unchanged.
func Evaluate(n *Node, currentSection string, syms Lookup) (Result, error) {
	switch n.Kind {
	case NodeConstant:
		return Result{Kind: ResultConstant, Immediate: n.Constant}, nil

	case NodeRegister:
		return Result{Kind: ResultRegister, Register: n.Register}, nil

	case NodeIdentifier:
		sym, ok := syms.Get(n.Identifier)
		if !ok {
			return Result{Kind: ResultConstant, NeedsRelocation: true}, nil
		}
		if sym.Kind == symtab.KindConstant {
			return Result{Kind: ResultConstant, Immediate: sym.Value}, nil
		}
		if sym.Section == currentSection {
			return Result{
				Kind:      ResultConstant,
				Immediate: sym.Value,
				IsLabel:   true,
				Section:   sym.Section,
			}, nil
		}
		return Result{
			Kind:            ResultConstant,
			IsLabel:         true,
			NeedsRelocation: true,
			Section:         sym.Section,
		}, nil

	case NodeBinary:
		left, err := Evaluate(n.Left, currentSection, syms)
		if err != nil {
			return Result{}, err
		}
		right, err := Evaluate(n.Right, currentSection, syms)
		if err != nil {
			return Result{}, err
		}
		if left.Kind == ResultRegister || right.Kind == ResultRegister {
			return Result{}, fmt.Errorf("%w", ErrRegisterInArith)
		}
		value, err := applyBinary(n.BinOp, left.Immediate, right.Immediate)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Kind:            ResultConstant,
			Immediate:       value,
			IsLabel:         left.IsLabel || right.IsLabel,
			NeedsRelocation: left.NeedsRelocation || right.NeedsRelocation,
			Section:         firstNonEmpty(left.Section, right.Section),
		}, nil

	case NodeUnary:
		child, err := Evaluate(n.Child, currentSection, syms)
		if err != nil {
			return Result{}, err
		}
		if child.Kind == ResultRegister {
			return Result{}, fmt.Errorf("%w", ErrRegisterInArith)
		}
		return Result{
			Kind:            ResultConstant,
			Immediate:       -child.Immediate,
			IsLabel:         child.IsLabel,
			NeedsRelocation: child.NeedsRelocation,
			Section:         child.Section,
		}, nil

	case NodeParenthesized:
		return Evaluate(n.Child, currentSection, syms)
	}

	return Result{}, fmt.Errorf("%w: unknown node kind", ErrUnexpectedToken)
}

func applyBinary(op BinaryOperator, left, right uint64) (uint64, error) {
	switch op {
	case OpAdd:
		return left + right, nil
	case OpSub:
		return left - right, nil
	case OpMul:
		return left * right, nil
	case OpDiv:
		if right == 0 {
			return 0, errors.New("division by zero in constant expression")
		}
		return left / right, nil
	case OpXor:
		return left ^ right, nil
	}
	return 0, fmt.Errorf("unknown binary operator %v", op)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// EvaluateMemoryIndex folds a memory-operand expression into a
// MemoryIndex descriptor: Base + Index*Scale + Displacement. Applies
// the same rewrite rules as the reference assembler:
//
//   - Sub(a, b) is rewritten to Add(a, Neg(b)) before decomposition.
//   - Add merges its two sides: whichever side is a bare register
//     becomes Base (first one seen) or Index (second one seen); a
//     non-register side contributes to Disp (folded via Evaluate) or,
//     if it is itself a Mul node, contributes Index*Scale.
//   - Mul requires exactly one side to be a register and the other a
//     constant, which becomes Scale; Scale must be one of 1/2/4/8.
//   - Div requires the divisor to be a non-zero constant, and divides
//     an already-computed Scale by it (used to write `r1*8/2` style
//     expressions); the dividend must already have decomposed to an
//     Index/Scale pair.
//   - A bare register or bare constant/identifier is valid standalone
//     (register alone => Base with zero displacement; constant alone =>
//     pure displacement, IsLabel/NeedsRelocation propagated).
func EvaluateMemoryIndex(n *Node, currentSection string, syms Lookup) (isa.MemoryIndex, bool, error) {
	mi := isa.MemoryIndex{Base: isa.Invalid, Index: isa.Invalid, Scale: 1}
	needsReloc, err := decomposeMemIndex(n, currentSection, syms, &mi)
	if err != nil {
		return isa.MemoryIndex{}, false, err
	}
	return mi, needsReloc, nil
}

func decomposeMemIndex(n *Node, currentSection string, syms Lookup, mi *isa.MemoryIndex) (bool, error) {
	switch n.Kind {
	case NodeRegister:
		if !mi.Base.IsValid() {
			mi.Base = n.Register
		} else if !mi.Index.IsValid() {
			mi.Index = n.Register
		} else {
			return false, fmt.Errorf("%w: too many registers", ErrInvalidMemIndex)
		}
		return false, nil

	case NodeParenthesized:
		return decomposeMemIndex(n.Child, currentSection, syms, mi)

	case NodeBinary:
		switch n.BinOp {
		case OpSub:
			rewritten := Binary(OpAdd, n.Left, Unary(OpNeg, n.Right))
			return decomposeMemIndex(rewritten, currentSection, syms, mi)

		case OpAdd:
			leftReloc, err := decomposeMemIndexSide(n.Left, currentSection, syms, mi)
			if err != nil {
				return false, err
			}
			rightReloc, err := decomposeMemIndexSide(n.Right, currentSection, syms, mi)
			if err != nil {
				return false, err
			}
			return leftReloc || rightReloc, nil

		case OpMul:
			return decomposeScale(n.Left, n.Right, currentSection, syms, mi)

		case OpDiv:
			right, err := Evaluate(n.Right, currentSection, syms)
			if err != nil {
				return false, err
			}
			if right.Kind == ResultRegister || right.Immediate == 0 {
				return false, fmt.Errorf("%w", ErrScaleNotConstant)
			}
			leftReloc, err := decomposeMemIndex(n.Left, currentSection, syms, mi)
			if err != nil {
				return false, err
			}
			newScale := mi.Scale / int(right.Immediate)
			if !isa.ValidScale(newScale) {
				return false, fmt.Errorf("%w: %d", ErrUnsupportedScale, newScale)
			}
			mi.Scale = newScale
			return leftReloc, nil
		}

	case NodeConstant, NodeIdentifier, NodeUnary:
		result, err := Evaluate(n, currentSection, syms)
		if err != nil {
			return false, err
		}
		mi.Disp += result.Immediate
		mi.IsLabel = mi.IsLabel || result.IsLabel
		return result.NeedsRelocation, nil
	}

	return false, fmt.Errorf("%w: unsupported node in memory index", ErrInvalidMemIndex)
}

// decomposeMemIndexSide handles one side of an Add: either a bare
// register (-> base/index slot), a Mul (-> index*scale), or a scalar
// contribution to the displacement.
func decomposeMemIndexSide(n *Node, currentSection string, syms Lookup, mi *isa.MemoryIndex) (bool, error) {
	if n.Kind == NodeBinary && n.BinOp == OpMul {
		return decomposeScale(n.Left, n.Right, currentSection, syms, mi)
	}
	return decomposeMemIndex(n, currentSection, syms, mi)
}

func decomposeScale(left, right *Node, currentSection string, syms Lookup, mi *isa.MemoryIndex) (bool, error) {
	regSide, constSide := left, right
	if left.Kind != NodeRegister {
		regSide, constSide = right, left
	}
	if regSide.Kind != NodeRegister {
		return false, fmt.Errorf("%w: Mul requires exactly one register operand", ErrInvalidMemIndex)
	}

	constResult, err := Evaluate(constSide, currentSection, syms)
	if err != nil {
		return false, err
	}
	if constResult.Kind == ResultRegister {
		return false, fmt.Errorf("%w: Mul requires exactly one register operand", ErrInvalidMemIndex)
	}

	scale := int(constResult.Immediate)
	if !isa.ValidScale(scale) {
		return false, fmt.Errorf("%w: %d", ErrUnsupportedScale, scale)
	}

	if !mi.Index.IsValid() {
		mi.Index = regSide.Register
	} else if !mi.Base.IsValid() {
		mi.Base = regSide.Register
	} else {
		return false, fmt.Errorf("%w: too many registers", ErrInvalidMemIndex)
	}
	mi.Scale = scale
	return constResult.NeedsRelocation, nil
}
