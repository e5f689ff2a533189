package expr

import (
	"errors"
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
)

// Prefix tags the optional mode marker at the head of an operand.
type Prefix int

const (
	PrefixNone Prefix = iota
	PrefixImmediate      // $ forces an immediate-class operand
	PrefixMemory         // * forces a memory-dereference operand
	PrefixAddress        // @ forces an address (symbol-as-value) operand
	PrefixPCRelative     // & forces a PC-relative displacement operand
)

func (p Prefix) String() string {
	switch p {
	case PrefixImmediate:
		return "$"
	case PrefixMemory:
		return "*"
	case PrefixAddress:
		return "@"
	case PrefixPCRelative:
		return "&"
	}
	return ""
}

var (
	ErrUnexpectedToken = errors.New("unexpected token")
	ErrExpectedOperand = errors.New("expected an operand")
)

var binOps = map[token.Punct]BinaryOperator{
	token.PunctPlus:  OpAdd,
	token.PunctMinus: OpSub,
	token.PunctStar:  OpMul,
	token.PunctSlash: OpDiv,
	token.PunctCaret: OpXor,
}

var modePrefixes = map[token.Punct]Prefix{
	token.PunctDollar: PrefixImmediate,
	token.PunctStar:   PrefixMemory,
	token.PunctAt:      PrefixAddress,
	token.PunctAmp:    PrefixPCRelative,
}

// ParseOperand parses one full operand expression: an optional leading
// mode prefix, followed by a precedence-climbed expression.
func ParseOperand(s *token.Stream) (*Node, Prefix, error) {
	prefix := PrefixNone

	peeked, err := s.Peek()
	if err != nil {
		return nil, PrefixNone, err
	}
	if peeked.Kind == token.KindPunctuator {
		if p, ok := modePrefixes[peeked.Punct]; ok {
			if _, err := s.Next(); err != nil {
				return nil, PrefixNone, err
			}
			prefix = p
		}
	}

	root, err := parseExpr(s)
	if err != nil {
		return nil, PrefixNone, err
	}
	return root, prefix, nil
}

// parseExpr reads one leaf via parseConstant, then repeatedly reads a
// binary operator and another leaf, splicing the new node into the
// accumulated tree: descend the rightmost spine while the current node
// is a BinaryOp of strictly lower precedence than the incoming
// operator; otherwise replace the current subtree in place. Parentheses
// are opaque to this descent since a Parenthesized node is never a
// BinaryOp.
func parseExpr(s *token.Stream) (*Node, error) {
	root, err := parseConstant(s)
	if err != nil {
		return nil, err
	}

	for {
		peeked, err := s.Peek()
		if err != nil {
			return nil, err
		}
		if peeked.Kind != token.KindPunctuator {
			break
		}
		op, ok := binOps[peeked.Punct]
		if !ok {
			break
		}
		if _, err := s.Next(); err != nil {
			return nil, err
		}

		rhs, err := parseConstant(s)
		if err != nil {
			return nil, err
		}

		insert(&root, op, rhs)
	}

	return root, nil
}

func insert(root **Node, op BinaryOperator, rhs *Node) {
	cur := root
	for (*cur).Kind == NodeBinary && (*cur).BinOp.Precedence() < op.Precedence() {
		cur = &(*cur).Right
	}
	*cur = Binary(op, *cur, rhs)
}

// parseConstant parses one primary term: a number, register, identifier,
// a parenthesized sub-expression, or a unary minus applied to another
// primary term.
func parseConstant(s *token.Stream) (*Node, error) {
	tok, err := s.Next()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case token.KindNumber:
		return Constant(tok.Number), nil

	case token.KindRegister:
		reg, ok := isa.ParseRegister(tok.Text)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a register", ErrUnexpectedToken, tok.Text)
		}
		return RegisterNode(reg), nil

	case token.KindIdentifier:
		return Identifier(tok.Text), nil

	case token.KindPunctuator:
		switch tok.Punct {
		case token.PunctLParen:
			inner, err := parseExpr(s)
			if err != nil {
				return nil, err
			}
			closing, err := s.Next()
			if err != nil {
				return nil, err
			}
			if closing.Kind != token.KindPunctuator || closing.Punct != token.PunctRParen {
				return nil, fmt.Errorf("%w: expected ')' at line %d", ErrUnexpectedToken, closing.Line)
			}
			return Parenthesized(inner), nil

		case token.PunctMinus:
			child, err := parseConstant(s)
			if err != nil {
				return nil, err
			}
			return Unary(OpNeg, child), nil
		}
	}

	return nil, fmt.Errorf("%w: %v at line %d", ErrExpectedOperand, tok, tok.Line)
}
