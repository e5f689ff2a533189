// Package expr implements the assembler's expression language: a small
// AST with operator precedence, and the two evaluation modes the
// assembler needs (scalar operand evaluation, memory-index evaluation).
package expr

import (
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/isa"
)

// BinaryOperator enumerates the supported binary operators.
type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpDiv
	OpXor
)

func (op BinaryOperator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpXor:
		return "^"
	}
	return "?"
}

// Precedence returns the operator's binding strength; higher binds tighter.
func (op BinaryOperator) Precedence() int {
	switch op {
	case OpXor:
		return 1
	case OpAdd, OpSub:
		return 2
	case OpMul, OpDiv:
		return 3
	}
	return 0
}

// UnaryOperator enumerates the supported unary operators.
type UnaryOperator int

const (
	OpNeg UnaryOperator = iota
)

// NodeKind tags which variant a Node holds.
type NodeKind int

const (
	NodeConstant NodeKind = iota
	NodeRegister
	NodeIdentifier
	NodeBinary
	NodeUnary
	NodeParenthesized
)

// Node is a tagged-variant expression tree node. Only the fields
// relevant to Kind are meaningful.
type Node struct {
	Kind NodeKind

	Constant   uint64
	Register   isa.Register
	Identifier string

	BinOp BinaryOperator
	Left  *Node
	Right *Node

	UnOp  UnaryOperator
	Child *Node
}

func Constant(v uint64) *Node      { return &Node{Kind: NodeConstant, Constant: v} }
func RegisterNode(r isa.Register) *Node { return &Node{Kind: NodeRegister, Register: r} }
func Identifier(name string) *Node { return &Node{Kind: NodeIdentifier, Identifier: name} }
func Binary(op BinaryOperator, left, right *Node) *Node {
	return &Node{Kind: NodeBinary, BinOp: op, Left: left, Right: right}
}
func Unary(op UnaryOperator, child *Node) *Node {
	return &Node{Kind: NodeUnary, UnOp: op, Child: child}
}
func Parenthesized(child *Node) *Node {
	return &Node{Kind: NodeParenthesized, Child: child}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case NodeConstant:
		return fmt.Sprintf("%d", n.Constant)
	case NodeRegister:
		return n.Register.String()
	case NodeIdentifier:
		return n.Identifier
	case NodeBinary:
		return fmt.Sprintf("%v(%v, %v)", n.BinOp, n.Left, n.Right)
	case NodeUnary:
		return fmt.Sprintf("-(%v)", n.Child)
	case NodeParenthesized:
		return fmt.Sprintf("(%v)", n.Child)
	}
	return "?"
}
