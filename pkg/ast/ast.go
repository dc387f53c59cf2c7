// Package ast defines the uytin language AST node types.
package ast

import "fmt"

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// Node is the interface implemented by all AST nodes.
// The set of implementations is closed: only this package can add one.
type Node interface {
	Kind() string
	NodeSpan() Span
	node() // sealed marker
}

// Operator identifies a unary or binary operator.
type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"

	OpEqual     Operator = "UYTIN"
	OpLess      Operator = "ITHON"
	OpGreater   Operator = "NHIEUHON"
	OpLessEq    Operator = "ITBANG"
	OpGreaterEq Operator = "NHIEUBANG"

	OpAssign Operator = "="

	OpPrint Operator = "NOILIENTUC"
)

// IsComparison reports whether op yields a boolean.
func (op Operator) IsComparison() bool {
	switch op {
	case OpEqual, OpLess, OpGreater, OpLessEq, OpGreaterEq:
		return true
	}
	return false
}

// --- Literals ---

type NumberLiteral struct {
	Span  Span
	Value int64
}

func (n *NumberLiteral) Kind() string   { return "NumberLiteral" }
func (n *NumberLiteral) NodeSpan() Span { return n.Span }
func (n *NumberLiteral) node()          {}

// StringLiteral keeps the raw lexeme, quotes included.
type StringLiteral struct {
	Span Span
	Raw  string
}

func (n *StringLiteral) Kind() string   { return "StringLiteral" }
func (n *StringLiteral) NodeSpan() Span { return n.Span }
func (n *StringLiteral) node()          {}

// --- References ---

type Variable struct {
	Span Span
	Name string
}

func (n *Variable) Kind() string   { return "Variable" }
func (n *Variable) NodeSpan() Span { return n.Span }
func (n *Variable) node()          {}

type FunctionCall struct {
	Span Span
	Name string
	Args []Node
}

func (n *FunctionCall) Kind() string   { return "FunctionCall" }
func (n *FunctionCall) NodeSpan() Span { return n.Span }
func (n *FunctionCall) node()          {}

// --- Operations ---

// UnaryOp is an operator applied to a single operand. Print is the only one.
type UnaryOp struct {
	Span    Span
	Op      Operator
	Operand Node
}

func (n *UnaryOp) Kind() string   { return "UnaryOp" }
func (n *UnaryOp) NodeSpan() Span { return n.Span }
func (n *UnaryOp) node()          {}

// BinaryOp covers arithmetic, comparison and assignment.
type BinaryOp struct {
	Span  Span
	Op    Operator
	Left  Node
	Right Node
}

func (n *BinaryOp) Kind() string   { return "BinaryOp" }
func (n *BinaryOp) NodeSpan() Span { return n.Span }
func (n *BinaryOp) node()          {}

// --- Statements ---

type Block struct {
	Span       Span
	Statements []Node
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) node()          {}

// If is a conditional. Else is nil, a *Block, or a nested *If for else-if chains.
type If struct {
	Span Span
	Cond Node
	Then *Block
	Else Node
}

func (n *If) Kind() string   { return "If" }
func (n *If) NodeSpan() Span { return n.Span }
func (n *If) node()          {}

type FunctionDeclaration struct {
	Span   Span
	Name   string
	Params []string
	Body   *Block
}

func (n *FunctionDeclaration) Kind() string   { return "FunctionDeclaration" }
func (n *FunctionDeclaration) NodeSpan() Span { return n.Span }
func (n *FunctionDeclaration) node()          {}

type Return struct {
	Span  Span
	Value Node
}

func (n *Return) Kind() string   { return "Return" }
func (n *Return) NodeSpan() Span { return n.Span }
func (n *Return) node()          {}

// --- Program ---

type Program struct {
	Span Span
	Body *Block
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }
func (n *Program) node()          {}
