// Package formatter implements the uytin source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/uytin/pkg/ast"
)

const indent = "  "

// precedence ranks binary operators (higher = tighter binding).
// Assignment binds loosest.
func precedence(op ast.Operator) int {
	switch {
	case op.IsComparison():
		return 1
	case op == ast.OpAdd || op == ast.OpSub:
		return 2
	case op == ast.OpMul || op == ast.OpDiv:
		return 3
	}
	return 0
}

func needsParens(child ast.Node, parentOp ast.Operator, isRight bool) bool {
	bin, ok := child.(*ast.BinaryOp)
	if !ok {
		return false
	}
	childPrec := precedence(bin.Op)
	parentPrec := precedence(parentOp)
	if childPrec < parentPrec {
		return true
	}
	// Left-associativity: for same-precedence on right side, add parens
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints a uytin AST back to source code. Comments are not
// part of the AST and are dropped.
func Format(program *ast.Program) string {
	if program == nil || program.Body == nil || len(program.Body.Statements) == 0 {
		return ""
	}
	lines := make([]string, 0, len(program.Body.Statements))
	for _, s := range program.Body.Statements {
		lines = append(lines, formatStmt(s, 0))
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains // comments outside of
// string literals.
func HasComments(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		inString := false
		for i := 0; i < len(line); i++ {
			if line[i] == '\'' {
				inString = !inString
			}
			if !inString && line[i] == '/' && i+1 < len(line) && line[i+1] == '/' {
				return true
			}
		}
	}
	return false
}

func formatStmt(s ast.Node, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.FunctionDeclaration:
		params := strings.Join(stmt.Params, ", ")
		return prefix + "THE " + stmt.Name + "(" + params + ") " + formatBlock(stmt.Body, depth)
	case *ast.If:
		return prefix + formatIf(stmt, depth)
	case *ast.Return:
		// The terminator keeps a following statement that starts with '('
		// from being read as a call.
		return prefix + "TRA " + formatExpr(stmt.Value) + " IM"
	case *ast.UnaryOp:
		return prefix + string(stmt.Op) + " " + formatExpr(stmt.Operand) + " IM"
	case *ast.Block:
		lines := make([]string, len(stmt.Statements))
		for i, inner := range stmt.Statements {
			lines[i] = formatStmt(inner, depth)
		}
		return strings.Join(lines, "\n")
	default:
		return prefix + formatExpr(s) + " IM"
	}
}

func formatIf(stmt *ast.If, depth int) string {
	out := "NEU " + formatExpr(stmt.Cond) + " " + formatBlock(stmt.Then, depth)
	switch e := stmt.Else.(type) {
	case *ast.If:
		out += " KOTHI " + formatIf(e, depth)
	case *ast.Block:
		out += " KOTHI " + formatBlock(e, depth)
	}
	return out
}

// formatBlock renders ME, the statements one level deeper, and MAY at the
// given depth. The opening ME stays on the caller's line.
func formatBlock(block *ast.Block, depth int) string {
	prefix := strings.Repeat(indent, depth)
	if block == nil || len(block.Statements) == 0 {
		return "ME\n" + prefix + "MAY"
	}
	lines := make([]string, len(block.Statements))
	for i, s := range block.Statements {
		lines[i] = formatStmt(s, depth+1)
	}
	return "ME\n" + strings.Join(lines, "\n") + "\n" + prefix + "MAY"
}

func formatExpr(e ast.Node) string {
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		return strconv.FormatInt(expr.Value, 10)
	case *ast.StringLiteral:
		return expr.Raw
	case *ast.Variable:
		return expr.Name
	case *ast.FunctionCall:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a)
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.BinaryOp:
		left := formatExpr(expr.Left)
		if needsParens(expr.Left, expr.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(expr.Right)
		if needsParens(expr.Right, expr.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(expr.Op) + " " + right
	case *ast.UnaryOp:
		return string(expr.Op) + " " + formatExpr(expr.Operand)
	}
	return ""
}
