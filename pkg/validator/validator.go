// Package validator implements non-blocking lint checks over uytin programs.
//
// Every finding is a warning. A program that passes the parser always runs,
// because names declared in an earlier run of the same session are not
// visible here unless passed in through Known.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/uytin/pkg/ast"
	"github.com/thomasrohde/uytin/pkg/diagnostics"
)

// Known describes names that exist before the program runs, such as the
// bindings of a REPL session.
type Known struct {
	Vars      []string
	Functions map[string]int // name -> parameter count
}

type scope struct {
	bindings map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]bool), parent: parent}
}

func (s *scope) has(name string) bool {
	if s.bindings[name] {
		return true
	}
	if s.parent != nil {
		return s.parent.has(name)
	}
	return false
}

func (s *scope) add(name string) {
	s.bindings[name] = true
}

type validator struct {
	diags []diagnostics.Diagnostic
	fns   map[string]map[int]bool // declared in this program: name -> arities
	known Known
}

// Validate lints a program on its own.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	return ValidateWith(program, Known{})
}

// ValidateWith lints a program that runs after the names in known exist.
func ValidateWith(program *ast.Program, known Known) []diagnostics.Diagnostic {
	v := &validator{
		fns:   make(map[string]map[int]bool),
		known: known,
	}
	if program == nil || program.Body == nil {
		return nil
	}

	root := newScope(nil)
	for _, name := range known.Vars {
		root.add(name)
	}

	// First pass: collect fn declarations at any depth
	v.collectDecls(program.Body)

	// Second pass: validate each statement
	v.validateBlock(program.Body, root)

	return v.diags
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) collectDecls(n ast.Node) {
	switch s := n.(type) {
	case *ast.Block:
		if s == nil {
			return
		}
		for _, stmt := range s.Statements {
			v.collectDecls(stmt)
		}
	case *ast.If:
		v.collectDecls(s.Then)
		if s.Else != nil {
			v.collectDecls(s.Else)
		}
	case *ast.FunctionDeclaration:
		if v.fns[s.Name] == nil {
			v.fns[s.Name] = make(map[int]bool)
		}
		v.fns[s.Name][len(s.Params)] = true
		v.collectDecls(s.Body)
	}
}

// collectAssigned adds every name assigned in block to sc, following if
// branches but not function bodies. Lookups are flow-insensitive: a read
// is only reported when no assignment to the name exists at all.
func collectAssigned(n ast.Node, sc *scope) {
	switch s := n.(type) {
	case *ast.Block:
		if s == nil {
			return
		}
		for _, stmt := range s.Statements {
			collectAssigned(stmt, sc)
		}
	case *ast.If:
		collectAssigned(s.Then, sc)
		if s.Else != nil {
			collectAssigned(s.Else, sc)
		}
	case *ast.BinaryOp:
		if s.Op == ast.OpAssign {
			if target, ok := s.Left.(*ast.Variable); ok {
				sc.add(target.Name)
			}
		}
	}
}

func (v *validator) validateBlock(block *ast.Block, sc *scope) {
	if block == nil {
		return
	}
	collectAssigned(block, sc)

	returned := false
	for _, stmt := range block.Statements {
		if returned {
			span := stmt.NodeSpan()
			v.addDiag(diagnostics.WUnreachable, "statement is unreachable after TRA", &span, "remove it or move it before the return")
			break
		}
		v.validateStmt(stmt, sc)
		if _, ok := stmt.(*ast.Return); ok {
			returned = true
		}
	}
}

func (v *validator) validateStmt(stmt ast.Node, sc *scope) {
	switch s := stmt.(type) {
	case *ast.FunctionDeclaration:
		// The body runs in a copy of the caller's scope, so caller names
		// stay visible.
		childScope := newScope(sc)
		for _, param := range s.Params {
			childScope.add(param)
		}
		v.validateBlock(s.Body, childScope)

	case *ast.Return:
		v.validateExpr(s.Value, sc)

	case *ast.If:
		v.validateExpr(s.Cond, sc)
		v.validateBlock(s.Then, sc)
		switch e := s.Else.(type) {
		case *ast.If:
			v.validateStmt(e, sc)
		case *ast.Block:
			v.validateBlock(e, sc)
		}

	case *ast.UnaryOp:
		v.validateExpr(s.Operand, sc)

	case *ast.Block:
		v.validateBlock(s, sc)

	default:
		v.validateExpr(stmt, sc)
	}
}

func (v *validator) validateExpr(expr ast.Node, sc *scope) {
	switch e := expr.(type) {
	case *ast.Variable:
		if !sc.has(e.Name) {
			span := e.Span
			v.addDiag(diagnostics.WUnboundVar, fmt.Sprintf("variable '%s' is never assigned", e.Name), &span, "")
		}

	case *ast.BinaryOp:
		if e.Op == ast.OpAssign {
			if _, ok := e.Left.(*ast.Variable); !ok {
				v.validateExpr(e.Left, sc)
			}
			v.validateExpr(e.Right, sc)
			return
		}
		v.validateExpr(e.Left, sc)
		v.validateExpr(e.Right, sc)

	case *ast.FunctionCall:
		for _, arg := range e.Args {
			v.validateExpr(arg, sc)
		}
		v.validateCall(e)

	case *ast.UnaryOp:
		v.validateExpr(e.Operand, sc)
	}
}

func (v *validator) validateCall(e *ast.FunctionCall) {
	span := e.Span
	argc := len(e.Args)

	if arities, ok := v.fns[e.Name]; ok {
		if !arities[argc] {
			v.addDiag(diagnostics.WArity,
				fmt.Sprintf("function '%s' is called with %d argument(s) but declared with %s", e.Name, argc, formatArities(arities)),
				&span, "")
		}
		return
	}

	if want, ok := v.known.Functions[e.Name]; ok {
		if want != argc {
			v.addDiag(diagnostics.WArity,
				fmt.Sprintf("function '%s' is called with %d argument(s) but declared with %d", e.Name, argc, want),
				&span, "")
		}
		return
	}

	v.addDiag(diagnostics.WUnknownFn, fmt.Sprintf("function '%s' is never declared", e.Name), &span, "declare it with THE before calling it")
}

func formatArities(arities map[int]bool) string {
	counts := make([]int, 0, len(arities))
	for n := range arities {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	parts := make([]string, len(counts))
	for i, n := range counts {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " or ")
}
