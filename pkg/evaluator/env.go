package evaluator

import (
	"sort"

	"github.com/thomasrohde/uytin/pkg/ast"
)

// Env holds the variable scope and the function table of one evaluation
// context. It has a single owner at a time: the runtime session at top
// level, or one function call for a forked copy.
type Env struct {
	vars map[string]Value
	fns  map[string]*ast.FunctionDeclaration
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{
		vars: make(map[string]Value),
		fns:  make(map[string]*ast.FunctionDeclaration),
	}
}

// Get looks up a variable by name.
func (e *Env) Get(name string) (Value, bool) {
	val, ok := e.vars[name]
	return val, ok
}

// Set binds a variable, replacing any previous binding.
func (e *Env) Set(name string, val Value) {
	e.vars[name] = val
}

// Function looks up a declared function by name.
func (e *Env) Function(name string) (*ast.FunctionDeclaration, bool) {
	decl, ok := e.fns[name]
	return decl, ok
}

// Define registers a function, overwriting an earlier declaration with the
// same name.
func (e *Env) Define(decl *ast.FunctionDeclaration) {
	e.fns[decl.Name] = decl
}

// Fork returns a copy of the environment for a function call. Changes made
// to the copy are not visible in e.
func (e *Env) Fork() *Env {
	child := &Env{
		vars: make(map[string]Value, len(e.vars)),
		fns:  make(map[string]*ast.FunctionDeclaration, len(e.fns)),
	}
	for k, v := range e.vars {
		child.vars[k] = v
	}
	for k, v := range e.fns {
		child.fns[k] = v
	}
	return child
}

// Names returns the bound variable names in sorted order.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunctionNames returns the declared function names in sorted order.
func (e *Env) FunctionNames() []string {
	names := make([]string, 0, len(e.fns))
	for name := range e.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
