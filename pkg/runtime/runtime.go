// Package runtime provides the top-level uytin session orchestrator.
//
// A Runtime owns one environment. Every Run executes against it, so
// variables and functions defined by one run are visible to the next, the
// way a REPL session behaves.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/thomasrohde/uytin/pkg/ast"
	"github.com/thomasrohde/uytin/pkg/config"
	"github.com/thomasrohde/uytin/pkg/diagnostics"
	"github.com/thomasrohde/uytin/pkg/evaluator"
	"github.com/thomasrohde/uytin/pkg/formatter"
	"github.com/thomasrohde/uytin/pkg/lexer"
	"github.com/thomasrohde/uytin/pkg/parser"
	"github.com/thomasrohde/uytin/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	RunID    string
	Value    evaluator.Value
	Returned bool
	Steps    int64
	MaxDepth int
}

// Runtime wires together the uytin components for program execution.
type Runtime struct {
	env    *evaluator.Env
	output io.Writer
	budget evaluator.Budget
	runID  string
	trace  func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithOutput sets where print statements write. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.output = w
	}
}

// WithBudget sets the execution limits applied to every run.
func WithBudget(b evaluator.Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithConfig applies the limits from a loaded configuration.
func WithConfig(cfg config.Config) Option {
	return func(rt *Runtime) {
		rt.budget = cfg.Budget()
	}
}

// WithRunID fixes the run ID for trace events. Without it every run gets
// a fresh UUID.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// New creates a new Runtime with an empty environment.
// By default output goes to stdout and the call depth is capped at
// config.DefaultMaxCallDepth.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		env:    evaluator.NewEnv(),
		output: os.Stdout,
		budget: config.Defaults().Budget(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Env exposes the session environment.
func (rt *Runtime) Env() *evaluator.Env {
	return rt.env
}

// Reset discards every variable and function in the session.
func (rt *Runtime) Reset() {
	rt.env = evaluator.NewEnv()
}

// Parse parses source, converting lex and syntax failures into a
// *DiagnosticError.
func Parse(source, filename string) (*ast.Program, error) {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return nil, toDiagnosticError(err)
	}
	return program, nil
}

// Run parses and executes a uytin program against the session environment.
// Lint warnings never block execution. Errors are *DiagnosticError for
// lex and syntax failures and *evaluator.RuntimeError for runtime failures.
// Assignments and declarations made before a runtime error are kept.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, err := Parse(source, filename)
	if err != nil {
		return nil, err
	}
	return rt.Exec(ctx, program)
}

// Exec executes an already parsed program against the session environment.
func (rt *Runtime) Exec(ctx context.Context, program *ast.Program) (*Result, error) {
	runID := rt.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	res, err := evaluator.Execute(ctx, program, rt.env, evaluator.ExecOptions{
		Output: rt.output,
		Budget: rt.budget,
		Trace:  rt.trace,
		RunID:  runID,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		RunID:    runID,
		Value:    res.Value,
		Returned: res.Returned,
		Steps:    res.Steps,
		MaxDepth: res.MaxDepth,
	}, nil
}

// Check parses and lints a program without executing it. Names already
// bound in the session count as known.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, err := Parse(source, filename)
	if err != nil {
		var de *DiagnosticError
		if errors.As(err, &de) {
			return de.Diagnostics
		}
		return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EInternal, err.Error(), nil, "")}
	}
	return validator.ValidateWith(program, rt.known())
}

func (rt *Runtime) known() validator.Known {
	fns := make(map[string]int)
	for _, name := range rt.env.FunctionNames() {
		if decl, ok := rt.env.Function(name); ok {
			fns[name] = len(decl.Params)
		}
	}
	return validator.Known{Vars: rt.env.Names(), Functions: fns}
}

// Format parses and formats a uytin program.
func Format(source, filename string) (string, error) {
	program, err := Parse(source, filename)
	if err != nil {
		return "", err
	}
	return formatter.Format(program), nil
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
	// Incomplete is set when the source ended before a construct was
	// closed, so more input could make it valid.
	Incomplete bool
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

func toDiagnosticError(err error) error {
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{lexErr.Diag}}
	}
	var synErr *parser.SyntaxError
	if errors.As(err, &synErr) {
		return &DiagnosticError{
			Diagnostics: []diagnostics.Diagnostic{synErr.Diag},
			Incomplete:  synErr.AtEOF(),
		}
	}
	return err
}

// Diagnostics extracts diagnostics from any error returned by this
// package. Unknown errors become E_INTERNAL.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Diagnostics
	}
	var re *evaluator.RuntimeError
	if errors.As(err, &re) {
		return []diagnostics.Diagnostic{re.Diagnostic()}
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EInternal, err.Error(), nil, "")}
}
