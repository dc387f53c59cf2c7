package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/thomasrohde/uytin/pkg/ast"
	"github.com/thomasrohde/uytin/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceStmtStart   TraceEventType = "stmt_start"
	TraceStmtEnd     TraceEventType = "stmt_end"
	TraceFnCallStart TraceEventType = "fn_call_start"
	TraceFnCallEnd   TraceEventType = "fn_call_end"
	TracePrint       TraceEventType = "print"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	// Output receives one line per executed print. Nil discards output.
	Output io.Writer
	Budget Budget
	Trace  func(event TraceEvent)
	RunID  string
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	// Value is the value of the last top-level statement, or the value
	// carried by a top-level return.
	Value    Value
	Returned bool
	Steps    int64
	MaxDepth int
}

// RuntimeError represents an error raised while evaluating a program.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a diagnostic for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

// completion is the outcome of executing a statement. returning is set
// while a TRA unwinds toward the nearest call boundary or the top level.
type completion struct {
	value     Value
	returning bool
}

func normal(v Value) completion {
	return completion{value: v}
}

type evaluator struct {
	ctx     context.Context
	opts    ExecOptions
	out     io.Writer
	budget  Budget
	tracker BudgetTracker
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span) {
	ev.emitWithData(event, span, nil)
}

func (ev *evaluator) emitWithData(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

func (ev *evaluator) checkContext() error {
	err := ev.ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("time budget exceeded (%v)", err),
		}
	}
	return &RuntimeError{
		Code:    diagnostics.ECancelled,
		Message: fmt.Sprintf("execution cancelled: %v", err),
	}
}

// Execute runs a program against env. Bindings and declarations made by
// the program stay in env, including those committed before an error.
func Execute(ctx context.Context, program *ast.Program, env *Env, opts ExecOptions) (*ExecResult, error) {
	if env == nil {
		env = NewEnv()
	}
	ev := &evaluator{
		ctx:     ctx,
		opts:    opts,
		out:     opts.Output,
		budget:  opts.Budget,
		tracker: newBudgetTracker(),
	}
	if ev.out == nil {
		ev.out = io.Discard
	}

	// Set up context timeout for time budget
	if ev.budget.TimeMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ev.budget.TimeMs)*time.Millisecond)
		defer cancel()
		ev.ctx = ctx
	}

	span := program.Span
	ev.emit(TraceRunStart, &span)

	c, err := ev.execBlock(program.Body, env)

	ev.emitWithData(TraceRunEnd, &span, map[string]any{
		"steps":     ev.tracker.Steps,
		"elapsedMs": ev.tracker.Elapsed().Milliseconds(),
		"maxDepth":  ev.tracker.MaxDepth,
		"returned":  err == nil && c.returning,
		"succeeded": err == nil,
	})

	if err != nil {
		return nil, err
	}

	return &ExecResult{
		Value:    c.value,
		Returned: c.returning,
		Steps:    ev.tracker.Steps,
		MaxDepth: ev.tracker.MaxDepth,
	}, nil
}

// --- Statements ---

func (ev *evaluator) execBlock(block *ast.Block, env *Env) (completion, error) {
	last := normal(NewNothing())
	if block == nil {
		return last, nil
	}

	for _, stmt := range block.Statements {
		if err := ev.checkContext(); err != nil {
			return completion{}, err
		}
		if err := ev.checkTimeBudget(); err != nil {
			return completion{}, err
		}
		if err := ev.checkStepBudget(); err != nil {
			return completion{}, err
		}

		span := stmt.NodeSpan()
		ev.emit(TraceStmtStart, &span)

		c, err := ev.execStmt(stmt, env)
		if err != nil {
			return completion{}, err
		}

		ev.emit(TraceStmtEnd, &span)

		if c.returning {
			return c, nil
		}
		last = c
	}

	return last, nil
}

func (ev *evaluator) execStmt(stmt ast.Node, env *Env) (completion, error) {
	switch s := stmt.(type) {
	case *ast.FunctionDeclaration:
		env.Define(s)
		return normal(NewNothing()), nil

	case *ast.Return:
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return completion{}, err
		}
		return completion{value: val, returning: true}, nil

	case *ast.If:
		return ev.execIf(s, env)

	case *ast.Block:
		return ev.execBlock(s, env)

	case *ast.UnaryOp:
		if err := ev.execPrint(s, env); err != nil {
			return completion{}, err
		}
		return normal(NewNothing()), nil

	default:
		val, err := ev.evalExpr(stmt, env)
		if err != nil {
			return completion{}, err
		}
		return normal(val), nil
	}
}

func (ev *evaluator) execIf(s *ast.If, env *Env) (completion, error) {
	cond, err := ev.evalExpr(s.Cond, env)
	if err != nil {
		return completion{}, err
	}
	truthy, ok := Truthiness(cond)
	if !ok {
		span := s.Cond.NodeSpan()
		return completion{}, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("condition must be a boolean or an integer, got %s", typeNameOf(cond)),
			Span:    &span,
		}
	}
	if truthy {
		return ev.execBlock(s.Then, env)
	}
	if s.Else != nil {
		return ev.execStmt(s.Else, env)
	}
	return normal(NewNothing()), nil
}

func (ev *evaluator) execPrint(s *ast.UnaryOp, env *Env) error {
	span := s.Span
	if s.Op != ast.OpPrint {
		return &RuntimeError{
			Code:    diagnostics.EInternal,
			Message: fmt.Sprintf("unsupported unary operator '%s'", s.Op),
			Span:    &span,
		}
	}
	val, err := ev.evalExpr(s.Operand, env)
	if err != nil {
		return err
	}
	text := val.String()
	if _, err := io.WriteString(ev.out, text+"\n"); err != nil {
		return &RuntimeError{
			Code:    diagnostics.EIO,
			Message: fmt.Sprintf("print failed: %v", err),
			Span:    &span,
		}
	}
	ev.emitWithData(TracePrint, &span, map[string]any{"text": text})
	return nil
}

// --- Expressions ---

func (ev *evaluator) evalExpr(expr ast.Node, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return NewInt(e.Value), nil

	case *ast.StringLiteral:
		return NewStr(strings.ReplaceAll(e.Raw, "'", "")), nil

	case *ast.Variable:
		val, ok := env.Get(e.Name)
		if !ok {
			span := e.Span
			return nil, &RuntimeError{
				Code:    diagnostics.EUndefinedVariable,
				Message: fmt.Sprintf("variable '%s' is not defined", e.Name),
				Span:    &span,
			}
		}
		return val, nil

	case *ast.BinaryOp:
		if e.Op == ast.OpAssign {
			return ev.evalAssign(e, env)
		}
		return ev.evalBinaryOp(e, env)

	case *ast.FunctionCall:
		return ev.evalCall(e, env)

	default:
		span := expr.NodeSpan()
		return nil, &RuntimeError{
			Code:    diagnostics.EInternal,
			Message: fmt.Sprintf("%s cannot be used as a value", expr.Kind()),
			Span:    &span,
		}
	}
}

func (ev *evaluator) evalAssign(e *ast.BinaryOp, env *Env) (Value, error) {
	target, ok := e.Left.(*ast.Variable)
	if !ok {
		span := e.Left.NodeSpan()
		return nil, &RuntimeError{
			Code:    diagnostics.EInvalidAssignment,
			Message: fmt.Sprintf("cannot assign to %s", e.Left.Kind()),
			Span:    &span,
		}
	}
	val, err := ev.evalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}
	env.Set(target.Name, val)
	return val, nil
}

func (ev *evaluator) evalBinaryOp(e *ast.BinaryOp, env *Env) (Value, error) {
	left, err := ev.evalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}

	span := e.Span

	switch e.Op {
	case ast.OpAdd:
		// Int + Int or Str + Str
		if l, ok := left.(Int); ok {
			if r, ok := right.(Int); ok {
				return NewInt(l.Value + r.Value), nil
			}
		}
		if l, ok := left.(Str); ok {
			if r, ok := right.(Str); ok {
				return NewStr(l.Value + r.Value), nil
			}
		}
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("operator '+' requires two integers or two strings, got %s and %s", typeNameOf(left), typeNameOf(right)),
			Span:    &span,
		}

	case ast.OpSub, ast.OpMul, ast.OpDiv:
		l, lOk := left.(Int)
		r, rOk := right.(Int)
		if !lOk || !rOk {
			return nil, &RuntimeError{
				Code:    diagnostics.EType,
				Message: fmt.Sprintf("operator '%s' requires two integers, got %s and %s", e.Op, typeNameOf(left), typeNameOf(right)),
				Span:    &span,
			}
		}
		switch e.Op {
		case ast.OpSub:
			return NewInt(l.Value - r.Value), nil
		case ast.OpMul:
			return NewInt(l.Value * r.Value), nil
		default:
			if r.Value == 0 {
				return nil, &RuntimeError{Code: diagnostics.EDivisionByZero, Message: "division by zero", Span: &span}
			}
			return NewInt(l.Value / r.Value), nil
		}

	case ast.OpEqual:
		eq, ok := Equal(left, right)
		if !ok {
			return nil, &RuntimeError{
				Code:    diagnostics.EType,
				Message: fmt.Sprintf("operator 'UYTIN' requires two values of the same type, got %s and %s", typeNameOf(left), typeNameOf(right)),
				Span:    &span,
			}
		}
		return NewBool(eq), nil

	case ast.OpLess, ast.OpGreater, ast.OpLessEq, ast.OpGreaterEq:
		if l, ok := left.(Int); ok {
			if r, ok := right.(Int); ok {
				return NewBool(compareOrdered(e.Op, l.Value, r.Value)), nil
			}
		}
		if l, ok := left.(Str); ok {
			if r, ok := right.(Str); ok {
				return NewBool(compareOrdered(e.Op, l.Value, r.Value)), nil
			}
		}
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("operator '%s' requires two integers or two strings, got %s and %s", e.Op, typeNameOf(left), typeNameOf(right)),
			Span:    &span,
		}
	}

	return nil, &RuntimeError{
		Code:    diagnostics.EInternal,
		Message: fmt.Sprintf("unknown binary operator '%s'", e.Op),
		Span:    &span,
	}
}

func compareOrdered[T int64 | string](op ast.Operator, l, r T) bool {
	switch op {
	case ast.OpLess:
		return l < r
	case ast.OpGreater:
		return l > r
	case ast.OpLessEq:
		return l <= r
	default:
		return l >= r
	}
}

// evalCall evaluates arguments in the caller's environment and runs the body
// in a fork of it. Only the call's value flows back to the caller.
func (ev *evaluator) evalCall(e *ast.FunctionCall, env *Env) (Value, error) {
	span := e.Span

	decl, ok := env.Function(e.Name)
	if !ok {
		return nil, &RuntimeError{
			Code:    diagnostics.EUndefinedFunction,
			Message: fmt.Sprintf("function '%s' is not defined", e.Name),
			Span:    &span,
		}
	}
	if len(e.Args) != len(decl.Params) {
		return nil, &RuntimeError{
			Code:    diagnostics.EArity,
			Message: fmt.Sprintf("function '%s' expects %d argument(s), got %d", e.Name, len(decl.Params), len(e.Args)),
			Span:    &span,
		}
	}

	args := make([]Value, len(e.Args))
	for i, arg := range e.Args {
		val, err := ev.evalExpr(arg, env)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	if err := ev.enterCall(&span); err != nil {
		return nil, err
	}
	defer ev.exitCall()

	local := env.Fork()
	for i, param := range decl.Params {
		local.Set(param, args[i])
	}

	ev.emitWithData(TraceFnCallStart, &span, map[string]any{"fn": e.Name, "depth": ev.tracker.CallDepth})
	c, err := ev.execBlock(decl.Body, local)
	ev.emitWithData(TraceFnCallEnd, &span, map[string]any{"fn": e.Name, "depth": ev.tracker.CallDepth})
	if err != nil {
		return nil, err
	}
	return c.value, nil
}
