package evaluator

import (
	"fmt"
	"time"

	"github.com/thomasrohde/uytin/pkg/ast"
	"github.com/thomasrohde/uytin/pkg/diagnostics"
)

// Budget holds the resource limits for a program execution.
// A zero field means no limit.
type Budget struct {
	MaxCallDepth int
	MaxSteps     int64
	TimeMs       int64
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Steps     int64
	CallDepth int
	MaxDepth  int
	start     time.Time
}

func newBudgetTracker() BudgetTracker {
	return BudgetTracker{start: time.Now()}
}

// Elapsed returns the time since the run started.
func (t *BudgetTracker) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (ev *evaluator) checkTimeBudget() error {
	if ev.budget.TimeMs > 0 {
		if ev.tracker.Elapsed().Milliseconds() >= ev.budget.TimeMs {
			return &RuntimeError{
				Code:    diagnostics.EBudget,
				Message: fmt.Sprintf("time budget exceeded (%dms)", ev.budget.TimeMs),
			}
		}
	}
	return nil
}

func (ev *evaluator) checkStepBudget() error {
	ev.tracker.Steps++
	if ev.budget.MaxSteps > 0 && ev.tracker.Steps > ev.budget.MaxSteps {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("step budget exceeded (max %d)", ev.budget.MaxSteps),
		}
	}
	return nil
}

func (ev *evaluator) enterCall(span *ast.Span) error {
	ev.tracker.CallDepth++
	if ev.tracker.CallDepth > ev.tracker.MaxDepth {
		ev.tracker.MaxDepth = ev.tracker.CallDepth
	}
	if ev.budget.MaxCallDepth > 0 && ev.tracker.CallDepth > ev.budget.MaxCallDepth {
		ev.tracker.CallDepth--
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("call depth budget exceeded (max %d)", ev.budget.MaxCallDepth),
			Span:    span,
		}
	}
	return nil
}

func (ev *evaluator) exitCall() {
	ev.tracker.CallDepth--
}
