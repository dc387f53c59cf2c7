// Package diagnostics defines uytin diagnostic types for lex, parse, lint and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/uytin/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex    = "E_LEX"
	ESyntax = "E_SYNTAX"

	EUndefinedVariable = "E_UNDEFINED_VARIABLE"
	EUndefinedFunction = "E_UNDEFINED_FUNCTION"
	EInvalidAssignment = "E_INVALID_ASSIGNMENT_TARGET"
	EArity             = "E_ARITY"
	EType              = "E_TYPE"
	EDivisionByZero    = "E_DIVISION_BY_ZERO"
	EBudget            = "E_BUDGET"
	ECancelled         = "E_CANCELLED"
	EInternal          = "E_INTERNAL"
	EIO                = "E_IO"
	EConfig            = "E_CONFIG"

	WUnreachable = "W_UNREACHABLE"
	WArity       = "W_ARITY"
	WUnknownFn   = "W_UNKNOWN_FN"
	WUnboundVar  = "W_UNBOUND_VAR"
)

// Diagnostic represents a lex, parse, lint, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// IsWarning reports whether the diagnostic is advisory only.
func (d Diagnostic) IsWarning() bool {
	return strings.HasPrefix(d.Code, "W_")
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	severity := "error"
	if d.IsWarning() {
		severity = "warning"
	}
	out := fmt.Sprintf("%s[%s]: %s\n  --> %s", severity, d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
