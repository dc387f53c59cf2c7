package parser_test

import (
	"testing"

	"github.com/thomasrohde/uytin/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; invalid input yields an error.
func FuzzParse(f *testing.F) {
	// Seed corpus with valid and edge-case programs
	seeds := []string{
		// Minimal valid program
		`42 IM`,
		// Assignment
		`x = 1 IM
NOILIENTUC x IM`,
		// Arithmetic
		`NOILIENTUC 2 + 3 * 4 IM`,
		`NOILIENTUC (2 + 3) * 4 IM`,
		// Comparison
		`NOILIENTUC 1 ITHON 2 IM`,
		`a UYTIN b IM`,
		// Strings
		`NOILIENTUC 'xin' + ' chao' IM`,
		// If / else-if / else
		`NEU x ITHON 1 ME NOILIENTUC 'a' IM MAY KOTHI NEU x UYTIN 1 ME NOILIENTUC 'b' IM MAY KOTHI ME NOILIENTUC 'c' IM MAY`,
		// Function declaration and call
		`THE add(a, b) ME TRA a + b MAY
NOILIENTUC add(2, 3) IM`,
		// Recursion
		`THE fact(n) ME NEU n ITBANG 1 ME TRA 1 MAY TRA n * fact(n - 1) MAY
fact(5) IM`,
		// Top-level return
		`TRA 7 IM`,
		// Comments
		`// comment
x = 1 IM // trailing`,
		// Empty program
		``,
		// Just whitespace
		`   `,
		// Unclosed block
		`NEU 1 ME`,
		// Unclosed paren
		`(1 + 2`,
		// Unterminated string
		`'hello`,
		// Missing terminator
		`x = 1`,
		// Duplicate params
		`THE f(a, a) ME MAY`,
		// Assignment to literal
		`5 = 3 IM`,
		// Dangling else
		`KOTHI ME MAY`,
		// Overflow
		`99999999999999999999999 IM`,
		// Deep nesting
		`((((((((((1)))))))))) IM`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		// parser.Parse should never panic, regardless of input.
		// It may return an error or a nil program, but should not crash.
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("parser.Parse panicked on input %q: %v", input, r)
				}
			}()
			parser.Parse(input, "fuzz.ut")
		}()
	})
}
