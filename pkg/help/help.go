// Package help holds the reference text printed by `uytin help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/uytin/pkg/lexer"
)

// Version is the language version reported by the CLI.
const Version = "v0.1"

// QUICKREF is the summary printed by `uytin help` with no topic.
const QUICKREF = `uytin ` + Version + ` quick reference

  x = 1 + 2 IM                 assign (IM ends a statement)
  NOILIENTUC x IM              print a value and a newline
  THE add(a, b) ME TRA a + b MAY
                               declare a function; TRA returns
  NEU x ITHON 3 ME ... MAY KOTHI ME ... MAY
                               if / else
  // comment                   runs to end of line

Commands:
  uytin run <file>             execute a program
  uytin check <file>           parse and lint without running
  uytin fmt <file>             print canonical source
  uytin ast <file>             print the syntax tree
  uytin repl                   interactive session
  uytin config                 print the effective configuration
  uytin help <topic>           show a topic

Topics: syntax, types, functions, flow, budget, diagnostics, config, examples
`

// TopicList fixes the display order of Topics.
var TopicList = []string{"syntax", "types", "functions", "flow", "budget", "diagnostics", "config", "examples"}

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `Syntax

A program is a sequence of statements. Keywords are upper case and
identifiers are lower case ([a-z_][a-z0-9_]*); mixed case is an error.

  IM           statement terminator, optional after ME ... MAY blocks and TRA
  ME / MAY     open / close a block
  NOILIENTUC   print
  NEU / KOTHI  if / else
  THE          function declaration
  TRA          return

Operators, loosest first:
  =                                   assignment (right associative)
  UYTIN ITHON NHIEUHON ITBANG NHIEUBANG   == < > <= >=
  + -
  * /

Literals: integers (123) and single-quoted strings ('text').
`,
	"types": `Types

  integer   64-bit signed; / truncates toward zero
  string    'text'; + concatenates two strings
  boolean   result of a comparison, prints as true / false
  nothing   value of a statement that produces none

Arithmetic needs integers. Ordered comparisons need two integers or two
strings. UYTIN compares any two values of the same type. Anything else is
E_TYPE.
`,
	"functions": `Functions

  THE name(p1, p2) ME body MAY

A declaration binds name for the rest of the session; declaring it again
replaces it. Calls must match the parameter count (E_ARITY).

Arguments are evaluated in the caller. The body runs in a copy of the
caller's variables with the parameters added, so it can read caller
variables but its assignments and nested declarations disappear when it
returns.

The call's value is the TRA value, or the value of the last statement
when the body finishes without TRA.
`,
	"flow": `Control flow

  NEU cond ME ... MAY
  NEU cond ME ... MAY KOTHI ME ... MAY
  NEU cond ME ... MAY KOTHI NEU cond ME ... MAY

The condition must be a boolean or an integer (nonzero is true).
Branches share the surrounding variables.

TRA expr stops the enclosing function. At top level it ends the program
and its value becomes the program result.
`,
	"budget": `Budget

Runs are bounded by three limits, each disabled by 0:

  max_call_depth   nested function calls (default 10000)
  max_steps        statements executed
  time_ms          wall-clock time

Exceeding a limit stops the program with E_BUDGET. Set them in
.uytin.toml under [limits].
`,
	"diagnostics": `Diagnostics

Errors stop a run; warnings come from uytin check and never do.

  E_LEX E_SYNTAX                       source cannot be read
  E_UNDEFINED_VARIABLE E_UNDEFINED_FUNCTION
  E_INVALID_ASSIGNMENT_TARGET E_ARITY E_TYPE E_DIVISION_BY_ZERO
  E_BUDGET E_CANCELLED E_IO E_CONFIG E_INTERNAL
  W_UNREACHABLE W_ARITY W_UNKNOWN_FN W_UNBOUND_VAR

Exit codes: 0 ok, 1 usage or I/O, 2 lex/syntax, 4 runtime.
Pass --pretty for human-readable output instead of JSON.
`,
	"config": `Configuration

The first file found wins:

  ./.uytin.toml
  ./.uytin.yaml
  ~/.uytin/config.toml

  [limits]
  max_call_depth = 10000
  max_steps = 0
  time_ms = 0

  [output]
  pretty = false

  [repl]
  history_file = "~/.uytin/history"
  prompt = "uytin> "
`,
	"examples": `Examples

  THE fact(n) ME
    NEU n ITBANG 1 ME TRA 1 MAY
    TRA n * fact(n - 1)
  MAY
  NOILIENTUC fact(10) IM

  greeting = 'xin ' + 'chao' IM
  NOILIENTUC greeting IM
`,
}

// MatchTopic resolves an exact topic name or an unambiguous prefix.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if q != "" && strings.HasPrefix(name, q) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q (topics: %s)", query, strings.Join(TopicList, ", "))
	default:
		return "", "", fmt.Errorf("ambiguous help topic %q matches %s", query, strings.Join(matches, ", "))
	}
}

// KeywordIndex lists every reserved word in alphabetical order.
func KeywordIndex() string {
	words := make([]string, 0, len(lexer.Keywords))
	for w := range lexer.Keywords {
		words = append(words, w)
	}
	sort.Strings(words)

	var b strings.Builder
	b.WriteString("Keywords:\n")
	for _, w := range words {
		fmt.Fprintf(&b, "  %s\n", w)
	}
	fmt.Fprintf(&b, "Total: %d keywords\n", len(words))
	return b.String()
}
