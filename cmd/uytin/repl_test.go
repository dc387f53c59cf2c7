package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/uytin/pkg/config"
	"github.com/thomasrohde/uytin/pkg/runtime"
)

// scriptedInput replays lines and then reports io.EOF.
type scriptedInput struct {
	lines   []string
	prompts []string
}

func (s *scriptedInput) Prompt(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func runREPL(t *testing.T, lines ...string) (string, string, *scriptedInput, []string) {
	t.Helper()
	var out, errOut bytes.Buffer
	in := &scriptedInput{lines: lines}
	var history []string
	r := &repl{
		in:      in,
		out:     &out,
		errOut:  &errOut,
		prompt:  "uytin> ",
		history: func(s string) { history = append(history, s) },
	}
	r.rt = runtime.New(runtime.WithOutput(&out))
	r.loop()
	return out.String(), errOut.String(), in, history
}

func TestREPLSessionState(t *testing.T) {
	out, errOut, _, _ := runREPL(t,
		"x = 20 IM",
		"THE inc(n) ME TRA n + 1 MAY",
		"inc(x) IM",
		"NOILIENTUC 'ok' IM",
	)
	if errOut != "" {
		t.Errorf("stderr = %q", errOut)
	}
	// Assignment yields 20; the declaration and print yield nothing.
	if out != "20\n21\nok\n\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestREPLMultiLine(t *testing.T) {
	out, _, in, history := runREPL(t,
		"THE sq(n) ME",
		"  TRA n * n",
		"MAY",
		"sq(4) IM",
	)
	if out != "16\n\n" {
		t.Errorf("stdout = %q", out)
	}
	want := []string{"uytin> ", replContinue, replContinue, "uytin> ", "uytin> "}
	if strings.Join(in.prompts, "|") != strings.Join(want, "|") {
		t.Errorf("prompts = %q", in.prompts)
	}
	if len(history) != 2 || history[0] != "THE sq(n) ME   TRA n * n MAY" {
		t.Errorf("history = %q", history)
	}
}

func TestREPLBlankLineSubmitsIncompleteInput(t *testing.T) {
	_, errOut, _, _ := runREPL(t, "x = 1", "", "x = 2 IM")
	if !strings.Contains(errOut, "E_SYNTAX") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestREPLErrorsDoNotEndSession(t *testing.T) {
	out, errOut, _, _ := runREPL(t, "a = 1 IM", "1 / 0 IM", "a + 1 IM")
	if !strings.Contains(errOut, "E_DIVISION_BY_ZERO") {
		t.Errorf("stderr = %q", errOut)
	}
	if out != "1\n2\n\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestREPLCommands(t *testing.T) {
	out, errOut, in, _ := runREPL(t,
		"x = 1 IM",
		":env",
		":reset",
		":env",
		":bogus",
		":quit",
		"x IM",
	)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("stdout = %q", out)
	}

	var env struct {
		Vars map[string]any `json:"vars"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &env); err != nil {
		t.Fatal(err)
	}
	if env.Vars["x"] != float64(1) {
		t.Errorf("env = %s", lines[1])
	}
	if lines[2] != "session cleared" {
		t.Errorf("reset line = %q", lines[2])
	}
	var after struct {
		Vars map[string]any `json:"vars"`
	}
	if err := json.Unmarshal([]byte(lines[3]), &after); err != nil || len(after.Vars) != 0 {
		t.Errorf("env after reset = %s", lines[3])
	}
	if !strings.Contains(errOut, "unknown command :bogus") {
		t.Errorf("stderr = %q", errOut)
	}
	// :quit stops before the last line is read.
	if len(in.lines) != 1 {
		t.Errorf("remaining input = %q", in.lines)
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := config.Defaults()
	if got := historyPath(cfg, "/home/u"); got != filepath.Join("/home/u", ".uytin", "history") {
		t.Errorf("default = %q", got)
	}
	if got := historyPath(cfg, ""); got != "" {
		t.Errorf("no home = %q", got)
	}
	cfg.REPL.HistoryFile = "~/h.txt"
	if got := historyPath(cfg, "/home/u"); got != filepath.Join("/home/u", "h.txt") {
		t.Errorf("tilde = %q", got)
	}
	cfg.REPL.HistoryFile = "/abs/h"
	if got := historyPath(cfg, "/home/u"); got != "/abs/h" {
		t.Errorf("absolute = %q", got)
	}
}
