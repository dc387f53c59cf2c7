package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/uytin/pkg/diagnostics"
)

type harness struct {
	cli    *cli
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	var stdout, stderr bytes.Buffer
	dir := t.TempDir()
	return &harness{
		cli: &cli{
			stdin:      strings.NewReader(""),
			stdout:     &stdout,
			stderr:     &stderr,
			projectDir: dir,
			homeDir:    t.TempDir(),
		},
		stdout: &stdout,
		stderr: &stderr,
		dir:    dir,
	}
}

func (h *harness) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (h *harness) run(args ...string) int {
	return h.cli.run(args)
}

func decodeDiags(t *testing.T, s string) []diagnostics.Diagnostic {
	t.Helper()
	var diags []diagnostics.Diagnostic
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &diags); err != nil {
		t.Fatalf("stderr is not a diagnostics array: %v\n%s", err, s)
	}
	return diags
}

// --- dispatch ---

func TestNoArgs(t *testing.T) {
	h := newHarness(t)
	if code := h.run(); code != exitUsage {
		t.Errorf("exit = %d", code)
	}
	if code := h.run("bogus"); code != exitUsage {
		t.Errorf("exit = %d", code)
	}
}

// --- run ---

func TestRunPrintsOutputThenValue(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", heredoc.Doc(`
		THE sq(n) ME TRA n * n MAY
		NOILIENTUC 'hi' IM
		sq(7) IM
	`))
	if code := h.run("run", file); code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, h.stderr)
	}
	if h.stdout.String() != "hi\n49\n" {
		t.Errorf("stdout = %q", h.stdout.String())
	}
}

func TestRunNothingPrintsNoValue(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", "NOILIENTUC 1 IM")
	if code := h.run("run", file); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if h.stdout.String() != "1\n" {
		t.Errorf("stdout = %q", h.stdout.String())
	}
}

func TestRunStdin(t *testing.T) {
	h := newHarness(t)
	h.cli.stdin = strings.NewReader("'a' + 'b' IM")
	if code := h.run("run", "-"); code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, h.stderr)
	}
	if h.stdout.String() != "\"ab\"\n" {
		t.Errorf("stdout = %q", h.stdout.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		exit int
		code string
	}{
		{"lex", "x = 1 $ IM", exitDiag, diagnostics.ELex},
		{"syntax", "x = (1 IM", exitDiag, diagnostics.ESyntax},
		{"runtime", "NOILIENTUC y IM", exitRuntime, diagnostics.EUndefinedVariable},
		{"division", "1 / 0 IM", exitRuntime, diagnostics.EDivisionByZero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			file := h.write(t, "p.ut", tt.src)
			if code := h.run("run", file); code != tt.exit {
				t.Fatalf("exit = %d, want %d", code, tt.exit)
			}
			diags := decodeDiags(t, h.stderr.String())
			if len(diags) != 1 || diags[0].Code != tt.code {
				t.Errorf("diags = %+v", diags)
			}
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	h := newHarness(t)
	if code := h.run("run", filepath.Join(h.dir, "missing.ut")); code != exitUsage {
		t.Errorf("exit = %d", code)
	}
	if !strings.Contains(h.stderr.String(), diagnostics.EIO) {
		t.Errorf("stderr = %s", h.stderr)
	}
}

func TestRunPretty(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", "x IM")
	if code := h.run("run", file, "--pretty"); code != exitRuntime {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(h.stderr.String(), "error[E_UNDEFINED_VARIABLE]") {
		t.Errorf("stderr = %s", h.stderr)
	}
}

func TestRunUsesConfigLimits(t *testing.T) {
	h := newHarness(t)
	h.write(t, ".uytin.toml", "[limits]\nmax_steps = 2\n")
	file := h.write(t, "p.ut", "1 IM 2 IM 3 IM")
	if code := h.run("run", file); code != exitRuntime {
		t.Fatalf("exit = %d", code)
	}
	if diags := decodeDiags(t, h.stderr.String()); diags[0].Code != diagnostics.EBudget {
		t.Errorf("diags = %+v", diags)
	}
}

func TestRunBadConfig(t *testing.T) {
	h := newHarness(t)
	h.write(t, ".uytin.toml", "[limits\n")
	file := h.write(t, "p.ut", "1 IM")
	if code := h.run("run", file); code != exitUsage {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(h.stderr.String(), diagnostics.EConfig) {
		t.Errorf("stderr = %s", h.stderr)
	}
}

func TestRunTraceAndSummary(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", heredoc.Doc(`
		THE f(n) ME NEU n ITBANG 0 ME TRA 0 MAY TRA f(n - 1) MAY
		NOILIENTUC f(2) IM
	`))
	tracePath := filepath.Join(h.dir, "trace.jsonl")
	if code := h.run("run", file, "--trace", tracePath); code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, h.stderr)
	}

	h.stdout.Reset()
	if code := h.run("trace", tracePath); code != exitOK {
		t.Fatalf("trace exit = %d", code)
	}
	var summary TraceSummary
	if err := json.Unmarshal(h.stdout.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.FunctionCalls != 3 || summary.CallsByName["f"] != 3 || summary.MaxDepth != 3 {
		t.Errorf("calls = %d by name %v depth %d", summary.FunctionCalls, summary.CallsByName, summary.MaxDepth)
	}
	if summary.Prints != 1 || summary.RunID == "" || summary.Succeeded == nil || !*summary.Succeeded {
		t.Errorf("summary = %+v", summary)
	}

	h.stdout.Reset()
	if code := h.run("trace", tracePath, "--text"); code != exitOK {
		t.Fatalf("trace exit = %d", code)
	}
	if !strings.Contains(h.stdout.String(), "  f: 3\n") {
		t.Errorf("text summary = %s", h.stdout)
	}
}

func TestTraceSkipsInvalidLines(t *testing.T) {
	summary := computeTraceSummary(strings.NewReader("not json\n\n{\"event\":\"print\",\"runId\":\"r\"}\n"))
	if summary.TotalEvents != 1 || summary.Prints != 1 || summary.RunID != "r" {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunTraceWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full on this system")
	}
	h := newHarness(t)
	file := h.write(t, "p.ut", "NOILIENTUC 1 IM")
	if code := h.run("run", file, "--trace", "/dev/full"); code != exitUsage {
		t.Fatalf("exit = %d, stderr = %s", code, h.stderr)
	}
	// The program itself still ran.
	if h.stdout.String() != "1\n" {
		t.Errorf("stdout = %q", h.stdout)
	}
	diags := decodeDiags(t, h.stderr.String())
	if len(diags) != 1 || diags[0].Code != diagnostics.EIO || !strings.Contains(diags[0].Message, "cannot write trace file") {
		t.Errorf("diags = %+v", diags)
	}
}

func TestRunTraceFailedRunClosesCalls(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", heredoc.Doc(`
		THE f() ME TRA 1 / 0 MAY
		f() IM
	`))
	tracePath := filepath.Join(h.dir, "trace.jsonl")
	if code := h.run("run", file, "--trace", tracePath); code != exitRuntime {
		t.Fatalf("exit = %d, stderr = %s", code, h.stderr)
	}

	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatal(err)
	}
	var starts, ends int
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatal(err)
		}
		switch ev.Event {
		case "fn_call_start":
			starts++
		case "fn_call_end":
			ends++
		}
	}
	if starts != 1 || ends != 1 {
		t.Errorf("fn_call_start = %d, fn_call_end = %d", starts, ends)
	}
}

func TestRunTraceNeedsPath(t *testing.T) {
	h := newHarness(t)
	if code := h.run("run", "p.ut", "--trace"); code != exitUsage {
		t.Errorf("exit = %d", code)
	}
}

// --- check ---

func TestCheck(t *testing.T) {
	h := newHarness(t)
	clean := h.write(t, "clean.ut", "x = 1 IM NOILIENTUC x IM")
	if code := h.run("check", clean); code != exitOK || strings.TrimSpace(h.stdout.String()) != "[]" {
		t.Errorf("clean: exit %d stdout %q", code, h.stdout.String())
	}

	h.stdout.Reset()
	warn := h.write(t, "warn.ut", "nope() IM")
	if code := h.run("check", warn); code != exitOK {
		t.Errorf("warnings should not fail check, exit %d", code)
	}
	if diags := decodeDiags(t, h.stderr.String()); len(diags) != 1 || diags[0].Code != diagnostics.WUnknownFn {
		t.Errorf("diags = %+v", diags)
	}

	h.stderr.Reset()
	bad := h.write(t, "bad.ut", "THE f( ME MAY")
	if code := h.run("check", bad); code != exitDiag {
		t.Errorf("syntax error exit = %d", code)
	}
}

// --- fmt ---

func TestFmt(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", "x=1 IM NOILIENTUC x*2 IM // note\n")
	if code := h.run("fmt", file); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if h.stdout.String() != "x = 1 IM\nNOILIENTUC x * 2 IM\n" {
		t.Errorf("stdout = %q", h.stdout.String())
	}
	if !strings.Contains(h.stderr.String(), "comments are not preserved") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestFmtDiff(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", "x=1 IM\n")
	if code := h.run("fmt", file, "--diff"); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	out := h.stdout.String()
	if !strings.Contains(out, "-x=1 IM") || !strings.Contains(out, "+x = 1 IM") {
		t.Errorf("diff = %s", out)
	}

	h.stdout.Reset()
	canonical := h.write(t, "c.ut", "x = 1 IM\n")
	h.run("fmt", canonical, "--diff")
	if h.stdout.Len() != 0 {
		t.Errorf("canonical file should produce no diff, got %s", h.stdout)
	}
}

func TestFmtWrite(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", "NEU 1 ME x=2 IM MAY")
	if code := h.run("fmt", file, "--write"); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	got, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "NEU 1 ME\n  x = 2 IM\nMAY\n" {
		t.Errorf("file = %q", got)
	}
}

func TestFmtSyntaxError(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", "x = IM")
	if code := h.run("fmt", file); code != exitDiag {
		t.Errorf("exit = %d", code)
	}
}

// --- ast ---

func TestASTJSONAndYAML(t *testing.T) {
	h := newHarness(t)
	file := h.write(t, "p.ut", "x = 1 + 2 IM")

	if code := h.run("ast", file); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	var tree map[string]any
	if err := json.Unmarshal(h.stdout.Bytes(), &tree); err != nil {
		t.Fatal(err)
	}
	if tree["kind"] != "Program" {
		t.Errorf("kind = %v", tree["kind"])
	}

	h.stdout.Reset()
	if code := h.run("ast", file, "--yaml"); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	var ytree map[string]any
	if err := yaml.Unmarshal(h.stdout.Bytes(), &ytree); err != nil {
		t.Fatal(err)
	}
	if ytree["kind"] != "Program" {
		t.Errorf("kind = %v", ytree["kind"])
	}
}

// --- config / help ---

func TestConfigCommand(t *testing.T) {
	h := newHarness(t)
	if code := h.run("config"); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(h.stdout.String(), "# source: defaults") || !strings.Contains(h.stdout.String(), "max_call_depth = 10000") {
		t.Errorf("stdout = %s", h.stdout)
	}

	h.stdout.Reset()
	h.write(t, ".uytin.yaml", "output:\n  pretty: true\n")
	if code := h.run("config", "--yaml"); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(h.stdout.String(), "pretty: true") {
		t.Errorf("stdout = %s", h.stdout)
	}
}

func TestHelp(t *testing.T) {
	h := newHarness(t)
	if code := h.run("help"); code != exitOK || !strings.Contains(h.stdout.String(), "quick reference") {
		t.Errorf("help: exit %d", code)
	}
	h.stdout.Reset()
	if code := h.run("help", "diag"); code != exitOK || !strings.Contains(h.stdout.String(), "E_TYPE") {
		t.Errorf("help diag: exit %d", code)
	}
	h.stdout.Reset()
	if code := h.run("help", "--index"); code != exitOK || !strings.Contains(h.stdout.String(), "NOILIENTUC") {
		t.Errorf("help --index: exit %d", code)
	}
	if code := h.run("help", "zzz"); code != exitUsage {
		t.Errorf("unknown topic exit = %d", code)
	}
}
