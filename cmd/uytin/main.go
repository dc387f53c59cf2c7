// Command uytin is the uytin interpreter CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/uytin/pkg/ast"
	"github.com/thomasrohde/uytin/pkg/config"
	"github.com/thomasrohde/uytin/pkg/diagnostics"
	"github.com/thomasrohde/uytin/pkg/evaluator"
	"github.com/thomasrohde/uytin/pkg/formatter"
	"github.com/thomasrohde/uytin/pkg/help"
	"github.com/thomasrohde/uytin/pkg/runtime"
)

const (
	exitOK      = 0
	exitUsage   = 1
	exitDiag    = 2
	exitRuntime = 4
)

// cli carries the process streams and directories so commands can be
// driven from tests.
type cli struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	projectDir string
	homeDir    string
}

func main() {
	cwd, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	c := &cli{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		projectDir: cwd,
		homeDir:    home,
	}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.stderr, "usage: uytin <command> [options]")
		fmt.Fprintln(c.stderr, "commands: run, check, fmt, ast, repl, trace, config, help")
		return exitUsage
	}

	cmd := args[0]
	switch cmd {
	case "run":
		return c.cmdRun(args[1:])
	case "check":
		return c.cmdCheck(args[1:])
	case "fmt":
		return c.cmdFmt(args[1:])
	case "ast":
		return c.cmdAST(args[1:])
	case "repl":
		return c.cmdRepl(args[1:])
	case "trace":
		return c.cmdTrace(args[1:])
	case "config":
		return c.cmdConfig(args[1:])
	case "help", "--help", "-h":
		return c.cmdHelp(args[1:])
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n", cmd)
		return exitUsage
	}
}

func (c *cli) loadConfig(pretty bool) (config.Config, bool) {
	cfg, _, err := config.Load(c.projectDir, c.homeDir)
	if err != nil {
		c.printDiags([]diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")}, pretty)
		return config.Config{}, false
	}
	return cfg, true
}

func (c *cli) cmdRun(args []string) int {
	var file, tracePath string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--trace":
			if i+1 >= len(args) {
				fmt.Fprintln(c.stderr, "error: --trace requires a file path")
				return exitUsage
			}
			i++
			tracePath = args[i]
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: uytin run <file|-> [--pretty] [--trace <file.jsonl>]")
		return exitUsage
	}

	cfg, ok := c.loadConfig(pretty)
	if !ok {
		return exitUsage
	}
	pretty = pretty || cfg.Output.Pretty

	source, filename, exitCode := c.readSource(file, pretty)
	if exitCode != exitOK {
		return exitCode
	}

	opts := []runtime.Option{runtime.WithOutput(c.stdout), runtime.WithConfig(cfg)}
	var traceFile *os.File
	var traceErr error
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			c.printDiags([]diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot create trace file: %s", tracePath), nil, "")}, pretty)
			return exitUsage
		}
		traceFile = f
		enc := json.NewEncoder(f)
		opts = append(opts, runtime.WithTrace(func(ev evaluator.TraceEvent) {
			// Keep the first failure; later events are dropped.
			if traceErr == nil {
				traceErr = enc.Encode(ev)
			}
		}))
	}
	rt := runtime.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := rt.Run(ctx, source, filename)

	if traceFile != nil {
		if closeErr := traceFile.Close(); traceErr == nil {
			traceErr = closeErr
		}
		if traceErr != nil {
			c.printDiags([]diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot write trace file %s: %s", tracePath, traceErr), nil, "")}, pretty)
			if err == nil {
				return exitUsage
			}
		}
	}
	if err != nil {
		return c.reportError(err, pretty)
	}

	if !evaluator.IsNothing(result.Value) {
		b, err := evaluator.ValueToJSON(result.Value)
		if err != nil {
			fmt.Fprintf(c.stderr, "error serializing result: %s\n", err)
			return exitRuntime
		}
		fmt.Fprintln(c.stdout, string(b))
	}
	return exitOK
}

func (c *cli) cmdCheck(args []string) int {
	var file string
	pretty := false

	for _, arg := range args {
		switch arg {
		case "--pretty":
			pretty = true
		default:
			if arg == "-" || !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: uytin check <file|-> [--pretty]")
		return exitUsage
	}

	source, filename, exitCode := c.readSource(file, pretty)
	if exitCode != exitOK {
		return exitCode
	}

	diags := runtime.New().Check(source, filename)
	if len(diags) == 0 {
		if pretty {
			fmt.Fprintln(c.stdout, "No problems found.")
		} else {
			fmt.Fprintln(c.stdout, "[]")
		}
		return exitOK
	}

	c.printDiags(diags, pretty)
	for _, d := range diags {
		if !d.IsWarning() {
			return exitDiag
		}
	}
	return exitOK
}

func (c *cli) cmdFmt(args []string) int {
	var file string
	write := false
	diff := false

	for _, arg := range args {
		switch arg {
		case "--write":
			write = true
		case "--diff":
			diff = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" || (write && diff) {
		fmt.Fprintln(c.stderr, "usage: uytin fmt <file> [--write | --diff]")
		return exitUsage
	}

	source, _, exitCode := c.readSource(file, false)
	if exitCode != exitOK {
		return exitCode
	}

	formatted, err := runtime.Format(source, file)
	if err != nil {
		return c.reportError(err, false)
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(c.stderr, "warning: comments are not preserved by the formatter")
	}

	switch {
	case write:
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(c.stderr, "error writing file: %s\n", err)
			return exitUsage
		}
	case diff:
		fmt.Fprint(c.stdout, udiff.Unified(file, file+" (formatted)", source, formatted))
	default:
		fmt.Fprint(c.stdout, formatted)
	}
	return exitOK
}

func (c *cli) cmdAST(args []string) int {
	var file string
	asYAML := false

	for _, arg := range args {
		switch arg {
		case "--yaml":
			asYAML = true
		default:
			if arg == "-" || !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: uytin ast <file|-> [--yaml]")
		return exitUsage
	}

	source, filename, exitCode := c.readSource(file, false)
	if exitCode != exitOK {
		return exitCode
	}

	program, err := runtime.Parse(source, filename)
	if err != nil {
		return c.reportError(err, false)
	}

	tree := ast.Dump(program)
	var out []byte
	if asYAML {
		out, err = yaml.Marshal(tree)
	} else {
		out, err = json.MarshalIndent(tree, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "error serializing AST: %s\n", err)
		return exitUsage
	}
	_, _ = c.stdout.Write(out)
	return exitOK
}

func (c *cli) cmdConfig(args []string) int {
	format := config.FormatTOML
	for _, arg := range args {
		if arg == "--yaml" {
			format = config.FormatYAML
		}
	}

	cfg, src, err := config.Load(c.projectDir, c.homeDir)
	if err != nil {
		c.printDiags([]diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")}, true)
		return exitUsage
	}

	out, err := config.Marshal(cfg, format)
	if err != nil {
		fmt.Fprintf(c.stderr, "error serializing config: %s\n", err)
		return exitUsage
	}
	origin := "defaults"
	if src.Path != "" {
		origin = src.Path
	}
	fmt.Fprintf(c.stdout, "# source: %s\n", origin)
	_, _ = c.stdout.Write(out)
	return exitOK
}

func (c *cli) cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		fmt.Fprint(c.stdout, help.KeywordIndex())
		return exitOK
	}

	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return exitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitUsage
	}
	fmt.Fprint(c.stdout, content)
	return exitOK
}

// reportError prints a run, parse, or format failure and returns the exit
// code for it.
func (c *cli) reportError(err error, pretty bool) int {
	c.printDiags(runtime.Diagnostics(err), pretty)

	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		return exitDiag
	}
	return exitRuntime
}

func (c *cli) printDiags(diags []diagnostics.Diagnostic, pretty bool) {
	fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, pretty))
}

func (c *cli) readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.stderr, "error reading stdin: %s\n", err)
			return "", "", exitUsage
		}
		return string(data), "<stdin>", exitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		c.printDiags([]diagnostics.Diagnostic{diag}, pretty)
		return "", "", exitUsage
	}
	return string(source), file, exitOK
}
