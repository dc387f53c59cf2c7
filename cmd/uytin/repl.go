package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/thomasrohde/uytin/pkg/config"
	"github.com/thomasrohde/uytin/pkg/evaluator"
	"github.com/thomasrohde/uytin/pkg/runtime"
)

const (
	replBanner      = "uytin REPL. Type :help for commands, :quit to exit."
	replContinue    = "...    "
	replHistoryName = "history"
)

// prompter reads one line of input. *liner.State satisfies it.
type prompter interface {
	Prompt(prompt string) (string, error)
}

func (c *cli) cmdRepl(args []string) int {
	pretty := false
	for _, arg := range args {
		if arg == "--pretty" {
			pretty = true
		}
	}

	cfg, ok := c.loadConfig(pretty)
	if !ok {
		return exitUsage
	}

	histPath := historyPath(cfg, c.homeDir)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err != nil {
				return
			}
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	fmt.Fprintln(c.stdout, replBanner)
	rt := runtime.New(runtime.WithOutput(c.stdout), runtime.WithConfig(cfg))
	r := &repl{
		rt:      rt,
		in:      ln,
		out:     c.stdout,
		errOut:  c.stderr,
		prompt:  cfg.REPL.Prompt,
		pretty:  pretty || cfg.Output.Pretty,
		history: ln.AppendHistory,
	}
	r.loop()
	return exitOK
}

// historyPath resolves the configured history file, expanding a leading
// "~/". An empty setting defaults to ~/.uytin/history.
func historyPath(cfg config.Config, home string) string {
	p := cfg.REPL.HistoryFile
	if p == "" {
		if home == "" {
			return ""
		}
		return filepath.Join(home, ".uytin", replHistoryName)
	}
	if strings.HasPrefix(p, "~/") && home != "" {
		return filepath.Join(home, p[2:])
	}
	return p
}

type repl struct {
	rt      *runtime.Runtime
	in      prompter
	out     io.Writer
	errOut  io.Writer
	prompt  string
	pretty  bool
	history func(string)
}

func (r *repl) loop() {
	for {
		code, ok := r.readByParseProbe()
		if !ok {
			fmt.Fprintln(r.out)
			return
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if r.command(trimmed) {
				return
			}
			continue
		}

		if r.history != nil {
			r.history(strings.ReplaceAll(code, "\n", " "))
		}
		r.eval(code)
	}
}

// command handles a :command line and reports whether the REPL should exit.
func (r *repl) command(line string) bool {
	switch strings.ToLower(line) {
	case ":quit", ":q", ":exit":
		return true
	case ":reset":
		r.rt.Reset()
		fmt.Fprintln(r.out, "session cleared")
	case ":env":
		b, err := evaluator.EnvToJSON(r.rt.Env())
		if err != nil {
			fmt.Fprintf(r.errOut, "error: %s\n", err)
			return false
		}
		fmt.Fprintln(r.out, string(b))
	case ":help":
		fmt.Fprintln(r.out, ":quit  exit\n:reset clear variables and functions\n:env   show the session as JSON")
	default:
		fmt.Fprintf(r.errOut, "unknown command %s. Type :help for commands.\n", line)
	}
	return false
}

func (r *repl) eval(code string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := r.rt.Run(ctx, code, "<repl>")
	if err != nil {
		fmt.Fprintln(r.errOut, formatReplError(err, r.pretty))
		return
	}
	if !evaluator.IsNothing(res.Value) {
		fmt.Fprintln(r.out, res.Value.String())
	}
}

func formatReplError(err error, pretty bool) string {
	diags := runtime.Diagnostics(err)
	parts := make([]string, len(diags))
	for i, d := range diags {
		if pretty {
			parts[i] = fmt.Sprintf("error[%s]: %s", d.Code, d.Message)
		} else {
			parts[i] = d.Code + ": " + d.Message
		}
	}
	return strings.Join(parts, "\n")
}

// readByParseProbe keeps reading lines while the accumulated input ends
// inside an unfinished construct.
func (r *repl) readByParseProbe() (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = r.in.Prompt(r.prompt)
		} else {
			line, err = r.in.Prompt(replContinue)
		}
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		_, perr := runtime.Parse(src, "<repl>")
		var de *runtime.DiagnosticError
		if perr != nil && errors.As(perr, &de) && de.Incomplete && strings.TrimSpace(line) != "" {
			continue
		}
		return src, true
	}
}
