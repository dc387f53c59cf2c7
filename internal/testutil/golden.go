// Package testutil provides shared test helpers for uytin Go tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/thomasrohde/uytin/pkg/evaluator"
)

// ScenariosDir is the relative path from the module root to the scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario represents a test scenario loaded from a scenario.json file.
type Scenario struct {
	Cmd    []string        `json:"cmd"`
	Limits *ScenarioLimits `json:"limits,omitempty"`
	Meta   *ScenarioMeta   `json:"meta,omitempty"`
	Expect ExpectedResult  `json:"expect"`
}

// ScenarioLimits sets the execution budget for a run scenario.
type ScenarioLimits struct {
	MaxCallDepth int   `json:"maxCallDepth,omitempty"`
	MaxSteps     int64 `json:"maxSteps,omitempty"`
	TimeMs       int64 `json:"timeMs,omitempty"`
}

// Budget converts the limits to an evaluator budget. A nil receiver means
// no limits.
func (l *ScenarioLimits) Budget() evaluator.Budget {
	if l == nil {
		return evaluator.Budget{}
	}
	return evaluator.Budget{MaxCallDepth: l.MaxCallDepth, MaxSteps: l.MaxSteps, TimeMs: l.TimeMs}
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode         int             `json:"exitCode"`
	StdoutText       *string         `json:"stdoutText,omitempty"`
	StdoutContains   string          `json:"stdoutContains,omitempty"`
	StderrJSONSubset json.RawMessage `json:"stderrJsonSubset,omitempty"`
	StderrContains   string          `json:"stderrContains,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.json.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Join(dir, "scenario.json"), err)
	}
	if len(s.Cmd) == 0 {
		return nil, fmt.Errorf("scenario %s has an empty cmd", dir)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root,
// sorted by name.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.json")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadProgramFile reads the program file referenced by the scenario cmd,
// the first argument after the command that is not a flag.
func ReadProgramFile(scenarioDir string, cmd []string) (string, string, error) {
	for _, arg := range cmd[1:] {
		if len(arg) > 0 && arg[0] == '-' {
			continue
		}
		source, err := os.ReadFile(filepath.Join(scenarioDir, arg))
		if err != nil {
			return "", "", err
		}
		return string(source), arg, nil
	}
	return "", "", fmt.Errorf("scenario cmd %v names no program file", cmd)
}
