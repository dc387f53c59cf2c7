package evaluator

import (
	"encoding/json"
)

// ValueToJSON marshals a Value to JSON bytes. Nothing becomes null.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(ValueToAny(v))
}

// ValueToAny converts a Value to its plain Go form for JSON or YAML
// encoding.
func ValueToAny(v Value) any {
	switch val := v.(type) {
	case Int:
		return val.Value
	case Str:
		return val.Value
	case Bool:
		return val.Value
	default:
		return nil
	}
}

// EnvToJSON renders the visible bindings of env as a JSON object with
// "vars" and "functions" keys. Object keys are emitted sorted.
func EnvToJSON(env *Env) ([]byte, error) {
	vars := make(map[string]any, len(env.vars))
	for name, v := range env.vars {
		vars[name] = ValueToAny(v)
	}
	fns := make(map[string][]string, len(env.fns))
	for name, decl := range env.fns {
		params := decl.Params
		if params == nil {
			params = []string{}
		}
		fns[name] = params
	}
	return json.Marshal(map[string]any{
		"vars":      vars,
		"functions": fns,
	})
}
