// Package vars collects variable inputs for a run: -var name=value
// literals and YAML var files.
package vars

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/terrane/internal/value"
)

// ParseFlag splits a -var argument of the form "name=value" and parses
// the value as a scalar: true/false become Bool, decimal literals become
// Number, anything else stays a String.
func ParseFlag(arg string) (string, value.Value, error) {
	name, raw, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return "", value.Value{}, fmt.Errorf("invalid variable %q: expected name=value", arg)
	}
	return name, parseScalar(raw), nil
}

func parseScalar(raw string) value.Value {
	switch raw {
	case "true":
		return value.BoolVal(true)
	case "false":
		return value.BoolVal(false)
	}
	if n, err := value.ParseNumber(raw); err == nil {
		return n
	}
	return value.StringVal(raw)
}

// LoadFile reads a YAML var file: a mapping of variable names to values.
func LoadFile(path string) (map[string]value.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading var file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("parsing var file %s: %w", path, err)
	}
	out := make(map[string]value.Value, len(raw))
	for name, entry := range raw {
		v, err := value.FromGo(entry)
		if err != nil {
			return nil, fmt.Errorf("var file %s: variable %q: %w", path, name, err)
		}
		out[name] = v
	}
	return out, nil
}

// Collect merges variable inputs for a run. Files apply in argument
// order, flag literals after them; later sources win.
func Collect(files []string, flags []string) (map[string]value.Value, error) {
	out := make(map[string]value.Value)
	for _, path := range files {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for name, v := range loaded {
			out[name] = v
		}
	}
	for _, arg := range flags {
		name, v, err := ParseFlag(arg)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
