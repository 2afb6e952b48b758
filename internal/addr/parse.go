package addr

import (
	"fmt"
	"strconv"
	"strings"
)

// knownRoots lists the path roots the evaluator understands.
var knownRoots = map[string]bool{
	RootVar:      true,
	RootLocal:    true,
	RootResource: true,
	RootOutput:   true,
	RootCount:    true,
	RootEach:     true,
}

// Parse creates a Path by parsing its canonical string representation.
// Quoted string keys may contain dots, so this is a small scanner rather
// than a split on '.'.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return Path{}, fmt.Errorf("symbol path cannot be empty")
	}

	var p Path
	rest := raw
	expectName := true
	for rest != "" {
		switch {
		case rest[0] == '.':
			if expectName {
				return Path{}, fmt.Errorf("symbol path %q contains empty segment", raw)
			}
			rest = rest[1:]
			expectName = true
		case rest[0] == '[':
			end, key, err := scanKey(rest)
			if err != nil {
				return Path{}, fmt.Errorf("symbol path %q: %w", raw, err)
			}
			p.Steps = append(p.Steps, Step{Key: key})
			rest = rest[end:]
			expectName = false
		default:
			n := strings.IndexAny(rest, ".[")
			if n == -1 {
				n = len(rest)
			}
			name := rest[:n]
			if !isValidName(name) {
				return Path{}, fmt.Errorf("invalid path segment %q in %q", name, raw)
			}
			p.Steps = append(p.Steps, Step{Name: name})
			rest = rest[n:]
			expectName = false
		}
	}
	if expectName {
		return Path{}, fmt.Errorf("symbol path %q ends with a separator", raw)
	}

	// Collapse `name` + bare `[key]` pairs into single steps so the
	// canonical form round-trips.
	collapsed := make([]Step, 0, len(p.Steps))
	for _, step := range p.Steps {
		if step.Name == "" && step.Key != nil && len(collapsed) > 0 && collapsed[len(collapsed)-1].Key == nil {
			collapsed[len(collapsed)-1].Key = step.Key
			continue
		}
		collapsed = append(collapsed, step)
	}
	p.Steps = collapsed

	if !knownRoots[p.Root()] {
		return Path{}, fmt.Errorf("unknown symbol root %q in %q", p.Root(), raw)
	}
	return p, nil
}

// scanKey consumes one `[...]` group at the start of s and returns the
// number of bytes consumed plus the parsed key.
func scanKey(s string) (int, Key, error) {
	if len(s) < 3 {
		return 0, nil, fmt.Errorf("unterminated index")
	}
	if s[1] == '"' {
		// String key; scan to the closing quote, honoring \" escapes.
		var sb strings.Builder
		i := 2
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				sb.WriteByte(s[i+1])
				i += 2
				continue
			}
			if c == '"' {
				break
			}
			sb.WriteByte(c)
			i++
		}
		if i >= len(s) || s[i] != '"' {
			return 0, nil, fmt.Errorf("unterminated string key")
		}
		if i+1 >= len(s) || s[i+1] != ']' {
			return 0, nil, fmt.Errorf("missing ']' after string key")
		}
		return i + 2, StringKey(sb.String()), nil
	}

	end := strings.IndexByte(s, ']')
	if end == -1 {
		return 0, nil, fmt.Errorf("unterminated index")
	}
	n, err := strconv.Atoi(s[1:end])
	if err != nil || n < 0 {
		return 0, nil, fmt.Errorf("invalid numeric index %q", s[1:end])
	}
	return end + 1, IntKey(n), nil
}

// isValidName checks a bare name segment. The same alphabet the
// configuration language allows for identifiers.
func isValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
