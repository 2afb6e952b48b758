package addr

import (
	"fmt"
	"strings"
)

// Root names with meaning to the evaluator. Everything else is rejected at
// parse time so typos surface as errors rather than dangling references.
const (
	RootVar      = "var"
	RootLocal    = "local"
	RootResource = "resource"
	RootOutput   = "output"
	RootCount    = "count"
	RootEach     = "each"
)

// Key identifies one instance of a multi-instance declaration, or one
// element selected from a collection step. A nil Key means "no key".
type Key interface {
	fmt.Stringer
	instanceKey()
}

// IntKey is a Key for count-style instances and list indexing.
type IntKey int

func (k IntKey) instanceKey()   {}
func (k IntKey) String() string { return fmt.Sprintf("[%d]", int(k)) }

// StringKey is a Key for for_each-style instances and map indexing.
type StringKey string

func (k StringKey) instanceKey()   {}
func (k StringKey) String() string { return fmt.Sprintf("[%q]", string(k)) }

// Step is a single component of a path: a name, optionally with a key.
// A Step with an empty Name is a bare index applied to the previous step,
// as in `local.matrix[0][1]`.
type Step struct {
	Name string
	Key  Key
}

// Path is the structured representation of a symbol reference. The zero
// value is an empty path.
type Path struct {
	Steps []Step
}

// MakePath builds a path from bare names, no keys.
func MakePath(names ...string) Path {
	steps := make([]Step, len(names))
	for i, n := range names {
		steps[i] = Step{Name: n}
	}
	return Path{Steps: steps}
}

// IsEmpty reports whether the path has no steps.
func (p Path) IsEmpty() bool { return len(p.Steps) == 0 }

// Root returns the first step's name, or "" for an empty path.
func (p Path) Root() string {
	if len(p.Steps) == 0 {
		return ""
	}
	return p.Steps[0].Name
}

// Child returns a new path with an extra name step appended. The receiver
// is not modified.
func (p Path) Child(name string) Path {
	steps := make([]Step, len(p.Steps), len(p.Steps)+1)
	copy(steps, p.Steps)
	return Path{Steps: append(steps, Step{Name: name})}
}

// Index returns a new path with an extra key step appended.
func (p Path) Index(k Key) Path {
	steps := make([]Step, len(p.Steps), len(p.Steps)+1)
	copy(steps, p.Steps)
	return Path{Steps: append(steps, Step{Key: k})}
}

// String serializes the path into its canonical representation.
func (p Path) String() string {
	var sb strings.Builder
	for i, step := range p.Steps {
		if step.Name != "" {
			if i > 0 {
				sb.WriteRune('.')
			}
			sb.WriteString(step.Name)
		}
		if step.Key != nil {
			sb.WriteString(step.Key.String())
		}
	}
	return sb.String()
}

// Equal checks for deep equality between two paths.
func (p Path) Equal(other Path) bool {
	if len(p.Steps) != len(other.Steps) {
		return false
	}
	for i, step := range p.Steps {
		if step.Name != other.Steps[i].Name {
			return false
		}
		if (step.Key == nil) != (other.Steps[i].Key == nil) {
			return false
		}
		if step.Key != nil && step.Key != other.Steps[i].Key {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the path begins with all of prefix's steps.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.Steps) > len(p.Steps) {
		return false
	}
	return Path{Steps: p.Steps[:len(prefix.Steps)]}.Equal(prefix)
}

// DeclAddr extracts the declaration address that owns the symbol this path
// refers to: `var.x`, `local.x` and `output.x` own two steps,
// `resource.<type>.<name>` owns three. Iteration-scope roots (`count`,
// `each`) and unowned roots return ok=false.
func (p Path) DeclAddr() (Path, bool) {
	switch p.Root() {
	case RootVar, RootLocal, RootOutput:
		if len(p.Steps) >= 2 && p.Steps[1].Name != "" {
			return Path{Steps: p.Steps[:2]}, true
		}
	case RootResource:
		if len(p.Steps) >= 3 && p.Steps[1].Name != "" && p.Steps[2].Name != "" {
			return Path{Steps: []Step{
				{Name: RootResource},
				{Name: p.Steps[1].Name},
				{Name: p.Steps[2].Name},
			}}, true
		}
	}
	return Path{}, false
}

// Instance is the identity of one graph node: a declaration address plus an
// optional multiplicity key. A nil Key identifies the singleton instance of
// an unexpanded declaration.
type Instance struct {
	Decl Path
	Key  Key
}

// String serializes the instance identity, e.g. `resource.server.web["a"]`.
func (i Instance) String() string {
	if i.Key == nil {
		return i.Decl.String()
	}
	return i.Decl.String() + i.Key.String()
}

// Equal checks instance identity equality.
func (i Instance) Equal(other Instance) bool {
	if !i.Decl.Equal(other.Decl) {
		return false
	}
	if (i.Key == nil) != (other.Key == nil) {
		return false
	}
	return i.Key == nil || i.Key == other.Key
}
