// Package diag defines the typed error taxonomy for the evaluation core.
//
// Every failure the evaluator, converter, expander or scheduler can produce
// is one of the types below. They are ordinary Go errors: they propagate up
// the expression tree like any other error, wrap with %w, and are matched
// with errors.As. The scheduler attaches them to the failing graph node so
// one failing node never corrupts its siblings' results.
package diag

import (
	"fmt"
	"strings"
)

// Error is implemented by every error kind in this package. Kind returns a
// stable machine-readable tag used in logs and run results.
type Error interface {
	error
	Kind() string
}

// TypeError reports an operator or function applied to the wrong kind of
// value. ArgPos is 1-based when the subject is a function, 0 otherwise.
type TypeError struct {
	Subject string // operator symbol or function name
	ArgPos  int
	Want    string
	Got     string
	Detail  string
}

func (e TypeError) Kind() string { return "type" }

func (e TypeError) Error() string {
	var sb strings.Builder
	sb.WriteString("type error")
	if e.Subject != "" {
		fmt.Fprintf(&sb, " in %s", e.Subject)
	}
	if e.ArgPos > 0 {
		fmt.Fprintf(&sb, ", argument %d", e.ArgPos)
	}
	if e.Want != "" {
		fmt.Fprintf(&sb, ": %s required", e.Want)
	} else {
		sb.WriteString(": invalid operand")
	}
	if e.Got != "" {
		fmt.Fprintf(&sb, ", but have %s", e.Got)
	}
	if e.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", e.Detail)
	}
	return sb.String()
}

// ConversionError reports a failed explicit coercion between value kinds.
type ConversionError struct {
	From   string
	To     string
	Detail string
}

func (e ConversionError) Kind() string { return "conversion" }

func (e ConversionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cannot convert %s to %s: %s", e.From, e.To, e.Detail)
	}
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

// UndefinedSymbolError reports a reference to a declaration that does not
// exist in the configuration.
type UndefinedSymbolError struct {
	Symbol   string
	Referrer string // declaration containing the reference, if known
}

func (e UndefinedSymbolError) Kind() string { return "undefined-symbol" }

func (e UndefinedSymbolError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("undefined symbol %q referenced from %s", e.Symbol, e.Referrer)
	}
	return fmt.Sprintf("undefined symbol %q", e.Symbol)
}

// CyclicReferenceError reports a reference cycle between declarations.
// Cycle holds every node on the cycle in reference order; the first element
// repeats at the end to close the loop visually.
type CyclicReferenceError struct {
	Cycle []string
}

func (e CyclicReferenceError) Kind() string { return "cycle" }

func (e CyclicReferenceError) Error() string {
	return fmt.Sprintf("cyclic reference: %s", strings.Join(e.Cycle, " -> "))
}

// DuplicateKeyError reports a map-form comprehension producing the same key
// from two distinct source elements.
type DuplicateKeyError struct {
	Key string
}

func (e DuplicateKeyError) Kind() string { return "duplicate-key" }

func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q produced by map comprehension", e.Key)
}

// IndexOutOfRangeError reports list indexing past either end, or a map
// lookup for a key that does not exist (Key set, Index/Length zero).
type IndexOutOfRangeError struct {
	Index  int
	Length int
	Key    string
}

func (e IndexOutOfRangeError) Kind() string { return "index-out-of-range" }

func (e IndexOutOfRangeError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("the given key %q does not exist", e.Key)
	}
	return fmt.Sprintf("index %d out of range for list of length %d", e.Index, e.Length)
}

// DivisionByZeroError reports division or modulo by zero.
type DivisionByZeroError struct {
	Op string // "/" or "%"
}

func (e DivisionByZeroError) Kind() string { return "division-by-zero" }

func (e DivisionByZeroError) Error() string {
	if e.Op == "%" {
		return "modulo by zero"
	}
	return "division by zero"
}

// ArityError reports a function call with the wrong number of arguments.
// Want is a human description ("2", "at least 1", "2 or 3").
type ArityError struct {
	Func string
	Want string
	Got  int
}

func (e ArityError) Kind() string { return "arity" }

func (e ArityError) Error() string {
	return fmt.Sprintf("%s requires %s argument(s), got %d", e.Func, e.Want, e.Got)
}

// ValidationError reports a failed declaration-level check: a variable
// validation predicate that returned false, or a required input that was
// never supplied.
type ValidationError struct {
	Subject string
	Message string
}

func (e ValidationError) Kind() string { return "validation" }

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Subject, e.Message)
}
