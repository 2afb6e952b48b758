package graph

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/ctxlog"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/schema"
	"github.com/specialistvlad/terrane/internal/value"
)

// ResourceInstance is one resolved resource instance: its identity, its
// final arguments in declaration order, and the declaration's lifecycle
// policy for whatever orchestrates the instance downstream. UnknownAttrs
// names the arguments whose values still contain Unknown and therefore
// need a later side-effecting call to learn.
type ResourceInstance struct {
	Addr         addr.Instance
	Attrs        []value.Pair
	UnknownAttrs []string
	Lifecycle    schema.Lifecycle
}

func newResourceInstance(a addr.Instance, attrs []value.Pair, lc schema.Lifecycle) ResourceInstance {
	inst := ResourceInstance{Addr: a, Attrs: attrs, Lifecycle: lc}
	for _, p := range attrs {
		if p.Val.ContainsUnknown() {
			inst.UnknownAttrs = append(inst.UnknownAttrs, p.Key)
		}
	}
	return inst
}

// Attr returns the named argument's value.
func (ri ResourceInstance) Attr(name string) (value.Value, bool) {
	for _, p := range ri.Attrs {
		if p.Key == name {
			return p.Val, true
		}
	}
	return value.Value{}, false
}

// Object returns the instance's arguments as a single object value.
func (ri ResourceInstance) Object() value.Value {
	return value.ObjectVal(ri.Attrs...)
}

// Output is one resolved output value with its sensitivity flag.
type Output struct {
	Value     value.Value
	Sensitive bool
}

// Failure records one node that did not resolve. Chain is the reference
// chain from the node to the root cause, in reference order; for a node
// that failed on its own the chain is just the node itself.
type Failure struct {
	Addr  addr.Path
	Err   error
	Chain []string
}

// Stats exposes per-node evaluation counters, cumulative across the
// initial run and every incremental pass.
type Stats struct {
	Evaluations map[string]int64
}

// Total sums all node evaluation counters.
func (s Stats) Total() int64 {
	var total int64
	for _, c := range s.Evaluations {
		total += c
	}
	return total
}

// Result is the complete outcome of resolving a graph: every resolved
// resource instance in declaration-then-instance order, every output,
// every failure with its reference chain, every node skipped downstream
// of a failure, and every declaration deferred behind an Unknown
// multiplicity source.
type Result struct {
	RunID     string
	Instances []ResourceInstance
	Outputs   map[string]Output
	Failures  []Failure
	Skipped   []Failure
	Deferred  []addr.Path
	Stats     Stats

	g      *Graph
	runner *Runner
}

// Err aggregates the run's root-cause failures. Skipped nodes are
// omitted: they carry the same originating errors.
func (r *Result) Err() error {
	var result *multierror.Error
	for _, f := range r.Failures {
		result = multierror.Append(result, f.Err)
	}
	return result.ErrorOrNil()
}

// Instance returns the resolved instance with the given identity.
func (r *Result) Instance(a addr.Instance) (ResourceInstance, bool) {
	for _, inst := range r.Instances {
		if inst.Addr.Equal(a) {
			return inst, true
		}
	}
	return ResourceInstance{}, false
}

// ApplyResolved merges externally learned attribute values into one
// resolved instance and re-evaluates only the transitive dependents of
// its declaration. Attributes being supplied must currently be Unknown.
// Sibling instances and unrelated subgraphs keep their cached values and
// their evaluation counters do not move.
func (r *Result) ApplyResolved(ctx context.Context, a addr.Instance, attrs map[string]value.Value) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	n, ok := r.g.Node(a.Decl)
	if !ok || n.kind != ResourceNode {
		return nil, diag.UndefinedSymbolError{Symbol: a.Decl.String()}
	}
	if n.State() != Resolved {
		return nil, diag.ValidationError{
			Subject: a.String(),
			Message: fmt.Sprintf("cannot merge attributes into a %s node", n.State()),
		}
	}

	insts := n.instances()
	idx := -1
	for i, inst := range insts {
		if inst.Addr.Equal(a) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, diag.UndefinedSymbolError{Symbol: a.String()}
	}

	merged, err := mergeInstance(insts[idx], attrs)
	if err != nil {
		return nil, err
	}

	next := make([]ResourceInstance, len(insts))
	copy(next, insts)
	next[idx] = merged
	n.setValue(instancesValue(next), next)
	logger.Debug("graph: merged resolved attributes", "instance", a.String(), "attrs", len(attrs))

	affected := r.g.transitiveDependents(n)
	for _, dep := range affected {
		dep.reset()
	}
	logger.Debug("graph: re-evaluating dependents", "count", len(affected))

	r.runner.runSet(ctx, affected)
	return r.runner.collectResult(), ctx.Err()
}

// mergeInstance replaces Unknown attributes of inst with supplied values.
func mergeInstance(inst ResourceInstance, attrs map[string]value.Value) (ResourceInstance, error) {
	pairs := make([]value.Pair, len(inst.Attrs))
	copy(pairs, inst.Attrs)

	for name, v := range attrs {
		found := false
		for i, p := range pairs {
			if p.Key != name {
				continue
			}
			found = true
			if !p.Val.ContainsUnknown() {
				return ResourceInstance{}, diag.ValidationError{
					Subject: inst.Addr.String(),
					Message: fmt.Sprintf("attribute %q is already known", name),
				}
			}
			if v.ContainsUnknown() {
				return ResourceInstance{}, diag.ValidationError{
					Subject: inst.Addr.String(),
					Message: fmt.Sprintf("supplied value for %q is not fully known", name),
				}
			}
			pairs[i] = value.Pair{Key: name, Val: v}
			break
		}
		if !found {
			return ResourceInstance{}, diag.ValidationError{
				Subject: inst.Addr.String(),
				Message: fmt.Sprintf("no attribute named %q", name),
			}
		}
	}
	return newResourceInstance(inst.Addr, pairs, inst.Lifecycle), nil
}

// instancesValue reassembles a resource node's value from its instances,
// inferring the shape from the instance keys.
func instancesValue(insts []ResourceInstance) value.Value {
	if len(insts) == 1 && insts[0].Addr.Key == nil {
		return insts[0].Object()
	}
	if _, keyed := insts[0].Addr.Key.(addr.StringKey); keyed {
		pairs := make([]value.Pair, len(insts))
		for i, inst := range insts {
			pairs[i] = value.Pair{Key: string(inst.Addr.Key.(addr.StringKey)), Val: inst.Object()}
		}
		return value.MapVal(pairs...)
	}
	elems := make([]value.Value, len(insts))
	for i, inst := range insts {
		elems[i] = inst.Object()
	}
	return value.ListVal(elems)
}
