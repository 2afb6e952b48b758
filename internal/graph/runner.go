package graph

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/ctxlog"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/eval"
	"github.com/specialistvlad/terrane/internal/expand"
	"github.com/specialistvlad/terrane/internal/funcs"
	"github.com/specialistvlad/terrane/internal/value"
)

// UpstreamError marks a node that was never evaluated because a node it
// depends on failed. Unwrap yields the originating error.
type UpstreamError struct {
	Upstream string
	Err      error
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("not evaluated: upstream %s failed", e.Upstream)
}

func (e UpstreamError) Unwrap() error { return e.Err }

// Options configure a Runner.
type Options struct {
	// Workers is the worker pool size. Zero or negative means one worker
	// per CPU.
	Workers int
	// Variables supplies input variable values by name. A supplied value
	// wins over the declaration's default.
	Variables map[string]value.Value
	// Registry is the function library for expression evaluation. Nil
	// means the full built-in library.
	Registry *funcs.Registry
}

// Runner resolves a graph with a pool of workers draining a ready queue.
// Dependency-before-dependent order is guaranteed; nodes with no path
// between them may evaluate concurrently.
type Runner struct {
	g        *Graph
	workers  int
	vars     map[string]value.Value
	registry *funcs.Registry
}

// NewRunner prepares a runner for the graph.
func NewRunner(g *Graph, opts Options) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	registry := opts.Registry
	if registry == nil {
		registry = funcs.New()
	}
	vars := make(map[string]value.Value, len(opts.Variables))
	for k, v := range opts.Variables {
		vars[k] = v
	}
	return &Runner{g: g, workers: workers, vars: vars, registry: registry}
}

// Run resolves every node once and reports the complete outcome. Node
// failures do not abort the run: dependents of a failed node are skipped,
// everything else still evaluates, and the result carries every failure.
// Run is a one-shot: a graph is resolved once, then refined through
// Result.ApplyResolved.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("graph: starting run", "nodes", r.g.Len(), "workers", r.workers)

	r.runSet(ctx, r.g.nodes)

	res := r.collectResult()
	logger.Debug("graph: run complete",
		"resolved", len(res.Instances),
		"failed", len(res.Failures),
		"skipped", len(res.Skipped),
		"deferred", len(res.Deferred),
	)
	return res, ctx.Err()
}

// runSet drains the given subset of the graph. Dependencies outside the
// set must already be terminal; dependency counts are recomputed against
// the set so the same machinery serves full and incremental passes.
func (r *Runner) runSet(ctx context.Context, set map[string]*Node) {
	if len(set) == 0 {
		return
	}

	for _, n := range set {
		cnt := 0
		for id := range n.deps {
			if _, ok := set[id]; ok {
				cnt++
			}
		}
		n.depCount.Store(int32(cnt))
	}

	ready := make(chan *Node, len(set))
	roots := 0
	for _, n := range set {
		if n.depCount.Load() == 0 {
			ready <- n
			roots++
		}
	}
	ctxlog.FromContext(ctx).Debug("graph: seeded ready queue", "roots", roots, "nodes", len(set))

	var wg sync.WaitGroup
	wg.Add(len(set))

	workers := r.workers
	if workers > len(set) {
		workers = len(set)
	}
	for i := 0; i < workers; i++ {
		go r.worker(ctx, i, ready, set, &wg)
	}

	wg.Wait()
	close(ready)
}

// worker is the processing loop of one pool worker.
func (r *Runner) worker(ctx context.Context, workerID int, ready chan *Node, set map[string]*Node, wg *sync.WaitGroup) {
	logger := ctxlog.FromContext(ctx).With("worker", workerID)

	for n := range ready {
		if ctx.Err() != nil {
			if n.finish(Failed, value.Value{}, ctx.Err(), []string{n.ID()}) {
				logger.Warn("graph: run canceled, abandoning node", "node", n.ID())
				wg.Done()
				r.skipDependents(ctx, n, []string{n.ID()}, ctx.Err(), set, wg)
			}
			continue
		}

		// An upstream failure may have skipped the node after it was
		// already queued; the skip owned its accounting.
		if !n.begin() {
			continue
		}

		logger.Debug("graph: evaluating node", "node", n.ID())
		v, deferred, err := r.resolveNode(ctx, n)

		switch {
		case err != nil:
			logger.Error("graph: node failed", "node", n.ID(), "error", err)
			n.finish(Failed, value.Value{}, err, []string{n.ID()})
			wg.Done()
			r.skipDependents(ctx, n, []string{n.ID()}, err, set, wg)

		case deferred:
			logger.Debug("graph: node deferred, multiplicity not yet known", "node", n.ID())
			n.finish(Deferred, value.Unknown, nil, nil)
			wg.Done()
			r.releaseDependents(n, ready, set)

		default:
			logger.Debug("graph: node resolved", "node", n.ID())
			n.finish(Resolved, v, nil, nil)
			wg.Done()
			r.releaseDependents(n, ready, set)
		}
	}
}

// releaseDependents decrements each in-set dependent's unmet-dependency
// count and queues the ones that hit zero.
func (r *Runner) releaseDependents(n *Node, ready chan *Node, set map[string]*Node) {
	for id, dep := range n.dependents {
		if _, ok := set[id]; !ok {
			continue
		}
		if dep.depCount.Add(-1) == 0 {
			ready <- dep
		}
	}
}

// skipDependents walks downstream from a failed node marking everything
// reachable as Skipped. Each skipped node records the reference chain
// from itself back to the failing node, and the originating error.
func (r *Runner) skipDependents(ctx context.Context, n *Node, chain []string, cause error, set map[string]*Node, wg *sync.WaitGroup) {
	logger := ctxlog.FromContext(ctx)
	for id, dep := range n.dependents {
		if _, ok := set[id]; !ok {
			continue
		}
		depChain := make([]string, 0, len(chain)+1)
		depChain = append(depChain, dep.ID())
		depChain = append(depChain, chain...)
		if dep.finish(Skipped, value.Value{}, UpstreamError{Upstream: n.ID(), Err: cause}, depChain) {
			logger.Warn("graph: skipping node, upstream failed", "node", dep.ID(), "upstream", n.ID())
			wg.Done()
			r.skipDependents(ctx, dep, depChain, cause, set, wg)
		}
	}
}

// resolveNode evaluates one claimed node. The bool result reports a
// deferred multiplicity expansion.
func (r *Runner) resolveNode(ctx context.Context, n *Node) (value.Value, bool, error) {
	n.evalCount.Add(1)
	sc := eval.NewScope(graphResolver{g: r.g}, r.registry)

	switch n.kind {
	case VariableNode:
		v, err := r.resolveVariable(ctx, n, sc)
		return v, false, err
	case LocalNode:
		v, err := eval.Evaluate(ctx, n.local.Expr, sc)
		return v, false, err
	case OutputNode:
		v, err := eval.Evaluate(ctx, n.output.Expr, sc)
		return v, false, err
	case ResourceNode:
		return r.resolveResource(ctx, n, sc)
	default:
		return value.Value{}, false, fmt.Errorf("unhandled node kind %s", n.kind)
	}
}

// resolveVariable applies the supplied-else-default rule, conforms the
// result to the declared type constraint, and runs every validation rule,
// collecting all violations instead of stopping at the first.
func (r *Runner) resolveVariable(ctx context.Context, n *Node, sc *eval.Scope) (value.Value, error) {
	decl := n.variable

	v, supplied := r.vars[decl.Name]
	if !supplied {
		if decl.Default == nil {
			return value.Value{}, diag.ValidationError{
				Subject: n.ID(),
				Message: "required variable has no value",
			}
		}
		var err error
		v, err = eval.Evaluate(ctx, decl.Default, sc)
		if err != nil {
			return value.Value{}, err
		}
	}

	if !decl.Type.IsAny() {
		conformed, err := decl.Type.Conform(v)
		if err != nil {
			return value.Value{}, err
		}
		v = conformed
	}

	var result *multierror.Error
	for _, rule := range decl.Validations {
		child := sc.Child(map[string]value.Value{
			addr.RootVar: value.ObjectVal(value.Pair{Key: decl.Name, Val: v}),
		})
		cond, err := eval.Evaluate(ctx, rule.Condition, child)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if cond.IsUnknown() {
			// Cannot be judged until the value is known; not a failure.
			continue
		}
		if cond.Kind() != value.KindBool {
			result = multierror.Append(result, diag.TypeError{
				Subject: fmt.Sprintf("validation condition for %s", n.ID()),
				Want:    "bool",
				Got:     cond.Kind().String(),
			})
			continue
		}
		if !cond.AsBool() {
			result = multierror.Append(result, diag.ValidationError{Subject: n.ID(), Message: rule.Message})
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return value.Value{}, err
	}
	return v, nil
}

// resolveResource expands the declaration's multiplicity and evaluates
// every instance's arguments. The node value is the instance object for a
// singleton, a list of objects for count, and a map of objects for
// for_each. An Unknown multiplicity source defers the whole node.
func (r *Runner) resolveResource(ctx context.Context, n *Node, sc *eval.Scope) (value.Value, bool, error) {
	res := n.resource

	src := value.Null
	if res.Multiplicity != nil {
		var err error
		src, err = eval.Evaluate(ctx, res.Multiplicity.Expr, sc)
		if err != nil {
			return value.Value{}, false, err
		}
	}
	exp, err := expand.Expand(res.Multiplicity, src)
	if err != nil {
		return value.Value{}, false, err
	}
	if exp.IsDeferred() {
		return value.Unknown, true, nil
	}

	infos := exp.Instances(n.path)
	insts := make([]ResourceInstance, 0, len(infos))
	for _, info := range infos {
		isc := sc
		if len(info.Bindings) > 0 {
			isc = sc.Child(info.Bindings)
		}
		pairs := make([]value.Pair, 0, res.Args.Len())
		for _, name := range res.Args.Names() {
			expr, _ := res.Args.Get(name)
			av, err := eval.Evaluate(ctx, expr, isc)
			if err != nil {
				return value.Value{}, false, fmt.Errorf("%s: %w", info.Addr.String(), err)
			}
			pairs = append(pairs, value.Pair{Key: name, Val: av})
		}
		insts = append(insts, newResourceInstance(info.Addr, pairs, res.Lifecycle))
	}

	n.setInstances(insts)
	return nodeValue(exp, insts), false, nil
}

// nodeValue assembles a resource node's value from its evaluated
// instances according to the expansion mode.
func nodeValue(exp expand.Expansion, insts []ResourceInstance) value.Value {
	switch exp.Kind() {
	case expand.Count:
		elems := make([]value.Value, len(insts))
		for i, inst := range insts {
			elems[i] = value.ObjectVal(inst.Attrs...)
		}
		return value.ListVal(elems)
	case expand.Keyed:
		pairs := make([]value.Pair, len(insts))
		for i, inst := range insts {
			pairs[i] = value.Pair{
				Key: string(inst.Addr.Key.(addr.StringKey)),
				Val: value.ObjectVal(inst.Attrs...),
			}
		}
		return value.MapVal(pairs...)
	default:
		return value.ObjectVal(insts[0].Attrs...)
	}
}

// graphResolver resolves symbol references against the running graph:
// wait for the owning declaration's node, then apply the remaining
// attribute and index steps to its value.
type graphResolver struct {
	g *Graph
}

func (r graphResolver) ResolveRef(ctx context.Context, p addr.Path) (value.Value, error) {
	decl, ok := p.DeclAddr()
	if !ok {
		return value.Value{}, diag.UndefinedSymbolError{Symbol: p.String()}
	}
	n, ok := r.g.nodes[decl.String()]
	if !ok {
		return value.Value{}, diag.UndefinedSymbolError{Symbol: decl.String()}
	}
	v, err := n.await(ctx)
	if err != nil {
		return value.Value{}, err
	}
	return eval.ApplyPath(v, p, len(decl.Steps))
}

// collectResult snapshots every node's terminal outcome into a Result.
func (r *Runner) collectResult() *Result {
	res := &Result{
		RunID:   uuid.NewString(),
		Outputs: make(map[string]Output),
		g:       r.g,
		runner:  r,
		Stats:   Stats{Evaluations: make(map[string]int64, r.g.Len())},
	}

	for _, id := range r.g.order {
		n := r.g.nodes[id]
		res.Stats.Evaluations[id] = n.Evaluations()

		switch n.State() {
		case Resolved:
			switch n.kind {
			case ResourceNode:
				res.Instances = append(res.Instances, n.instances()...)
			case OutputNode:
				v, _ := n.outcome()
				res.Outputs[n.output.Name] = Output{Value: v, Sensitive: n.output.Sensitive}
			}
		case Deferred:
			res.Deferred = append(res.Deferred, n.path)
		case Failed:
			_, err := n.outcome()
			res.Failures = append(res.Failures, Failure{Addr: n.path, Err: err, Chain: n.failureChain()})
		case Skipped:
			_, err := n.outcome()
			res.Skipped = append(res.Skipped, Failure{Addr: n.path, Err: err, Chain: n.failureChain()})
		}
	}
	return res
}
