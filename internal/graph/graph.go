// Package graph builds the dependency graph over a workspace's
// declarations and resolves it concurrently. Each declaration becomes one
// node; edges come from the static reference analysis plus explicit
// depends_on. A node is evaluated at most once per run, failures skip
// dependents without aborting unrelated subgraphs, and an Unknown
// multiplicity source parks its node in a distinct Deferred state instead
// of failing the run.
package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/ast"
	"github.com/specialistvlad/terrane/internal/ctxlog"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/refs"
	"github.com/specialistvlad/terrane/internal/schema"
	"github.com/specialistvlad/terrane/internal/value"
)

// NodeKind distinguishes the four declaration kinds a node can carry.
type NodeKind int

const (
	VariableNode NodeKind = iota + 1
	LocalNode
	ResourceNode
	OutputNode
)

func (k NodeKind) String() string {
	switch k {
	case VariableNode:
		return "variable"
	case LocalNode:
		return "local"
	case ResourceNode:
		return "resource"
	case OutputNode:
		return "output"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// NodeState is a node's position in its lifecycle. Every node transitions
// out of Unvisited exactly once and into exactly one terminal state.
type NodeState int32

const (
	// Unvisited means no worker has claimed the node yet.
	Unvisited NodeState = iota
	// InProgress means a worker is evaluating the node right now.
	InProgress
	// Resolved is terminal: the node has a value.
	Resolved
	// Failed is terminal: the node's own evaluation returned an error.
	Failed
	// Skipped is terminal: the node was never evaluated because something
	// upstream failed. It carries the originating error.
	Skipped
	// Deferred is terminal for this run: the node's multiplicity source is
	// Unknown, so its instances cannot be decided yet. Its value is
	// Unknown and dependents still evaluate.
	Deferred
)

func (s NodeState) String() string {
	switch s {
	case Unvisited:
		return "unvisited"
	case InProgress:
		return "in-progress"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("NodeState(%d)", int32(s))
	}
}

func (s NodeState) terminal() bool {
	return s == Resolved || s == Failed || s == Skipped || s == Deferred
}

// Node is one declaration in the graph.
type Node struct {
	path addr.Path
	kind NodeKind

	variable *schema.Variable
	local    *schema.Local
	resource *schema.Resource
	output   *schema.Output

	deps       map[string]*Node
	dependents map[string]*Node

	// depCount is the number of unmet dependencies; a node becomes ready
	// when it hits zero. evalCount counts calls into the evaluator for
	// this node, across every pass of the run.
	depCount  atomic.Int32
	state     atomic.Int32
	evalCount atomic.Int64

	// mu guards the single state transition and the result fields; done
	// is closed on the transition so waiters block without polling.
	mu    sync.Mutex
	val   value.Value
	err   error
	chain []string
	insts []ResourceInstance
	done  chan struct{}
}

// ID returns the node's declaration address string, e.g. "local.region".
func (n *Node) ID() string { return n.path.String() }

// Addr returns the node's declaration address.
func (n *Node) Addr() addr.Path { return n.path }

// Kind returns the node's declaration kind.
func (n *Node) Kind() NodeKind { return n.kind }

// State returns the node's current lifecycle state.
func (n *Node) State() NodeState { return NodeState(n.state.Load()) }

// Evaluations returns how many times this node's declaration has been
// evaluated since the graph was built.
func (n *Node) Evaluations() int64 { return n.evalCount.Load() }

// begin claims the node for evaluation. It fails when the node was
// already claimed or skipped by another worker.
func (n *Node) begin() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if NodeState(n.state.Load()) != Unvisited {
		return false
	}
	n.state.Store(int32(InProgress))
	return true
}

// finish moves the node into a terminal state. Exactly one finish wins;
// the rest report false and change nothing.
func (n *Node) finish(to NodeState, v value.Value, err error, chain []string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if NodeState(n.state.Load()).terminal() {
		return false
	}
	n.state.Store(int32(to))
	n.val = v
	n.err = err
	n.chain = chain
	close(n.done)
	return true
}

// await blocks until the node reaches a terminal state, then returns its
// outcome. Resolved yields the value; Deferred yields Unknown; Failed and
// Skipped yield the node's error.
func (n *Node) await(ctx context.Context) (value.Value, error) {
	select {
	case <-n.done:
	case <-ctx.Done():
		return value.Value{}, ctx.Err()
	}
	return n.outcome()
}

func (n *Node) outcome() (value.Value, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch NodeState(n.state.Load()) {
	case Resolved:
		return n.val, nil
	case Deferred:
		return value.Unknown, nil
	default:
		return value.Value{}, n.err
	}
}

// reset returns the node to Unvisited for an incremental pass. Callers
// must guarantee no run is in flight.
func (n *Node) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.Store(int32(Unvisited))
	n.val = value.Value{}
	n.err = nil
	n.chain = nil
	n.insts = nil
	n.done = make(chan struct{})
}

// setValue replaces the value of an already-resolved node in place. The
// incremental pass uses it to merge provider-learned attributes without
// re-evaluating the node itself.
func (n *Node) setValue(v value.Value, insts []ResourceInstance) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.val = v
	n.insts = insts
}

func (n *Node) setInstances(insts []ResourceInstance) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.insts = insts
}

func (n *Node) instances() []ResourceInstance {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.insts
}

func (n *Node) failureChain() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.chain
}

// sortedDeps returns the node's dependencies in ID order, so traversals
// are deterministic run to run.
func (n *Node) sortedDeps() []*Node {
	ids := make([]string, 0, len(n.deps))
	for id := range n.deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = n.deps[id]
	}
	return out
}

// Graph is the dependency graph for one workspace configuration.
type Graph struct {
	cfg   *schema.Config
	nodes map[string]*Node
	order []string // node IDs in declaration order
}

// Build constructs and validates the graph: one node per declaration,
// edges from static reference analysis plus explicit depends_on, then a
// cycle check. References to declarations that do not exist fail the
// build with UndefinedSymbolError.
func Build(ctx context.Context, cfg *schema.Config) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	g := &Graph{cfg: cfg, nodes: make(map[string]*Node)}

	createNodes(cfg, g)
	logger.Debug("graph: node creation complete", "nodes", len(g.nodes))

	if err := linkNodes(g); err != nil {
		return nil, err
	}
	logger.Debug("graph: dependency linking complete")

	for _, n := range g.nodes {
		n.depCount.Store(int32(len(n.deps)))
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("graph: cycle check passed")

	return g, nil
}

// createNodes is the first pass: one node per declaration, in declaration
// order.
func createNodes(cfg *schema.Config, g *Graph) {
	add := func(n *Node) {
		n.deps = make(map[string]*Node)
		n.dependents = make(map[string]*Node)
		n.done = make(chan struct{})
		g.nodes[n.ID()] = n
		g.order = append(g.order, n.ID())
	}
	for _, v := range cfg.Variables {
		add(&Node{path: addr.MakePath(addr.RootVar, v.Name), kind: VariableNode, variable: v})
	}
	for _, l := range cfg.Locals {
		add(&Node{path: addr.MakePath(addr.RootLocal, l.Name), kind: LocalNode, local: l})
	}
	for _, r := range cfg.Resources {
		add(&Node{path: r.Addr(), kind: ResourceNode, resource: r})
	}
	for _, o := range cfg.Outputs {
		add(&Node{path: addr.MakePath(addr.RootOutput, o.Name), kind: OutputNode, output: o})
	}
}

// linkNodes is the second pass: collect every expression a declaration
// owns, extract the declaration addresses it references, and wire edges.
func linkNodes(g *Graph) error {
	for _, id := range g.order {
		n := g.nodes[id]
		switch n.kind {
		case VariableNode:
			if n.variable.Default != nil {
				if err := g.linkRefs(n, n.variable.Default, addr.Path{}); err != nil {
					return err
				}
			}
			// A validation condition may only name its own variable,
			// which is satisfied by a scope binding, not a graph edge.
			for _, rule := range n.variable.Validations {
				for _, ref := range refs.ExtractDecls(rule.Condition) {
					if !ref.Equal(n.path) {
						return diag.ValidationError{
							Subject: n.ID(),
							Message: fmt.Sprintf("validation condition may only reference %s, not %s", n.ID(), ref),
						}
					}
				}
			}
		case LocalNode:
			if err := g.linkRefs(n, n.local.Expr, addr.Path{}); err != nil {
				return err
			}
		case ResourceNode:
			if n.resource.Multiplicity != nil {
				if err := g.linkRefs(n, n.resource.Multiplicity.Expr, addr.Path{}); err != nil {
					return err
				}
			}
			for _, name := range n.resource.Args.Names() {
				expr, _ := n.resource.Args.Get(name)
				if err := g.linkRefs(n, expr, addr.Path{}); err != nil {
					return err
				}
			}
			for _, dep := range n.resource.DependsOn {
				if err := g.addEdge(n, dep); err != nil {
					return err
				}
			}
		case OutputNode:
			if err := g.linkRefs(n, n.output.Expr, addr.Path{}); err != nil {
				return err
			}
		}
	}
	return nil
}

// linkRefs wires an edge for every declaration expr references, except
// the one named by skip.
func (g *Graph) linkRefs(n *Node, expr ast.Node, skip addr.Path) error {
	for _, ref := range refs.ExtractDecls(expr) {
		if !skip.IsEmpty() && ref.Equal(skip) {
			continue
		}
		if err := g.addEdge(n, ref); err != nil {
			return err
		}
	}
	return nil
}

// addEdge records that n depends on the declaration at ref. A reference
// to a missing declaration is a build error; a self-reference becomes a
// one-node cycle caught by the cycle check.
func (g *Graph) addEdge(n *Node, ref addr.Path) error {
	dep, ok := g.nodes[ref.String()]
	if !ok {
		return diag.UndefinedSymbolError{Symbol: ref.String(), Referrer: n.ID()}
	}
	n.deps[dep.ID()] = dep
	dep.dependents[n.ID()] = n
	return nil
}

// detectCycles runs a depth-first search over dependency edges and
// reports the first cycle found with its full path.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var stack []string

	var visit func(n *Node) error
	visit = func(n *Node) error {
		visiting[n.ID()] = true
		stack = append(stack, n.ID())
		for _, dep := range n.sortedDeps() {
			if visiting[dep.ID()] {
				return diag.CyclicReferenceError{Cycle: cyclePath(stack, dep.ID())}
			}
			if !visited[dep.ID()] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		delete(visiting, n.ID())
		visited[n.ID()] = true
		return nil
	}

	for _, id := range g.order {
		if !visited[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// cyclePath slices the DFS stack from the first occurrence of start and
// closes the loop by repeating it at the end.
func cyclePath(stack []string, start string) []string {
	i := 0
	for ; i < len(stack); i++ {
		if stack[i] == start {
			break
		}
	}
	cycle := make([]string, 0, len(stack)-i+1)
	cycle = append(cycle, stack[i:]...)
	return append(cycle, start)
}

// Node returns the node declared at the given address.
func (g *Graph) Node(p addr.Path) (*Node, bool) {
	n, ok := g.nodes[p.String()]
	return n, ok
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// NodeIDs returns every node's ID in declaration order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Value blocks until the node declared at p is terminal and returns its
// outcome. It is the wait/notify entry point for callers outside the
// worker pool.
func (g *Graph) Value(ctx context.Context, p addr.Path) (value.Value, error) {
	n, ok := g.nodes[p.String()]
	if !ok {
		return value.Value{}, diag.UndefinedSymbolError{Symbol: p.String()}
	}
	return n.await(ctx)
}

// transitiveDependents collects every node reachable from start along
// dependent edges, excluding start itself.
func (g *Graph) transitiveDependents(start *Node) map[string]*Node {
	out := make(map[string]*Node)
	var walk func(n *Node)
	walk = func(n *Node) {
		for id, dep := range n.dependents {
			if _, seen := out[id]; seen {
				continue
			}
			out[id] = dep
			walk(dep)
		}
	}
	walk(start)
	return out
}
