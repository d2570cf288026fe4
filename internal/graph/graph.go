package graph

import (
	"fmt"
	"sync"

	"github.com/vk/taskgridgo/internal/task"
)

// Node is a single vertex of the task graph. Topology (label, task, edge
// lists, required in-degree) is fixed once the graph is validated; the only
// runtime-mutable state is the satisfied counter, guarded by the node's own
// mutex.
type Node struct {
	Label    string
	Task     task.Func
	Children []*Node
	Parents  []*Node

	required int

	mu           sync.Mutex
	satisfied    int
	maxSatisfied int
}

// Required reports the node's in-degree, constant after construction.
func (n *Node) Required() int {
	return n.required
}

// Satisfied reports how many parents have completed in the current cycle.
func (n *Node) Satisfied() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.satisfied
}

// MaxSatisfied reports the highest value the satisfied counter ever reached.
// It exists for counter-sanity checks and is not consumed by the engine.
func (n *Node) MaxSatisfied() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.maxSatisfied
}

// Arrive records the completion of one parent. It returns true exactly once
// per cycle, on the arrival that makes the node ready; the caller that
// receives true is responsible for enqueueing the node. The comparison
// happens under the node's lock so the property holds even when multiple
// parents finish concurrently.
func (n *Node) Arrive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.satisfied++
	if n.satisfied > n.required {
		panic(fmt.Sprintf("graph: node %q satisfied count %d exceeds required %d", n.Label, n.satisfied, n.required))
	}
	if n.satisfied > n.maxSatisfied {
		n.maxSatisfied = n.satisfied
	}
	return n.satisfied == n.required
}

// Reset clears the satisfied counter for the next cycle. The worker that
// just executed the node calls this before publishing completion to any
// child, so the node can accept next-cycle arrivals the moment the sink
// restarts the graph.
func (n *Node) Reset() {
	n.mu.Lock()
	n.satisfied = 0
	n.mu.Unlock()
}

// Graph owns every node of one DAG in a flat slice. It carries no
// scheduling state; all runtime mutability lives in the per-node counters
// and the engine's ready queue.
type Graph struct {
	nodes   []*Node
	byLabel map[string]*Node

	source *Node
	sink   *Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		byLabel: make(map[string]*Node),
	}
}

// NewNode adds a node with the given label and task body. Labels must be
// unique within the graph.
func (g *Graph) NewNode(label string, fn task.Func) (*Node, error) {
	if label == "" {
		return nil, fmt.Errorf("node label must not be empty")
	}
	if _, ok := g.byLabel[label]; ok {
		return nil, fmt.Errorf("duplicate node label %q", label)
	}
	if fn == nil {
		fn = task.Noop
	}
	n := &Node{Label: label, Task: fn}
	g.nodes = append(g.nodes, n)
	g.byLabel[label] = n
	return n, nil
}

// Link creates the directed edge parent → child: it appends to the parent's
// child list and the child's parent list and raises the child's required
// in-degree by one.
func (g *Graph) Link(parent, child *Node) error {
	if parent == child {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", parent.Label, child.Label)
	}
	parent.Children = append(parent.Children, child)
	child.Parents = append(child.Parents, parent)
	child.required++
	return nil
}

// Find returns the node with the given label, or nil. Intended for use
// during construction only.
func (g *Graph) Find(label string) *Node {
	return g.byLabel[label]
}

// Nodes returns all nodes in insertion order. Callers must not mutate the
// returned slice.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Len reports the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Source returns the unique node with no parents. Valid after Validate.
func (g *Graph) Source() *Node {
	return g.source
}

// Sink returns the unique node with no children. Valid after Validate.
func (g *Graph) Sink() *Node {
	return g.sink
}
