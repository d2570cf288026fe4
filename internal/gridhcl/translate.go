package gridhcl

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/taskgridgo/internal/graph"
	"github.com/vk/taskgridgo/internal/task"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Spec is the format-agnostic result of loading a grid: engine settings as
// declared (zero values mean "not set") plus one NodeSpec per node block.
type Spec struct {
	Workers int
	Loops   int
	Jitter  *bool

	Nodes []NodeSpec
}

// NodeSpec describes one node before graph construction.
type NodeSpec struct {
	Label    string
	Duration time.Duration
	After    []string
}

// translateNode converts a decoded node block into a NodeSpec.
func translateNode(block *nodeBlock) (NodeSpec, error) {
	ns := NodeSpec{Label: block.Label}

	if block.DurationMS != nil {
		if *block.DurationMS < 0 {
			return ns, fmt.Errorf("node %q: duration_ms must not be negative", block.Label)
		}
		ns.Duration = time.Duration(*block.DurationMS) * time.Millisecond
	}

	after, err := stringList(block.After)
	if err != nil {
		return ns, fmt.Errorf("node %q: after: %w", block.Label, err)
	}
	ns.After = after

	return ns, nil
}

// stringList evaluates an optional HCL expression into a list of strings.
// The decoder populates omitted optional attributes with zero-width
// expression objects, so presence is detected from the source range rather
// than a nil check.
func stringList(expr hcl.Expression) ([]string, error) {
	if !exprDefined(expr) {
		return nil, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("expected a list of labels, got %s", val.Type().FriendlyName())
	}

	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String {
			var converted string
			if err := gocty.FromCtyValue(elem, &converted); err != nil {
				return nil, fmt.Errorf("list element is not a label: %w", err)
			}
			out = append(out, converted)
			continue
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}

// exprDefined reports whether an expression was actually present in the
// source: a real attribute occupies bytes in the file, while the
// placeholder for an omitted optional attribute has a zero-width range.
func exprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	return rng.End.Byte > rng.Start.Byte
}

// Build materializes the spec into a validated graph. Task bodies are
// simulated workloads (task.Sleep) sized by each node's duration; jitter is
// resolved by the caller so run-time overrides can win over the grid file.
func (s *Spec) Build(jitter bool) (*graph.Graph, error) {
	g := graph.New()

	for _, ns := range s.Nodes {
		if _, err := g.NewNode(ns.Label, task.Sleep(ns.Duration, jitter)); err != nil {
			return nil, err
		}
	}

	for _, ns := range s.Nodes {
		child := g.Find(ns.Label)
		for _, parentLabel := range ns.After {
			parent := g.Find(parentLabel)
			if parent == nil {
				return nil, fmt.Errorf("node %q: after references unknown node %q", ns.Label, parentLabel)
			}
			if err := g.Link(parent, child); err != nil {
				return nil, err
			}
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
