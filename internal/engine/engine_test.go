package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgridgo/internal/graph"
	"github.com/vk/taskgridgo/internal/task"
)

// testGraph builds a graph from an adjacency list of parent → children,
// giving every node the same simulated duration. Returns the validated
// graph and the flattened edge list.
func testGraph(t *testing.T, adjacency map[string][]string, labels []string, d time.Duration) (*graph.Graph, [][2]string) {
	t.Helper()
	g := graph.New()
	for _, l := range labels {
		_, err := g.NewNode(l, task.Sleep(d, false))
		require.NoError(t, err)
	}
	var edges [][2]string
	for _, parent := range labels {
		for _, child := range adjacency[parent] {
			require.NoError(t, g.Link(g.Find(parent), g.Find(child)))
			edges = append(edges, [2]string{parent, child})
		}
	}
	require.NoError(t, g.Validate())
	return g, edges
}

// referenceGraph is the canonical 14-node topology with inherent
// parallelism 4.
func referenceGraph(t *testing.T, d time.Duration) (*graph.Graph, [][2]string, []string) {
	t.Helper()
	labels := []string{"A", "a", "b", "c", "1", "2", "3", "4", "i", "j", "k", "x", "y", "Z"}
	adjacency := map[string][]string{
		"A": {"a", "b", "c"},
		"a": {"1", "2"},
		"b": {"2"},
		"c": {"2", "3", "4"},
		"1": {"i"},
		"2": {"i", "j"},
		"3": {"j", "k"},
		"4": {"k"},
		"i": {"x"},
		"j": {"x", "y"},
		"k": {"y"},
		"x": {"Z"},
		"y": {"Z"},
	}
	g, edges := testGraph(t, adjacency, labels, d)
	return g, edges, labels
}

// markerIndexes returns the positions of the start and end markers of a
// label within a cycle trace.
func markerIndexes(t *testing.T, trace, label string) (int, int) {
	t.Helper()
	first := strings.Index(trace, label)
	require.GreaterOrEqual(t, first, 0, "trace %q is missing start marker for %q", trace, label)
	second := strings.Index(trace[first+1:], label)
	require.GreaterOrEqual(t, second, 0, "trace %q is missing end marker for %q", trace, label)
	return first, first + 1 + second
}

// assertValidCycleTrace checks completeness (each label appears exactly
// twice, total length 2·|nodes|) and precedence (for every edge u→v the end
// marker of u precedes the start marker of v).
func assertValidCycleTrace(t *testing.T, trace string, labels []string, edges [][2]string) {
	t.Helper()
	require.Len(t, trace, 2*len(labels), "trace %q has wrong length", trace)
	for _, l := range labels {
		assert.Equal(t, 2, strings.Count(trace, l), "trace %q must contain %q exactly twice", trace, l)
	}
	for _, e := range edges {
		_, endU := markerIndexes(t, trace, e[0])
		startV, _ := markerIndexes(t, trace, e[1])
		assert.Less(t, endU, startV,
			"trace %q violates edge %s->%s: end of %s at %d, start of %s at %d",
			trace, e[0], e[1], e[0], endU, e[1], startV)
	}
}

func runEngine(t *testing.T, g *graph.Graph, workers, loops int) *Engine {
	t.Helper()
	e, err := New(g, Options{Workers: workers, Loops: loops, CollectTraces: true})
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))
	return e
}

func TestLinearChainSingleWorker(t *testing.T) {
	// A → a → Z, one worker, one loop: the trace is fully deterministic.
	g, _ := testGraph(t, map[string][]string{
		"A": {"a"},
		"a": {"Z"},
	}, []string{"A", "a", "Z"}, 10*time.Millisecond)

	e := runEngine(t, g, 1, 1)

	assert.Equal(t, 1, e.LoopsDone())
	require.Len(t, e.Traces(), 1)
	assert.Equal(t, "AAaaZZ", e.Traces()[0])
}

func TestSourceToSinkOnly(t *testing.T) {
	g, edges := testGraph(t, map[string][]string{
		"A": {"Z"},
	}, []string{"A", "Z"}, 0)

	e := runEngine(t, g, 2, 3)

	assert.Equal(t, 3, e.LoopsDone())
	for _, trace := range e.Traces() {
		assertValidCycleTrace(t, trace, []string{"A", "Z"}, edges)
	}
}

func TestDiamond(t *testing.T) {
	// A → {a, b} → z → Z with two workers: a and b run concurrently, z
	// must wait for both.
	g, edges := testGraph(t, map[string][]string{
		"A": {"a", "b"},
		"a": {"z"},
		"b": {"z"},
		"z": {"Z"},
	}, []string{"A", "a", "b", "z", "Z"}, 5*time.Millisecond)

	e := runEngine(t, g, 2, 1)

	require.Len(t, e.Traces(), 1)
	trace := e.Traces()[0]
	assertValidCycleTrace(t, trace, []string{"A", "a", "b", "z", "Z"}, edges)
	assert.True(t, strings.HasPrefix(trace, "AA"), "trace %q must begin with the source pair", trace)
	assert.True(t, strings.HasSuffix(trace, "ZZ"), "trace %q must end with the sink pair", trace)
}

func TestReferenceGraph(t *testing.T) {
	g, edges, labels := referenceGraph(t, time.Millisecond)

	e := runEngine(t, g, 5, 10)

	assert.Equal(t, 10, e.LoopsDone())
	traces := e.Traces()
	require.Len(t, traces, 10)
	for _, trace := range traces {
		assertValidCycleTrace(t, trace, labels, edges)
	}
}

func TestZeroDurationTasks(t *testing.T) {
	g, edges, labels := referenceGraph(t, 0)

	e := runEngine(t, g, 5, 5)

	assert.Equal(t, 5, e.LoopsDone())
	for _, trace := range e.Traces() {
		assertValidCycleTrace(t, trace, labels, edges)
	}
}

func TestMoreWorkersThanParallelism(t *testing.T) {
	// Pool size beyond the graph's inherent parallelism: idle workers must
	// neither deadlock nor corrupt the traces.
	g, edges, labels := referenceGraph(t, time.Millisecond)

	e := runEngine(t, g, 16, 3)

	assert.Equal(t, 3, e.LoopsDone())
	for _, trace := range e.Traces() {
		assertValidCycleTrace(t, trace, labels, edges)
	}
}

func TestSingleWorkerIsDeterministic(t *testing.T) {
	run := func() []string {
		g, _, _ := referenceGraph(t, 0)
		e := runEngine(t, g, 1, 3)
		return e.Traces()
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "P=1 runs must produce identical traces")

	// All cycles of one run are identical too: same FIFO order every time.
	for i, trace := range first[1:] {
		assert.Equal(t, first[0], trace, "cycle %d diverged", i+1)
	}
}

func TestCounterSanity(t *testing.T) {
	g, _, _ := referenceGraph(t, 0)

	runEngine(t, g, 5, 100)

	for _, n := range g.Nodes() {
		assert.Equal(t, 0, n.Satisfied(), "node %q satisfied counter not reset after run", n.Label)
		assert.Equal(t, n.Required(), n.MaxSatisfied(),
			"node %q max satisfied %d, required %d", n.Label, n.MaxSatisfied(), n.Required())
	}
}

func TestShutdownLiveness(t *testing.T) {
	g, _, _ := referenceGraph(t, 0)
	e, err := New(g, Options{Workers: 5, Loops: 10})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not shut down after the final cycle")
	}
	assert.Equal(t, 10, e.LoopsDone())
}

func TestTaskPanicStopsEngine(t *testing.T) {
	g := graph.New()
	a, err := g.NewNode("A", nil)
	require.NoError(t, err)
	boom, err := g.NewNode("b", func() { panic("kaboom") })
	require.NoError(t, err)
	z, err := g.NewNode("Z", nil)
	require.NoError(t, err)
	require.NoError(t, g.Link(a, boom))
	require.NoError(t, g.Link(boom, z))
	require.NoError(t, g.Validate())

	e, err := New(g, Options{Workers: 2, Loops: 5})
	require.NoError(t, err)

	runErr := e.Run(context.Background())
	require.Error(t, runErr)
	assert.ErrorContains(t, runErr, "panicked")
	assert.ErrorContains(t, runErr, "kaboom")
	assert.Equal(t, 0, e.LoopsDone())
}

func TestContextCancellation(t *testing.T) {
	g, _, _ := referenceGraph(t, 5*time.Millisecond)
	e, err := New(g, Options{Workers: 2, Loops: 1_000_000})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancellation did not stop the engine")
	}
}

func TestNewValidation(t *testing.T) {
	valid := func() *graph.Graph {
		g, _ := testGraph(t, map[string][]string{"A": {"Z"}}, []string{"A", "Z"}, 0)
		return g
	}

	cases := []struct {
		name    string
		graph   *graph.Graph
		opts    Options
		wantErr string
	}{
		{"nil graph", nil, Options{Workers: 1, Loops: 1}, "graph is empty"},
		{"zero workers", valid(), Options{Workers: 0, Loops: 1}, "workers must be >= 1"},
		{"zero loops", valid(), Options{Workers: 1, Loops: 0}, "loops must be >= 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.graph, tc.opts)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}

	t.Run("unvalidated graph", func(t *testing.T) {
		g := graph.New()
		_, err := g.NewNode("A", nil)
		require.NoError(t, err)
		_, err = New(g, Options{Workers: 1, Loops: 1})
		assert.ErrorContains(t, err, "not been validated")
	})
}

func TestPrintTrace(t *testing.T) {
	g, _ := testGraph(t, map[string][]string{
		"A": {"a"},
		"a": {"Z"},
	}, []string{"A", "a", "Z"}, 0)

	var sb strings.Builder
	e, err := New(g, Options{Workers: 1, Loops: 2, Out: &sb, PrintTrace: true})
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))

	want := fmt.Sprintf("%s\n%s\n", "AAaaZZ", "AAaaZZ")
	assert.Equal(t, want, sb.String())
}
