package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/vk/taskgridgo/internal/ctxlog"
	"github.com/vk/taskgridgo/internal/graph"
)

// Options configures a single engine run.
type Options struct {
	// Workers is the pool size P. Must be at least 1.
	Workers int
	// Loops is the number of full graph traversals L. Must be at least 1.
	Loops int

	// Out receives the textual observable outputs: per-cycle trace lines
	// (when PrintTrace is set) and nothing else. Defaults to io.Discard.
	Out io.Writer

	// PrintTrace writes each cycle's trace string to Out as one line.
	PrintTrace bool
	// CollectTraces retains each cycle's trace string in memory,
	// retrievable via Traces. Intended for tests and diagnostics.
	CollectTraces bool
	// LogLoops marks cycle boundaries in the log.
	LogLoops bool
	// LogLifecycle logs worker start and exit.
	LogLifecycle bool
	// LogTask logs which worker ran which task.
	LogTask bool
}

// Engine executes a validated task graph Loops times over a pool of Workers
// goroutines. An Engine value encloses all run state (queue, trace,
// counters), so multiple engines can coexist in one process. An Engine is
// single-use: construct, Run, discard.
type Engine struct {
	graph *graph.Graph
	opts  Options

	queue *readyQueue
	trace *cycleTrace

	loopsDone atomic.Int64

	wg sync.WaitGroup

	failOnce sync.Once
	taskErr  error

	tracesMu sync.Mutex
	traces   []string
}

// New constructs an engine for the given graph. The graph must already have
// passed Validate.
func New(g *graph.Graph, opts Options) (*Engine, error) {
	if g == nil || g.Len() == 0 {
		return nil, fmt.Errorf("engine: graph is empty")
	}
	if g.Source() == nil || g.Sink() == nil {
		return nil, fmt.Errorf("engine: graph has not been validated")
	}
	if opts.Workers < 1 {
		return nil, fmt.Errorf("engine: workers must be >= 1, got %d", opts.Workers)
	}
	if opts.Loops < 1 {
		return nil, fmt.Errorf("engine: loops must be >= 1, got %d", opts.Loops)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Engine{
		graph: g,
		opts:  opts,
		queue: newReadyQueue(),
		trace: newCycleTrace(g.Len()),
	}, nil
}

// Run executes the configured number of cycles and blocks until every
// worker has exited. A readiness barrier holds back the source push until
// every worker has started. A push that lands before a worker reaches its
// wait is still seen, because pop re-checks the queue under its lock.
//
// Cancelling ctx requests a cooperative shutdown: the queue closes, tasks
// already in flight run to completion, workers drain and exit, and Run
// returns ctx.Err(). There is no per-task cancellation.
func (e *Engine) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var ready sync.WaitGroup
	ready.Add(e.opts.Workers)
	e.wg.Add(e.opts.Workers)
	for i := 0; i < e.opts.Workers; i++ {
		if e.opts.LogLifecycle {
			logger.Info("Creating runner.", "runner", i)
		}
		go e.runner(ctx, i, &ready)
	}
	ready.Wait()

	stop := make(chan struct{})
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				e.queue.close()
			case <-stop:
			}
		}()
	}

	e.queue.push(e.graph.Source())
	e.wg.Wait()
	close(stop)

	if e.taskErr != nil {
		return e.taskErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// LoopsDone reports the number of completed cycles.
func (e *Engine) LoopsDone() int {
	return int(e.loopsDone.Load())
}

// Traces returns the per-cycle trace strings collected so far. Empty unless
// Options.CollectTraces is set.
func (e *Engine) Traces() []string {
	e.tracesMu.Lock()
	defer e.tracesMu.Unlock()
	out := make([]string, len(e.traces))
	copy(out, e.traces)
	return out
}

// fail records the first task failure and shuts the engine down. Workers
// drain the closed queue and exit; Run reports the recorded error.
func (e *Engine) fail(err error) {
	e.failOnce.Do(func() {
		e.taskErr = err
	})
	e.queue.close()
}

// finishCycle is the cycle controller. It runs on whichever worker executed
// the sink; the next cycle cannot begin until it returns, so the loop
// counter has a single writer per cycle and needs no extra lock.
func (e *Engine) finishCycle(ctx context.Context) {
	done := e.loopsDone.Add(1)

	line := e.trace.String()
	if e.opts.CollectTraces {
		e.tracesMu.Lock()
		e.traces = append(e.traces, line)
		e.tracesMu.Unlock()
	}
	if e.opts.PrintTrace {
		fmt.Fprintln(e.opts.Out, line)
	}
	if e.opts.LogLoops {
		ctxlog.FromContext(ctx).Info("Cycle complete.", "loop", done, "target", e.opts.Loops)
	}

	if int(done) == e.opts.Loops {
		e.queue.close()
		return
	}

	e.trace.reset()
	e.queue.push(e.graph.Source())
}
