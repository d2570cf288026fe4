package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/taskgridgo/internal/ctxlog"
	"github.com/vk/taskgridgo/internal/graph"
)

// runner is the worker loop. Each iteration: block on the queue, run the
// task with start/end trace markers, reset the node's own counter, then
// either hand the sink to the cycle controller or publish completion to the
// children.
//
// The reset must happen before any child is published: a child made ready
// during publication may run on another worker immediately, and once the
// sink restarts the graph this node has to accept next-cycle arrivals. It
// is safe because every parent of this node has already completed this
// cycle, so no arrival can race the reset.
func (e *Engine) runner(ctx context.Context, id int, ready *sync.WaitGroup) {
	logger := ctxlog.FromContext(ctx).With("runner", id)
	defer e.wg.Done()

	if e.opts.LogLifecycle {
		logger.Info("Runner started.")
	}
	ready.Done()

	for {
		n, ok := e.queue.pop()
		if !ok {
			break
		}

		if e.opts.LogTask {
			logger.Info("Running task.", "node", n.Label)
		}

		e.trace.append(n.Label)
		if err := e.invoke(n); err != nil {
			logger.Error("Task failed, stopping engine.", "node", n.Label, "error", err)
			e.fail(err)
			continue
		}
		e.trace.append(n.Label)

		n.Reset()

		if n == e.graph.Sink() {
			e.finishCycle(ctx)
			continue
		}

		for _, child := range n.Children {
			if child.Arrive() {
				e.queue.push(child)
			}
		}
	}

	if e.opts.LogLifecycle {
		logger.Info("Runner exiting.")
	}
}

// invoke runs the task body, converting a panic into an error. Task bodies
// are assumed total; a panic here is terminal for the whole engine.
func (e *Engine) invoke(n *graph.Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", n.Label, r)
		}
	}()
	n.Task()
	return nil
}
