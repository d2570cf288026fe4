// Package engine is the concurrent dispatch core. It repeatedly executes a
// fixed task graph over a pool of long-lived workers: a FIFO ready queue
// feeds nodes whose parents have all completed, per-node counters account
// for dependencies, and a cycle controller re-arms the whole graph at the
// sink until the configured loop count is reached.
//
// The engine is purely reactive. It computes no schedule; ready nodes are
// picked up in FIFO order by whichever worker is free, and the only
// ordering guarantee is the partial order imposed by the graph's edges.
package engine
