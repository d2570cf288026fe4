// Package graph holds the immutable task-graph topology: nodes with their
// task bodies, bidirectional edge lists, and the per-node dependency
// counters the engine drives at runtime. The child/parent lists form a
// logical cycle, not an ownership one; the Graph container owns every node
// in a flat slice and everything else holds plain references.
package graph
