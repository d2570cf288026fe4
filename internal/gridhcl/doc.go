// Package gridhcl loads grid definitions from HCL. A grid file declares an
// optional engine block (workers, loops, jitter) and one node block per
// task; dependency edges are declared on the child via the after attribute.
// Loading is split from building so run-time overrides (CLI flags) can be
// applied between the two steps.
package gridhcl
