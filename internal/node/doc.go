// Package node implements the lifecycle of a single task-graph node:
// created, then scheduled exactly once, then resolved as succeeded, failed
// or canceled.
//
// Scheduling is lock-free. The node's computation is held in an atomic
// pointer and whoever swaps it out first owns the only run; every other
// caller sees nil and returns. The same swap lets dependency failures and
// cancellation pre-empt a node that has not been scheduled yet.
package node
