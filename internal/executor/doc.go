// Package executor runs a discovered task graph.
//
// A GraphExecutor owns the nodes of one graph. Every node waits on a
// countdown of its successful dependencies plus two extra counts: one
// released by the restriction strategy and one released after wiring
// completes, so no node starts before the whole graph is wired. When a node
// resolves, the executor pushes the outcome forward: successful results
// count down dependents, failures and skips resolve dependents without
// running them, cancellation cancels them. Once every node resolved, the
// execution future completes with a Result.
package executor
