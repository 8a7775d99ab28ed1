// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// A run loads the grid files, discovers the graph reachable from the
// requested results, executes it on a bounded worker pool and prints every
// requested result.
package app
