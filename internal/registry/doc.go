// Package registry holds the node factories available to a graph build.
//
// A Registry is assembled once, from modules or explicit configs, and is
// immutable afterwards. There is no process-wide registry: every builder is
// handed the collection it may use.
package registry
