/*
Package builder discovers a task graph from its requested roots.

Discovery is driven by node factories. Building a root runs its factory,
which binds the inputs it needs; every newly bound key is queued and its
factory runs in turn, until no outstanding factory remains:

 1. Roots are added with AddNode. Unknown factories and duplicate roots are
    rejected immediately.

 2. Build runs every discovered factory exactly once, on the executor its
    config names. Requests for a key that is already known reuse the
    existing entry, so concurrent discovery never creates a node twice.
    Newly bound keys go onto a shared work queue that the first active
    caller drains, so arbitrarily deep graphs never deepen the call stack.

 3. When the last factory completes, the bound inputs become the edges of
    a DependencyDag, the factory outputs become nodes, and both are handed
    to the caller's ExecutorFactory.

The first factory failure cancels the build and becomes its result. Inputs
naming an unknown factory are collected and reported together once
discovery ends.
*/
package builder
