/*
Package nodeid identifies nodes of a task graph.

A node is named by the factory that creates it and the argument passed to
that factory. The canonical text form is `factory[arg]`, with an optional
`:variant` suffix on the factory name, e.g. `fetch:cached[users]`.

Keys are comparable values and are used directly as map keys, so the
argument must hold a comparable dynamic value.
*/
package nodeid
