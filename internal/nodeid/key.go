package nodeid

import (
	"fmt"
	"strings"
)

// FactoryKey identifies a node factory. Variant distinguishes factories
// sharing a name, for example the same computation with different output
// types.
type FactoryKey struct {
	Name    string
	Variant string
}

// String renders `name` or `name:variant`.
func (f FactoryKey) String() string {
	if f.Variant == "" {
		return f.Name
	}
	return f.Name + ":" + f.Variant
}

// Key identifies a node: the factory creating it plus the factory argument.
type Key struct {
	Factory FactoryKey
	Arg     any
}

// New returns the key of the node created by the named factory for arg.
func New(factory string, arg any) Key {
	return Key{Factory: FactoryKey{Name: factory}, Arg: arg}
}

// String renders the canonical `factory[arg]` form. A nil argument renders
// as the bare factory name.
func (k Key) String() string {
	if k.Arg == nil {
		return k.Factory.String()
	}
	var sb strings.Builder
	sb.WriteString(k.Factory.String())
	sb.WriteRune('[')
	sb.WriteString(fmt.Sprint(k.Arg))
	sb.WriteRune(']')
	return sb.String()
}

// Less orders keys by their text form. It is a convenience for callers that
// need deterministic ordering.
func Less(a, b Key) bool {
	return a.String() < b.String()
}
