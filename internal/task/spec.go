package task

import "github.com/vk/taskgraph/internal/nodeid"

// Spec is the declared configuration of a node, as written in a grid file.
// Factories are free to ignore it.
type Spec struct {
	Inputs []nodeid.Key
	Params map[string]any
}

// Param returns the named parameter, or nil.
func (s Spec) Param(name string) any {
	if s.Params == nil {
		return nil
	}
	return s.Params[name]
}

// SpecSource resolves node specs by key.
type SpecSource interface {
	Spec(key nodeid.Key) (Spec, bool)
}

// SpecMap is a SpecSource backed by a map.
type SpecMap map[nodeid.Key]Spec

func (m SpecMap) Spec(key nodeid.Key) (Spec, bool) {
	s, ok := m[key]
	return s, ok
}
