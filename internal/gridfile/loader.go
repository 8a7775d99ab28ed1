// Package gridfile loads grid definitions written in HCL.
//
// A grid declares nodes with their static inputs and parameters, plus an
// optional run block naming the requested results and execution settings:
//
//	node "value" "left" {
//	  params = { value = 2 }
//	}
//	node "sum" "total" {
//	  inputs = ["value[left]", "value[right]"]
//	}
//	run {
//	  results = ["sum[total]"]
//	}
package gridfile

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/fsutil"
	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/task"
)

// Extension of grid files.
const Extension = ".hcl"

var (
	// ErrNoFiles is returned when the given paths contain no grid files.
	ErrNoFiles = errors.New("no grid files found")
	// ErrDuplicateNode is returned for a node declared twice.
	ErrDuplicateNode = errors.New("node declared more than once")
	// ErrDuplicateRun is returned when more than one run block exists.
	ErrDuplicateRun = errors.New("run block declared more than once")
)

// RunConfig holds the settings of the run block. Nil fields were not set.
type RunConfig struct {
	Results                []nodeid.Key
	StopOnFailure          *bool
	DeliverResultOnFailure *bool
	Strategy               *string
	Budget                 *int
}

// Grid is the merged content of all loaded grid files.
type Grid struct {
	// Nodes lists declared nodes in declaration order.
	Nodes []nodeid.Key
	Specs task.SpecMap
	Run   RunConfig
}

// Roots returns the nodes to build and report: the run results when given,
// every declared node otherwise.
func (g *Grid) Roots() []nodeid.Key {
	if len(g.Run.Results) > 0 {
		return append([]nodeid.Key(nil), g.Run.Results...)
	}
	return append([]nodeid.Key(nil), g.Nodes...)
}

// Load parses every grid file found under paths and merges them into one
// Grid.
func Load(ctx context.Context, paths ...string) (*Grid, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Grid loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoFiles, paths)
	}
	logger.Debug("Discovered grid files.", "count", len(files))

	grid := &Grid{Specs: task.SpecMap{}}
	runSeen := false
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse grid file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode grid file %s: %w", file, diags)
		}

		for _, block := range root.Nodes {
			key, spec, err := translateNode(block)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			if _, ok := grid.Specs[key]; ok {
				return nil, fmt.Errorf("%s: %w: %s", file, ErrDuplicateNode, key)
			}
			grid.Specs[key] = spec
			grid.Nodes = append(grid.Nodes, key)
		}

		for _, block := range root.Runs {
			if runSeen {
				return nil, fmt.Errorf("%s: %w", file, ErrDuplicateRun)
			}
			runSeen = true
			run, err := translateRun(block)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			grid.Run = run
		}
	}

	logger.Debug("Grid loading complete.", "nodes", len(grid.Nodes), "results", len(grid.Run.Results))
	return grid, nil
}

func translateNode(b *nodeBlock) (nodeid.Key, task.Spec, error) {
	key, err := nodeid.Parse(b.Factory + "[" + b.Arg + "]")
	if err != nil {
		return nodeid.Key{}, task.Spec{}, fmt.Errorf("node %q %q: %w", b.Factory, b.Arg, err)
	}

	spec := task.Spec{}
	spec.Inputs, err = parseKeys(b.Inputs)
	if err != nil {
		return nodeid.Key{}, task.Spec{}, fmt.Errorf("node %s inputs: %w", key, err)
	}

	if b.Params != nil {
		val, diags := b.Params.Value(nil)
		if diags.HasErrors() {
			return nodeid.Key{}, task.Spec{}, fmt.Errorf("node %s params: %w", key, diags)
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nodeid.Key{}, task.Spec{}, fmt.Errorf("node %s params: %w", key, err)
		}
		if native != nil {
			params, ok := native.(map[string]any)
			if !ok {
				return nodeid.Key{}, task.Spec{}, fmt.Errorf("node %s params: expected an object, got %s", key, val.Type().FriendlyName())
			}
			spec.Params = params
		}
	}
	return key, spec, nil
}

func translateRun(b *runBlock) (RunConfig, error) {
	results, err := parseKeys(b.Results)
	if err != nil {
		return RunConfig{}, fmt.Errorf("run results: %w", err)
	}
	if b.Budget != nil && *b.Budget < 1 {
		return RunConfig{}, fmt.Errorf("run budget must be at least 1, got %d", *b.Budget)
	}
	return RunConfig{
		Results:                results,
		StopOnFailure:          b.StopOnFailure,
		DeliverResultOnFailure: b.DeliverResultOnFailure,
		Strategy:               b.Strategy,
		Budget:                 b.Budget,
	}, nil
}

func parseKeys(raw []string) ([]nodeid.Key, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	keys := make([]nodeid.Key, 0, len(raw))
	for _, r := range raw {
		k, err := nodeid.Parse(r)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
