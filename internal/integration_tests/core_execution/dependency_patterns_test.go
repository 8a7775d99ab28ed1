package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskgraph/internal/events"
	"github.com/vk/taskgraph/internal/executor"
	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/testutil"
)

// Test for: nested fan-in passes values through every level.
func TestCoreExecution_NestedFanInSum(t *testing.T) {
	// --- Arrange ---
	gridHCL := `
node "value" "a" {
  params = { value = 1 }
}
node "value" "b" {
  params = { value = 2 }
}
node "value" "c" {
  params = { value = 4.5 }
}
node "sum" "inner" {
  inputs = ["value[a]", "value[b]"]
}
node "sum" "outer" {
  inputs = ["sum[inner]", "value[c]"]
}
run {
  results = ["sum[outer]", "sum[inner]"]
}
`

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": gridHCL})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.Equal(t, executor.ResultSuccess, result.Result.Type())
	inner, err := result.Result.Get(nodeid.MustParse("sum[inner]"))
	require.NoError(t, err)
	assert.Equal(t, 3, inner)
	outer, err := result.Result.Get(nodeid.MustParse("sum[outer]"))
	require.NoError(t, err)
	assert.Equal(t, 7.5, outer)
	assert.Contains(t, result.Output, "sum[outer] = 7.5")
}

// Test for: a dependency shared by several nodes is computed once.
func TestCoreExecution_SharedDependencyRunsOnce(t *testing.T) {
	// --- Arrange ---
	gridHCL := `
node "spy" "base" {}
node "spy" "left" {
  inputs = ["spy[base]"]
}
node "spy" "right" {
  inputs = ["spy[base]"]
}
node "spy" "top" {
  inputs = ["spy[left]", "spy[right]"]
}
run {
  results = ["spy[top]"]
}
`
	spy := &testutil.SpyModule{}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": gridHCL}, spy)

	// --- Assert ---
	require.NoError(t, result.Err)
	for _, id := range []string{"base", "left", "right", "top"} {
		assert.Equal(t, 1, spy.Runs(id), "spy %s", id)
	}
	testutil.AssertNodeEvent(t, result, events.NodeSucceeded, "spy[base]")
}

// Test for: the print module writes the outputs of its inputs.
func TestCoreExecution_PrintModule(t *testing.T) {
	// --- Arrange ---
	gridHCL := `
node "value" "greeting" {
  params = { value = "hello" }
}
node "value" "count" {
  params = { value = 3 }
}
node "print" "report" {
  inputs = ["value[greeting]", "value[count]"]
}
run {
  results = ["print[report]"]
}
`

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": gridHCL})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "print[report]:\n")
	assert.Contains(t, result.Output, "      value[count] = 3\n")
	assert.Contains(t, result.Output, "      value[greeting] = hello\n")
}

// Test for: without a run block every declared node is a requested result.
func TestCoreExecution_ResultsDefaultToAllNodes(t *testing.T) {
	gridHCL := `
node "value" "x" {
  params = { value = "first" }
}
node "value" "y" {
  params = { value = "second" }
}
`

	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": gridHCL})

	require.NoError(t, result.Err)
	assert.Len(t, result.Result.Keys(), 2)
	assert.Contains(t, result.Output, "value[x] = first")
	assert.Contains(t, result.Output, "value[y] = second")
}

// Test for: a skipped node is not a failure and skips its dependents.
func TestCoreExecution_SkipPropagates(t *testing.T) {
	gridHCL := `
node "skip" "gate" {
  params = { reason = "feature disabled" }
}
node "spy" "after" {
  inputs = ["skip[gate]"]
}
node "spy" "independent" {}
run {
  results = ["spy[after]", "spy[independent]"]
}
`
	spy := &testutil.SpyModule{}

	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": gridHCL}, spy)

	require.NoError(t, result.Err)
	assert.Equal(t, executor.ResultSuccess, result.Result.Type())
	assert.Zero(t, spy.Runs("after"))
	assert.Equal(t, 1, spy.Runs("independent"))
	testutil.AssertNodeEvent(t, result, events.NodeSkipped, "skip[gate]")
	testutil.AssertNodeEvent(t, result, events.NodeSkipped, "spy[after]")
	assert.Contains(t, result.Output, "feature disabled")
}
