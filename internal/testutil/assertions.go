package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/taskgraph/internal/events"
)

// AssertNodeEvent checks the log output within a HarnessResult to confirm
// that the node with the given key emitted the event.
func AssertNodeEvent(t *testing.T, result *HarnessResult, event events.Type, key string) {
	t.Helper()

	expected := fmt.Sprintf("event=%s node=%s", event, key)
	require.True(t,
		strings.Contains(result.Output, expected),
		"expected %q for node %s was not found in logs", event, key,
	)
}

// AssertNoNodeEvent is the negation of AssertNodeEvent.
func AssertNoNodeEvent(t *testing.T, result *HarnessResult, event events.Type, key string) {
	t.Helper()

	unexpected := fmt.Sprintf("event=%s node=%s", event, key)
	require.False(t,
		strings.Contains(result.Output, unexpected),
		"unexpected %q for node %s found in logs", event, key,
	)
}
