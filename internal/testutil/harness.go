package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/taskgraph/internal/app"
	"github.com/vk/taskgraph/internal/executor"
	"github.com/vk/taskgraph/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Output holds logs and printed results.
	Output string
	Result *executor.Result
	Err    error
	App    *app.App
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context and configuration.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithConfig(context.Background(), t, app.Config{}, files, modules...)
}

// RunIntegrationTestWithConfig writes files below a temporary grid
// directory and runs the app on it. The core modules are always registered,
// printing into the captured output; modules are registered next to them.
// Unset log settings default to debug text logs, an unset worker count to 4.
func RunIntegrationTestWithConfig(ctx context.Context, t *testing.T, cfg app.Config, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	gridDir := filepath.Join(t.TempDir(), "grid")
	require.NoError(t, os.Mkdir(gridDir, 0o755))
	for name, content := range files {
		filePath := filepath.Join(gridDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	cfg.GridPath = gridDir
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	output := &SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("TASKGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), output.String())
		}
	})

	result := &HarnessResult{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application panicked | %v", r)
			}
		}()
		all := append(app.CoreModules(output), modules...)
		testApp, err := app.NewApp(output, appConfig, all...)
		if err != nil {
			result.Err = err
			return
		}
		result.App = testApp
		result.Result, result.Err = testApp.Run(ctx)
	}()

	result.Output = output.String()
	return result
}
