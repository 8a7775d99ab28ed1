package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// Its "sleeper" nodes wait for their inputs, sleep, and record when they ran
// and how many sleepers ran at the same time. A sleeper returns its argument.
type MockSleeperModule struct {
	mu             sync.Mutex
	executionTimes map[string]*ExecutionRecord
	sleepDuration  time.Duration
	running        int
	maxRunning     int
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		executionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
	}
}

// Register registers the "sleeper" factory.
func (m *MockSleeperModule) Register(c *registry.Collector) {
	c.RegisterFactory("sleeper", func(_ context.Context, args *task.CreateArgs) (task.Func, error) {
		id := fmt.Sprint(args.Arg())
		refs := args.BindSpecInputs()
		return func(ctx context.Context) (any, error) {
			for _, ref := range refs {
				if _, err := ref.Consume(); err != nil {
					return nil, err
				}
			}

			m.enter()
			startTime := time.Now()
			timer := time.NewTimer(m.sleepDuration)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				m.exit(id, startTime)
				return nil, ctx.Err()
			}
			m.exit(id, startTime)
			return id, nil
		}, nil
	})
}

func (m *MockSleeperModule) enter() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running++
	if m.running > m.maxRunning {
		m.maxRunning = m.running
	}
}

func (m *MockSleeperModule) exit(id string, start time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running--
	m.executionTimes[id] = &ExecutionRecord{Start: start, End: time.Now()}
}

// Record returns the execution record of the sleeper with the given id.
func (m *MockSleeperModule) Record(id string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.executionTimes[id]
	return r, ok
}

// MaxConcurrent returns the highest number of sleepers observed running at
// once.
func (m *MockSleeperModule) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxRunning
}
