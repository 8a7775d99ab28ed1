package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Nil means os.Stdout.
	Out io.Writer
}

// printer serializes writes of concurrently running print nodes.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewFactory returns the factory of `print` nodes. A print node writes the
// outputs of its inputs, one per line and sorted by key, and returns them as
// a map.
func (p *printer) NewFactory() task.Factory {
	return func(_ context.Context, args *task.CreateArgs) (task.Func, error) {
		refs := args.BindSpecInputs()
		key := args.Key
		return func(ctx context.Context) (any, error) {
			ctxlog.FromContext(ctx).Info("Printing input", "node", key.String())

			values := make(map[string]any, len(refs))
			for _, ref := range refs {
				v, err := ref.Consume()
				if err != nil {
					return nil, err
				}
				values[ref.Key().String()] = v
			}
			p.write(key.String(), values)
			return values, nil
		}, nil
	}
}

func (p *printer) write(header string, values map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s:\n", header)
	if len(values) == 0 {
		fmt.Fprintln(p.out, "      (null)")
		return
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(p.out, "      %s = %v\n", k, values[k])
	}
}

// Register registers the factory with the engine.
func (m *Module) Register(c *registry.Collector) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	p := &printer{out: out}
	c.RegisterFactory("print", p.NewFactory())
}
