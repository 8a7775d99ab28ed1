package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client performs the requests. Nil means a client with a 30s timeout.
	Client *http.Client
}

// Response is the output of an http_request node.
type Response struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

// NewFactory returns the factory of `http_request` nodes, configured by the
// `url` and optional `method` params.
func (m *Module) NewFactory(client *http.Client) task.Factory {
	return func(_ context.Context, args *task.CreateArgs) (task.Func, error) {
		url, _ := args.Spec.Param("url").(string)
		if url == "" {
			return nil, fmt.Errorf("node %s: missing required param \"url\"", args.Key)
		}
		method, _ := args.Spec.Param("method").(string)
		if method == "" {
			method = http.MethodGet
		}

		return func(ctx context.Context) (any, error) {
			logger := ctxlog.FromContext(ctx)
			logger.Info("Making HTTP request", "method", method, "url", url)

			req, err := http.NewRequestWithContext(ctx, method, url, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to create request: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("failed to execute request: %w", err)
			}
			defer resp.Body.Close()

			logger.Info("Received HTTP response", "status", resp.Status)

			bodyBytes, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read response body: %w", err)
			}
			return &Response{StatusCode: resp.StatusCode, Body: string(bodyBytes)}, nil
		}, nil
	}
}

// Register registers the factory with the engine.
func (m *Module) Register(c *registry.Collector) {
	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	c.RegisterFactory("http_request", m.NewFactory(client))
}
