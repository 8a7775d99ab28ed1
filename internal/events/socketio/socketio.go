// Package socketio publishes node lifecycle events to a socket.io server.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/events"
)

// EventName is the socket.io event carrying lifecycle events.
const EventName = "taskgraph_event"

// Config configures a socket.io publisher.
type Config struct {
	// URL of the server. A path, when present, replaces the default
	// "/socket.io" handshake path.
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Publisher emits events to a socket.io server.
type Publisher struct {
	client *socket.Socket
}

var _ events.Publisher = (*Publisher)(nil)

// Dial connects to the configured server and waits for the connection to
// be established.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("publisher", "socketio", "url", cfg.URL)
	logger.Debug("Connecting event publisher...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse events URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("events URL %q must be absolute", cfg.URL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Event publisher connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})
	io.Connect()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Publisher{client: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("waiting for socket.io connection: %w", ctx.Err())
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

func (p *Publisher) Publish(_ context.Context, ev events.Event) {
	p.client.Emit(EventName, map[string]any{
		"run_id": ev.RunID,
		"type":   string(ev.Type),
		"node":   ev.Node,
		"error":  ev.Error,
		"result": ev.Result,
		"time":   ev.Time.Format(time.RFC3339Nano),
	})
}

// Close disconnects from the server.
func (p *Publisher) Close() error {
	p.client.Disconnect()
	return nil
}
