// Package daemonctl talks to a running audioserver over its HTTP API.
package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"audioserver/internal/api"
)

// ErrDaemonNotRunning indicates nothing is listening on the configured bind.
var ErrDaemonNotRunning = errors.New("daemon not running")

const defaultTimeout = 5 * time.Second

// Client queries a server's status endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server bound to bind. Wildcard hosts
// are dialed on loopback.
func NewClient(bind string) *Client {
	return &Client{
		baseURL: "http://" + dialAddress(bind),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

func dialAddress(bind string) string {
	bind = strings.TrimSpace(bind)
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return bind
	}
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}
	return net.JoinHostPort(host, port)
}

// BaseURL returns the URL the client dials.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status fetches /api/status. A refused connection is ErrDaemonNotRunning.
func (c *Client) Status(ctx context.Context) (*api.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, ErrDaemonNotRunning
		}
		return nil, fmt.Errorf("query status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var body api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("query status: %s: %s", resp.Status, body.Error)
	}
	var status api.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// ProcessInfo reports whether a server answers on bind and its PID.
func ProcessInfo(ctx context.Context, bind string) (bool, int, error) {
	status, err := NewClient(bind).Status(ctx)
	if errors.Is(err, ErrDaemonNotRunning) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return status.Running, status.PID, nil
}

// WaitForReady polls bind until the server reports running or timeout elapses.
func WaitForReady(ctx context.Context, bind string, timeout time.Duration) (*api.Status, error) {
	client := NewClient(bind)
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		status, err := client.Status(ctx)
		if err == nil && status.Running {
			return status, nil
		}
		if err != nil {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for server")
	}
	return nil, fmt.Errorf("server not ready: %w", lastErr)
}
