package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"audioserver/internal/api"
)

func TestDialAddress(t *testing.T) {
	tests := map[string]string{
		"0.0.0.0:5000":   "127.0.0.1:5000",
		":5000":          "127.0.0.1:5000",
		"[::]:5000":      "[::1]:5000",
		"10.0.0.2:80":    "10.0.0.2:80",
		"localhost:5000": "localhost:5000",
	}
	for in, want := range tests {
		if got := dialAddress(in); got != want {
			t.Errorf("dialAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusAndProcessInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(api.Status{Running: true, PID: 4242})
	}))
	defer srv.Close()
	bind := strings.TrimPrefix(srv.URL, "http://")

	running, pid, err := ProcessInfo(context.Background(), bind)
	if err != nil || !running || pid != 4242 {
		t.Fatalf("unexpected process info running=%v pid=%d err=%v", running, pid, err)
	}
	status, err := WaitForReady(context.Background(), bind, time.Second)
	if err != nil || status.PID != 4242 {
		t.Fatalf("WaitForReady: %+v %v", status, err)
	}
}

func TestStatusNotRunning(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	bind := listener.Addr().String()
	listener.Close()

	if _, err := NewClient(bind).Status(context.Background()); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	running, _, err := ProcessInfo(context.Background(), bind)
	if err != nil || running {
		t.Fatalf("expected not running without error, got running=%v err=%v", running, err)
	}
}
