package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected a single handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsEachLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled through the second handler")
	}

	logger := slog.New(h).With("component", "sampler")
	logger.Debug("attempt")
	logger.Info("accepted")

	if strings.Contains(infoBuf.String(), "attempt") {
		t.Fatalf("info handler received a debug record: %q", infoBuf.String())
	}
	for _, buf := range []*bytes.Buffer{&infoBuf, &debugBuf} {
		if !strings.Contains(buf.String(), "accepted") || !strings.Contains(buf.String(), `"component":"sampler"`) {
			t.Fatalf("expected info record with attrs, got %q", buf.String())
		}
	}
	if !strings.Contains(debugBuf.String(), "attempt") {
		t.Fatalf("debug handler missed the debug record: %q", debugBuf.String())
	}
}
