package services_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"audioserver/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDecode, "transcode", "render", "parse wav", base)
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcode", "render", "parse wav", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarker(t *testing.T) {
	base := errors.New("disk full")
	err := services.Wrap(nil, "rawstore", "store", "", base)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error, got %v", err)
	}
	if errors.Is(err, services.ErrNotFound) {
		t.Fatal("unexpected marker")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{services.Wrap(services.ErrInvalidRange, "clipstore", "resolve", "start >= stop", nil), http.StatusBadRequest},
		{services.Wrap(services.ErrValidation, "api", "parse", "bad count", nil), http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrAlreadyExists, http.StatusConflict},
		{services.Wrap(services.ErrSourceUnavailable, "transcode", "fetch", "", errors.New("gone")), http.StatusBadGateway},
		{services.Wrap(services.ErrDecode, "transcode", "render", "", nil), http.StatusBadGateway},
		{services.Wrap(services.ErrSourceUnavailable, "transcode", "fetch", "", services.Wrap(services.ErrNotFound, "rawstore", "fetch", "", nil)), http.StatusBadGateway},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := services.HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
