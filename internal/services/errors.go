package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidRange marks bad clip bounds or sampling parameters.
	ErrInvalidRange = errors.New("invalid range")
	// ErrSourceUnavailable marks raw audio bytes that are missing or unreachable.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrDecode marks raw bytes that are present but cannot be parsed as audio.
	ErrDecode = errors.New("decode error")
	// ErrNotFound marks an unknown file, clip, or clip-set identity.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists marks a raw-store write for an identifier that is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation marks malformed caller input that is not a range problem.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a core failure to the status code the HTTP layer reports.
// Source failures win over any marker they wrap: a missing raw file behind a
// known record is a 502, not a 404.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrDecode):
		return http.StatusBadGateway
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
