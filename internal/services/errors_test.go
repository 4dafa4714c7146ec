package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"letterscribe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRemoteRequest, "gemini", "generate", "request failed", base)
	if !errors.Is(err, services.ErrRemoteRequest) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"gemini", "generate", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	cases := map[string]error{
		"missing_image":   fmt.Errorf("group 2: %w", services.ErrMissingImage),
		"remote_request":  services.Wrap(services.ErrRemoteRequest, "gemini", "", "", nil),
		"quota_exhausted": services.ErrQuotaExhausted,
		"unknown":         errors.New("other"),
		"":                nil,
	}
	for want, err := range cases {
		if got := services.Kind(err); got != want {
			t.Fatalf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
}
