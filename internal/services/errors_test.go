package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"lectern/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcription", "export", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcription", "export", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", services.Wrap(services.ErrTransient, "paraphrase", "call", "503", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "synthesis", "post", "deadline", nil), true},
		{"validation", services.Wrap(services.ErrValidation, "synthesis", "prepare", "empty", nil), false},
		{"plain", errors.New("io"), false},
		{"canceled transient", fmt.Errorf("%w: %w", services.ErrCanceled, services.ErrTransient), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorHint(t *testing.T) {
	if hint := services.ErrorHint(nil); hint != "" {
		t.Fatalf("expected empty hint for nil, got %q", hint)
	}
	err := services.Wrap(services.ErrConfiguration, "transcription", "prepare", "missing key", nil)
	if hint := services.ErrorHint(err); !strings.Contains(hint, "config") {
		t.Fatalf("unexpected hint %q", hint)
	}
}
