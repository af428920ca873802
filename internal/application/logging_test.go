package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/example/prayer-debt/internal/domain"
	"github.com/example/prayer-debt/internal/persistence"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		want string
	}{
		"nil":        {err: nil, want: ""},
		"not found":  {err: fmt.Errorf("lookup: %w", ErrNotFound), want: "not_found"},
		"signature":  {err: ErrInvalidSignature, want: "invalid_signature"},
		"duplicate":  {err: persistence.ErrDuplicate, want: "already_exists"},
		"canceled":   {err: context.Canceled, want: "canceled"},
		"validation": {err: &ValidationError{FieldErrors: map[string]string{"a": "b"}}, want: "validation"},
		"overlap":    {err: domain.NewError(domain.KindOverlap, nil, "overlapping travel periods"), want: "overlap"},
		"wrapped":    {err: fmt.Errorf("calc: %w", domain.NewError(domain.KindRangeExceeded, 30000, "too long")), want: "range_exceeded"},
		"unexpected": {err: errors.New("disk full"), want: "unexpected"},
	}
	for name, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("%s: expected %q, got %q", name, tc.want, got)
		}
	}
}
