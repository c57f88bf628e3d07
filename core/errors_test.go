package core_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/mahadhurio/core"
)

func TestValidationErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "wrapped error",
			err:  core.NewValidationError(errors.New("invalid credentials")),
			want: "invalid credentials",
		},
		{
			name: "field errors only",
			err:  core.NewValidationError(nil, core.FieldError{Field: "method", Error: "session is delivered onsite"}),
			want: "method: session is delivered onsite",
		},
		{
			name: "empty",
			err:  core.NewValidationError(nil),
			want: "invalid input",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsShutdown(t *testing.T) {
	err := core.NewShutdownError("auth token missing from request context")
	if !core.IsShutdown(err) {
		t.Error("IsShutdown() = false for a shutdown error")
	}
	if !core.IsShutdown(errors.Wrap(err, "handling request")) {
		t.Error("IsShutdown() = false for a wrapped shutdown error")
	}
	if core.IsShutdown(errors.New("connection reset")) {
		t.Error("IsShutdown() = true for an ordinary error")
	}
}
