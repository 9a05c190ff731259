package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestDetail_MatchesSentinel(t *testing.T) {
	err := Detail(ErrClaimLost, "item 42")

	if !errors.Is(err, ErrClaimLost) {
		t.Error("expected detailed error to match its sentinel")
	}
	if errors.Is(err, ErrAssignmentLost) {
		t.Error("expected detailed error not to match another sentinel")
	}
	if err.Error() != "item already claimed: item 42" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrItemNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("task 1: %w", ErrTaskNotFound), http.StatusNotFound},
		{"detailed conflict", Detail(ErrInvalidTransition, "x"), http.StatusConflict},
		{"validation", NewValidationError("title is required"), http.StatusBadRequest},
		{"unauthorized", ErrUnauthorized, http.StatusForbidden},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
