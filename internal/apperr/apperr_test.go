package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
		target error
	}{
		{"validation", Validation("date", "required"), KindValidation, http.StatusBadRequest, ErrValidation},
		{"not found", NotFound("appointment"), KindNotFound, http.StatusNotFound, ErrNotFound},
		{"forbidden", Forbidden("admin only"), KindForbidden, http.StatusForbidden, ErrForbidden},
		{"conflict", SlotConflict("taken"), KindSlotConflict, http.StatusConflict, ErrSlotConflict},
		{"internal", Internal(errors.New("db down")), KindInternal, http.StatusInternalServerError, ErrInternal},
		{"plain error", errors.New("boom"), KindInternal, http.StatusInternalServerError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			if tt.target != nil {
				assert.ErrorIs(t, tt.err, tt.target)
				assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.target)
			}
		})
	}
}

func TestIsDoesNotCrossKinds(t *testing.T) {
	err := NotFound("doctor")
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrSlotConflict))
}

func TestInternalUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestValidationMessageIncludesField(t *testing.T) {
	err := ValidationExpected("timeSlot", "malformed time", "HH:mm")
	assert.Equal(t, "validation_error: timeSlot: malformed time", err.Error())
	assert.Equal(t, "HH:mm", err.Expected)
}
