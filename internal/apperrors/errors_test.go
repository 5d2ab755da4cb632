package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindConflict, KindOf(Conflict("taken")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("missing"))
	assert.True(t, IsKind(err, KindNotFound))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Gateway("Failed to reach gateway.", cause)

	assert.Contains(t, err.Error(), "Failed to reach gateway.")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}
