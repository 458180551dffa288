package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := NotFound("user %s not found", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "user abc not found", err.Error())

	wrapped := fmt.Errorf("removing post: %w", Conflict("taken"))
	assert.ErrorIs(t, wrapped, ErrConflict)
	assert.Equal(t, KindConflict, KindOf(wrapped))

	store := StoreFailure("insert user", errors.New("connection reset"))
	assert.ErrorIs(t, store, ErrStore)
	assert.Equal(t, "insert user: connection reset", store.Error())

	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "validation", ErrValidation.Error())
}
