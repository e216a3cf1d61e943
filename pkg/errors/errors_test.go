package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("create review: %w", Clone(ErrAlreadyReviewed, ""))

	got := FromError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "ALREADY_REVIEWED", got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
}

func TestFromErrorFallsBackToInternal(t *testing.T) {
	got := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.ErrorIs(t, got, sql.ErrConnDone)
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrNotFound, "resource not found: r1")
	assert.Equal(t, "resource not found: r1", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Nil(t, Clone(nil, "x"))
}

func TestWrapMessage(t *testing.T) {
	err := Wrap(sql.ErrNoRows, ErrPayloadTooLarge.Code, ErrPayloadTooLarge.Status, "file exceeds 20MB")
	assert.Equal(t, "file exceeds 20MB: sql: no rows in result set", err.Error())
	assert.Equal(t, http.StatusRequestEntityTooLarge, err.Status)
}
