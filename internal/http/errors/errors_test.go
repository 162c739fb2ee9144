package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailDoesNotMutateCatalog(t *testing.T) {
	e := ErrInvalidInput.WithDetail("role must be buyer, seller or admin")
	assert.Equal(t, "role must be buyer, seller or admin", e.Detail)
	assert.Empty(t, ErrInvalidInput.Detail)
}

func TestFromError(t *testing.T) {
	cause := stderrors.New("boom")
	got := FromError(cause)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	assert.ErrorIs(t, got, cause)

	wrapped := fmt.Errorf("ctx: %w", ErrAccountNotFound)
	assert.Same(t, ErrAccountNotFound, FromError(wrapped))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)

	WriteError(rec, req, ErrDeliveryFailed.WithCause(stderrors.New("smtp 421")))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DELIVERY_FAILED", body["code"])
	assert.NotContains(t, rec.Body.String(), "smtp 421")
	_, hasDetail := body["detail"]
	assert.False(t, hasDetail)
}
