package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"order_number": "ORD-260501-ABC123"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ORD-260501-ABC123", body.Data.(map[string]any)["order_number"])
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-Id", "req-12345678")
	err := pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 2 left of Brake pad").
		WithDetails(map[string]any{"part_id": "p1", "available": 2})

	WriteError(context.Background(), nil, w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeInsufficientStock), apiErr.Code)
	assert.Equal(t, "only 2 left of Brake pad", apiErr.Message)
	assert.NotNil(t, apiErr.Details)
	assert.Equal(t, "req-12345678", apiErr.RequestID)
	assert.False(t, apiErr.Retryable)
}

func TestWriteErrorHidesInternals(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &logs})
	w := httptest.NewRecorder()

	WriteError(context.Background(), logg, w, fmt.Errorf("insert order: %w", errors.New("connection reset")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeInternal), apiErr.Code)
	assert.Equal(t, "internal server error", apiErr.Message)
	assert.Nil(t, apiErr.Details)
	assert.True(t, apiErr.Retryable)
	assert.Contains(t, logs.String(), "connection reset")
}

func TestWriteErrorUpstreamUsesPublicMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeUpstream, "gateway said: secret key invalid"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "payment provider unavailable", decodeError(t, w).Message)
}

func TestWriteErrorSetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "slow down"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "slow down", decodeError(t, w).Message)
}
