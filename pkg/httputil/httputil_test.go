package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
	"github.com/amadile/Shopping-site-sub001/pkg/logger"
	"github.com/amadile/Shopping-site-sub001/pkg/validator"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSON(rec, http.StatusCreated, Response{Data: map[string]int{"available": 4}})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"available":4}}`, rec.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/reserve", nil).WithContext(ctx)

	err := fmt.Errorf("reserve: %w", apperrors.New("INSUFFICIENT_STOCK", http.StatusBadRequest, "only 1 available", nil))
	WriteError(rec, req, err, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	assert.Equal(t, "only 1 available", e.Message)
	assert.Equal(t, "corr-9", e.RequestID)
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{apperrors.ErrConflict, http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("bad qty: %w", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{apperrors.ErrUnavailable, http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestWriteError_InternalIsLoggedAndHidden(t *testing.T) {
	var buf bytes.Buffer
	fallback := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := httptest.NewRecorder()

	WriteError(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/x", nil), errors.New("pq: connection reset"), fallback)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", e.Code)
	assert.NotContains(t, e.Message, "connection reset")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestWriteError_PrefersRequestLogger(t *testing.T) {
	var scoped, fallback bytes.Buffer
	ctx := logger.NewContext(context.Background(), slog.New(slog.NewJSONHandler(&scoped, nil)))
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	WriteError(httptest.NewRecorder(), req, errors.New("boom"), slog.New(slog.NewJSONHandler(&fallback, nil)))

	assert.Contains(t, scoped.String(), "boom")
	assert.Empty(t, fallback.String())
}

func TestWriteValidationError(t *testing.T) {
	type body struct {
		Quantity int `json:"quantity" validate:"required"`
	}
	rec := httptest.NewRecorder()

	WriteValidationError(rec, validator.Validate(body{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", e.Code)
	assert.Equal(t, map[string]string{"quantity": "is required"}, e.Fields)
}

func TestWriteValidationError_Other(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteValidationError(rec, errors.New("unexpected EOF"))

	e := decodeError(t, rec)
	assert.Equal(t, "INVALID_INPUT", e.Code)
	assert.Equal(t, "unexpected EOF", e.Message)
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "3f8a1c2e-9b4d-4e6f-8a1b-2c3d4e5f6a7b")
	assert.True(t, ok)
	assert.Equal(t, "3f8a1c2e-9b4d-4e6f-8a1b-2c3d4e5f6a7b", id.String())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	_, ok = ParseUUID(rec, "inv-1")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "INVALID_PARAMETER", e.Code)
	assert.Equal(t, "invalid UUID: inv-1", e.Message)
}
