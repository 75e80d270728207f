package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

func TestAppError_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"insufficient stock", domain.ErrInsufficientStock, "INSUFFICIENT_STOCK", http.StatusBadRequest},
		{"delivered", domain.ErrOrderDelivered, "ORDER_DELIVERED", http.StatusBadRequest},
		{"shipped", domain.ErrOrderShipped, "ORDER_SHIPPED", http.StatusForbidden},
		{"already cancelled", domain.ErrOrderAlreadyCancelled, "ORDER_ALREADY_CANCELLED", http.StatusConflict},
		{"not owned", domain.ErrOrderNotOwned, "FORBIDDEN", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := appError(tt.err)

			var ae *apperrors.AppError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.code, ae.Code)
			assert.Equal(t, tt.status, apperrors.HTTPStatus(err))
			assert.Equal(t, tt.err.Error(), ae.Message)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.code+": "+tt.err.Error(), err.Error())
			assert.Equal(t, 1, strings.Count(err.Error(), tt.err.Error()))
		})
	}
}

func TestAppError_PassesThrough(t *testing.T) {
	assert.NoError(t, appError(nil))

	plain := errors.New("disk full")
	assert.Same(t, plain, appError(plain))

	existing := fmt.Errorf("get order: %w", apperrors.NotFound("order", "o-1"))
	assert.Equal(t, existing, appError(existing))
}
