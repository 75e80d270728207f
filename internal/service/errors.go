package service

import (
	"errors"
	"net/http"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

// appError converts domain precondition errors into AppErrors so the HTTP
// edge can map them. The domain error stays in the chain for errors.Is.
func appError(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return wrapDomain("INSUFFICIENT_STOCK", http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrInvalidQuantity):
		return wrapDomain("INVALID_INPUT", http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrReservationNotConfirmable):
		return wrapDomain("INVALID_STATE", http.StatusConflict, err)
	case errors.Is(err, domain.ErrOrderAlreadyCancelled):
		return wrapDomain("ORDER_ALREADY_CANCELLED", http.StatusConflict, err)
	case errors.Is(err, domain.ErrOrderDelivered):
		return wrapDomain("ORDER_DELIVERED", http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrOrderShipped):
		return wrapDomain("ORDER_SHIPPED", http.StatusForbidden, err)
	case errors.Is(err, domain.ErrOrderNotOwned):
		return wrapDomain("FORBIDDEN", http.StatusForbidden, err)
	case errors.Is(err, domain.ErrOrderNotSettled), errors.Is(err, domain.ErrOrderNotPayable):
		return wrapDomain("INVALID_STATE", http.StatusConflict, err)
	}
	return err
}

func wrapDomain(code string, status int, err error) *apperrors.AppError {
	return apperrors.Wrap(code, status, err)
}
