package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

const maxErrorBody = 1 << 20

// errorEnvelope is the error body written by marketplace services.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response and converts it
// to an error. Structured error bodies become AppErrors that keep the
// downstream code and the sentinel matching the status.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) != nil || env.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, body)
	}

	code := env.Error.Code
	if code == "" {
		code = "DOWNSTREAM_ERROR"
	}
	message := service + ": " + env.Error.Message
	return apperrors.New(code, resp.StatusCode, message, sentinelFor(resp.StatusCode))
}

// sentinelFor returns the apperrors sentinel for a downstream status, or nil
// when none applies.
func sentinelFor(status int) error {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrInvalidInput
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusGone:
		return apperrors.ErrGone
	case http.StatusUnprocessableEntity:
		return apperrors.ErrPaymentFailed
	case http.StatusServiceUnavailable:
		return apperrors.ErrUnavailable
	}
	return nil
}
