// Package refund raises refunds for cancelled orders through a payment provider.
package refund

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/amadile/Shopping-site-sub001/pkg/httpclient"
)

// Request describes the refund of one order.
type Request struct {
	RefundID string `json:"refund_id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason"`
}

// Provider submits refunds and returns the provider's reference.
type Provider interface {
	Refund(ctx context.Context, req Request) (string, error)
}

// StubProvider accepts every refund without contacting a gateway. The
// reference it returns marks the refund as a placeholder.
type StubProvider struct {
	logger *slog.Logger
}

// NewStubProvider creates a provider that records refunds locally only.
func NewStubProvider(logger *slog.Logger) *StubProvider {
	return &StubProvider{logger: logger}
}

// Refund returns a generated placeholder reference.
func (p *StubProvider) Refund(ctx context.Context, req Request) (string, error) {
	if req.Amount < 0 {
		return "", fmt.Errorf("refund amount must be non-negative, got %d", req.Amount)
	}
	ref := "stub_" + uuid.New().String()
	p.logger.InfoContext(ctx, "placeholder refund recorded",
		slog.String("order_id", req.OrderID),
		slog.Int64("amount", req.Amount),
		slog.String("provider_ref", ref),
	)
	return ref, nil
}

// HTTPProvider submits refunds to the payment service over HTTP. The refund
// id is sent as the Idempotency-Key so retried submissions are deduplicated
// by the payment service.
type HTTPProvider struct {
	client  *httpclient.Client
	baseURL string
	logger  *slog.Logger
}

// NewHTTPProvider creates a provider posting to baseURL + "/api/v1/refunds".
func NewHTTPProvider(client *httpclient.Client, baseURL string, logger *slog.Logger) *HTTPProvider {
	return &HTTPProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type refundResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// Refund posts the refund and returns the payment service's refund id.
func (p *HTTPProvider) Refund(ctx context.Context, req Request) (string, error) {
	header := http.Header{}
	if req.RefundID != "" {
		header.Set("Idempotency-Key", req.RefundID)
	}

	resp, err := p.client.PostJSON(ctx, p.baseURL+"/api/v1/refunds", req, header)
	if err != nil {
		return "", fmt.Errorf("submit refund for order %s: %w", req.OrderID, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", httpclient.ParseResponseError(resp, "payment-service")
	}
	defer func() { _ = resp.Body.Close() }()

	var out refundResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode refund response: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("payment service returned refund without id (status %d)", resp.StatusCode)
	}

	p.logger.InfoContext(ctx, "refund submitted",
		slog.String("order_id", req.OrderID),
		slog.String("provider_ref", out.Data.ID),
		slog.String("status", out.Data.Status),
	)
	return out.Data.ID, nil
}

var _ Provider = (*StubProvider)(nil)
var _ Provider = (*HTTPProvider)(nil)
