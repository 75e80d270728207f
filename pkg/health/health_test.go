package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(msg string) Checker {
	return func(context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, h http.HandlerFunc) (int, Report) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return rec.Code, report
}

func TestLiveness(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", failing("down"))

	code, report := probe(t, h.LivenessHandler())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, report.Status)
	assert.Empty(t, report.Checks)
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *Handler)
		wantCode   int
		wantStatus Status
	}{
		{"no checks", func(h *Handler) {}, http.StatusOK, StatusUp},
		{"all up", func(h *Handler) {
			h.RegisterCritical("postgres", ok)
			h.RegisterNonCritical("kafka", ok)
		}, http.StatusOK, StatusUp},
		{"non-critical down", func(h *Handler) {
			h.RegisterCritical("postgres", ok)
			h.RegisterNonCritical("redis", failing("connection refused"))
		}, http.StatusOK, StatusDegraded},
		{"critical down wins", func(h *Handler) {
			h.RegisterNonCritical("redis", failing("x"))
			h.RegisterCritical("postgres", failing("y"))
		}, http.StatusServiceUnavailable, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			tt.setup(h)

			code, report := probe(t, h.ReadinessHandler())

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, report.Status)
		})
	}
}

func TestEvaluate_ReportsEachCheck(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", ok)
	h.RegisterNonCritical("kafka", failing("no broker reachable"))

	report := h.Evaluate(context.Background())

	require.Len(t, report.Checks, 2)
	assert.Equal(t, CheckResult{Status: StatusUp, Critical: true, Latency: report.Checks["postgres"].Latency}, report.Checks["postgres"])
	assert.Equal(t, StatusDown, report.Checks["kafka"].Status)
	assert.False(t, report.Checks["kafka"].Critical)
	assert.Equal(t, "no broker reachable", report.Checks["kafka"].Error)
}

func TestEvaluate_TimesOutSlowChecks(t *testing.T) {
	h := NewHandler()
	h.timeout = 20 * time.Millisecond
	h.RegisterCritical("postgres", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	report := h.Evaluate(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusDown, report.Status)
	assert.Contains(t, report.Checks["postgres"].Error, "deadline exceeded")
}

func TestRegister_Replaces(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("redis", failing("x"))
	h.RegisterNonCritical("redis", ok)

	report := h.Evaluate(context.Background())
	assert.Equal(t, StatusUp, report.Status)
	assert.False(t, report.Checks["redis"].Critical)
}
