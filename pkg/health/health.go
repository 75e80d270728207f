// Package health serves liveness and readiness probes backed by named
// dependency checks.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amadile/Shopping-site-sub001/pkg/httputil"
)

// DefaultTimeout bounds one readiness evaluation.
const DefaultTimeout = 5 * time.Second

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

// Status of a single check or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Report is the probe response body.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
	Latency  string `json:"latency"`
}

type check struct {
	fn       Checker
	critical bool
}

// Handler holds the registered checks. A failing critical check makes the
// service unready (503); a failing non-critical one only degrades it.
type Handler struct {
	mu      sync.RWMutex
	checks  map[string]check
	timeout time.Duration
	now     func() time.Time
}

// NewHandler creates a handler with no checks.
func NewHandler() *Handler {
	return &Handler{
		checks:  make(map[string]check),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
}

// RegisterCritical adds or replaces a check whose failure fails readiness.
func (h *Handler) RegisterCritical(name string, fn Checker) {
	h.register(name, check{fn: fn, critical: true})
}

// RegisterNonCritical adds or replaces a check whose failure degrades readiness.
func (h *Handler) RegisterNonCritical(name string, fn Checker) {
	h.register(name, check{fn: fn})
}

func (h *Handler) register(name string, c check) {
	h.mu.Lock()
	h.checks[name] = c
	h.mu.Unlock()
}

// Evaluate runs every check concurrently and folds the results.
func (h *Handler) Evaluate(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	snapshot := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		snapshot[name] = c
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(snapshot))
		g       errgroup.Group
	)
	for name, c := range snapshot {
		g.Go(func() error {
			start := time.Now()
			err := c.fn(ctx)
			res := CheckResult{Status: StatusUp, Critical: c.critical, Latency: time.Since(start).String()}
			if err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusUp
	for _, res := range results {
		if res.Status != StatusDown {
			continue
		}
		if res.Critical {
			overall = StatusDown
			break
		}
		overall = StatusDegraded
	}

	return Report{Status: overall, Timestamp: h.now().UTC(), Checks: results}
}

// LivenessHandler always answers 200 while the process serves requests.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, Report{Status: StatusUp, Timestamp: h.now().UTC()})
	}
}

// ReadinessHandler answers 503 when a critical check fails and 200 otherwise.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Evaluate(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, report)
	}
}
