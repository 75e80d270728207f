package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-test"))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	counter := httpRequests.WithLabelValues("metrics-test", http.MethodGet, "/items/{id}", "202")
	assert.Equal(t, 3.0, testutil.ToFloat64(counter))
	assert.Equal(t, 0.0, testutil.ToFloat64(httpInFlight.WithLabelValues("metrics-test")))
}

func TestPrometheusMetrics_Unmatched(t *testing.T) {
	h := PrometheusMetrics("metrics-unmatched")(http.NotFoundHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	counter := httpRequests.WithLabelValues("metrics-unmatched", http.MethodGet, "unmatched", "404")
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}
