package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolls = promauto.NewCounter(prometheus.CounterOpts{
	Name: "metrics_test_polls_total",
	Help: "Counter registered only by this test",
})

func TestRegistryIsDefault(t *testing.T) {
	assert.Equal(t, prometheus.DefaultRegisterer, Registry)
}

func TestHandler_ServesPromautoMetrics(t *testing.T) {
	testPolls.Add(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "metrics_test_polls_total 3")
}
