package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(nil)
	})
}

func TestMetrics_Series(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.UpdateSeries("temps", 3, 30)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.seriesRecords.WithLabelValues("temps")))
	assert.Equal(t, float64(30), testutil.ToFloat64(m.seriesSizeBytes.WithLabelValues("temps")))

	m.ForgetSeries("temps")
	assert.Equal(t, 0, testutil.CollectAndCount(m.seriesRecords))

	m.SetSeriesCount(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(m.seriesTotal))
}

func TestMetrics_Operations(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordDBOperation("append", true, time.Millisecond)
	m.RecordDBOperation("append", false, time.Millisecond)
	m.RecordDBOperation("append", true, time.Millisecond)
	m.RecordIssue("unordered_record")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.dbOperationsTotal.WithLabelValues("append", statusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dbOperationsTotal.WithLabelValues("append", statusError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dbIssuesTotal.WithLabelValues("unordered_record")))
}

func TestMetrics_InstrumentHandler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	handler := m.InstrumentHandler("GET", "/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/test", "418")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.httpRequestsInFlight.WithLabelValues("GET", "/test")))
}

func TestMetrics_InstrumentAuthMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := m.InstrumentAuthMiddleware(apiKeyMiddleware("secret"))(ok)

	for _, key := range []string{"secret", "wrong", ""} {
		req := httptest.NewRequest("GET", "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// Requests without a key are not counted
	assert.Equal(t, float64(1), testutil.ToFloat64(m.authRequestsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.authRequestsTotal.WithLabelValues(statusError)))
}
