package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.LinkShortened()
	m.LinkShortened()
	m.HashConflict()
	m.Lookup(ResultFound)
	m.Lookup(ResultFound)
	m.Lookup(ResultNotFound)
	m.Removal(ResultRemoved)
	m.Removal(ResultNotFound)
	m.Removal(ResultError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.linksShortened))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hashConflicts))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues(ResultFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues(ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.removals.WithLabelValues(ResultRemoved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.removals.WithLabelValues(ResultError)))
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, "GET /{hash}", http.StatusFound, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "GET /{hash}", http.StatusNotFound, 5*time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.LinkShortened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "hashlink_links_shortened_total 1")
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.LinkShortened()
		m.HashConflict()
		m.Lookup(ResultFound)
		m.Removal(ResultRemoved)
		m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
