package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsCatalogAndSubmissions(t *testing.T) {
	m := New("test")

	m.SetCatalogSize(7)
	m.RecordFetchError("file")
	m.RecordSubmission("committed")
	m.RecordSubmission("rejected")
	m.RecordSubmission("rejected")

	assert.Equal(t, 7.0, testutil.ToFloat64(m.CatalogProducts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogFetchErrors.WithLabelValues("file")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("rejected")))
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	m := New("test")
	m.ObserveRequest("GET", "/", "200", 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "test_http_requests_total"))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	m.SetCatalogSize(1)
	m.RecordFetchError("http")
	m.RecordSubmission("committed")
	m.FormOpened()
	m.FormClosed()
	m.RecordRedirect()
	m.ObserveRequest("GET", "/", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
