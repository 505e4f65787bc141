package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveClean(10, 7, 2)
	m.ObserveClean(5, 5, 0)
	m.ObserveImputation("mean", 3, true)
	m.ObserveImputation("mean", 1, true)
	m.ObserveImputation("custom", 0, false)
	m.ObserveRequest("/api/v1/process", 200)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.RowsIn))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.RowsOut))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Duplicates))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Imputations.WithLabelValues("mean")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImputeFailure))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/api/v1/process", "200")))
}

func TestUnknownMethodsShareOneSeries(t *testing.T) {
	m := New()
	for i := 0; i < 50; i++ {
		m.ObserveImputation(fmt.Sprintf("bogus%d", i), 0, true)
	}
	m.ObserveImputation("median", 2, true)

	assert.Equal(t, 2, testutil.CollectAndCount(m.Imputations))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Imputations.WithLabelValues(UnsupportedMethod)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Imputations.WithLabelValues("median")))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveClean(3, 2, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tabloom_duplicate_rows_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
