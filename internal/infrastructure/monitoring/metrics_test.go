package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRegistration("socket", nil)
	m.RecordLaunch(time.Millisecond, errors.New("x"))
	m.IncSignalsDropped()
	NewTimer(m, "get").Stop(nil)
	assert.Equal(t, Snapshot{}, m.GetSnapshot())
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRegistration("socket", nil)
	m.RecordRegistration("socket", errors.New("busy"))
	m.RecordLaunch(time.Millisecond, nil)
	m.RecordLaunch(time.Millisecond, errors.New("spawn"))
	m.SetReservations(3, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues("socket", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues("socket", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LiveReservations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Owners))

	snap := m.GetSnapshot()
	assert.Equal(t, int64(1), snap.Registrations)
	assert.Equal(t, int64(2), snap.Launches)
	assert.Equal(t, int64(1), snap.LaunchFailures)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/owners/:owner", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/metrics", gin.WrapH(Handler(reg)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/owners/12", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/owners/:owner", "404")))
	assert.Equal(t, int64(1), m.GetSnapshot().TotalErrors)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "pushd_http_requests_total"))
}
