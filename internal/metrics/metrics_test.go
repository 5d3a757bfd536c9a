package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotstart/hotstart/internal/preload"
)

func TestObserve(t *testing.T) {
	m := New()

	m.Observe(preload.Event{Kind: preload.EventPassStarted})
	m.Observe(preload.Event{Kind: preload.EventPassCompleted, Duration: 20 * time.Millisecond})
	m.Observe(preload.Event{Kind: preload.EventPassCompleted, Duration: 30 * time.Millisecond})
	m.Observe(preload.Event{Kind: preload.EventPassDropped})
	m.Observe(preload.Event{Kind: preload.EventLaunched, App: "Notepad"})
	m.Observe(preload.Event{Kind: preload.EventCaptured, App: "Notepad", Duration: 400 * time.Millisecond})
	m.Observe(preload.Event{Kind: preload.EventTimedOut, App: "Code"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PassesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PassesDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("Notepad", "launched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("Notepad", "captured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("Code", "timed_out")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CaptureLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PassDuration))
}

func TestCaptureChanged(t *testing.T) {
	m := New()
	r := &preload.Record{Name: "Notepad", Matcher: preload.MustRegexMatcher("Notepad$")}
	r.OnCaptureChanged(m.CaptureChanged)

	r.SetPreloaded(42)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Captured.WithLabelValues("Notepad")))

	r.SetPreloaded(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Captured.WithLabelValues("Notepad")))

	m.Forget("Notepad")
	assert.Equal(t, 0, testutil.CollectAndCount(m.Captured))
}

func TestHandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/apps/:name", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/apps/notepad", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/apps/:name", "204")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "hotstart_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
