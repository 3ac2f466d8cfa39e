package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(config.MetricsConfig{Namespace: "test_gw"})

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/users/me", func(c *gin.Context) { c.Status(204) })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/users/me", nil))
	assert.Equal(t, 204, w.Code)

	m.ProxyReqDone("secret", 200, time.Now())
	m.LoginAttempt("failure")
	m.SweepDone("completed", time.Now())
	m.SweepTenant("ok")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "test_gw_http_requests_total")
	assert.Contains(t, body, "test_gw_proxy_requests_total")
	assert.Contains(t, body, "test_gw_sync_sweeps_total")
}

func TestRouteFromURL(t *testing.T) {
	assert.Equal(t, "/", routeFromURL("/"))
	assert.Equal(t, "/:proxied", routeFromURL("/abcdef0123456789abcdef0123456789/api/subs"))
}
