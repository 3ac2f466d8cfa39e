package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the prometheus registry and the gateway's collectors
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec

	proxyReqCnt *prometheus.CounterVec
	proxyDur    *prometheus.HistogramVec

	loginAttemptCnt *prometheus.CounterVec

	sweepCnt       *prometheus.CounterVec
	sweepTenantCnt *prometheus.CounterVec
	sweepDur       prometheus.Histogram
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	proxyReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "proxy_requests_total"}, []string{"namespace", "status"})
	proxyDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "proxy_request_duration_seconds", Buckets: cfg.Buckets}, []string{"namespace"})
	r.MustRegister(proxyReqCnt, proxyDur)

	loginAttemptCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "login_attempts_total"}, []string{"outcome"})
	r.MustRegister(loginAttemptCnt)

	sweepCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "sync_sweeps_total"}, []string{"outcome"})
	sweepTenantCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "sync_sweep_tenants_total"}, []string{"outcome"})
	sweepDur := prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: ns, Name: "sync_sweep_duration_seconds", Buckets: cfg.Buckets})
	r.MustRegister(sweepCnt, sweepTenantCnt, sweepDur)

	return &Metrics{
		registry:        r,
		namespace:       ns,
		httpReqCnt:      httpReqCnt,
		httpDur:         httpDur,
		httpInfl:        httpInfl,
		proxyReqCnt:     proxyReqCnt,
		proxyDur:        proxyDur,
		loginAttemptCnt: loginAttemptCnt,
		sweepCnt:        sweepCnt,
		sweepTenantCnt:  sweepTenantCnt,
		sweepDur:        sweepDur,
	}
}

// ProxyReqDone records one proxied round-trip
func (m *Metrics) ProxyReqDone(namespace string, status int, since time.Time) {
	m.proxyReqCnt.WithLabelValues(namespace, httpStatus(status)).Inc()
	m.proxyDur.WithLabelValues(namespace).Observe(time.Since(since).Seconds())
}

// LoginAttempt records a login outcome: success, failure or locked
func (m *Metrics) LoginAttempt(outcome string) {
	m.loginAttemptCnt.WithLabelValues(outcome).Inc()
}

// SweepDone records one scheduler sweep
func (m *Metrics) SweepDone(outcome string, since time.Time) {
	m.sweepCnt.WithLabelValues(outcome).Inc()
	m.sweepDur.Observe(time.Since(since).Seconds())
}

// SweepTenant records a per-tenant refresh outcome inside a sweep
func (m *Metrics) SweepTenant(outcome string) {
	m.sweepTenantCnt.WithLabelValues(outcome).Inc()
}

// Middleware instruments gin routes
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = routeFromURL(c.Request.URL.Path)
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := httpStatus(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

// Handler exposes the /metrics endpoint
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// routeFromURL collapses unmatched paths to a single label value so tenant
// secret paths never leak into metric labels
func routeFromURL(path string) string {
	if strings.TrimPrefix(path, "/") == "" {
		return "/"
	}
	return "/:proxied"
}

func httpStatus(code int) string {
	return strconv.Itoa(code)
}
