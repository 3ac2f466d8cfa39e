package proxy

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/Vonzhen/sub-store-panel/pkg/metrics"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Forwarder executes the HTTP round-trip to the upstream engine. It streams
// bodies both ways, passes protocol upgrades through untouched, and maps
// transport-level failures to a stable 502 body. It never parses request
// bodies; proxied namespaces carry arbitrary byte streams.
type Forwarder struct {
	apiURL    *url.URL
	uiURL     *url.URL
	transport http.RoundTripper
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewForwarder creates a forwarder for the two upstream origins
func NewForwarder(cfg config.UpstreamConfig, logger *zap.Logger, m *metrics.Metrics) (*Forwarder, error) {
	apiURL, err := url.Parse(cfg.APIURL)
	if err != nil || apiURL.Host == "" {
		return nil, fmt.Errorf("invalid upstream api url %q", cfg.APIURL)
	}
	uiURL := apiURL
	if cfg.FrontendURL != "" {
		uiURL, err = url.Parse(cfg.FrontendURL)
		if err != nil || uiURL.Host == "" {
			return nil, fmt.Errorf("invalid upstream frontend url %q", cfg.FrontendURL)
		}
	}

	// ResponseHeaderTimeout bounds the wait for upstream headers without
	// cutting off long-lived streaming or upgraded connections.
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Forwarder{
		apiURL:    apiURL,
		uiURL:     uiURL,
		transport: otelhttp.NewTransport(transport),
		logger:    logger.Named("proxy"),
		metrics:   m,
	}, nil
}

// ServeAPI forwards a secret-path request to the engine API origin
func (f *Forwarder) ServeAPI(w http.ResponseWriter, r *http.Request, rewrittenPath string) {
	f.serve(w, r, f.apiURL, rewrittenPath, string(NamespaceSecretProxy))
}

// ServeUI forwards an authenticated page request to the engine UI origin
func (f *Forwarder) ServeUI(w http.ResponseWriter, r *http.Request, rewrittenPath string) {
	f.serve(w, r, f.uiURL, rewrittenPath, string(NamespaceFrontendProxy))
}

func (f *Forwarder) serve(w http.ResponseWriter, r *http.Request, target *url.URL, rewrittenPath, namespace string) {
	start := time.Now()
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = rewrittenPath
			pr.Out.URL.RawPath = ""
			// The upstream engine expects its own host header
			pr.Out.Host = target.Host
			pr.SetXForwarded()
		},
		Transport:     f.transport,
		FlushInterval: 100 * time.Millisecond,
		ModifyResponse: func(resp *http.Response) error {
			if f.metrics != nil {
				f.metrics.ProxyReqDone(namespace, resp.StatusCode, start)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			f.logger.Error("upstream round-trip failed",
				zap.String("namespace", namespace),
				zap.String("path", rewrittenPath),
				zap.Error(err))
			if f.metrics != nil {
				f.metrics.ProxyReqDone(namespace, http.StatusBadGateway, start)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
		},
	}
	rp.ServeHTTP(w, r)
}
