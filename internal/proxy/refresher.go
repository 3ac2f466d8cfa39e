package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/auth/jwt"
	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"
	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/Vonzhen/sub-store-panel/internal/database"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// refreshEndpoint is the engine's subscription refresh operation, as the
// engine sees it after the secret-proxy rewrite strips the tenant segment
const refreshEndpoint = "/api/sync/artifacts"

// EngineRefresher issues one proxied refresh call per tenant during a sync
// sweep. Each call carries a short-lived token scoped to the tenant so the
// request traverses the same authenticated path a real client would use.
type EngineRefresher struct {
	client     *http.Client
	apiURL     *url.URL
	jwtService *jwt.Service
	tokenTTL   time.Duration
	logger     *zap.Logger
}

// NewEngineRefresher creates a refresher against the engine API origin
func NewEngineRefresher(cfg config.UpstreamConfig, tokenTTL time.Duration, jwtService *jwt.Service, logger *zap.Logger) (*EngineRefresher, error) {
	apiURL, err := url.Parse(cfg.APIURL)
	if err != nil || apiURL.Host == "" {
		return nil, fmt.Errorf("invalid upstream api url %q", cfg.APIURL)
	}
	return &EngineRefresher{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
		apiURL:     apiURL,
		jwtService: jwtService,
		tokenTTL:   tokenTTL,
		logger:     logger.Named("refresher"),
	}, nil
}

// Refresh triggers one upstream refresh for the tenant. The request is
// shaped exactly like a client call through the secret-path namespace after
// the gateway's rewrite: the secret segment is stripped and the tenant
// identity travels in the short-lived bearer token.
func (e *EngineRefresher) Refresh(ctx context.Context, user *database.User) error {
	token, err := e.jwtService.GenerateTokenWithDuration(user.ID, user.Username, string(user.Role), user.SecretPath, e.tokenTTL)
	if err != nil {
		return fmt.Errorf("issue sweep token: %w", err)
	}

	target := *e.apiURL
	target.Path = strings.TrimSuffix(target.Path, "/") + refreshEndpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", cnst.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("refresh returned status %d", resp.StatusCode)
	}
	e.logger.Debug("tenant refresh completed",
		zap.String("username", user.Username),
		zap.Int("status", resp.StatusCode))
	return nil
}
