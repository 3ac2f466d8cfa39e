package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vonzhen/sub-store-panel/internal/auth/jwt"
	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"
	"github.com/Vonzhen/sub-store-panel/internal/database"
	"github.com/Vonzhen/sub-store-panel/pkg/utils"
)

// Namespace identifies which handler owns an inbound request path
type Namespace string

const (
	// NamespaceDashboard is the locally served dashboard, never proxied
	NamespaceDashboard Namespace = "dashboard"
	// NamespaceTenantAPI is the gateway's own JSON API
	NamespaceTenantAPI Namespace = "tenant_api"
	// NamespaceSecretProxy is a tenant secret-path request forwarded to the
	// engine API origin; knowledge of the path is the credential
	NamespaceSecretProxy Namespace = "secret_proxy"
	// NamespaceFrontendProxy is the engine UI served to a logged-in tenant
	NamespaceFrontendProxy Namespace = "frontend_proxy"
	// NamespaceLoginRedirect sends unauthenticated page requests to the dashboard
	NamespaceLoginRedirect Namespace = "login_redirect"
)

// RouteDecision is the per-request routing outcome
type RouteDecision struct {
	Namespace     Namespace
	RewrittenPath string
	RequiresAuth  bool
	// Tenant is set for the secret-proxy namespace: the tenant whose
	// secret path matched
	Tenant *database.User
}

// Router classifies inbound paths and computes the upstream rewrite.
// Classification is ordered most-specific first; the first matching rule wins.
type Router struct {
	db database.Database
}

// NewRouter creates a path router backed by the tenant store
func NewRouter(db database.Database) *Router {
	return &Router{db: db}
}

// secretCandidate extracts the first path segment when it is shaped like a
// secret path: exactly SecretPathLength lowercase hex characters. The match
// is syntactic only; Decide confirms it against the store.
func secretCandidate(path string) (segment, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	segment, rest, _ = strings.Cut(trimmed, "/")
	if len(segment) != cnst.SecretPathLength || !utils.IsLowerHex(segment) {
		return "", "", false
	}
	return segment, "/" + rest, true
}

// Decide maps a request path to exactly one namespace. claims is nil for
// unauthenticated requests. Secret-path matching is an exact full-segment
// lookup against current stored values, never a prefix comparison.
func (r *Router) Decide(ctx context.Context, path string, claims *jwt.Claims) (*RouteDecision, error) {
	switch {
	case path == cnst.DashboardPrefix || strings.HasPrefix(path, cnst.DashboardPrefix+"/"):
		return &RouteDecision{Namespace: NamespaceDashboard, RewrittenPath: path}, nil

	case path == cnst.APIPrefix || strings.HasPrefix(path, cnst.APIPrefix+"/"):
		return &RouteDecision{Namespace: NamespaceTenantAPI, RewrittenPath: strings.TrimPrefix(path, cnst.APIPrefix), RequiresAuth: true}, nil
	}

	if segment, rest, ok := secretCandidate(path); ok {
		tenant, err := r.db.GetUserBySecretPath(ctx, segment)
		switch {
		case err == nil:
			return &RouteDecision{Namespace: NamespaceSecretProxy, RewrittenPath: rest, Tenant: tenant}, nil
		case errors.Is(err, cnst.ErrNotFound):
			// Unknown hex-shaped segment falls through to the frontend rule
		default:
			return nil, fmt.Errorf("lookup secret path: %w", err)
		}
	}

	if claims == nil {
		return &RouteDecision{Namespace: NamespaceLoginRedirect, RequiresAuth: true}, nil
	}

	// The frontend rewrite uses the tenant's current stored secret path, not
	// the token snapshot, so a reset-path takes effect on the next request.
	tenant, err := r.db.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, cnst.ErrNotFound) {
			// Tenant deleted while the token was still live
			return &RouteDecision{Namespace: NamespaceLoginRedirect, RequiresAuth: true}, nil
		}
		return nil, fmt.Errorf("lookup tenant: %w", err)
	}
	return &RouteDecision{
		Namespace:     NamespaceFrontendProxy,
		RewrittenPath: "/" + tenant.SecretPath + path,
		RequiresAuth:  true,
		Tenant:        tenant,
	}, nil
}
