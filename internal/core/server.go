// Package core wires the gateway's HTTP surface: the tenant API, the locally
// served dashboard, and the proxied namespaces in front of the upstream
// engine.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/apiserver/handler"
	"github.com/Vonzhen/sub-store-panel/internal/apiserver/middleware"
	"github.com/Vonzhen/sub-store-panel/internal/auth/jwt"
	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"
	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/Vonzhen/sub-store-panel/internal/proxy"
	"github.com/Vonzhen/sub-store-panel/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Server owns the gin engine and the http.Server around it
type Server struct {
	logger     *zap.Logger
	cfg        *config.GatewayConfig
	router     *gin.Engine
	jwtService *jwt.Service
	pathRouter *proxy.Router
	forwarder  *proxy.Forwarder

	httpSrv *http.Server
}

// NewServer assembles the gateway's routes
func NewServer(
	logger *zap.Logger,
	cfg *config.GatewayConfig,
	jwtService *jwt.Service,
	authHandler *handler.Handler,
	syncHandler *handler.SyncHandler,
	pathRouter *proxy.Router,
	forwarder *proxy.Forwarder,
	m *metrics.Metrics,
) (*Server, error) {
	s := &Server{
		logger:     logger.Named("core"),
		cfg:        cfg,
		router:     gin.New(),
		jwtService: jwtService,
		pathRouter: pathRouter,
		forwarder:  forwarder,
	}

	// Clients connect to the gateway directly; forwarded headers are not
	// trusted, so ClientIP() is always the peer address
	if err := s.router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	s.router.Use(s.loggerMiddleware())
	s.router.Use(s.recoveryMiddleware())
	if cfg.Tracing.Enabled {
		s.router.Use(otelgin.Middleware(cnst.AppName))
	}
	if m != nil {
		s.router.Use(m.Middleware())
		s.router.GET("/metrics", m.Handler())
	}

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The dashboard is served locally, never proxied
	s.router.Static(cnst.DashboardPrefix, cfg.DashboardDir)

	s.registerAPIRoutes(authHandler, syncHandler)

	// Everything else is a proxied namespace
	s.router.NoRoute(s.handleRoot)

	return s, nil
}

func (s *Server) registerAPIRoutes(authHandler *handler.Handler, syncHandler *handler.SyncHandler) {
	api := s.router.Group(cnst.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)

	authed := api.Group("", middleware.JWTAuthMiddleware(s.jwtService))
	authed.GET("/users/me", authHandler.GetSelf)
	authed.PUT("/users/me/password", authHandler.ChangePassword)
	authed.PUT("/users/me/username", authHandler.ChangeUsername)
	authed.POST("/users/me/reset-path", authHandler.ResetPath)
	authed.GET("/users/me/config", authHandler.GetConfig)
	authed.PUT("/users/me/config", authHandler.UpdateConfig)

	admin := authed.Group("", middleware.AdminOnly())
	admin.GET("/users", authHandler.ListUsers)
	admin.POST("/users", authHandler.CreateUser)
	admin.PUT("/users/:id", authHandler.UpdateUser)
	admin.DELETE("/users/:id", authHandler.DeleteUser)
	admin.GET("/sync/settings", syncHandler.GetSettings)
	admin.PUT("/sync/settings", syncHandler.UpdateSettings)
	admin.POST("/sync/run", syncHandler.Run)
}

// handleRoot classifies every unmatched path and dispatches it to the
// matching proxied namespace
func (s *Server) handleRoot(c *gin.Context) {
	claims := middleware.ResolveClaims(c, s.jwtService)

	decision, err := s.pathRouter.Decide(c.Request.Context(), c.Request.URL.Path, claims)
	if err != nil {
		s.logger.Error("route decision failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	switch decision.Namespace {
	case proxy.NamespaceSecretProxy:
		s.forwarder.ServeAPI(c.Writer, c.Request, decision.RewrittenPath)
	case proxy.NamespaceFrontendProxy:
		s.forwarder.ServeUI(c.Writer, c.Request, decision.RewrittenPath)
	case proxy.NamespaceLoginRedirect:
		// A stale or invalid cookie is cleared so the dashboard starts clean
		if cookie, err := c.Cookie(cnst.AuthCookieName); err == nil && cookie != "" {
			c.SetCookie(cnst.AuthCookieName, "", -1, "/", "", false, true)
		}
		c.Redirect(http.StatusFound, cnst.DashboardPrefix+"/")
	case proxy.NamespaceDashboard:
		// Bare /dashboard; the static route owns /dashboard/*
		c.Redirect(http.StatusMovedPermanently, cnst.DashboardPrefix+"/")
	default:
		// Tenant-API paths that matched no registered route
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	}
}

// Run serves until the context is cancelled, then drains connections
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", zap.Int("port", s.cfg.Port))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down gateway")
	return s.httpSrv.Shutdown(shutdownCtx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}
