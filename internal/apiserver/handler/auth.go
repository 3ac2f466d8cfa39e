package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Vonzhen/sub-store-panel/internal/apiserver/middleware"
	"github.com/Vonzhen/sub-store-panel/internal/auth/jwt"
	"github.com/Vonzhen/sub-store-panel/internal/auth/loginguard"
	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"
	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/Vonzhen/sub-store-panel/internal/common/dto"
	"github.com/Vonzhen/sub-store-panel/internal/database"
	"github.com/Vonzhen/sub-store-panel/pkg/metrics"
	"github.com/Vonzhen/sub-store-panel/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// resetPathAttempts bounds the retry loop when a freshly generated secret
// path collides with an existing one
const resetPathAttempts = 5

// Handler serves the tenant-facing authentication and account API
type Handler struct {
	db         database.Database
	jwtService *jwt.Service
	guard      *loginguard.Guard
	cfg        *config.GatewayConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics

	// newSecretPath is injectable for tests
	newSecretPath func() (string, error)
}

// NewHandler creates the authentication handler
func NewHandler(db database.Database, jwtService *jwt.Service, guard *loginguard.Guard, cfg *config.GatewayConfig, logger *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		db:         db,
		jwtService: jwtService,
		guard:      guard,
		cfg:        cfg,
		logger:     logger.Named("handler"),
		metrics:    m,
		newSecretPath: func() (string, error) {
			return utils.RandomSecretPath(cnst.SecretPathLength)
		},
	}
}

func (h *Handler) loginAttempt(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginAttempt(outcome)
	}
}

// Login authenticates a tenant and sets the session cookie
func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	addr := c.ClientIP()
	if !h.guard.CheckLocked(addr) {
		h.loginAttempt("locked")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many failed attempts, try again later"})
		return
	}

	user, err := h.db.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, cnst.ErrNotFound) {
			h.logger.Error("login lookup failed", zap.Error(err))
		}
		// Unknown user and wrong password are indistinguishable to the caller
		h.guard.RecordFailure(addr)
		h.loginAttempt("failure")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.guard.RecordFailure(addr)
		h.loginAttempt("failure")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Username, string(user.Role), user.SecretPath)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	h.guard.RecordSuccess(addr)
	h.loginAttempt("success")
	h.setAuthCookie(c, token, int(h.cfg.JWT.Duration.Seconds()))
	c.JSON(http.StatusOK, dto.LoginResponse{Token: token, User: userInfo(user, true)})
}

// Logout clears the session cookie
func (h *Handler) Logout(c *gin.Context) {
	h.setAuthCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSelf returns the calling tenant's record, secret path included
func (h *Handler) GetSelf(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userInfo(user, true))
}

// ChangePassword verifies the old password and stores a new hash
func (h *Handler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}
	if err := h.db.UpdateCredential(c.Request.Context(), user.ID, string(hash)); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ChangeUsername renames the calling tenant after re-verifying the password
func (h *Handler) ChangeUsername(c *gin.Context) {
	var req dto.ChangeUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	user.Username = req.NewUsername
	if err := h.db.UpdateUser(c.Request.Context(), user); err != nil {
		h.storeError(c, err)
		return
	}

	// Re-issue the session so the cookie reflects the new name
	token, err := h.jwtService.GenerateToken(user.ID, user.Username, string(user.Role), user.SecretPath)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	h.setAuthCookie(c, token, int(h.cfg.JWT.Duration.Seconds()))
	c.JSON(http.StatusOK, userInfo(user, true))
}

// ResetPath rotates the calling tenant's secret path. The old path stops
// routing the moment the update commits.
func (h *Handler) ResetPath(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	for attempt := 0; attempt < resetPathAttempts; attempt++ {
		newPath, err := h.newSecretPath()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate secret path"})
			return
		}
		err = h.db.UpdateSecretPath(c.Request.Context(), user.ID, newPath)
		switch {
		case err == nil:
			h.logger.Info("secret path rotated", zap.String("username", user.Username))
			c.JSON(http.StatusOK, dto.ResetPathResponse{SecretPath: newPath})
			return
		case errors.Is(err, cnst.ErrConflict):
			// 1-in-2^128 collision; draw again
			continue
		default:
			h.storeError(c, err)
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate secret path"})
}

// GetConfig returns the tenant's preference document
func (h *Handler) GetConfig(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ConfigDocument{Config: json.RawMessage(user.Config)})
}

// UpdateConfig replaces the tenant's preference document. Only
// well-formedness is enforced; the schema belongs to the engine frontend.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req dto.ConfigDocument
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Config) == 0 || !json.Valid(req.Config) {
		c.JSON(http.StatusBadRequest, gin.H{"error": cnst.ErrInvalidConfigDocument.Error()})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if err := h.db.UpdateConfig(c.Request.Context(), user.ID, string(req.Config)); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// currentUser loads the fresh tenant record behind the validated claims.
// A token for a deleted tenant gets a 401, not a 500.
func (h *Handler) currentUser(c *gin.Context) (*database.User, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	user, err := h.db.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, cnst.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		} else {
			h.storeError(c, err)
		}
		return nil, false
	}
	return user, true
}

func (h *Handler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cnst.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, cnst.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		h.logger.Error("store operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) setAuthCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cnst.AuthCookieName, token, maxAge, "/", "", false, true)
}

// userInfo maps a tenant record to its API view; includeSecret controls
// whether the secret path is disclosed
func userInfo(u *database.User, includeSecret bool) dto.UserInfo {
	info := dto.UserInfo{
		ID:       u.ID,
		Username: u.Username,
		Role:     string(u.Role),
	}
	if includeSecret {
		info.SecretPath = u.SecretPath
	}
	return info
}
