package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Vonzhen/sub-store-panel/internal/apiserver/middleware"
	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"
	"github.com/Vonzhen/sub-store-panel/internal/common/dto"
	"github.com/Vonzhen/sub-store-panel/internal/database"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// ListUsers returns all tenants; admin only. Secret paths are included so
// an admin can hand a tenant their subscription URL.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.db.ListUsers(c.Request.Context())
	if err != nil {
		h.storeError(c, err)
		return
	}
	out := make([]dto.UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, userInfo(u, true))
	}
	c.JSON(http.StatusOK, out)
}

// CreateUser provisions a tenant with a random secret path; admin only
func (h *Handler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	for attempt := 0; attempt < resetPathAttempts; attempt++ {
		secretPath, err := h.newSecretPath()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate secret path"})
			return
		}

		user := &database.User{
			Username:     req.Username,
			PasswordHash: string(hash),
			SecretPath:   secretPath,
			Role:         database.UserRole(req.Role),
		}
		err = h.db.CreateUser(c.Request.Context(), user)
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, userInfo(user, true))
			return
		case errors.Is(err, cnst.ErrConflict):
			// The unique constraint covers both username and secret path;
			// only a path collision is retryable
			if _, lookupErr := h.db.GetUserByUsername(c.Request.Context(), req.Username); lookupErr == nil {
				c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
				return
			}
			continue
		default:
			h.storeError(c, err)
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate secret path"})
}

// UpdateUser edits a tenant record; admin only. Empty fields stay unchanged.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.db.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Role != "" {
		user.Role = database.UserRole(req.Role)
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}
		user.PasswordHash = string(hash)
	}

	if err := h.db.UpdateUser(c.Request.Context(), user); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userInfo(user, true))
}

// DeleteUser removes a tenant; admin only. Admins cannot delete themselves,
// which keeps at least one working admin account in the store.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if claims.UserID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}

	if err := h.db.DeleteUser(c.Request.Context(), id); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return uint(id), true
}
