package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/auth/jwt"
	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSvc = func() *jwt.Service {
	s, err := jwt.NewService(jwt.Config{SecretKey: strings.Repeat("k", 32), Duration: time.Hour})
	if err != nil {
		panic(err)
	}
	return s
}()

func performRequest(t *testing.T, adminGate bool, setup func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuthMiddleware(testSvc)}
	if adminGate {
		handlers = append(handlers, AdminOnly())
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims, ok := GetClaims(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"username": claims.Username})
	})
	r.GET("/p", handlers...)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware_MissingToken(t *testing.T) {
	w := performRequest(t, false, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
}

func TestJWTAuthMiddleware_BadHeaderScheme(t *testing.T) {
	w := performRequest(t, false, func(r *http.Request) { r.Header.Set("Authorization", "Token abc") })
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	w := performRequest(t, false, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cnst.AuthCookieName, Value: "garbage"})
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_ValidCookie(t *testing.T) {
	tok, err := testSvc.GenerateToken(7, "alice", cnst.RoleUser, "")
	require.NoError(t, err)
	w := performRequest(t, false, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cnst.AuthCookieName, Value: tok})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestJWTAuthMiddleware_ValidBearerHeader(t *testing.T) {
	tok, err := testSvc.GenerateToken(7, "alice", cnst.RoleUser, "")
	require.NoError(t, err)
	w := performRequest(t, false, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) })
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminOnly(t *testing.T) {
	userTok, err := testSvc.GenerateToken(1, "alice", cnst.RoleUser, "")
	require.NoError(t, err)
	adminTok, err := testSvc.GenerateToken(2, "root", cnst.RoleAdmin, "")
	require.NoError(t, err)

	w := performRequest(t, true, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+userTok) })
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(t, true, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminTok) })
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResolveClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(setup func(*http.Request)) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if setup != nil {
			setup(c.Request)
		}
		return c
	}

	assert.Nil(t, ResolveClaims(newCtx(nil), testSvc))
	assert.Nil(t, ResolveClaims(newCtx(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cnst.AuthCookieName, Value: "bad"})
	}), testSvc))

	tok, err := testSvc.GenerateToken(7, "alice", cnst.RoleUser, "abc")
	require.NoError(t, err)
	claims := ResolveClaims(newCtx(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cnst.AuthCookieName, Value: tok})
	}), testSvc)
	require.NotNil(t, claims)
	assert.Equal(t, uint(7), claims.UserID)
}
