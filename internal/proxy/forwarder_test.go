package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestForwarder(t *testing.T, apiURL, uiURL string) *Forwarder {
	t.Helper()
	f, err := NewForwarder(config.UpstreamConfig{
		APIURL:      apiURL,
		FrontendURL: uiURL,
		Timeout:     2 * time.Second,
	}, zap.NewNop(), nil)
	require.NoError(t, err)
	return f
}

func TestNewForwarder_Validation(t *testing.T) {
	_, err := NewForwarder(config.UpstreamConfig{APIURL: "::not-a-url"}, zap.NewNop(), nil)
	assert.Error(t, err)

	// Frontend origin defaults to the API origin
	f, err := NewForwarder(config.UpstreamConfig{APIURL: "http://engine:3001"}, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Equal(t, f.apiURL, f.uiURL)
}

func TestServeAPI_RewritesPathAndStreamsBody(t *testing.T) {
	var gotPath, gotXFF string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotXFF = r.Header.Get("X-Forwarded-For")
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Engine", "sub-store")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))
	defer upstream.Close()

	f := newTestForwarder(t, upstream.URL, "")
	payload := strings.NewReader(strings.Repeat("x", 64))
	req := httptest.NewRequest(http.MethodPost, "http://gateway.local/0123456789abcdef0123456789abcdef/api/subs", payload)
	rec := httptest.NewRecorder()

	f.ServeAPI(rec, req, "/api/subs")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/subs", gotPath, "tenant segment must be stripped before the upstream sees the path")
	assert.NotEmpty(t, gotXFF)
	assert.Equal(t, "sub-store", rec.Header().Get("X-Engine"))
	assert.Len(t, rec.Body.Bytes(), 64)
}

func TestServeUI_UsesFrontendOrigin(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the API origin")
	}))
	defer api.Close()
	ui := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0123456789abcdef0123456789abcdef/share", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer ui.Close()

	f := newTestForwarder(t, api.URL, ui.URL)
	rec := httptest.NewRecorder()
	f.ServeUI(rec, httptest.NewRequest(http.MethodGet, "http://gateway.local/share", nil), "/0123456789abcdef0123456789abcdef/share")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServe_UnreachableUpstreamIs502(t *testing.T) {
	// Grab a port that is guaranteed closed
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	f := newTestForwarder(t, dead.URL, "")
	rec := httptest.NewRecorder()
	f.ServeAPI(rec, httptest.NewRequest(http.MethodGet, "http://gateway.local/x", nil), "/x")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"upstream unavailable"}`, rec.Body.String())
}
