package auth_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dremmer8/poker/internal/auth"
)

func testHasher() *auth.Argon2idHasher {
	return auth.NewArgon2idHasher(1, 1024, 32, 16, 1)
}

func TestArgon2idHasher(t *testing.T) {
	h := testHasher()
	hash, err := h.Hash("4321")
	require.NoError(t, err)

	assert.True(t, h.Compare(hash, "4321"))
	assert.False(t, h.Compare(hash, "1234"))
	assert.False(t, h.Compare("not-a-hash", "4321"))
}

func TestJWTManager(t *testing.T) {
	m := auth.NewJWTManager([]byte("secret"), time.Hour)

	token, err := m.Generate(time.Now())
	require.NoError(t, err)
	assert.NoError(t, m.Verify(token))

	other := auth.NewJWTManager([]byte("other"), time.Hour)
	assert.ErrorIs(t, other.Verify(token), auth.ErrInvalidToken)

	expired, err := m.Generate(time.Now().Add(-2 * time.Hour))
	require.NoError(t, err)
	assert.ErrorIs(t, m.Verify(expired), auth.ErrInvalidToken)

	assert.ErrorIs(t, m.Verify("garbage"), auth.ErrInvalidToken)
}

func newRouter(t *testing.T, pin string) (*gin.Engine, *auth.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hasher := testHasher()
	hash := ""
	if pin != "" {
		var err error
		hash, err = hasher.Hash(pin)
		require.NoError(t, err)
	}
	tokens := auth.NewJWTManager([]byte("secret"), time.Hour)
	gate := auth.NewGate(hasher, hash, tokens, time.Hour)

	r := gin.New()
	r.POST("/console/login", gate.LoginHandler)
	r.POST("/console/logout", gate.LogoutHandler)
	r.POST("/protected", gate.RequireConsole(), func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})
	return r, tokens
}

func TestLoginHandler(t *testing.T) {
	testCases := []struct {
		description  string
		body         string
		expectedCode int
		expectedBody string
		cookieIssued bool
	}{
		{
			description:  "non json request",
			body:         `{`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error": "bad-request-format"}`,
		},
		{
			description:  "wrong pin",
			body:         `{"pin": "0000"}`,
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"error": "invalid-pin"}`,
		},
		{
			description:  "correct pin",
			body:         `{"pin": "4321"}`,
			expectedCode: http.StatusOK,
			cookieIssued: true,
		},
	}

	r, _ := newRouter(t, "4321")
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/console/login", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedCode, w.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, w.Body.String())
			}
			found := false
			for _, c := range w.Result().Cookies() {
				if c.Name == auth.CookieName && c.Value != "" {
					found = true
				}
			}
			assert.Equal(t, tc.cookieIssued, found)
		})
	}
}

func TestRequireConsole(t *testing.T) {
	r, tokens := newRouter(t, "4321")
	token, err := tokens.Generate(time.Now())
	require.NoError(t, err)

	testCases := []struct {
		description  string
		prepare      func(*http.Request)
		expectedCode int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"cookie token", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token}) }, http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/protected", nil)
			tc.prepare(req)
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.expectedCode, w.Code)
		})
	}
}

func TestOpenConsole(t *testing.T) {
	r, _ := newRouter(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/protected", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/console/login", bytes.NewBufferString(`{"pin": ""}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	r, _ := newRouter(t, "4321")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/console/logout", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
}
