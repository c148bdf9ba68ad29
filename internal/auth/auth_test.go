package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/portfolio-engine/internal/auth"
)

var secret = []byte("test-secret")

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(auth.UserID(r.Context())))
	})
}

func do(h http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMiddleware_ValidToken(t *testing.T) {
	token, err := auth.Issue(secret, "user-42", time.Hour)
	require.NoError(t, err)

	w := do(auth.Middleware(secret)(echoUser()), "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-42", w.Body.String())
}

func TestMiddleware_Rejects(t *testing.T) {
	expired, err := auth.Issue(secret, "user-42", -time.Minute)
	require.NoError(t, err)
	otherKey, err := auth.Issue([]byte("other"), "user-42", time.Hour)
	require.NoError(t, err)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{UserID: "user-42"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + otherKey},
		{"alg none", "Bearer " + unsigned},
		{"garbage", "Bearer not.a.token"},
	}
	h := auth.Middleware(secret)(echoUser())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(h, "Authorization", tc.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error":"unauthorized"`)
		})
	}
}

func TestMiddleware_QueryTokenOnWebSocketUpgrade(t *testing.T) {
	token, err := auth.Issue(secret, "user-42", time.Hour)
	require.NoError(t, err)
	h := auth.Middleware(secret)(echoUser())

	req := httptest.NewRequest(http.MethodGet, "/ws?"+auth.TokenParam+"="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-42", w.Body.String())

	// Plain requests must use the header.
	req = httptest.NewRequest(http.MethodGet, "/ws?"+auth.TokenParam+"="+token, nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParse_FallsBackToSubject(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "sub-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)

	claims, err := auth.Parse(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "sub-user", claims.UserID)
}

func TestHeaderMiddleware(t *testing.T) {
	h := auth.HeaderMiddleware(echoUser())

	w := do(h, auth.UserHeader, "dev-user")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dev-user", w.Body.String())

	w = do(h, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
