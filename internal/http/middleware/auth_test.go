package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railway/internal/domain"
)

func authRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Auth(secret))
	r.GET("/me", func(c *gin.Context) {
		rc := domain.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": rc.UserID, "role": rc.Role, "request_id": rc.RequestID})
	})
	return r
}

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuth_Tokens(t *testing.T) {
	r := authRouter("k")
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + sign(t, "k", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7, "role": "user", "exp": exp}), http.StatusOK},
		{"string user id", "Bearer " + sign(t, "k", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "7", "exp": exp}), http.StatusOK},
		{"wrong key", "Bearer " + sign(t, "other", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7, "exp": exp}), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, "k", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized},
		{"no exp", "Bearer " + sign(t, "k", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7}), http.StatusUnauthorized},
		{"other alg", "Bearer " + sign(t, "k", jwt.SigningMethodHS512, jwt.MapClaims{"user_id": 7, "exp": exp}), http.StatusUnauthorized},
		{"no user", "Bearer " + sign(t, "k", jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp}), http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestAuth_RequestContextCarriesIdentity(t *testing.T) {
	r := authRouter("k")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	req.Header.Set("Authorization", "Bearer "+sign(t, "k", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 42, "role": "admin", "exp": time.Now().Add(time.Hour).Unix()}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":42,"role":"admin","request_id":"abc-123"}`, w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestAuth_DevHeader(t *testing.T) {
	r := authRouter("")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "5")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
