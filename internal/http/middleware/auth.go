package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"railway/internal/domain"
	"railway/internal/utils"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// Auth verifies a bearer token signed with secret (HS256) and carrying
// user_id and role claims. Tokens are issued elsewhere.
//
// With an empty secret it trusts the X-User-ID header instead. That mode is
// for local runs only.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		var rc domain.RequestContext
		var err error
		if secret == "" {
			rc, err = headerIdentity(c)
		} else {
			rc, err = bearerIdentity(c, key)
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "unauthorized",
				"code":       "unauthorized",
				"message":    err.Error(),
				"request_id": GetRequestID(c),
			})
			return
		}

		rc.RequestID = GetRequestID(c)
		c.Set(userIDKey, rc.UserID)
		c.Set(roleKey, rc.Role)
		c.Request = c.Request.WithContext(domain.WithRequestContext(c.Request.Context(), rc))
		c.Next()
	}
}

func bearerIdentity(c *gin.Context, key []byte) (domain.RequestContext, error) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		// browsers cannot set headers on websocket upgrades
		if q := strings.TrimSpace(c.Query("token")); q != "" && c.Request.URL.Path == "/api/ws" {
			raw = "Bearer " + q
		} else {
			return domain.RequestContext{}, errors.New("missing bearer token")
		}
	}
	tokenString := strings.TrimSpace(raw[len("bearer "):])

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		utils.LogEvent(GetRequestID(c), "auth", "reject", err.Error())
		return domain.RequestContext{}, errors.New("invalid token")
	}

	uid, err := numericClaim(claims["user_id"])
	if err != nil || uid <= 0 {
		return domain.RequestContext{}, errors.New("token has no user_id")
	}
	role, _ := claims["role"].(string)
	return domain.RequestContext{UserID: uid, Role: role}, nil
}

func headerIdentity(c *gin.Context) (domain.RequestContext, error) {
	uid, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader("X-User-ID")), 10, 64)
	if err != nil || uid <= 0 {
		return domain.RequestContext{}, errors.New("missing X-User-ID")
	}
	return domain.RequestContext{UserID: uid, Role: c.GetHeader("X-User-Role")}, nil
}

func numericClaim(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected claim type %T", v)
	}
}

// UserID returns the authenticated user id.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
