package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"railway/internal/cache"
	"railway/internal/utils"
)

// RateLimit allows limit requests per user per window for one scope. When
// the counter itself fails the request goes through.
func RateLimit(counter cache.Counter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}
		who := c.ClientIP()
		if uid, ok := UserID(c); ok {
			who = strconv.FormatInt(uid, 10)
		}
		n, err := counter.Hit(c.Request.Context(), scope+":"+who, window)
		if err != nil {
			utils.LogError(GetRequestID(c), "ratelimit", scope, err)
			c.Next()
			return
		}
		if n > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests",
				"code":       "rate_limited",
				"message":    fmt.Sprintf("at most %d requests per %s", limit, window),
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}
