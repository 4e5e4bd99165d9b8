package handlers

import (
	"github.com/gin-gonic/gin"

	"railway/internal/http/middleware"
	"railway/internal/realtime"
	"railway/internal/utils"
)

// Socket upgrades GET /api/ws for the authenticated user.
func Socket(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := currentUser(c)
		if !ok {
			return
		}
		if err := hub.Serve(c.Writer, c.Request, uid); err != nil {
			// the upgrader already wrote the HTTP error
			utils.LogError(middleware.GetRequestID(c), "realtime", "upgrade", err)
		}
	}
}
