package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"railway/internal/services"
)

// ExpireOrders runs one sweep now. ?batch= overrides the configured size.
func ExpireOrders(sweeper services.ExpirySweeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		sw := sweeper
		if v := c.Query("batch"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				respondError(c, http.StatusBadRequest, "validation_error", "invalid batch", nil)
				return
			}
			sw.Batch = n
		}
		released, err := sw.SweepOnce(c.Request.Context())
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"released": released})
	}
}
