package api

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"

	"railway/internal/cache"
	intconfig "railway/internal/config"
	h "railway/internal/http/handlers"
	"railway/internal/http/middleware"
	"railway/internal/realtime"
	"railway/internal/services"
	"railway/internal/utils"
)

// Deps are the services the HTTP layer serves.
type Deps struct {
	Orders     *services.OrderService
	Passengers services.PassengerService
	Docs       services.DocsService
	Hub        *realtime.Hub
	Counter    cache.Counter
	// PingDB is nil on the in-memory store.
	PingDB func(context.Context) error
}

func NewRouter(env intconfig.Env, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.LogError("", "http", "trusted_proxies", err)
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	secret := env.JWTSecret
	if env.AuthDevHeader {
		secret = ""
	}
	auth := middleware.Auth(secret)

	orders := h.OrderHandler{Orders: deps.Orders, Docs: deps.Docs, BlockUnpaid: env.BookingBlockUnpaid}
	passengers := h.PassengerHandler{Passengers: deps.Passengers}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck(deps.PingDB))
		api.GET("/routes", h.Routes)

		// Trip search is public
		api.GET("/trains", orders.Search)
		api.GET("/trains/:trainNo/quote", orders.Quote)

		// Orders
		o := api.Group("/orders", auth)
		o.GET("", orders.List)
		o.POST("", middleware.RateLimit(deps.Counter, "booking", env.BookingRateLimit, time.Minute), orders.Create)
		o.GET("/:id", orders.Get)
		o.POST("/:id/cancel", orders.Cancel)
		o.POST("/:id/pay", orders.Pay)
		o.GET("/:id/e-ticket", orders.ETicket)

		// Passengers
		p := api.Group("/passengers", auth)
		p.GET("", passengers.List)
		p.GET("/:id", passengers.Get)
		p.PUT("/:id", passengers.Update)
		p.DELETE("/:id", passengers.Delete)

		admin := api.Group("/admin", auth, middleware.RequireRoles("admin"))
		admin.POST("/expire-orders", h.ExpireOrders(services.ExpirySweeper{Orders: deps.Orders, Batch: env.SweepBatch}))

		if deps.Hub != nil {
			api.GET("/ws", auth, h.Socket(deps.Hub))
		}
	}

	h.SetRouter(r)
	return r
}
