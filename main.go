package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"railway/internal/cache"
	intconfig "railway/internal/config"
	router "railway/internal/http"
	"railway/internal/events"
	"railway/internal/realtime"
	"railway/internal/repositories"
	"railway/internal/services"
	"railway/internal/utils"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	store, db := openStore(env)
	if db != nil {
		defer db.Close()
	}

	rdb, err := intconfig.ConnectRedis(env.RedisURL)
	if err != nil {
		utils.Log.WithError(err).Warn("redis unavailable, using in-process cache and counters")
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var publisher services.OrderEvents = events.Noop{}
	if len(env.KafkaBrokers) > 0 {
		p, err := events.NewOrderPublisher(env.KafkaBrokers, env.KafkaTopic)
		if err != nil {
			utils.Log.WithError(err).Warn("kafka unavailable, order events are not published")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	var segCache services.SegmentCache
	var counter cache.Counter = cache.NewMemoryCounter()
	var fanout *realtime.RedisFanout
	if rdb != nil {
		segCache = cache.NewSegmentCache(rdb, env.SegmentCacheTTL)
		counter = cache.NewRedisCounter(rdb)
		fanout = realtime.NewRedisFanout(rdb)
	}

	orders := services.NewOrderService(store, segCache, publisher, env.OrderLockDuration)

	hub := realtime.NewHub(nil, fanout, env.CORSAllowedOrigins)
	passengers := services.PassengerService{Store: store, Notifier: hub}
	hub.Updater = passengers

	deps := router.Deps{
		Orders:     orders,
		Passengers: passengers,
		Docs:       services.DocsService{Orders: orders},
		Hub:        hub,
		Counter:    counter,
	}
	if db != nil {
		deps.PingDB = func(ctx context.Context) error { return intconfig.PingDB(ctx, db) }
	}
	r := router.NewRouter(env, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := services.ExpirySweeper{Orders: orders, Interval: env.SweepInterval, Batch: env.SweepBatch}
	go sweeper.Run(ctx)
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.LogEvent("", "main", "listen", "http://localhost"+env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	utils.LogEvent("", "main", "shutdown", "stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Log.WithError(err).Fatal("shutdown failed")
	}
	utils.LogEvent("", "main", "shutdown", "server stopped")
}

func openStore(env intconfig.Env) (repositories.Store, *sql.DB) {
	if env.Storage == "memory" {
		mem := repositories.NewMemoryStore()
		seedDemo(mem, utils.NowUTC())
		utils.LogEvent("", "main", "storage", "in-memory store with demo data")
		return mem, nil
	}
	db, err := intconfig.ConnectDB(env.DBDSN)
	if err != nil {
		utils.Log.WithError(err).Fatal("database unavailable")
	}
	return repositories.NewMySQLStore(db), db
}
