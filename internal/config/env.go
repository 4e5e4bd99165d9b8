package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"railway/internal/utils"
)

type Env struct {
	AppAddr string
	GinMode string

	Storage string // mysql | memory
	DBDSN   string

	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret          string
	AuthDevHeader      bool
	CORSAllowedOrigins []string

	OrderLockDuration  time.Duration
	SweepInterval      time.Duration
	SweepBatch         int
	BookingRateLimit   int
	BookingBlockUnpaid bool
	SegmentCacheTTL    time.Duration
}

// LoadEnv reads .env when present, then the process environment.
func LoadEnv() Env {
	if err := godotenv.Load(); err != nil {
		utils.LogEvent("", "config", "load_env", "no .env file, using process environment")
	}

	return Env{
		AppAddr: getEnv("APP_ADDR", ":8080"),
		GinMode: getEnv("GIN_MODE", ""),

		Storage: strings.ToLower(getEnv("STORAGE", "mysql")),
		DBDSN:   getEnv("DB_DSN", "root:@tcp(127.0.0.1:3306)/railway?parseTime=true&loc=UTC&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"),

		RedisURL: getEnv("REDIS_URL", ""),

		KafkaBrokers: utils.SplitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-events"),

		JWTSecret:          getEnv("JWT_SECRET", "super-secret-key-change-me"),
		AuthDevHeader:      getBool("AUTH_DEV_HEADER", false),
		CORSAllowedOrigins: utils.SplitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173")),

		OrderLockDuration:  time.Duration(getInt("ORDER_LOCK_MINUTES", 20)) * time.Minute,
		SweepInterval:      time.Duration(getInt("SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
		SweepBatch:         getInt("SWEEP_BATCH", 100),
		BookingRateLimit:   getInt("BOOKING_RATE_LIMIT", 10),
		BookingBlockUnpaid: getBool("BOOKING_BLOCK_UNPAID", false),
		SegmentCacheTTL:    time.Duration(getInt("SEGMENT_CACHE_TTL_SECONDS", 3600)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
