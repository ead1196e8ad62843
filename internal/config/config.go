package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogMode  string

	DBDriver string
	DBDSN    string

	BlobBasePath string

	AuthHMACSecret string
	AuthUsers      []string // user:role:bcrypthash

	EnableBankImport bool
	EnableGuestAuth  bool

	CORSOrigins []string

	AMQPURL      string
	AMQPExchange string

	PresetsFile   string
	ItemsSeedFile string

	SessionRetention time.Duration
	JanitorInterval  time.Duration

	BankRetryAttempts int
	BankRetryBackoff  time.Duration

	EventWorkers    int
	EventBuffer     int
	ShutdownTimeout time.Duration

	// Warnings lists optional settings that were malformed and replaced by
	// their defaults.
	Warnings []string
}

// FromEnv reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func FromEnv() Config {
	_ = godotenv.Load()

	var w warnings
	mode := Mode(envOr("MODE", string(ModeOffline)))
	if mode != ModeOffline && mode != ModeOnline {
		w.add("MODE", string(mode))
		mode = ModeOffline
	}
	defOrigins := "http://localhost:3000,http://localhost:5173"
	if mode == ModeOnline {
		defOrigins = "https://cat.mindengage.ai"
	}
	return Config{
		Mode:              mode,
		HTTPAddr:          envOr("HTTP_ADDR", ":8080"),
		LogMode:           envOr("LOG_MODE", "dev"),
		DBDriver:          envOr("DB_DRIVER", "sqlite"),
		DBDSN:             envOr("DB_DSN", ""),
		BlobBasePath:      envOr("BLOB_BASE_PATH", "./data"),
		AuthHMACSecret:    envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		AuthUsers:         csvOr("AUTH_USERS", "admin:admin:$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		EnableBankImport:  envBool("ENABLE_BANK_IMPORT", true),
		EnableGuestAuth:   envBool("ENABLE_GUEST_AUTH", mode == ModeOffline),
		CORSOrigins:       csvOr("CORS_ORIGINS", defOrigins),
		AMQPURL:           os.Getenv("AMQP_URL"),
		AMQPExchange:      envOr("AMQP_EXCHANGE", "cat.sessions"),
		PresetsFile:       os.Getenv("PRESETS_FILE"),
		ItemsSeedFile:     os.Getenv("ITEMS_SEED_FILE"),
		SessionRetention:  envDuration("SESSION_RETENTION", 24*time.Hour, &w),
		JanitorInterval:   envDuration("JANITOR_INTERVAL", 5*time.Minute, &w),
		BankRetryAttempts: envInt("BANK_RETRY_ATTEMPTS", 3, &w),
		BankRetryBackoff:  envDuration("BANK_RETRY_BACKOFF", 200*time.Millisecond, &w),
		EventWorkers:      envInt("EVENT_WORKERS", 2, &w),
		EventBuffer:       envInt("EVENT_BUFFER", 1024, &w),
		ShutdownTimeout:   envDuration("SHUTDOWN_TIMEOUT", 15*time.Second, &w),
		Warnings:          w,
	}
}

type warnings []string

func (w *warnings) add(key, val string) {
	*w = append(*w, fmt.Sprintf("%s=%q is invalid, using default", key, val))
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int, w *warnings) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		w.add(k, v)
		return def
	}
	return n
}
func envDuration(k string, def time.Duration, w *warnings) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		w.add(k, v)
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
