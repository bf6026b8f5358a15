package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout applied by the router

	LogLevel      string // "debug" | "info" | "warn" | "error"
	PrettyLog     bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile       string // optional rotating log file
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Content store
	Store           string // "redis" | "memory"
	KeyPrefix       string // prefix of every Redis key (ex: "naeap")
	ArchivePageSize int    // records per page on the public archives
	AdminPageSize   int    // records per page in the admin console lists

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Admin console
	AdminUsername      string        // login name of the single operator account
	AdminPasswordHash  string        // bcrypt hash of the operator password
	SessionSecret      string        // HMAC key for session tokens
	SessionTTL         time.Duration // lifetime of a session cookie
	SecureCookies      bool          // set the Secure flag on cookies (HTTPS deployments)
	NoticeTTL          time.Duration // how long a console notification stays visible
	SessionIdleTimeout time.Duration // idle consoles are dropped after this
	SweepInterval      time.Duration // how often idle consoles are swept

	// Submissions
	MaxUploadBytes int64  // max multipart body size for manuscript submissions
	S3Endpoint     string // optional, S3-compatible endpoint (empty = AWS)
	S3Region       string
	S3Bucket       string // empty = uploads disabled, only metadata is stored
	S3AccessKey    string
	S3SecretKey    string

	// Public form throttling
	FormBurst         int // requests allowed in a burst per client IP
	FormRefillPerMin  int // tokens refilled per minute per client IP
	FormLimiterMaxIPs int // max tracked client IPs before sweeping

	AllowedHosts []string // optional, restrict admin access to specific Host headers
	AllowedCIDRS []string // optional, restrict /readyz and /metrics to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	loadDotEnv(getenv("NAEAP_ENV_FILE", ".env"))

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("NAEAP_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("NAEAP_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("NAEAP_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:      getenv("NAEAP_LOG_LEVEL", "info"),
		PrettyLog:     mustBool("NAEAP_PRETTY_LOG", true),
		LogFile:       getenv("NAEAP_LOG_FILE", ""),
		LogMaxSizeMB:  getenvInt("NAEAP_LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getenvInt("NAEAP_LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getenvInt("NAEAP_LOG_MAX_AGE_DAYS", 28),

		// Content store
		Store:           strings.ToLower(getenv("NAEAP_STORE", StoreRedis)),
		KeyPrefix:       getenv("NAEAP_KEY_PREFIX", "naeap"),
		ArchivePageSize: getenvInt("NAEAP_ARCHIVE_PAGE_SIZE", 6),
		AdminPageSize:   getenvInt("NAEAP_ADMIN_PAGE_SIZE", 20),

		// Redis tuning (address and credentials are read below, only for the redis store)
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Admin console
		AdminUsername:      getenv("NAEAP_ADMIN_USERNAME", "admin"),
		AdminPasswordHash:  requireEnv("NAEAP_ADMIN_PASSWORD_HASH"),
		SessionSecret:      requireEnv("NAEAP_SESSION_SECRET"),
		SessionTTL:         mustDuration("NAEAP_SESSION_TTL", 12*time.Hour),
		SecureCookies:      mustBool("NAEAP_SECURE_COOKIES", true),
		NoticeTTL:          mustDuration("NAEAP_NOTICE_TTL", 5*time.Second),
		SessionIdleTimeout: mustDuration("NAEAP_SESSION_IDLE_TIMEOUT", 2*time.Hour),
		SweepInterval:      mustDuration("NAEAP_SESSION_SWEEP_INTERVAL", 10*time.Minute),

		// Submissions
		MaxUploadBytes: int64(getenvInt("NAEAP_MAX_UPLOAD_BYTES", 20<<20)),
		S3Endpoint:     getenv("NAEAP_S3_ENDPOINT", ""),
		S3Region:       getenv("NAEAP_S3_REGION", "us-east-1"),
		S3Bucket:       getenv("NAEAP_S3_BUCKET", ""),
		S3AccessKey:    getenv("NAEAP_S3_ACCESS_KEY", ""),
		S3SecretKey:    getenv("NAEAP_S3_SECRET_KEY", ""),

		// Public form throttling
		FormBurst:         getenvInt("NAEAP_FORM_BURST", 5),
		FormRefillPerMin:  getenvInt("NAEAP_FORM_REFILL_PER_MIN", 5),
		FormLimiterMaxIPs: getenvInt("NAEAP_FORM_LIMITER_MAX_IPS", 10000),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("NAEAP_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("NAEAP_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("NAEAP_TRUST_PROXY", true),
	}

	switch cfg.Store {
	case StoreRedis:
		cfg.RedisAddr = requireEnv("NAEAP_REDIS_ADDR")
		cfg.RedisUser = getenv("NAEAP_REDIS_USERNAME", "default")
		cfg.RedisPasswordRequired = mustBool("NAEAP_REDIS_PASSWORD_REQUIRED", true)
		cfg.RedisPassword = getenv("NAEAP_REDIS_PASSWORD", "")
		cfg.RedisDB = getenvInt("NAEAP_REDIS_DB", 0)

		// Validate Redis password configuration
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: NAEAP_REDIS_PASSWORD is required when NAEAP_REDIS_PASSWORD_REQUIRED=true")
		}
	case StoreMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: NAEAP_STORE must be %q or %q, got %q", StoreRedis, StoreMemory, cfg.Store))
	}

	if cfg.ArchivePageSize < 1 || cfg.AdminPageSize < 1 {
		panic("❌ FATAL: page sizes must be >= 1")
	}
	if cfg.SweepInterval <= 0 || cfg.SessionIdleTimeout <= 0 {
		panic("❌ FATAL: NAEAP_SESSION_SWEEP_INTERVAL and NAEAP_SESSION_IDLE_TIMEOUT must be > 0")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	const redacted = "***REDACTED***"
	if c.RedisPassword != "" {
		c.RedisPassword = redacted
	}
	if c.RedisUser != "" {
		c.RedisUser = redacted
	}
	c.AdminPasswordHash = redacted
	c.SessionSecret = redacted
	if c.S3SecretKey != "" {
		c.S3SecretKey = redacted
	}
	return c
}

// UploadsEnabled reports whether manuscripts are shipped to object storage.
func (c *Config) UploadsEnabled() bool {
	return c.S3Bucket != ""
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set in the environment win; a missing file is not an error.
func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️ failed to load %s: %v", path, err)
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
