package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings. It is built once at startup and passed
// to constructors; nothing reads the environment after Load returns.
type Config struct {
	SiteName    string        // SITE_NAME (default: Flasker)
	AppNickname string        // APP_NICKNAME, prefixes queue keys (default: flasker)
	Env         string        // ENV: dev, test, prod (default: dev)
	Port        string        // PORT (default: 8080)
	DatabaseURL string        // DATABASE_URL: postgres://... or sqlite://path (default: sqlite://flasker.db)
	RedisURL    string        // REDIS_URL (default: redis://localhost:6379/0)
	SecretKey   string        // SECRET_KEY, signs confirmation/reset tokens
	LogLevel    string        // LOG_LEVEL (default: info)
	TokenTTL    time.Duration // TOKEN_TTL, bearer token lifetime (default: 7 days)
	ResultTTL   time.Duration // JOB_RESULT_TTL, finished job bookkeeping lifetime (default: 500s)

	Admins           []string // ADMINS: emails registered into the admin group
	BlockedUsernames []string // BLOCKED_USERNAMES: extra reserved usernames
	AllowedOrigins   []string // WS_ALLOWED_ORIGINS: websocket origins, empty allows any

	MailServer    string // MAIL_SERVER
	MailPort      int    // MAIL_PORT (default: 25)
	MailUsername  string // MAIL_USERNAME
	MailPassword  string // MAIL_PASSWORD
	OutboundEmail string // OUTBOUND_EMAIL

	TokenRequestsPerMinute int // RATELIMIT_TOKENS_PER_MINUTE (default: 10)
}

var defaultBlockedUsernames = []string{
	"admin", "python", "python3", "postgres", "sqlite", "sqlite3", "root",
	"url", "ubuntu", "debian", "docker", "flask", "com",
}

// Load reads .env.local or .env when present and then the environment.
func Load() Config {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	cfg := Config{
		SiteName:      getEnvOrDefault("SITE_NAME", "Flasker"),
		AppNickname:   getEnvOrDefault("APP_NICKNAME", "flasker"),
		Env:           getEnvOrDefault("ENV", "dev"),
		Port:          getEnvOrDefault("PORT", "8080"),
		DatabaseURL:   getEnvOrDefault("DATABASE_URL", "sqlite://flasker.db"),
		RedisURL:      getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		SecretKey:     getEnvOrDefault("SECRET_KEY", "chAnGe Me pLeaSE!"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		TokenTTL:      getEnvDurationOrDefault("TOKEN_TTL", 7*24*time.Hour),
		ResultTTL:     getEnvDurationOrDefault("JOB_RESULT_TTL", 500*time.Second),
		Admins:        getEnvList("ADMINS"),

		AllowedOrigins: getEnvList("WS_ALLOWED_ORIGINS"),

		MailServer:    os.Getenv("MAIL_SERVER"),
		MailPort:      getEnvIntOrDefault("MAIL_PORT", 25),
		MailUsername:  os.Getenv("MAIL_USERNAME"),
		MailPassword:  os.Getenv("MAIL_PASSWORD"),
		OutboundEmail: getEnvOrDefault("OUTBOUND_EMAIL", "hello@flasker.com"),

		TokenRequestsPerMinute: getEnvIntOrDefault("RATELIMIT_TOKENS_PER_MINUTE", 10),
	}

	for i, a := range cfg.Admins {
		cfg.Admins[i] = strings.ToLower(a)
	}

	blocked := append([]string{}, defaultBlockedUsernames...)
	blocked = append(blocked, cfg.AppNickname)
	for _, u := range getEnvList("BLOCKED_USERNAMES") {
		blocked = append(blocked, strings.ToLower(u))
	}
	cfg.BlockedUsernames = blocked

	return cfg
}

// IsDev reports whether the process runs in development mode.
func (c Config) IsDev() bool { return c.Env == "dev" }

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
