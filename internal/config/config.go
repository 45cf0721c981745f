package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds the runtime settings read from the environment
type Config struct {
	Port          string
	SessionSecret string
	PublicURL     string

	StoreBackend       string
	DBPath             string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisPrefix        string
	StoreQuotaBytes    int64
	ConfigSaveDebounce time.Duration

	AdminIdentity     string
	AdminSecret       string
	AdminSecretHashed bool
	SeedDemoGuests    bool

	GeminiAPIKey  string
	GeminiModel   string
	OracleTimeout time.Duration
	// OracleStaticAnswer, when set without an API key, answers every
	// AI-judged submission with this text. For local demos only.
	OracleStaticAnswer string

	AvailabilityMode     string
	AvailabilityTimeout  time.Duration
	AvailabilityCacheTTL time.Duration
	EventLocation        string

	TelegramBotToken    string
	TelegramStaffChatID int64

	LocalesDir string
	LogLevel   string
	LogFile    string
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var errs []error
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		PublicURL:     getEnv("PUBLIC_URL", "http://localhost:8080"),

		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
		DBPath:             getEnv("DB_PATH", "rockstar-pass.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getInt("REDIS_DB", 0, &errs),
		RedisPrefix:        getEnv("REDIS_PREFIX", "rockstar:"),
		StoreQuotaBytes:    int64(getInt("STORE_QUOTA_BYTES", 5<<20, &errs)),
		ConfigSaveDebounce: getDuration("CONFIG_SAVE_DEBOUNCE", time.Second, &errs),

		AdminIdentity:     getEnv("ADMIN_IDENTITY", "admin"),
		AdminSecret:       getEnv("ADMIN_SECRET", "admin"),
		AdminSecretHashed: getBool("ADMIN_SECRET_HASHED", false, &errs),
		SeedDemoGuests:    getBool("SEED_DEMO_GUESTS", true, &errs),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OracleTimeout: getDuration("ORACLE_TIMEOUT", 20*time.Second, &errs),

		OracleStaticAnswer: getEnv("ORACLE_STATIC_ANSWER", ""),

		AvailabilityMode:     strings.ToLower(getEnv("AVAILABILITY_MODE", "demo")),
		AvailabilityTimeout:  getDuration("AVAILABILITY_TIMEOUT", 10*time.Second, &errs),
		AvailabilityCacheTTL: getDuration("AVAILABILITY_CACHE_TTL", 5*time.Minute, &errs),
		EventLocation:        getEnv("EVENT_LOCATION", "Nashville, TN"),

		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramStaffChatID: int64(getInt("TELEGRAM_STAFF_CHAT_ID", 0, &errs)),

		LocalesDir: getEnv("LOCALES_DIR", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", ""),
	}

	switch cfg.StoreBackend {
	case "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be sqlite or redis, got %q", cfg.StoreBackend))
	}
	switch cfg.AvailabilityMode {
	case "ical", "demo", "off":
	default:
		errs = append(errs, fmt.Errorf("AVAILABILITY_MODE must be ical, demo or off, got %q", cfg.AvailabilityMode))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production"
		log.Warn("using default session secret, set SESSION_SECRET in production")
	}
	if cfg.AdminSecret == "admin" && !cfg.AdminSecretHashed {
		log.Warn("using default admin secret, set ADMIN_SECRET in production")
	}

	return cfg, nil
}

// SecureCookies reports whether the public URL is served over https
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.PublicURL, "https://")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}
