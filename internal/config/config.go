package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	StoreDriver string

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Mongo struct {
		URI      string
		Database string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	JWTSecret string
	JWTTTL    time.Duration

	UploadDir   string
	MaxUploadMB int
	CORSOrigins []string
	LoginPerMin int
	StatsTTL    time.Duration
	DefaultLang string
	// LocalesDir replaces the embedded message catalogs when set.
	LocalesDir   string
	AllowAnyMove bool
	// DynamicCategories makes the by-category report follow the category store.
	DynamicCategories bool

	KafkaBrokers     []string
	KafkaTopicEvents string

	TelegramToken  string
	TelegramChatID int64

	AdminEmail    string
	AdminPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:     getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:    firstEnv("APP_PORT", "PORT", "5000"),
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		DefaultLang: getEnv("DEFAULT_LOCALE", "en"),
		LocalesDir:  getEnv("LOCALES_DIR", ""),

		KafkaBrokers:     ParseList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicEvents: getEnv("KAFKA_TOPIC_COMPLAINTS", "complaint-events"),
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		AdminEmail:       getEnv("ADMIN_EMAIL", ""),
		AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		CORSOrigins:      ParseList(getEnv("CORS_ORIGINS", "*")),
	}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "civicdesk")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Mongo.URI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	cfg.Mongo.Database = getEnv("MONGO_DATABASE", "civicdesk")
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")

	var err error
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.MaxUploadMB, err = getInt("MAX_UPLOAD_MB", 5); err != nil {
		return nil, err
	}
	if cfg.LoginPerMin, err = getInt("LOGIN_RATE_PER_MINUTE", DefaultLoginPerMin); err != nil {
		return nil, err
	}
	hours, err := getInt("JWT_TTL_HOURS", int(DefaultTokenTTL/time.Hour))
	if err != nil {
		return nil, err
	}
	cfg.JWTTTL = time.Duration(hours) * time.Hour
	if cfg.StatsTTL, err = getDuration("STATS_CACHE_TTL", DefaultStatsTTL); err != nil {
		return nil, err
	}
	if cfg.AllowAnyMove, err = getBool("ALLOW_ANY_TRANSITION", false); err != nil {
		return nil, err
	}
	if cfg.DynamicCategories, err = getBool("STATS_DYNAMIC_CATEGORIES", false); err != nil {
		return nil, err
	}
	if v := getEnv("TELEGRAM_ADMIN_CHAT_ID", ""); v != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("config: TELEGRAM_ADMIN_CHAT_ID: %w", err)
		}
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
	case DriverMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return errors.New("config: MONGO_URI and MONGO_DATABASE are required")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("config: in production JWT_SECRET is required")
		}
		c.JWTSecret = "dev-only-secret"
	}
	if c.JWTTTL <= 0 {
		return errors.New("config: JWT_TTL_HOURS must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseList splits "a, b,c" into trimmed non-empty items.
func ParseList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
