package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction = "production"

	defaultServerPort = 3000
	defaultDBPort     = 5432
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	Environment string
	LogLevel    slog.Level

	DatabaseURL      string
	DBConnectTimeout time.Duration
	DBRetryBase      time.Duration
	DBRetryMax       time.Duration

	ServerPort     int
	JWTSecretKey   string
	AuthRequired   bool
	AllowedOrigins []string

	UploadDir     string
	PublicBaseURL string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	HealthCheckInterval time.Duration
	DriftReportInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:   strings.ToLower(getEnvOrDefault("APP_ENV", "development")),
		UploadDir:     getEnvOrDefault("UPLOAD_DIR", "uploads"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	level, err := parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	dbURL, err := databaseURL(cfg.Environment)
	if err != nil {
		return nil, err
	}
	cfg.DatabaseURL = dbURL

	cfg.JWTSecretKey = os.Getenv("JWT_SECRET_KEY")
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := serverPort()
	if err != nil {
		return nil, err
	}
	cfg.ServerPort = port

	if cfg.AuthRequired, err = getBool("AUTH_REQUIRED", false); err != nil {
		return nil, err
	}

	cfg.AllowedOrigins = splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"DB_CONNECT_TIMEOUT", 5 * time.Second, &cfg.DBConnectTimeout},
		{"DB_RETRY_BASE", time.Second, &cfg.DBRetryBase},
		{"DB_RETRY_MAX", 30 * time.Second, &cfg.DBRetryMax},
		{"HEALTHCHECK_INTERVAL", 30 * time.Second, &cfg.HealthCheckInterval},
		{"DRIFT_REPORT_INTERVAL", time.Hour, &cfg.DriftReportInterval},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}
	if cfg.DBRetryMax < cfg.DBRetryBase {
		return nil, fmt.Errorf("DB_RETRY_MAX (%s) must not be less than DB_RETRY_BASE (%s)", cfg.DBRetryMax, cfg.DBRetryBase)
	}

	if err := cfg.validateR2(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase читает только настройки логирования и базы данных.
// Используется утилитами, которым не нужен HTTP-сервер.
func LoadDatabase() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: strings.ToLower(getEnvOrDefault("APP_ENV", "development")),
	}

	level, err := parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.DatabaseURL, err = databaseURL(cfg.Environment); err != nil {
		return nil, err
	}
	if cfg.DBConnectTimeout, err = getDuration("DB_CONNECT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// R2Enabled reports whether uploads go to Cloudflare R2 instead of the local disk.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != ""
}

func (c *Config) validateR2() error {
	fields := []string{c.R2AccountID, c.R2AccessKeyID, c.R2SecretAccessKey, c.R2BucketName, c.R2PublicBaseURL}
	set := 0
	for _, f := range fields {
		if f != "" {
			set++
		}
	}
	if set != 0 && set != len(fields) {
		return fmt.Errorf("incomplete R2 configuration: R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME and R2_PUBLIC_BASE_URL must be set together")
	}
	return nil
}

// databaseURL returns DATABASE_URL as is, or builds a postgres URL from the DB_* parts.
// Transport encryption follows APP_ENV unless DB_SSLMODE is given explicitly.
func databaseURL(env string) (string, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn, nil
	}

	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return "", fmt.Errorf("DATABASE_URL or DB_HOST and DB_NAME environment variables must be set")
	}

	port := defaultDBPort
	if portStr := os.Getenv("DB_PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p <= 0 || p > 65535 {
			return "", fmt.Errorf("invalid DB_PORT environment variable: %q", portStr)
		}
		port = p
	}

	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
		if env == EnvProduction {
			sslMode = "require"
		}
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	if user := os.Getenv("DB_USER"); user != "" {
		if pass, ok := os.LookupEnv("DB_PASSWORD"); ok {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String(), nil
}

// serverPort reads SERVER_PORT, then PORT, then falls back to the default.
func serverPort() (int, error) {
	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = os.Getenv("PORT")
	}
	if portStr == "" {
		return defaultServerPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	return port, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", key, err)
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
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
