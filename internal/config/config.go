package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultEnvFile = "configs/.env"

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the postgres connection url
func (d Database) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type Config struct {
	Port          string
	APIBaseURL    string
	StorageDriver string
	SQLitePath    string
	Namespace     string
	DB            Database
	RulesetFile   string
	SubmitTimeout time.Duration
	HTTPTimeout   time.Duration
	LogLevel      string
	Env           string
	CORSOrigins   []string
}

// Load reads the env file when present, then the process environment.
// A missing env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Port:          get("PORT", "8080"),
		APIBaseURL:    strings.TrimRight(get("API_BASE_URL", "http://localhost:5000/api"), "/"),
		StorageDriver: strings.ToLower(get("STORAGE_DRIVER", DriverMemory)),
		SQLitePath:    get("SQLITE_PATH", "taxtracker.db"),
		Namespace:     get("STORAGE_NAMESPACE", "default"),
		DB: Database{
			Host:     get("DB_HOST", "localhost"),
			Port:     get("DB_PORT", "5432"),
			User:     get("DB_USER", "postgres"),
			Password: get("DB_PASSWORD", "postgres"),
			Name:     get("DB_NAME", "postgres"),
			SSLMode:  get("DB_SSLMODE", "disable"),
		},
		RulesetFile: get("RULESET_FILE", ""),
		LogLevel:    get("LOG_LEVEL", "info"),
		Env:         get("APP_ENV", "development"),
		CORSOrigins: splitList(get("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
	}

	var err error
	if cfg.SubmitTimeout, err = duration("SUBMIT_TIMEOUT", get("SUBMIT_TIMEOUT", "15s")); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = duration("HTTP_TIMEOUT", get("HTTP_TIMEOUT", "30s")); err != nil {
		return Config{}, err
	}

	switch cfg.StorageDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("%w: STORAGE_DRIVER %q", ErrInvalidConfig, cfg.StorageDriver)
	}

	return cfg, nil
}

func duration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidConfig, key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
