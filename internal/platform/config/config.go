package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort            = "8080"
	defaultShutdownTimeout = 10 * time.Second
)

// Config reúne todo lo que el proceso lee del entorno.
type Config struct {
	Port string

	// Storage: DB_DSN gana sobre LEDGER_DATA_DIR; sin ninguno se usa memoria.
	DBDSN   string
	DataDir string

	LogLevel  string
	LogFormat string
	AppName   string

	JWTSecret string
	JWTIssuer string

	IdentityBaseURL string
	IdentityAPIKey  string

	ShutdownTimeout time.Duration
}

// Load lee .env (si existe) y después el entorno. Las variables ya seteadas no se pisan.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:            env("PORT", defaultPort),
		DBDSN:           env("DB_DSN", ""),
		DataDir:         env("LEDGER_DATA_DIR", ""),
		LogLevel:        env("LOG_LEVEL", "info"),
		LogFormat:       env("LOG_FORMAT", "text"),
		AppName:         env("APP_NAME", "medical-access-ledger"),
		JWTSecret:       env("JWT_SECRET", ""),
		JWTIssuer:       env("JWT_ISSUER", ""),
		IdentityBaseURL: env("IDENTITY_BASE_URL", ""),
		IdentityAPIKey:  env("IDENTITY_API_KEY", ""),
		ShutdownTimeout: defaultShutdownTimeout,
	}

	if raw := env("SHUTDOWN_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT must be a positive duration, got %q", raw)
		}
		cfg.ShutdownTimeout = d
	}

	return cfg, nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
