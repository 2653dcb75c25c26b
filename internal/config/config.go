package config

import (
	"log"
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	SaleWriteAtomic   = "atomic"
	SaleWriteTwoPhase = "two-phase"
)

// Config holds application configuration values.
type Config struct {
	DatabasePath  string
	HTTPHost      string
	HTTPPort      string
	AllowedOrigin string
	SeedCSV       string
	SaleWriteMode string
	Logger        LoggerConfig
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	port := getEnv("HTTP_PORT", "8080")
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	mode := strings.ToLower(strings.TrimSpace(getEnv("SALE_WRITE_MODE", SaleWriteAtomic)))
	if mode != SaleWriteAtomic && mode != SaleWriteTwoPhase {
		log.Printf("invalid SALE_WRITE_MODE value %q, defaulting to %s", mode, SaleWriteAtomic)
		mode = SaleWriteAtomic
	}

	return Config{
		DatabasePath:  getEnv("FARMACIA_DB_PATH", "farmacia.db"),
		HTTPHost:      getEnv("HTTP_HOST", "127.0.0.1"),
		HTTPPort:      port,
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:4200"),
		SeedCSV:       strings.TrimSpace(os.Getenv("SEED_CSV")),
		SaleWriteMode: mode,
		Logger: LoggerConfig{
			Level:             getEnv("LOG_LEVEL", "info"),
			Encoding:          os.Getenv("LOG_ENCODING"),
			Development:       getEnvBool("LOG_DEVELOPMENT", false),
			DisableCaller:     getEnvBool("LOG_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOG_DISABLE_STACKTRACE", true),
		},
	}
}

func (c Config) Address() string {
	return net.JoinHostPort(c.HTTPHost, c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
