package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const (
	defaultHistoryLimit      = 5
	defaultGeminiModel       = "gemini-1.5-flash"
	defaultSystemInstruction = "You are a helpful assistant. Use the prior conversation to answer the user's question."
)

type Config struct {
	ServerAddr        string
	DatabaseURL       string
	GeminiAPIKey      string
	GeminiModel       string
	HistoryLimit      int
	SystemInstruction string
	Logging           LoggingConfig
}

type LoggingConfig struct {
	Level       string
	Encoding    string
	Development bool
	ServiceName string
}

var (
	cfg     *Config
	loadErr error
	once    sync.Once
)

// Load reads process configuration exactly once. Missing provider or store
// credentials are not an error here: the corresponding capability is left
// unconfigured and requests that need it fail fast at the service layer.
func Load() (*Config, error) {
	once.Do(func() {
		if err := loadEnvFiles(); err != nil {
			loadErr = fmt.Errorf("load env files: %w", err)
			return
		}

		cfg = &Config{
			ServerAddr:        getEnv("SERVER_ADDR", ":8080"),
			DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
			GeminiAPIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			GeminiModel:       getEnv("GEMINI_MODEL", defaultGeminiModel),
			HistoryLimit:      parsePositiveInt(os.Getenv("HISTORY_LIMIT"), defaultHistoryLimit),
			SystemInstruction: getEnv("SYSTEM_INSTRUCTION", defaultSystemInstruction),
			Logging: LoggingConfig{
				Level:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
				Encoding:    strings.ToLower(getEnv("LOG_ENCODING", "console")),
				Development: parseBool(os.Getenv("LOG_DEVELOPMENT"), false),
				ServiceName: getEnv("SERVICE_NAME", "convgate"),
			},
		}
	})

	return cfg, loadErr
}

func loadEnvFiles() error {
	if err := godotenv.Load("config/.env"); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			// ignore missing config/.env so that environment variables can be supplied externally
			return nil
		}

		return err
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}

	return strings.TrimSpace(fallback)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}

	return value
}

func parseBool(raw string, fallback bool) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}

	return value
}
