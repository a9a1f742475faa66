package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL string
	ServerPort  int

	// Доступ к API Wargaming.
	WargamingAppID string
	PAPIBaseURL    string
	WGNBaseURL     string
	GameAPIBaseURL string
	APICacheTTL    time.Duration

	// Cloudflare R2 для архива завершённых расписаний; без этих переменных
	// архивирование просто выключено.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
	ArchiveInterval   time.Duration
}

func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	appID := os.Getenv("WARGAMING_APP_ID")
	if appID == "" {
		return nil, fmt.Errorf("WARGAMING_APP_ID environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cacheTTL, err := durationEnv("WG_API_CACHE_TTL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	archiveInterval, err := durationEnv("ARCHIVE_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:       dbURL,
		ServerPort:        port,
		WargamingAppID:    appID,
		PAPIBaseURL:       os.Getenv("WG_PAPI_BASE_URL"),
		WGNBaseURL:        os.Getenv("WG_WGN_BASE_URL"),
		GameAPIBaseURL:    os.Getenv("WG_GAME_API_BASE_URL"),
		APICacheTTL:       cacheTTL,
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		ArchiveInterval:   archiveInterval,
	}, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return d, nil
}
