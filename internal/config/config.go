package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PratikDhanave/iap-event-logger/internal/sink"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL       string
	APIKeys     map[string]string // apiKey -> client name
	HTTPAddr    string
	AppID       string
	CatalogPath string
	LogLevel    string

	FlushBehavior  sink.FlushBehavior
	FlushInterval  time.Duration
	FlushBatchSize int
}

// Load reads required values from environment variables.
// API_KEYS format: "client1:key1,client2:key2"
func Load() (Config, error) {
	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	catalogPath := strings.TrimSpace(os.Getenv("CATALOG_PATH"))
	if catalogPath == "" {
		return Config{}, errors.New("CATALOG_PATH required")
	}

	apiKeys, err := parseAPIKeys(os.Getenv("API_KEYS"))
	if err != nil {
		return Config{}, err
	}

	behavior, err := sink.ParseFlushBehavior(os.Getenv("FLUSH_BEHAVIOR"))
	if err != nil {
		return Config{}, fmt.Errorf("FLUSH_BEHAVIOR: %w", err)
	}

	interval := 15 * time.Second
	if v := strings.TrimSpace(os.Getenv("FLUSH_INTERVAL")); v != "" {
		interval, err = time.ParseDuration(v)
		if err != nil || interval <= 0 {
			return Config{}, fmt.Errorf("FLUSH_INTERVAL must be a positive duration, got %q", v)
		}
	}

	batchSize := 100
	if v := strings.TrimSpace(os.Getenv("FLUSH_BATCH_SIZE")); v != "" {
		batchSize, err = strconv.Atoi(v)
		if err != nil || batchSize <= 0 {
			return Config{}, fmt.Errorf("FLUSH_BATCH_SIZE must be a positive integer, got %q", v)
		}
	}

	return Config{
		DBURL:          dbURL,
		APIKeys:        apiKeys,
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		AppID:          envOr("APP_ID", "default-app"),
		CatalogPath:    catalogPath,
		LogLevel:       envOr("LOG_LEVEL", "info"),
		FlushBehavior:  behavior,
		FlushInterval:  interval,
		FlushBatchSize: batchSize,
	}, nil
}

func parseAPIKeys(raw string) (map[string]string, error) {
	apiKeys := map[string]string{}

	raw = strings.TrimSpace(raw)
	if raw != "" {
		pairs := strings.Split(raw, ",")
		for _, p := range pairs {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			parts := strings.SplitN(p, ":", 2)
			if len(parts) != 2 {
				return nil, errors.New(`API_KEYS must be "client:key,client:key"`)
			}
			client := strings.TrimSpace(parts[0])
			key := strings.TrimSpace(parts[1])
			if client == "" || key == "" {
				return nil, errors.New(`API_KEYS must be "client:key,client:key"`)
			}
			apiKeys[key] = client
		}
	}

	// Local dev fallback so the service runs out-of-the-box.
	if len(apiKeys) == 0 {
		apiKeys["client-key-123"] = "ios-app"
	}
	return apiKeys, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
