package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Backend   BackendConfig
	Provider  ProviderConfig
	Session   SessionConfig
	Upload    UploadConfig
	Feed      FeedConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

type BackendConfig struct {
	BaseURL        string
	Token          string
	RequestTimeout time.Duration
	FetchRetries   int
}

type ProviderConfig struct {
	MessagingProduct string
	// TemplateButtons controls whether button components are included in
	// template payloads. Off matches the provider payloads observed in
	// production.
	TemplateButtons bool
}

type SessionConfig struct {
	WindowHours int
}

type UploadConfig struct {
	ChunkSize int64
}

type FeedConfig struct {
	URL          string
	BufferSize   int
	PingInterval time.Duration
}

type RateLimitConfig struct {
	Enabled        bool
	SendsPerMinute int
	Burst          int
}

type LoggingConfig struct {
	Level      string
	Format     string
	Output     string
	EnableFile bool
	FilePath   string
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// DefaultChunkSize is the upload chunk length in bytes. It bounds the number
// of round trips for large media files.
const DefaultChunkSize = 5 * 1024 * 1024

func Load() (*Config, error) {
	cfg := &Config{
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_BASE_URL", "http://localhost:8080"),
			Token:          getEnv("BACKEND_TOKEN", ""),
			RequestTimeout: getEnvDuration("BACKEND_REQUEST_TIMEOUT", 30*time.Second),
			FetchRetries:   getEnvInt("BACKEND_FETCH_RETRIES", 3),
		},
		Provider: ProviderConfig{
			MessagingProduct: getEnv("PROVIDER_MESSAGING_PRODUCT", "whatsapp"),
			TemplateButtons:  getEnvBool("PROVIDER_TEMPLATE_BUTTONS", false),
		},
		Session: SessionConfig{
			WindowHours: getEnvInt("SESSION_WINDOW_HOURS", 24),
		},
		Upload: UploadConfig{
			ChunkSize: getEnvInt64("UPLOAD_CHUNK_SIZE", DefaultChunkSize),
		},
		Feed: FeedConfig{
			URL:          getEnv("FEED_URL", "ws://localhost:8080/events"),
			BufferSize:   getEnvInt("FEED_BUFFER_SIZE", 256),
			PingInterval: getEnvDuration("FEED_PING_INTERVAL", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			SendsPerMinute: getEnvInt("RATE_LIMIT_SENDS_PER_MINUTE", 60),
			Burst:          getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			EnableFile: getEnvBool("LOG_ENABLE_FILE", false),
			FilePath:   getEnv("LOG_FILE_PATH", "/var/log/chatflow/agent.log"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Addr:    getEnv("METRICS_ADDR", ":9100"),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}
