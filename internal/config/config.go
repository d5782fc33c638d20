package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the companion API
// process. Values are primarily loaded from environment variables with sane
// defaults so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	OpenAIAPIKey string
	OpenAIModel  string
	VisionModel  string

	CourierEndpoint string
	CourierKey      string
	TrackingLink    string

	// lifecycle timings; shrunk in tests, fixed in production
	DriverSearchDelay time.Duration
	DriverAssignDelay time.Duration
	ETATickInterval   time.Duration
	VisionSettleDelay time.Duration
	VisionCooldown    time.Duration

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:          ":8080",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		KafkaTopic:        "ride-session-events",
		DriverSearchDelay: 4 * time.Second,
		DriverAssignDelay: 5 * time.Second,
		ETATickInterval:   10 * time.Second,
		VisionSettleDelay: 1200 * time.Millisecond,
		VisionCooldown:    30 * time.Second,
		LogLevel:          "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	setStringFromEnv(&cfg.OpenAIModel, "OPENAI_MODEL")
	setStringFromEnv(&cfg.VisionModel, "OPENAI_VISION_MODEL")

	cfg.CourierEndpoint = strings.TrimSpace(os.Getenv("SMS_GATEWAY_URL"))
	cfg.CourierKey = os.Getenv("SMS_GATEWAY_KEY")
	setStringFromEnv(&cfg.TrackingLink, "TRACKING_LINK")

	setDurationFromEnv(&cfg.DriverSearchDelay, "DRIVER_SEARCH_DELAY", &errs)
	setDurationFromEnv(&cfg.DriverAssignDelay, "DRIVER_ASSIGN_DELAY", &errs)
	setDurationFromEnv(&cfg.ETATickInterval, "ETA_TICK_INTERVAL", &errs)
	setDurationFromEnv(&cfg.VisionSettleDelay, "VISION_SETTLE_DELAY", &errs)
	setDurationFromEnv(&cfg.VisionCooldown, "VISION_COOLDOWN", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.ETATickInterval <= 0 {
		errs = append(errs, fmt.Errorf("ETA_TICK_INTERVAL must be > 0"))
	}
	if cfg.VisionCooldown <= 0 {
		errs = append(errs, fmt.Errorf("VISION_COOLDOWN must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
