package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	CommitRetryLimit int
	HubBufferSize    int

	ExpirerInterval  time.Duration
	ExpirerBatchSize int
	RelayInterval    time.Duration
	RelayBatchSize   int

	EnablePollExpirer    bool
	EnableOutboxRelay    bool
	EnableBallotConsumer bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "pollstream"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		CommitRetryLimit: envInt("COMMIT_RETRY_LIMIT", 10),
		HubBufferSize:    envInt("HUB_BUFFER_SIZE", 16),

		ExpirerInterval:  envDuration("POLL_EXPIRER_INTERVAL", 30*time.Second),
		ExpirerBatchSize: envInt("POLL_EXPIRER_BATCH_SIZE", 100),
		RelayInterval:    envDuration("OUTBOX_RELAY_INTERVAL", 5*time.Second),
		RelayBatchSize:   envInt("OUTBOX_RELAY_BATCH_SIZE", 100),

		EnablePollExpirer:    envBool("ENABLE_POLL_EXPIRER", true),
		EnableOutboxRelay:    envBool("ENABLE_OUTBOX_RELAY", true),
		EnableBallotConsumer: envBool("ENABLE_BALLOT_CONSUMER", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
