package configuration

import (
	"time"

	"github.com/go-redis/redis"
)

type OpenbatchConfig struct {
	// Port the HTTP signal frontend listens on.
	HttpPort uint16
	// Port prometheus metrics are served on.
	MetricsPort uint16

	Redis redis.UniversalOptions
	Agent AgentConfig
}

type AgentConfig struct {
	// Base URL of the execution agent's HTTP API.
	Url string
	// Per-call timeout; expiry surfaces as an ordinary completion failure.
	Timeout time.Duration
	// Transport-level retry attempts per call.
	RetryAttempts uint
	// Relay worker pool size and pending-queue depth.
	Workers   int
	QueueSize int
}
