package datadog

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

// Client is the subset of the statsd client used here.
type Client interface {
	Gauge(name string, value float64, tags []string, rate float64) error
}

var dogstatsd Client

// InitMetrics connects to the agent. An empty address leaves metrics disabled.
func InitMetrics(addr, namespace string, tags []string) {
	if addr == "" {
		log.Info().Msg("Datadog agent not configured - gauges disabled")
		return
	}
	c, err := statsd.New(addr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}

	c.Namespace = namespace
	c.Tags = tags
	dogstatsd = c

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("Datadog metrics initialized")
}

// SetClient replaces the client; nil disables gauges.
func SetClient(c Client) {
	dogstatsd = c
}

func Enabled() bool {
	return dogstatsd != nil
}

func Gauge(name string, value float64, tags ...string) {
	if dogstatsd == nil {
		return
	}
	if err := dogstatsd.Gauge(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
	}
}
