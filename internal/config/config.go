package config

import (
	"strings"

	"github.com/samber/lo"
)

type Config struct {
	LogLevel string `flag:"log-level"`

	NATSURL  string `flag:"nats-url"`
	NATSInit bool   `flag:"nats-init"`

	DatabaseURL string `flag:"database-url"`
	Backend     string `flag:"backend"`

	Domain      string `flag:"domain"`
	APIAddr     string `flag:"api-addr"`
	MetricsAddr string `flag:"metrics-addr"`

	SearchEnabled bool   `flag:"search-enabled"`
	SearchURL     string `flag:"search-url"`
	SearchIndex   string `flag:"search-index"`

	BlueskyURL  string `flag:"bluesky-url"`
	BlueskyDIDs string `flag:"bluesky-dids"`
}

// BackendMemory keeps all state in process; used for development and tests.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// BridgedDIDs lists the Bluesky accounts the bridge follows; empty means all of them.
func (c *Config) BridgedDIDs() []string {
	dids := lo.Map(strings.Split(c.BlueskyDIDs, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Filter(dids, func(s string, _ int) bool { return s != "" })
}

// BaseURL is the origin every local URI is built from.
func (c *Config) BaseURL() string {
	return "https://" + c.Domain
}
