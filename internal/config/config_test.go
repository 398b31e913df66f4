package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skyfed/internal/config"
)

func TestConfig_BridgedDIDs(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"":                          {},
		"did:plc:a":                 {"did:plc:a"},
		" did:plc:a , did:plc:b ,": {"did:plc:a", "did:plc:b"},
		",,":                        {},
	}

	for dids, expected := range cases {
		t.Run(dids, func(t *testing.T) {
			t.Parallel()

			cfg := &config.Config{BlueskyDIDs: dids}
			assert.Equal(t, expected, cfg.BridgedDIDs())
		})
	}
}

func TestConfig_BaseURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://local.example", (&config.Config{Domain: "local.example"}).BaseURL())
}
