package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		WSURL:            "wss://socket.india.delta.exchange",
		Symbol:           "ETHUSD",
		Channel:          "candlestick_1m",
		HeartbeatSecs:    20,
		BackoffFloorSecs: 1,
		BackoffCeilSecs:  60,
		Window:           5,
		LongThreshold:    0.1,
		ShortThreshold:   -0.1,
		ExitDeadband:     0.005,
		Confirmation:     1,
		PositionSize:     1,
		StartBalance:     100000,
		MaxTrades:        100,
		MaxDrawdown:      -5000,
		Mode:             ModePaper,
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing ws url", func(c *Config) { c.WSURL = "" }},
		{"missing symbol", func(c *Config) { c.Symbol = "" }},
		{"zero window", func(c *Config) { c.Window = 0 }},
		{"inverted thresholds", func(c *Config) { c.ShortThreshold = 0.2 }},
		{"zero confirmation", func(c *Config) { c.Confirmation = 0 }},
		{"negative size", func(c *Config) { c.PositionSize = -1 }},
		{"zero max trades", func(c *Config) { c.MaxTrades = 0 }},
		{"positive drawdown", func(c *Config) { c.MaxDrawdown = 5000 }},
		{"inverted backoff", func(c *Config) { c.BackoffFloorSecs = 120 }},
		{"unknown mode", func(c *Config) { c.Mode = "dry-run" }},
		{"live without credentials", func(c *Config) { c.Mode = ModeLive }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_LiveMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = ModeLive
	cfg.APIKey = "key"
	cfg.APISecret = "secret"
	assert.Error(t, cfg.Validate(), "live mode still needs a product id")

	cfg.ProductID = 1234
	assert.NoError(t, cfg.Validate())
}
