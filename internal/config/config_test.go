package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseParams(t *testing.T) {
	params := ParseParams("period=14, multiplier=1.75,direction=long,enabled=true")
	assert.Equal(t, 14, params["period"])
	assert.Equal(t, 1.75, params["multiplier"])
	assert.Equal(t, "long", params["direction"])
	assert.Equal(t, true, params["enabled"])

	assert.Empty(t, ParseParams(""))
	// Malformed pairs are skipped rather than failing the whole string.
	assert.Empty(t, ParseParams("justakey"))
}

func TestParseDate(t *testing.T) {
	ts, err := parseDate("from", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ts)

	_, err = parseDate("from", "15/03/2024")
	assert.ErrorContains(t, err, "invalid -from date")

	_, err = parseDate("to", "")
	assert.ErrorContains(t, err, "invalid -to date")
}

func TestPatternsYAML(t *testing.T) {
	raw := `
mode: "optimize"
patterns:
  - provider: "shakeout"
  - provider: "climactic_volume"
    grid:
      sma_period: { type: "int", min: 10, max: 30, step: 10 }
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))
	require.Len(t, cfg.Patterns, 2)
	assert.Equal(t, "shakeout", cfg.Patterns[0].Provider)
	assert.Empty(t, cfg.Patterns[0].Grid)
	assert.Equal(t, "climactic_volume", cfg.Patterns[1].Provider)
	assert.Equal(t, GridAxis{Type: "int", Min: 10, Max: 30, Step: 10}, cfg.Patterns[1].Grid["sma_period"])
}

func TestValidate(t *testing.T) {
	valid := Config{Mode: "backtest", Timeframe: "1h", Provider: "shakeout", CSVPath: "data.csv"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"db instead of csv", func(c *Config) { c.CSVPath = ""; c.DBConnStr = "postgres://x" }, false},
		{"unknown mode", func(c *Config) { c.Mode = "livetrade" }, true},
		{"bad timeframe", func(c *Config) { c.Timeframe = "13m" }, true},
		{"empty provider", func(c *Config) { c.Provider = "" }, true},
		{"no data source", func(c *Config) { c.CSVPath = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	bad := valid
	bad.Timeframe = "13m"
	assert.ErrorContains(t, bad.Validate(), "supported: 1m, 5m, 15m, 30m, 1h, 4h, 1d")
}
