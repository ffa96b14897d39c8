package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

type sampleConfig struct {
	Domain    string        `mapstructure:"domain" validate:"required"`
	Limit     int           `mapstructure:"limit" validate:"min=1,max=1000"`
	IDs       []string      `mapstructure:"ids"`
	Start     time.Time     `mapstructure:"start"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Verbose   bool          `mapstructure:"verbose"`
	Untouched string        `mapstructure:"untouched"`
}

func TestDecode(t *testing.T) {
	var cfg sampleConfig
	cfg.Untouched = "default"

	err := Decode(map[string]string{
		"domain":  "acme",
		"limit":   "250",
		"ids":     "a, b,,c ",
		"start":   "2025-01-31",
		"timeout": "30s",
		"verbose": "true",
		"extra":   "ignored",
	}, &cfg)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Domain)
	assert.Equal(t, 250, cfg.Limit)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.IDs)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), cfg.Start)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "default", cfg.Untouched)
}

func TestDecode_ValidationMessages(t *testing.T) {
	var cfg sampleConfig
	err := Decode(map[string]string{"limit": "5000"}, &cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "domain is a required field")
	assert.Contains(t, err.Error(), "; ")
	assert.Contains(t, err.Error(), "limit must be 1,000 or less")
}

func TestDecode_TypeError(t *testing.T) {
	var cfg sampleConfig
	err := Decode(map[string]string{"domain": "x", "limit": "many"}, &cfg)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-11-15 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("15/11/2025")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseEndDate(t *testing.T) {
	got, err := ParseEndDate("2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), got)

	_, err = ParseEndDate("31/01/2024")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
