package primer

import (
	"fmt"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/validation"
)

// API roots per environment.
const (
	ProductionURL = "https://api.primer.io"
	SandboxURL    = "https://api.sandbox.primer.io"
)

// APIVersion is the pinned X-Api-Version.
const APIVersion = "2.4"

// DefaultPageSize is the largest page the payments listing serves.
const DefaultPageSize = 100

// Config holds the parsed configuration for a Primer source.
type Config struct {
	Environment string `mapstructure:"environment" validate:"omitempty,oneof=production sandbox"`
	BaseURL     string `mapstructure:"base_url" validate:"omitempty,url"`
	PageSize    int    `mapstructure:"page_size" validate:"omitempty,min=1,max=100"`
	MaxPages    int    `mapstructure:"max_pages" validate:"omitempty,min=1"`
}

// ParseConfig parses a source's config map into a Config struct.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{Environment: "production", PageSize: DefaultPageSize, MaxPages: rest.DefaultMaxPages}
	if err := validation.Decode(source.Config, cfg); err != nil {
		return nil, fmt.Errorf("primer: %w", err)
	}
	return cfg, nil
}

// APIBase returns the API root URL.
func (c *Config) APIBase() string {
	switch {
	case c.BaseURL != "":
		return c.BaseURL
	case c.Environment == "sandbox":
		return SandboxURL
	default:
		return ProductionURL
	}
}
