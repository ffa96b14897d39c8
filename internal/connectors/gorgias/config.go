package gorgias

import (
	"fmt"
	"time"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/validation"
)

// DefaultStartDate is used when neither a watermark nor a start date exists.
var DefaultStartDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultPageSize is the largest page the API serves.
const DefaultPageSize = 100

// Config holds the parsed configuration for a Gorgias source.
type Config struct {
	// Domain is the account subdomain: https://{domain}.gorgias.com.
	Domain string `mapstructure:"domain" validate:"required,hostname_rfc1123"`

	// BaseURL overrides the API root derived from Domain.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`

	// PageSize is the limit sent with each request.
	PageSize int `mapstructure:"page_size" validate:"omitempty,min=1,max=100"`

	// MaxPages bounds each listing.
	MaxPages int `mapstructure:"max_pages" validate:"omitempty,min=1"`
}

// ParseConfig parses a source's config map into a Config struct.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{PageSize: DefaultPageSize, MaxPages: rest.DefaultMaxPages}
	if err := validation.Decode(source.Config, cfg); err != nil {
		return nil, fmt.Errorf("gorgias: %w", err)
	}
	return cfg, nil
}

// APIBase returns the API root URL.
func (c *Config) APIBase() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s.gorgias.com/api", c.Domain)
}
