package snapchatads

import (
	"fmt"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/validation"
)

// DefaultBaseURL is the Marketing API root.
const DefaultBaseURL = "https://adsapi.snapchat.com/v1"

// TokenURL is the refresh-token grant endpoint.
const TokenURL = "https://accounts.snapchat.com/login/oauth2/access_token"

// DefaultPageSize is the largest page the API serves.
const DefaultPageSize = 1000

// MaxAttempts is the retry cap for throttled requests.
const MaxAttempts = 12

// DefaultStatsFields are the metrics requested when fields is empty.
const DefaultStatsFields = "impressions,spend"

// Stats granularities.
const (
	GranularityTotal    = "TOTAL"
	GranularityDay      = "DAY"
	GranularityHour     = "HOUR"
	GranularityLifetime = "LIFETIME"
)

// Config holds the parsed configuration for a Snapchat Ads source.
type Config struct {
	// OrganizationID scopes organisation resources and ad account discovery.
	OrganizationID string `mapstructure:"organization_id"`

	// AdAccountIDs limits ad entity resources to these accounts. When
	// empty every ad account of the organisation is read.
	AdAccountIDs []string `mapstructure:"ad_account_ids" validate:"omitempty,dive,required"`

	PageSize int    `mapstructure:"page_size" validate:"omitempty,min=1,max=1000"`
	MaxPages int    `mapstructure:"max_pages" validate:"omitempty,min=1"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`

	// Granularity is required by the *_stats resources.
	Granularity string `mapstructure:"granularity" validate:"omitempty,oneof=TOTAL DAY HOUR LIFETIME"`
	Fields      string `mapstructure:"fields"`
	Breakdown   string `mapstructure:"breakdown" validate:"omitempty,oneof=ad adsquad campaign"`
	Dimension   string `mapstructure:"dimension" validate:"omitempty,oneof=GEO DEMO INTEREST DEVICE"`
	Pivot       string `mapstructure:"pivot"`
}

// ParseConfig parses a source's config map into a Config struct.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{
		PageSize: DefaultPageSize,
		MaxPages: rest.DefaultMaxPages,
		BaseURL:  DefaultBaseURL,
		Fields:   DefaultStatsFields,
	}
	if err := validation.Decode(source.Config, cfg); err != nil {
		return nil, fmt.Errorf("snapchat_ads: %w", err)
	}
	return cfg, nil
}

// Timeseries reports whether stats come back per period.
func (c *Config) Timeseries() bool {
	return c.Granularity == GranularityDay || c.Granularity == GranularityHour
}
