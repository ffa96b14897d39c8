package tiktokads

import (
	"fmt"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/validation"
)

// DefaultBaseURL is the Business API root.
const DefaultBaseURL = "https://business-api.tiktok.com/open_api/v1.3"

// Defaults applied when the source leaves a setting empty.
const (
	DefaultPageSize  = 1000
	DefaultLookback  = 30
	MaxWindowDays    = 30
	DefaultDataLevel = "AUCTION_CAMPAIGN"
	DefaultReport    = "BASIC"
)

var (
	defaultDimensions = []string{"campaign_id", "stat_time_day"}
	defaultMetrics    = []string{"spend", "impressions", "clicks", "conversion"}
)

// Config holds the parsed configuration for a TikTok Ads source.
type Config struct {
	AdvertiserIDs []string `mapstructure:"advertiser_ids" validate:"required,min=1,dive,numeric"`
	ReportType    string   `mapstructure:"report_type" validate:"omitempty,oneof=BASIC AUDIENCE PLAYABLE_MATERIAL CATALOG"`
	DataLevel     string   `mapstructure:"data_level" validate:"omitempty,oneof=AUCTION_ADVERTISER AUCTION_CAMPAIGN AUCTION_ADGROUP AUCTION_AD"`
	Dimensions    []string `mapstructure:"dimensions" validate:"omitempty,max=4"`
	Metrics       []string `mapstructure:"metrics"`
	LookbackDays  int      `mapstructure:"lookback_days" validate:"omitempty,min=1"`
	PageSize      int      `mapstructure:"page_size" validate:"omitempty,min=1,max=1000"`
	MaxPages      int      `mapstructure:"max_pages" validate:"omitempty,min=1"`
	BaseURL       string   `mapstructure:"base_url" validate:"omitempty,url"`
}

// ParseConfig parses a source's config map into a Config struct.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{
		ReportType:   DefaultReport,
		DataLevel:    DefaultDataLevel,
		LookbackDays: DefaultLookback,
		PageSize:     DefaultPageSize,
		MaxPages:     rest.DefaultMaxPages,
		BaseURL:      DefaultBaseURL,
	}
	if err := validation.Decode(source.Config, cfg); err != nil {
		return nil, fmt.Errorf("tiktok_ads: %w", err)
	}
	if len(cfg.Dimensions) == 0 {
		cfg.Dimensions = defaultDimensions
	}
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = defaultMetrics
	}
	return cfg, nil
}
