package googleanalytics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/validation"
)

// Scope is the OAuth scope for read-only reporting.
const Scope = "https://www.googleapis.com/auth/analytics.readonly"

// DefaultPageSize is the row limit of each RunReport call.
const DefaultPageSize = 10000

// DefaultStartDate is the earliest date the Data API serves.
var DefaultStartDate = time.Date(2015, 8, 14, 0, 0, 0, 0, time.UTC)

// Config holds the parsed configuration for a Google Analytics source.
type Config struct {
	PropertyID string   `mapstructure:"property_id" validate:"required,numeric"`
	Dimensions []string `mapstructure:"dimensions" validate:"required,min=1,max=9"`
	Metrics    []string `mapstructure:"metrics" validate:"required,min=1,max=10"`

	// MinuteRanges are "end-start" minutes-ago pairs for the realtime
	// report, e.g. "0-29,30-59".
	MinuteRanges []string `mapstructure:"minute_ranges" validate:"omitempty,max=2,dive,required"`

	PageSize int `mapstructure:"page_size" validate:"omitempty,min=1,max=250000"`

	// MaxPages bounds the report pages of one window.
	MaxPages int `mapstructure:"max_pages" validate:"omitempty,min=1"`

	// BaseURL overrides the API endpoint.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// ParseConfig parses a source's config map into a Config struct.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{PageSize: DefaultPageSize, MaxPages: rest.DefaultMaxPages, MinuteRanges: []string{"0-29"}}
	if err := validation.Decode(source.Config, cfg); err != nil {
		return nil, fmt.Errorf("google_analytics: %w", err)
	}
	if _, err := parseMinuteRanges(cfg.MinuteRanges); err != nil {
		return nil, fmt.Errorf("google_analytics: %w", err)
	}
	return cfg, nil
}

// MinuteRange is a realtime window counted back from now.
type MinuteRange struct {
	Name            string
	EndMinutesAgo   int64
	StartMinutesAgo int64
}

// parseMinuteRanges reads "end-start" pairs such as "0-29".
func parseMinuteRanges(ranges []string) ([]MinuteRange, error) {
	out := make([]MinuteRange, 0, len(ranges))
	for _, r := range ranges {
		endStr, startStr, ok := strings.Cut(strings.ReplaceAll(r, " ", ""), "-")
		if !ok {
			return nil, fmt.Errorf("%w: minute range %q is not end-start", domain.ErrConfiguration, r)
		}
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: minute range %q: end is not a number", domain.ErrConfiguration, r)
		}
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: minute range %q: start is not a number", domain.ErrConfiguration, r)
		}
		if start < end {
			return nil, fmt.Errorf("%w: minute range %q ends before it starts", domain.ErrConfiguration, r)
		}
		out = append(out, MinuteRange{
			Name:            fmt.Sprintf("%d-%d minutes ago", end, start),
			EndMinutesAgo:   end,
			StartMinutesAgo: start,
		})
	}
	return out, nil
}

// Property returns the resource name RunReport expects.
func (c *Config) Property() string {
	return "properties/" + c.PropertyID
}
