package appstore

import (
	"fmt"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/validation"
)

// DefaultBaseURL is the App Store Connect API root.
const DefaultBaseURL = "https://api.appstoreconnect.apple.com/v1"

// Audience is the JWT aud claim App Store Connect expects.
const Audience = "appstoreconnect-v1"

// Config holds the parsed configuration for an App Store source.
type Config struct {
	// AppIDs are the Apple identifiers of the apps to report on.
	AppIDs []string `mapstructure:"app_ids" validate:"required,min=1,dive,numeric"`

	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`

	// MaxPages bounds each listing.
	MaxPages int `mapstructure:"max_pages" validate:"omitempty,min=1"`
}

// ParseConfig parses a source's config map into a Config struct.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{BaseURL: DefaultBaseURL, MaxPages: rest.DefaultMaxPages}
	if err := validation.Decode(source.Config, cfg); err != nil {
		return nil, fmt.Errorf("app_store: %w", err)
	}
	return cfg, nil
}
