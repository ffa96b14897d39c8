package tiktokads

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/normalisers/datetime"
)

// TypeID is the connector type identifier.
const TypeID = "tiktok_ads"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

const (
	resourceReport    = "report"
	resourceCampaigns = "campaigns"
)

// Resources lists the resources this connector offers.
var Resources = []string{resourceReport, resourceCampaigns}

// Definition returns the connector type metadata.
func Definition() domain.ConnectorType {
	return domain.ConnectorType{
		ID:          TypeID,
		Name:        "TikTok Ads",
		Description: "Extract integrated reports and campaigns from TikTok for Business",
		Auth: domain.AuthSpec{
			Method:     domain.AuthMethodAPIKey,
			HeaderName: "Access-Token",
			SecretKey:  "access_token",
		},
		Resources: Resources,
		ConfigKeys: []domain.ConfigKey{
			{Key: "access_token", Label: "Access Token", Description: "Long-lived Business API token", Required: true, Secret: true},
			{Key: "advertiser_ids", Label: "Advertiser IDs", Description: "Comma separated advertiser IDs", Required: true},
			{Key: "dimensions", Label: "Dimensions", Description: "Report dimensions", Default: "campaign_id,stat_time_day"},
			{Key: "metrics", Label: "Metrics", Description: "Report metrics", Default: "spend,impressions,clicks,conversion"},
			{Key: "data_level", Label: "Data Level", Description: "Report aggregation level", Default: DefaultDataLevel},
			{Key: "lookback_days", Label: "Lookback Days", Description: "Days to fetch on the first run", Default: strconv.Itoa(DefaultLookback)},
			{Key: "max_pages", Label: "Max Pages", Description: "Pages read per listing before stopping", Default: "10000"},
		},
	}
}

// Connector extracts TikTok Ads data.
type Connector struct {
	sourceID string
	config   *Config
	client   *rest.Client
	now      func() time.Time
	mu       sync.Mutex
	closed   bool
}

// New creates a new TikTok Ads connector.
func New(sourceID string, cfg *Config, auth driven.Authenticator, opts ...rest.ClientOption) *Connector {
	opts = append([]rest.ClientOption{rest.WithRateLimiter(rest.NewRateLimiter(TypeID))}, opts...)
	return &Connector{
		sourceID: sourceID,
		config:   cfg,
		client:   rest.NewClient(auth, opts...),
		now:      time.Now,
	}
}

// Build creates a connector from a source. It is the registered builder.
func Build(source domain.Source, auth driven.Authenticator) (driven.Connector, error) {
	return Builder()(source, auth)
}

// Builder returns a connector builder whose clients apply opts.
func Builder(opts ...rest.ClientOption) driven.ConnectorBuilder {
	return func(source domain.Source, auth driven.Authenticator) (driven.Connector, error) {
		cfg, err := ParseConfig(source)
		if err != nil {
			return nil, err
		}
		return New(source.ID, cfg, auth, opts...), nil
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string { return TypeID }

// SourceID returns the source identifier.
func (c *Connector) SourceID() string { return c.sourceID }

// Resources returns the resources this connector can extract.
func (c *Connector) Resources() []string { return slices.Clone(Resources) }

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsIncremental:  true,
		RequiresAuth:         true,
		SupportsValidation:   true,
		SupportsRateLimiting: true,
		SupportsPagination:   true,
	}
}

// Validate checks that the token can read every configured advertiser.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}

	ids, err := json.Marshal(c.config.AdvertiserIDs)
	if err != nil {
		return fmt.Errorf("encode advertiser ids: %w", err)
	}
	body, err := c.client.Get(ctx, c.config.BaseURL+"/advertiser/info/", url.Values{"advertiser_ids": {string(ids)}})
	if err != nil {
		if rest.IsUnauthorized(err) || rest.IsForbidden(err) {
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}
	if _, err := unwrap(body); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}
	return nil
}

// Extract streams one resource for every configured advertiser.
func (c *Connector) Extract(ctx context.Context, req domain.ExtractRequest) (<-chan domain.Record, <-chan error) {
	return rest.Stream(ctx, func(ctx context.Context, emit rest.EmitFunc) (time.Time, error) {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return time.Time{}, domain.ErrConnectorClosed
		}

		switch req.Resource {
		case resourceReport:
			return c.extractReport(ctx, req, emit)
		case resourceCampaigns:
			return c.extractCampaigns(ctx, req, emit)
		default:
			return time.Time{}, fmt.Errorf("%w: tiktok_ads has no resource %q", domain.ErrConfiguration, req.Resource)
		}
	})
}

func (c *Connector) extractReport(ctx context.Context, req domain.ExtractRequest, emit rest.EmitFunc) (time.Time, error) {
	dimensions, err := json.Marshal(c.config.Dimensions)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode dimensions: %w", err)
	}
	metrics, err := json.Marshal(c.config.Metrics)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode metrics: %w", err)
	}

	until := req.Until
	if until.IsZero() {
		until = c.now()
	}
	since := req.Since
	if since.IsZero() {
		since = until.AddDate(0, 0, -c.config.LookbackDays)
	}

	tracker := &rest.Tracker{Field: "stat_time_day", Since: req.Since, Until: req.Until}
	normaliser := datetime.New("stat_time_day", "stat_time_hour")

	for _, advertiserID := range c.config.AdvertiserIDs {
		for _, w := range Windows(since, until, MaxWindowDays) {
			source := &rest.JSONSource{
				Client: c.client,
				URL:    c.config.BaseURL + "/report/integrated/get/",
				Params: url.Values{
					"advertiser_id": {advertiserID},
					"report_type":   {c.config.ReportType},
					"data_level":    {c.config.DataLevel},
					"dimensions":    {string(dimensions)},
					"metrics":       {string(metrics)},
					"start_date":    {w.Start.Format(rest.DayLayout)},
					"end_date":      {w.End.Format(rest.DayLayout)},
					"page":          {"1"},
					"page_size":     {strconv.Itoa(c.config.PageSize)},
				},
				Parser: ReportParser{AdvertiserID: advertiserID},
			}
			if err := rest.Drain(ctx, rest.NewPaginator(source, rest.MaxPages(c.config.MaxPages)), tracker, normaliser, emit); err != nil {
				return time.Time{}, fmt.Errorf("tiktok_ads report %s %s..%s: %w",
					advertiserID, w.Start.Format(rest.DayLayout), w.End.Format(rest.DayLayout), err)
			}
		}
	}
	return tracker.Watermark(), nil
}

func (c *Connector) extractCampaigns(ctx context.Context, req domain.ExtractRequest, emit rest.EmitFunc) (time.Time, error) {
	tracker := &rest.Tracker{Field: "modify_time", Since: req.Since, Until: req.Until}
	normaliser := datetime.New("create_time", "modify_time")

	for _, advertiserID := range c.config.AdvertiserIDs {
		source := &rest.JSONSource{
			Client: c.client,
			URL:    c.config.BaseURL + "/campaign/get/",
			Params: url.Values{
				"advertiser_id": {advertiserID},
				"page":          {"1"},
				"page_size":     {strconv.Itoa(c.config.PageSize)},
			},
			Parser: ListParser{AdvertiserID: advertiserID},
		}
		if err := rest.Drain(ctx, rest.NewPaginator(source, rest.MaxPages(c.config.MaxPages)), tracker, normaliser, emit); err != nil {
			return time.Time{}, fmt.Errorf("tiktok_ads campaigns %s: %w", advertiserID, err)
		}
	}
	return tracker.Watermark(), nil
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Window is an inclusive range of whole days.
type Window struct {
	Start time.Time
	End   time.Time
}

// Windows splits the days from since to until into ranges of at most maxDays.
func Windows(since, until time.Time, maxDays int) []Window {
	start := rest.StartOfDay(since)
	last := rest.StartOfDay(until)

	var windows []Window
	for !start.After(last) {
		end := start.AddDate(0, 0, maxDays-1)
		if end.After(last) {
			end = last
		}
		windows = append(windows, Window{Start: start, End: end})
		start = end.AddDate(0, 0, 1)
	}
	return windows
}
