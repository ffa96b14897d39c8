package googleanalytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"

	"github.com/custodia-labs/tidemark/internal/adapters/driven/auth"
	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/logger"
	"github.com/custodia-labs/tidemark/internal/normalisers/datetime"
)

// TypeID is the connector type identifier.
const TypeID = "google_analytics"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

const (
	resourceCustom   = "custom"
	resourceRealtime = "realtime"
	cursorField      = "date"
)

// dateDimensions are parsed into timestamps.
var dateDimensions = []string{"date", "dateHour", "dateHourMinute"}

// Resources lists the resources this connector offers.
var Resources = []string{resourceCustom, resourceRealtime}

// Definition returns the connector type metadata.
func Definition() domain.ConnectorType {
	return domain.ConnectorType{
		ID:          TypeID,
		Name:        "Google Analytics 4",
		Description: "Extract custom and realtime reports from the Analytics Data API",
		Auth: domain.AuthSpec{
			Method: domain.AuthMethodServiceAccount,
			Scopes: []string{Scope},
		},
		Resources: Resources,
		ConfigKeys: []domain.ConfigKey{
			{Key: "credentials_path", Label: "Credentials Path", Description: "Service account JSON key file"},
			{Key: "credentials_base64", Label: "Credentials (base64)", Description: "Base64 encoded service account key", Secret: true},
			{Key: "property_id", Label: "Property ID", Description: "GA4 property ID", Required: true},
			{Key: "dimensions", Label: "Dimensions", Description: "Comma separated dimensions, e.g. date,country", Required: true},
			{Key: "metrics", Label: "Metrics", Description: "Comma separated metrics, e.g. sessions,totalUsers", Required: true},
			{Key: "minute_ranges", Label: "Minute Ranges", Description: "Realtime windows as end-start minutes ago", Default: "0-29"},
			{Key: "max_pages", Label: "Max Pages", Description: "Pages read per listing before stopping", Default: "10000"},
		},
	}
}

// Connector extracts Google Analytics reports.
type Connector struct {
	sourceID    string
	config      *Config
	service     *analyticsdata.Service
	limiter     *rest.RateLimiter
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	mu          sync.Mutex
	closed      bool
}

// New creates a connector whose API client draws tokens from provider.
// opts are applied after the token source, so tests can substitute an
// endpoint and HTTP client.
func New(ctx context.Context, sourceID string, cfg *Config, provider driven.TokenProvider, opts ...option.ClientOption) (*Connector, error) {
	clientOpts := []option.ClientOption{option.WithTokenSource(NewTokenSource(ctx, provider))}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := analyticsdata.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("google_analytics: create service: %w", err)
	}
	return &Connector{
		sourceID:    sourceID,
		config:      cfg,
		service:     svc,
		limiter:     rest.NewRateLimiter(TypeID),
		maxAttempts: rest.DefaultMaxAttempts,
		sleep:       rest.SleepContext,
		now:         time.Now,
	}, nil
}

// Build creates a connector from a source. The authenticator must be a
// token provider.
func Build(source domain.Source, a driven.Authenticator) (driven.Connector, error) {
	cfg, err := ParseConfig(source)
	if err != nil {
		return nil, err
	}
	provider, ok := auth.TokenProviderFor(a)
	if !ok {
		return nil, fmt.Errorf("%w: google_analytics needs a token provider, got %s", domain.ErrConfiguration, a.AuthMethod())
	}
	return New(context.Background(), source.ID, cfg, provider)
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

// Validate reads the property metadata for the configured property.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}
	name := c.config.Property() + "/metadata"
	err := c.call(ctx, name, func() error {
		_, err := c.service.Properties.GetMetadata(name).Context(ctx).Do()
		return err
	})
	if err != nil {
		if rest.IsUnauthorized(err) || rest.IsForbidden(err) {
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}
	return nil
}

// Extract streams report rows.
func (c *Connector) Extract(ctx context.Context, req domain.ExtractRequest) (<-chan domain.Record, <-chan error) {
	return rest.Stream(ctx, func(ctx context.Context, emit rest.EmitFunc) (time.Time, error) {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return time.Time{}, domain.ErrConnectorClosed
		}

		switch req.Resource {
		case resourceCustom:
			return c.extractReport(ctx, req, emit)
		case resourceRealtime:
			return c.extractRealtime(ctx, req, emit)
		default:
			return time.Time{}, fmt.Errorf("%w: google_analytics has no resource %q", domain.ErrConfiguration, req.Resource)
		}
	})
}

func (c *Connector) extractReport(ctx context.Context, req domain.ExtractRequest, emit rest.EmitFunc) (time.Time, error) {
	start := req.Since
	if start.IsZero() {
		start = DefaultStartDate
	}
	end := "today"
	if !req.Until.IsZero() {
		end = req.Until.UTC().Format(rest.DayLayout)
	}

	query := &analyticsdata.RunReportRequest{
		Dimensions: dimensions(c.config.Dimensions),
		Metrics:    metrics(c.config.Metrics),
		DateRanges: []*analyticsdata.DateRange{{
			StartDate: start.UTC().Format(rest.DayLayout),
			EndDate:   end,
		}},
		Limit: int64(c.config.PageSize),
	}

	// Rows carry whole days, so the lower bound covers the first day.
	tracker := &rest.Tracker{Field: cursorField, Until: req.Until}
	if !req.Since.IsZero() {
		tracker.Since = rest.StartOfDay(req.Since)
	}
	pager := rest.NewPaginator(&reportSource{conn: c, query: query}, rest.MaxPages(c.config.MaxPages))

	if err := rest.Drain(ctx, pager, tracker, datetime.New(dateDimensions...), emit); err != nil {
		return time.Time{}, fmt.Errorf("google_analytics %s: %w", c.config.Property(), err)
	}
	return tracker.Watermark(), nil
}

// extractRealtime reads the realtime report once. Rows carry no date, so
// the watermark stays where it was.
func (c *Connector) extractRealtime(ctx context.Context, req domain.ExtractRequest, emit rest.EmitFunc) (time.Time, error) {
	ranges, err := parseMinuteRanges(c.config.MinuteRanges)
	if err != nil {
		return time.Time{}, err
	}
	query := &analyticsdata.RunRealtimeReportRequest{
		Dimensions: dimensions(c.config.Dimensions),
		Metrics:    metrics(c.config.Metrics),
		Limit:      int64(c.config.PageSize),
	}
	for _, r := range ranges {
		query.MinuteRanges = append(query.MinuteRanges, &analyticsdata.MinuteRange{
			Name:            r.Name,
			EndMinutesAgo:   r.EndMinutesAgo,
			StartMinutesAgo: r.StartMinutesAgo,
			ForceSendFields: []string{"EndMinutesAgo"},
		})
	}

	property := c.config.Property()
	var resp *analyticsdata.RunRealtimeReportResponse
	err = c.call(ctx, property+":runRealtimeReport", func() error {
		var err error
		resp, err = c.service.Properties.RunRealtimeReport(property, query).Context(ctx).Do()
		return err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("google_analytics %s realtime: %w", property, err)
	}

	records, err := convertRows(resp.DimensionHeaders, resp.MetricHeaders, resp.Rows)
	if err != nil {
		return time.Time{}, err
	}
	ingestedAt := c.now().UTC()
	for _, rec := range records {
		rec["ingested_at"] = ingestedAt
		if err := emit(rec); err != nil {
			return time.Time{}, err
		}
	}
	return req.Since, nil
}

// call runs fn under the rate limiter, retrying 429, 5xx and transport
// failures with exponential backoff.
func (c *Connector) call(ctx context.Context, target string, fn func() error) error {
	b := &backoff.Backoff{
		Min:    rest.DefaultMinBackoff,
		Max:    rest.DefaultMaxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fmt.Errorf("rate limit wait: %w", werr)
		}
		err = wrapError(fn(), target)
		if err == nil || !retryable(ctx, err) {
			return err
		}
		if attempt == c.maxAttempts {
			break
		}
		delay := b.Duration()
		logger.Warn("retrying %s in %s (attempt %d/%d): %v", target, delay, attempt, c.maxAttempts, err)
		if serr := c.sleep(ctx, delay); serr != nil {
			return serr
		}
	}

	var apiErr *rest.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return &rest.RateLimitError{Attempts: c.maxAttempts, URL: target}
	}
	return err
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func dimensions(names []string) []*analyticsdata.Dimension {
	out := make([]*analyticsdata.Dimension, 0, len(names))
	for _, n := range names {
		out = append(out, &analyticsdata.Dimension{Name: n})
	}
	return out
}

func metrics(names []string) []*analyticsdata.Metric {
	out := make([]*analyticsdata.Metric, 0, len(names))
	for _, n := range names {
		out = append(out, &analyticsdata.Metric{Name: n})
	}
	return out
}
