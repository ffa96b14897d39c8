package primer

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/normalisers/datetime"
)

// TypeID is the connector type identifier.
const TypeID = "primer"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

const (
	resourcePayments = "payments"
	cursorField      = "date"
)

// Resources lists the resources this connector offers.
var Resources = []string{resourcePayments}

// Definition returns the connector type metadata.
func Definition() domain.ConnectorType {
	return domain.ConnectorType{
		ID:          TypeID,
		Name:        "Primer",
		Description: "Extract payments from Primer",
		Auth: domain.AuthSpec{
			Method:       domain.AuthMethodAPIKey,
			HeaderName:   "X-Api-Key",
			ExtraHeaders: map[string]string{"X-Api-Version": APIVersion},
		},
		Resources: Resources,
		ConfigKeys: []domain.ConfigKey{
			{Key: "api_key", Label: "API Key", Description: "Primer API key", Required: true, Secret: true},
			{Key: "environment", Label: "Environment", Description: "production or sandbox", Default: "production"},
			{Key: "max_pages", Label: "Max Pages", Description: "Pages read per listing before stopping", Default: "10000"},
		},
	}
}

// Connector extracts payments from Primer.
type Connector struct {
	sourceID string
	config   *Config
	client   *rest.Client
	mu       sync.Mutex
	closed   bool
}

// New creates a new Primer connector.
func New(sourceID string, cfg *Config, auth driven.Authenticator, opts ...rest.ClientOption) *Connector {
	opts = append([]rest.ClientOption{rest.WithRateLimiter(rest.NewRateLimiter(TypeID))}, opts...)
	return &Connector{
		sourceID: sourceID,
		config:   cfg,
		client:   rest.NewClient(auth, opts...),
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
		NewestFirst:          true,
		RequiresAuth:         true,
		SupportsValidation:   true,
		SupportsRateLimiting: true,
		SupportsPagination:   true,
	}
}

// Validate fetches a single payment to check the key.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}
	_, err := c.client.Get(ctx, c.config.APIBase()+"/payments", url.Values{"limit": {"1"}})
	if err != nil {
		if rest.IsUnauthorized(err) || rest.IsForbidden(err) {
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}
	return nil
}

// Extract streams payments whose date lies in the request window.
func (c *Connector) Extract(ctx context.Context, req domain.ExtractRequest) (<-chan domain.Record, <-chan error) {
	return rest.Stream(ctx, func(ctx context.Context, emit rest.EmitFunc) (time.Time, error) {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return time.Time{}, domain.ErrConnectorClosed
		}
		if req.Resource != resourcePayments {
			return time.Time{}, fmt.Errorf("%w: primer has no resource %q", domain.ErrConfiguration, req.Resource)
		}

		params := url.Values{"limit": {strconv.Itoa(c.config.PageSize)}}
		for k, v := range rest.BuildDateParams(optional(req.Since), optional(req.Until)) {
			params.Set(k, v)
		}

		tracker := &rest.Tracker{Field: cursorField, Since: req.Since, Until: req.Until, NewestFirst: true}
		source := &rest.JSONSource{
			Client: c.client,
			URL:    c.config.APIBase() + "/payments",
			Params: params,
			Parser: Parser{},
		}
		pager := rest.NewPaginator(source, rest.StopWhen(tracker.Reached), rest.MaxPages(c.config.MaxPages))

		if err := rest.Drain(ctx, pager, tracker, datetime.New(cursorField), emit); err != nil {
			return time.Time{}, fmt.Errorf("primer payments: %w", err)
		}
		return tracker.Watermark(), nil
	})
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func optional(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
