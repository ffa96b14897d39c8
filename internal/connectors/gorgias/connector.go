package gorgias

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
const TypeID = "gorgias"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// resource describes one listing endpoint. Field is both the sort key
// (descending) and the cursor field.
type resource struct {
	path  string
	field string
	dates []string
}

var resources = map[string]resource{
	"customers": {
		path:  "customers",
		field: "updated_datetime",
		dates: []string{"created_datetime", "updated_datetime"},
	},
	"tickets": {
		path:  "tickets",
		field: "updated_datetime",
		dates: []string{"created_datetime", "updated_datetime", "opened_datetime", "closed_datetime", "last_message_datetime"},
	},
	"messages": {
		path:  "messages",
		field: "created_datetime",
		dates: []string{"created_datetime", "sent_datetime", "opened_datetime"},
	},
	"satisfaction-surveys": {
		path:  "satisfaction-surveys",
		field: "created_datetime",
		dates: []string{"created_datetime", "sent_datetime", "scored_datetime"},
	},
}

// Resources lists the resources in display order.
var Resources = []string{"customers", "tickets", "messages", "satisfaction-surveys"}

// Definition returns the connector type metadata.
func Definition() domain.ConnectorType {
	return domain.ConnectorType{
		ID:          TypeID,
		Name:        "Gorgias",
		Description: "Extract customers, tickets, messages and satisfaction surveys from Gorgias",
		Auth: domain.AuthSpec{
			Method:      domain.AuthMethodBasic,
			UsernameKey: "email",
			SecretKey:   "api_key",
		},
		Resources: Resources,
		ConfigKeys: []domain.ConfigKey{
			{Key: "domain", Label: "Domain", Description: "Account subdomain ({domain}.gorgias.com)", Required: true},
			{Key: "email", Label: "Email", Description: "Email of the API user", Required: true},
			{Key: "api_key", Label: "API Key", Description: "REST API key", Required: true, Secret: true},
			{Key: "page_size", Label: "Page Size", Description: "Records per request (max 100)", Default: "100"},
			{Key: "max_pages", Label: "Max Pages", Description: "Pages read per listing before stopping", Default: "10000"},
		},
	}
}

// Connector extracts records from the Gorgias REST API.
type Connector struct {
	sourceID string
	config   *Config
	client   *rest.Client
	mu       sync.Mutex
	closed   bool
}

// New creates a new Gorgias connector.
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
func (c *Connector) Type() string {
	return TypeID
}

// SourceID returns the source identifier.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Resources returns the resources this connector can extract.
func (c *Connector) Resources() []string {
	return slices.Clone(Resources)
}

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

// Validate checks the credentials against the account endpoint.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}

	if _, err := c.client.Get(ctx, c.config.APIBase()+"/account", nil); err != nil {
		if rest.IsUnauthorized(err) || rest.IsForbidden(err) {
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}
	return nil
}

// Extract streams one resource, newest first, stopping at req.Since.
func (c *Connector) Extract(ctx context.Context, req domain.ExtractRequest) (<-chan domain.Record, <-chan error) {
	return rest.Stream(ctx, func(ctx context.Context, emit rest.EmitFunc) (time.Time, error) {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return time.Time{}, domain.ErrConnectorClosed
		}

		res, ok := resources[req.Resource]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: gorgias has no resource %q", domain.ErrConfiguration, req.Resource)
		}

		since := req.Since
		if since.IsZero() {
			since = DefaultStartDate
		}
		tracker := &rest.Tracker{Field: res.field, Since: since, Until: req.Until, NewestFirst: true}

		source := &rest.JSONSource{
			Client: c.client,
			URL:    c.config.APIBase() + "/" + res.path,
			Params: url.Values{
				"limit":    {strconv.Itoa(c.config.PageSize)},
				"order_by": {res.field + ":desc"},
			},
			Parser: Parser{},
		}
		pager := rest.NewPaginator(source, rest.StopWhen(tracker.Reached), rest.MaxPages(c.config.MaxPages))

		if err := rest.Drain(ctx, pager, tracker, datetime.New(res.dates...), emit); err != nil {
			return time.Time{}, fmt.Errorf("gorgias %s: %w", req.Resource, err)
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
