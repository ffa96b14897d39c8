package snapchatads

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
const TypeID = "snapchat_ads"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

const cursorField = "updated_at"

type scope int

const (
	scopeUser scope = iota
	scopeOrganization
	scopeAdAccount
)

type resource struct {
	scope   scope
	path    string
	itemKey string

	// window sends the extraction window as start_time and end_time.
	window bool
}

// windowLayout formats start_time and end_time of windowed listings.
const windowLayout = "2006-01-02T15:04:05"

var resources = map[string]resource{
	"organizations":  {scope: scopeUser, path: "/me/organizations", itemKey: "organization"},
	"fundingsources": {scope: scopeOrganization, path: "fundingsources", itemKey: "fundingsource"},
	"billingcenters": {scope: scopeOrganization, path: "billingcenters", itemKey: "billingcenter"},
	"adaccounts":     {scope: scopeOrganization, path: "adaccounts", itemKey: "adaccount"},
	"members":        {scope: scopeOrganization, path: "members", itemKey: "member"},
	"roles":          {scope: scopeOrganization, path: "roles", itemKey: "role"},
	"campaigns":      {scope: scopeAdAccount, path: "campaigns", itemKey: "campaign"},
	"adsquads":       {scope: scopeAdAccount, path: "adsquads", itemKey: "adsquad"},
	"ads":            {scope: scopeAdAccount, path: "ads", itemKey: "ad"},
	"creatives":      {scope: scopeAdAccount, path: "creatives", itemKey: "creative"},
	"segments":       {scope: scopeAdAccount, path: "segments", itemKey: "segment"},
	"invoices":       {scope: scopeAdAccount, path: "invoices", itemKey: "invoice"},
	"event_details":  {scope: scopeAdAccount, path: "event_details", itemKey: "event_detail"},
	"transactions":   {scope: scopeOrganization, path: "transactions", itemKey: "transaction", window: true},
}

// Resources lists the resources this connector offers.
var Resources = []string{
	"organizations", "fundingsources", "billingcenters", "adaccounts", "members", "roles", "transactions",
	"campaigns", "adsquads", "ads", "creatives", "segments", "invoices", "event_details",
	"campaigns_stats", "ad_squads_stats", "ads_stats", "ad_accounts_stats",
}

// Definition returns the connector type metadata.
func Definition() domain.ConnectorType {
	return domain.ConnectorType{
		ID:          TypeID,
		Name:        "Snapchat Ads",
		Description: "Extract organisations, ad accounts, ad entities and their stats from the Snapchat Marketing API",
		Auth: domain.AuthSpec{
			Method:   domain.AuthMethodOAuthRefresh,
			TokenURL: TokenURL,
		},
		Resources: Resources,
		ConfigKeys: []domain.ConfigKey{
			{Key: "client_id", Label: "Client ID", Description: "OAuth app client ID", Required: true},
			{Key: "client_secret", Label: "Client Secret", Description: "OAuth app client secret", Required: true, Secret: true},
			{Key: "refresh_token", Label: "Refresh Token", Description: "Long-lived refresh token", Required: true, Secret: true},
			{Key: "organization_id", Label: "Organization ID", Description: "Required for every resource except organizations"},
			{Key: "ad_account_ids", Label: "Ad Account IDs", Description: "Comma separated ad accounts; all accounts when empty"},
			{Key: "max_pages", Label: "Max Pages", Description: "Pages read per listing before stopping", Default: "10000"},
			{Key: "granularity", Label: "Granularity", Description: "Stats granularity: TOTAL, DAY, HOUR or LIFETIME"},
			{Key: "fields", Label: "Fields", Description: "Comma separated stats metrics", Default: DefaultStatsFields},
			{Key: "breakdown", Label: "Breakdown", Description: "Stats breakdown: ad, adsquad or campaign"},
			{Key: "dimension", Label: "Dimension", Description: "Stats dimension: GEO, DEMO, INTEREST or DEVICE"},
			{Key: "pivot", Label: "Pivot", Description: "Stats pivot, e.g. country or gender"},
		},
	}
}

// Connector extracts Snapchat Ads entities.
type Connector struct {
	sourceID string
	config   *Config
	client   *rest.Client
	mu       sync.Mutex
	closed   bool
}

// New creates a new Snapchat Ads connector.
func New(sourceID string, cfg *Config, auth driven.Authenticator, opts ...rest.ClientOption) *Connector {
	opts = append([]rest.ClientOption{
		rest.WithRateLimiter(rest.NewRateLimiter(TypeID)),
		rest.WithMaxAttempts(MaxAttempts),
	}, opts...)
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
		RequiresAuth:         true,
		SupportsValidation:   true,
		SupportsRateLimiting: true,
		SupportsPagination:   true,
	}
}

// Validate lists the caller's organisations to check the token.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}
	body, err := c.client.Get(ctx, c.config.BaseURL+"/me/organizations", nil)
	if err != nil {
		if rest.IsUnauthorized(err) || rest.IsForbidden(err) {
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}
	if _, err := (Parser{ListKey: "organizations", ItemKey: "organization"}).ParsePage(body); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}
	return nil
}

// Extract streams one resource, fanning out over ad accounts when the
// resource belongs to one.
func (c *Connector) Extract(ctx context.Context, req domain.ExtractRequest) (<-chan domain.Record, <-chan error) {
	return rest.Stream(ctx, func(ctx context.Context, emit rest.EmitFunc) (time.Time, error) {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return time.Time{}, domain.ErrConnectorClosed
		}

		if entity, ok := statsResources[req.Resource]; ok {
			return c.extractStats(ctx, req, entity, emit)
		}
		res, ok := resources[req.Resource]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: snapchat_ads has no resource %q", domain.ErrConfiguration, req.Resource)
		}

		urls, err := c.resolveURLs(ctx, req.Resource, res)
		if err != nil {
			return time.Time{}, err
		}

		tracker := &rest.Tracker{Field: cursorField, Since: req.Since, Until: req.Until}
		normaliser := datetime.New("created_at", "updated_at")
		parser := Parser{ListKey: req.Resource, ItemKey: res.itemKey}

		params := url.Values{}
		if res.window {
			if !req.Since.IsZero() {
				params.Set("start_time", req.Since.UTC().Format(windowLayout))
			}
			if !req.Until.IsZero() {
				params.Set("end_time", req.Until.UTC().Format(windowLayout))
			}
		}

		for _, u := range urls {
			if err := rest.Drain(ctx, c.paginator(u, parser, params), tracker, normaliser, emit); err != nil {
				return time.Time{}, fmt.Errorf("snapchat_ads %s: %w", req.Resource, err)
			}
		}
		return tracker.Watermark(), nil
	})
}

// resolveURLs returns the listing URLs for a resource. Missing scope
// identifiers are configuration errors raised before any record.
func (c *Connector) resolveURLs(ctx context.Context, name string, res resource) ([]string, error) {
	base := c.config.BaseURL
	org := c.config.OrganizationID

	switch res.scope {
	case scopeUser:
		return []string{base + res.path}, nil

	case scopeOrganization:
		if org == "" {
			return nil, fmt.Errorf("%w: snapchat_ads: organization_id is required for %s", domain.ErrConfiguration, name)
		}
		return []string{fmt.Sprintf("%s/organizations/%s/%s", base, url.PathEscape(org), res.path)}, nil

	default:
		accounts, err := c.accounts(ctx, name)
		if err != nil {
			return nil, err
		}
		urls := make([]string, 0, len(accounts))
		for _, id := range accounts {
			urls = append(urls, fmt.Sprintf("%s/adaccounts/%s/%s", base, url.PathEscape(id), res.path))
		}
		return urls, nil
	}
}

// accounts returns the configured ad accounts, or every ad account of
// the organisation when none are configured.
func (c *Connector) accounts(ctx context.Context, name string) ([]string, error) {
	if len(c.config.AdAccountIDs) > 0 {
		return c.config.AdAccountIDs, nil
	}
	org := c.config.OrganizationID
	if org == "" {
		return nil, fmt.Errorf("%w: snapchat_ads: organization_id or ad_account_ids is required for %s",
			domain.ErrConfiguration, name)
	}
	u := fmt.Sprintf("%s/organizations/%s/adaccounts", c.config.BaseURL, url.PathEscape(org))
	ids, err := c.ids(ctx, u, Parser{ListKey: "adaccounts", ItemKey: "adaccount"})
	if err != nil {
		return nil, fmt.Errorf("snapchat_ads: list ad accounts: %w", err)
	}
	return ids, nil
}

// ids lists the identifiers of every entity behind u.
func (c *Connector) ids(ctx context.Context, u string, parser Parser) ([]string, error) {
	pager := c.paginator(u, parser, nil)

	var ids []string
	err := pager.Each(ctx, func(page *domain.Page) error {
		for _, rec := range page.Records {
			if id := rec.String("id"); id != "" {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

func (c *Connector) paginator(u string, parser Parser, extra url.Values) *rest.Paginator {
	params := url.Values{"limit": {strconv.Itoa(c.config.PageSize)}}
	for k, vs := range extra {
		params[k] = vs
	}
	return rest.NewPaginator(&rest.JSONSource{
		Client: c.client,
		URL:    u,
		Params: params,
		Parser: parser,
	}, rest.MaxPages(c.config.MaxPages))
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
