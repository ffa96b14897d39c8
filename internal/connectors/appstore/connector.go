package appstore

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/tidemark/internal/adapters/driven/auth"
	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/logger"
	"github.com/custodia-labs/tidemark/internal/normalisers/datetime"
)

// TypeID is the connector type identifier.
const TypeID = "app_store"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

const (
	cursorField      = "processing_date"
	accessOngoing    = "ONGOING"
	granularityDaily = "DAILY"
	listLimit        = 200
)

// Resources lists the analytics reports this connector offers.
var Resources = []string{
	"app-downloads-detailed",
	"app-store-discovery-and-engagement-detailed",
	"app-sessions-detailed",
	"app-store-installation-and-deletion-detailed",
	"app-store-purchases-detailed",
	"app-crashes-expanded",
}

// Definition returns the connector type metadata.
func Definition() domain.ConnectorType {
	return domain.ConnectorType{
		ID:          TypeID,
		Name:        "App Store Connect",
		Description: "Extract daily analytics reports from App Store Connect",
		Auth: domain.AuthSpec{
			Method:   domain.AuthMethodJWT,
			Audience: Audience,
		},
		Resources: Resources,
		ConfigKeys: []domain.ConfigKey{
			{Key: "key_id", Label: "Key ID", Description: "App Store Connect API key ID", Required: true},
			{Key: "issuer_id", Label: "Issuer ID", Description: "API key issuer ID", Required: true},
			{Key: "key_path", Label: "Key Path", Description: "Path to the .p8 private key"},
			{Key: "key_base64", Label: "Key (base64)", Description: "Base64 encoded .p8 private key", Secret: true},
			{Key: "app_ids", Label: "App IDs", Description: "Comma separated Apple app identifiers", Required: true},
			{Key: "max_pages", Label: "Max Pages", Description: "Pages read per listing before stopping", Default: "10000"},
		},
	}
}

// Connector extracts App Store analytics reports.
type Connector struct {
	sourceID string
	config   *Config
	client   *rest.Client
	download *rest.Client
	mu       sync.Mutex
	closed   bool
}

// New creates a new App Store connector. Segment downloads share opts but
// never carry credentials.
func New(sourceID string, cfg *Config, authenticator driven.Authenticator, opts ...rest.ClientOption) *Connector {
	api := append([]rest.ClientOption{rest.WithRateLimiter(rest.NewRateLimiter(TypeID))}, opts...)
	return &Connector{
		sourceID: sourceID,
		config:   cfg,
		client:   rest.NewClient(authenticator, api...),
		download: rest.NewClient(auth.NewNullAuthenticator(), opts...),
	}
}

// Build creates a connector from a source. It is the registered builder.
func Build(source domain.Source, authenticator driven.Authenticator) (driven.Connector, error) {
	return Builder()(source, authenticator)
}

// Builder returns a connector builder whose clients apply opts.
func Builder(opts ...rest.ClientOption) driven.ConnectorBuilder {
	return func(source domain.Source, authenticator driven.Authenticator) (driven.Connector, error) {
		cfg, err := ParseConfig(source)
		if err != nil {
			return nil, err
		}
		return New(source.ID, cfg, authenticator, opts...), nil
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

// Validate reads every configured app.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}
	for _, id := range c.config.AppIDs {
		if _, err := c.client.Get(ctx, c.config.BaseURL+"/apps/"+url.PathEscape(id), nil); err != nil {
			if rest.IsUnauthorized(err) || rest.IsForbidden(err) {
				return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
			}
			if rest.IsNotFound(err) {
				return fmt.Errorf("%w: app %s not found", domain.ErrConnectorValidation, id)
			}
			return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
		}
	}
	return nil
}

// instance is a daily report instance selected for download.
type instance struct {
	appID          string
	id             string
	processingDate time.Time
}

// Extract streams the rows of one analytics report for every app. All
// instances are resolved before the first segment is downloaded.
func (c *Connector) Extract(ctx context.Context, req domain.ExtractRequest) (<-chan domain.Record, <-chan error) {
	return rest.Stream(ctx, func(ctx context.Context, emit rest.EmitFunc) (time.Time, error) {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return time.Time{}, domain.ErrConnectorClosed
		}
		if !slices.Contains(Resources, req.Resource) {
			return time.Time{}, fmt.Errorf("%w: app_store has no report %q", domain.ErrConfiguration, req.Resource)
		}

		var instances []instance
		for _, appID := range c.config.AppIDs {
			found, err := c.instances(ctx, appID, req)
			if err != nil {
				return time.Time{}, fmt.Errorf("app_store %s app %s: %w", req.Resource, appID, err)
			}
			instances = append(instances, found...)
		}

		// Reports are daily, so the lower bound covers the whole first day.
		tracker := &rest.Tracker{Field: cursorField, Until: req.Until}
		if !req.Since.IsZero() {
			tracker.Since = rest.StartOfDay(req.Since)
		}
		normaliser := datetime.New("date", cursorField)

		for _, inst := range instances {
			if err := c.extractInstance(ctx, inst, tracker, normaliser, emit); err != nil {
				return time.Time{}, fmt.Errorf("app_store %s app %s instance %s: %w", req.Resource, inst.appID, inst.id, err)
			}
		}
		return tracker.Watermark(), nil
	})
}

// instances walks request, report and instance listings for one app.
func (c *Connector) instances(ctx context.Context, appID string, req domain.ExtractRequest) ([]instance, error) {
	requests, err := c.list(ctx, "/apps/"+url.PathEscape(appID)+"/analyticsReportRequests", nil)
	if err != nil {
		return nil, err
	}
	var requestID string
	for _, r := range requests {
		if attr(r, "accessType") == accessOngoing && r["stoppedDueToInactivity"] != true {
			requestID = attr(r, "id")
			break
		}
	}
	if requestID == "" {
		return nil, ErrNoOngoingReportRequests
	}

	reports, err := c.list(ctx, "/analyticsReportRequests/"+url.PathEscape(requestID)+"/reports",
		url.Values{"filter[name]": {req.Resource}})
	if err != nil {
		return nil, err
	}
	var reportID string
	for _, r := range reports {
		if attr(r, "name") == req.Resource {
			reportID = attr(r, "id")
			break
		}
	}
	if reportID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchReport, req.Resource)
	}

	listed, err := c.list(ctx, "/analyticsReports/"+url.PathEscape(reportID)+"/instances",
		url.Values{"filter[granularity]": {granularityDaily}})
	if err != nil {
		return nil, err
	}

	since := rest.StartOfDay(req.Since)
	var found []instance
	for _, r := range listed {
		day, err := datetime.Parse(attr(r, "processingDate"))
		if err != nil {
			logger.Warn("app_store: instance %s has bad processingDate %q", attr(r, "id"), attr(r, "processingDate"))
			continue
		}
		if !req.Since.IsZero() && day.Before(since) {
			continue
		}
		if !req.Until.IsZero() && day.After(req.Until) {
			continue
		}
		found = append(found, instance{appID: appID, id: attr(r, "id"), processingDate: day})
	}
	if len(found) == 0 {
		return nil, ErrNoReportsFound
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].processingDate.Before(found[j].processingDate)
	})
	return found, nil
}

func (c *Connector) extractInstance(ctx context.Context, inst instance, tracker *rest.Tracker, n driven.Normaliser, emit rest.EmitFunc) error {
	segments, err := c.list(ctx, "/analyticsReportInstances/"+url.PathEscape(inst.id)+"/segments", nil)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		link := attr(seg, "url")
		if link == "" {
			return rest.Terminal("app_store: segment %s has no url", attr(seg, "id"))
		}
		data, err := c.download.Get(ctx, link, nil)
		if err != nil {
			return fmt.Errorf("download segment %s: %w", attr(seg, "id"), err)
		}
		rows, err := ParseSegment(data)
		if err != nil {
			return err
		}
		for _, rec := range tracker.Filter(rows) {
			if err := n.Normalise(rec); err != nil {
				return err
			}
			if err := emit(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// list collects every object of a JSON:API collection.
func (c *Connector) list(ctx context.Context, path string, params url.Values) ([]domain.Record, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("limit", strconv.Itoa(listLimit))

	pager := rest.NewPaginator(&rest.JSONSource{
		Client: c.client,
		URL:    c.config.BaseURL + path,
		Params: params,
		Parser: Parser{},
	}, rest.MaxPages(c.config.MaxPages))
	var out []domain.Record
	err := pager.Each(ctx, func(page *domain.Page) error {
		out = append(out, page.Records...)
		return nil
	})
	return out, err
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
