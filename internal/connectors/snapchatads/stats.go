package snapchatads

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/normalisers/datetime"
)

// statsTimeLayout formats start_time and end_time of stats requests.
const statsTimeLayout = "2006-01-02T15:04:05.000"

// statsEntity names the object whose stats a resource reads.
type statsEntity struct {
	kind   string
	plural string
}

var statsResources = map[string]statsEntity{
	"campaigns_stats":   {kind: "campaign", plural: "campaigns"},
	"ad_squads_stats":   {kind: "adsquad", plural: "adsquads"},
	"ads_stats":         {kind: "ad", plural: "ads"},
	"ad_accounts_stats": {kind: "adaccount", plural: "adaccounts"},
}

// extractStats reads the stats of every entity in scope. Ad accounts are
// queried directly; other entities are listed per account first.
//
// Timeseries stats are filtered on start_time and advance the watermark.
// TOTAL and LIFETIME stats cover the whole entity lifetime, so they are
// emitted unfiltered and the watermark stays where it was.
func (c *Connector) extractStats(ctx context.Context, req domain.ExtractRequest, entity statsEntity, emit rest.EmitFunc) (time.Time, error) {
	if c.config.Granularity == "" {
		return time.Time{}, fmt.Errorf("%w: snapchat_ads: granularity is required for %s", domain.ErrConfiguration, req.Resource)
	}

	urls, err := c.statsURLs(ctx, req.Resource, entity)
	if err != nil {
		return time.Time{}, err
	}

	tracker := &rest.Tracker{Field: "start_time"}
	if c.config.Timeseries() {
		tracker.Since = req.Since
		tracker.Until = req.Until
	}
	params := c.statsParams(req)
	parser := StatsParser{Timeseries: c.config.Timeseries()}

	for _, u := range urls {
		pager := rest.NewPaginator(&rest.JSONSource{Client: c.client, URL: u, Params: params, Parser: parser},
			rest.MaxPages(c.config.MaxPages))
		if err := rest.Drain(ctx, pager, tracker, nil, emit); err != nil {
			return time.Time{}, fmt.Errorf("snapchat_ads %s: %w", req.Resource, err)
		}
	}

	if !c.config.Timeseries() {
		return req.Since, nil
	}
	return tracker.Watermark(), nil
}

// statsURLs returns one stats URL per entity in scope.
func (c *Connector) statsURLs(ctx context.Context, name string, entity statsEntity) ([]string, error) {
	accounts, err := c.accounts(ctx, name)
	if err != nil {
		return nil, err
	}
	base := c.config.BaseURL

	if entity.kind == "adaccount" {
		urls := make([]string, 0, len(accounts))
		for _, id := range accounts {
			urls = append(urls, fmt.Sprintf("%s/adaccounts/%s/stats", base, url.PathEscape(id)))
		}
		return urls, nil
	}

	var urls []string
	parser := Parser{ListKey: entity.plural, ItemKey: entity.kind}
	for _, account := range accounts {
		u := fmt.Sprintf("%s/adaccounts/%s/%s", base, url.PathEscape(account), entity.plural)
		ids, err := c.ids(ctx, u, parser)
		if err != nil {
			return nil, fmt.Errorf("snapchat_ads: list %s of %s: %w", entity.plural, account, err)
		}
		for _, id := range ids {
			urls = append(urls, fmt.Sprintf("%s/%s/%s/stats", base, entity.plural, url.PathEscape(id)))
		}
	}
	return urls, nil
}

// statsParams builds the stats query. Timeseries requests carry the
// window with end_time rounded up to the hour.
func (c *Connector) statsParams(req domain.ExtractRequest) url.Values {
	fields := c.config.Fields
	if fields == "" {
		fields = DefaultStatsFields
	}
	params := url.Values{
		"granularity": {c.config.Granularity},
		"fields":      {fields},
	}
	if c.config.Timeseries() {
		if !req.Since.IsZero() {
			params.Set("start_time", req.Since.UTC().Format(statsTimeLayout))
		}
		if !req.Until.IsZero() {
			end := req.Until.UTC()
			if hour := end.Truncate(time.Hour); !hour.Equal(end) {
				end = hour.Add(time.Hour)
			}
			params.Set("end_time", end.Format(statsTimeLayout))
		}
	}
	for key, value := range map[string]string{
		"breakdown": c.config.Breakdown,
		"dimension": c.config.Dimension,
		"pivot":     c.config.Pivot,
	} {
		if value != "" {
			params.Set(key, value)
		}
	}
	return params
}

type statsResponse struct {
	RequestStatus   string        `json:"request_status"`
	DebugMessage    string        `json:"debug_message"`
	TotalStats      []statWrapper `json:"total_stats"`
	LifetimeStats   []statWrapper `json:"lifetime_stats"`
	TimeseriesStats []statWrapper `json:"timeseries_stats"`
}

type statWrapper struct {
	SubRequestStatus string      `json:"sub_request_status"`
	TotalStat        *entityStat `json:"total_stat"`
	LifetimeStat     *entityStat `json:"lifetime_stat"`
	TimeseriesStat   *entityStat `json:"timeseries_stat"`
}

type entityStat struct {
	ID                   string                     `json:"id"`
	Type                 string                     `json:"type"`
	StartTime            string                     `json:"start_time"`
	EndTime              string                     `json:"end_time"`
	FinalizedDataEndTime string                     `json:"finalized_data_end_time"`
	Stats                map[string]any             `json:"stats"`
	Timeseries           []statPeriod               `json:"timeseries"`
	BreakdownStats       map[string][]breakdownStat `json:"breakdown_stats"`
}

type statPeriod struct {
	StartTime string         `json:"start_time"`
	EndTime   string         `json:"end_time"`
	Stats     map[string]any `json:"stats"`
}

type breakdownStat struct {
	ID         string         `json:"id"`
	Stats      map[string]any `json:"stats"`
	Timeseries []statPeriod   `json:"timeseries"`
}

// StatsParser flattens a stats response into one record per entity, or
// per entity and period for timeseries granularities. With a breakdown
// only the breakdown rows are emitted.
//
// Every record carries campaign_id, adsquad_id, ad_id, start_time and
// end_time so all rows share one key shape.
type StatsParser struct {
	Timeseries bool
}

// ParsePage implements rest.PageParser. Stats responses are not paginated.
func (p StatsParser) ParsePage(body []byte) (*domain.Page, error) {
	var resp statsResponse
	if err := rest.Decode(body, &resp); err != nil {
		return nil, err
	}
	if !strings.EqualFold(resp.RequestStatus, statusSuccess) {
		return nil, rest.Terminal("snapchat_ads: stats request status %q: %s", resp.RequestStatus, resp.DebugMessage)
	}

	var records []domain.Record
	if p.Timeseries {
		for _, w := range resp.TimeseriesStats {
			if w.TimeseriesStat == nil || (w.SubRequestStatus != "" && !strings.EqualFold(w.SubRequestStatus, statusSuccess)) {
				continue
			}
			records = append(records, timeseriesRecords(w.TimeseriesStat)...)
		}
		return &domain.Page{Records: records}, nil
	}

	wrappers := resp.TotalStats
	if len(wrappers) == 0 {
		wrappers = resp.LifetimeStats
	}
	for _, w := range wrappers {
		if !strings.EqualFold(w.SubRequestStatus, statusSuccess) {
			continue
		}
		stat := w.TotalStat
		if stat == nil {
			stat = w.LifetimeStat
		}
		if stat == nil {
			continue
		}
		records = append(records, totalRecords(stat)...)
	}
	return &domain.Page{Records: records}, nil
}

func totalRecords(stat *entityStat) []domain.Record {
	if len(stat.BreakdownStats) == 0 {
		rec := statRecord(stat, stat.StartTime, stat.EndTime, stat.Stats)
		rec[entityField(stat.Type)] = stat.ID
		return []domain.Record{normaliseStats(rec)}
	}

	var out []domain.Record
	for _, kind := range breakdownKinds(stat) {
		for _, item := range stat.BreakdownStats[kind] {
			rec := statRecord(stat, stat.StartTime, stat.EndTime, item.Stats)
			rec[entityField(stat.Type)] = stat.ID
			rec[kind+"_id"] = item.ID
			out = append(out, normaliseStats(rec))
		}
	}
	return out
}

func timeseriesRecords(stat *entityStat) []domain.Record {
	var out []domain.Record
	if len(stat.BreakdownStats) == 0 {
		for _, period := range stat.Timeseries {
			rec := statRecord(stat, period.StartTime, period.EndTime, period.Stats)
			rec[entityField(stat.Type)] = stat.ID
			out = append(out, normaliseStats(rec))
		}
		return out
	}

	for _, kind := range breakdownKinds(stat) {
		for _, item := range stat.BreakdownStats[kind] {
			for _, period := range item.Timeseries {
				rec := statRecord(stat, period.StartTime, period.EndTime, period.Stats)
				rec[entityField(stat.Type)] = stat.ID
				rec[kind+"_id"] = item.ID
				out = append(out, normaliseStats(rec))
			}
		}
	}
	return out
}

// statRecord holds the period bounds and the flattened metrics.
func statRecord(stat *entityStat, start, end string, stats map[string]any) domain.Record {
	rec := domain.Record{
		"start_time":              timestamp(start),
		"end_time":                timestamp(end),
		"finalized_data_end_time": timestamp(stat.FinalizedDataEndTime),
	}
	for k, v := range stats {
		rec[k] = v
	}
	return rec
}

// normaliseStats fills the key fields a row may lack.
func normaliseStats(rec domain.Record) domain.Record {
	if rec["campaign_id"] == nil {
		rec["campaign_id"] = "no_campaign_id"
	}
	for _, field := range []string{"adsquad_id", "ad_id"} {
		if _, ok := rec[field]; !ok {
			rec[field] = nil
		}
	}
	for _, field := range []string{"start_time", "end_time"} {
		if rec[field] == nil {
			rec[field] = "no_" + field
		}
	}
	return rec
}

func entityField(kind string) string {
	return strings.ToLower(kind) + "_id"
}

func breakdownKinds(stat *entityStat) []string {
	kinds := make([]string, 0, len(stat.BreakdownStats))
	for kind := range stat.BreakdownStats {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// timestamp parses a stats time, keeping the raw text when it does not
// parse and nil when it is empty.
func timestamp(s string) any {
	if s == "" {
		return nil
	}
	ts, err := datetime.Parse(s)
	if err != nil {
		return s
	}
	return ts
}
