package googleanalytics

import (
	"context"
	"strconv"

	analyticsdata "google.golang.org/api/analyticsdata/v1beta"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
)

const (
	metricTypeUnspecified = "METRIC_TYPE_UNSPECIFIED"
	metricTypeInteger     = "TYPE_INTEGER"
)

// reportSource pages a RunReport query by offset.
type reportSource struct {
	conn  *Connector
	query *analyticsdata.RunReportRequest
}

// FetchPage implements rest.PageSource.
func (s *reportSource) FetchPage(ctx context.Context, next *domain.Continuation) (*domain.Page, error) {
	var offset int64
	if next != nil {
		v, err := strconv.ParseInt(next.Params["offset"], 10, 64)
		if err != nil {
			return nil, rest.Terminal("google_analytics: bad offset %q", next.Params["offset"])
		}
		offset = v
	}

	req := *s.query
	req.Offset = offset

	property := s.conn.config.Property()
	var resp *analyticsdata.RunReportResponse
	err := s.conn.call(ctx, property+":runReport", func() error {
		var err error
		resp, err = s.conn.service.Properties.RunReport(property, &req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	records, err := convertRows(resp.DimensionHeaders, resp.MetricHeaders, resp.Rows)
	if err != nil {
		return nil, err
	}
	return &domain.Page{
		Records: records,
		Next:    rest.NextOffset("offset", int(offset), len(resp.Rows), int(req.Limit)),
	}, nil
}

// convertRows turns report rows into records keyed by header name.
// Metric values take the type their header declares.
func convertRows(dims []*analyticsdata.DimensionHeader, metrics []*analyticsdata.MetricHeader, rows []*analyticsdata.Row) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(domain.Record, len(dims)+len(metrics))
		for i, h := range dims {
			if i < len(row.DimensionValues) {
				rec[h.Name] = row.DimensionValues[i].Value
			}
		}
		for i, h := range metrics {
			if i >= len(row.MetricValues) {
				break
			}
			v, err := MetricValue(h.Type, row.MetricValues[i].Value)
			if err != nil {
				return nil, err
			}
			rec[h.Name] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

// MetricValue converts a metric string to its declared type: TYPE_INTEGER
// becomes int64, unspecified stays a string and every other type is a
// float64.
func MetricValue(metricType, value string) (any, error) {
	switch metricType {
	case metricTypeUnspecified, "":
		return value, nil
	case metricTypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, rest.Terminal("google_analytics: integer metric %q: %v", value, err)
		}
		return n, nil
	default:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, rest.Terminal("google_analytics: %s metric %q: %v", metricType, value, err)
		}
		return f, nil
	}
}
