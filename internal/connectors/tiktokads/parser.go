package tiktokads

import (
	"github.com/goccy/go-json"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// envelope wraps every Business API response. Errors arrive with HTTP 200
// and a non-zero code.
type envelope struct {
	Code      *int            `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type pageInfo struct {
	Page      int `json:"page"`
	TotalPage int `json:"total_page"`
}

type listData struct {
	List     *[]json.RawMessage `json:"list"`
	PageInfo pageInfo           `json:"page_info"`
}

type reportRow struct {
	Dimensions map[string]any `json:"dimensions"`
	Metrics    map[string]any `json:"metrics"`
}

type reportData struct {
	List     *[]reportRow `json:"list"`
	PageInfo pageInfo     `json:"page_info"`
}

func unwrap(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := rest.Decode(body, &env); err != nil {
		return nil, err
	}
	if env.Code == nil {
		return nil, rest.Terminal("tiktok_ads: response has no code")
	}
	if *env.Code != 0 {
		return nil, rest.Terminal("tiktok_ads: code %d: %s (request %s)", *env.Code, env.Message, env.RequestID)
	}
	return env.Data, nil
}

// ListParser reads object listings such as /campaign/get/.
// Each record is tagged with the advertiser it belongs to.
type ListParser struct {
	AdvertiserID string
}

// ParsePage implements rest.PageParser.
func (p ListParser) ParsePage(body []byte) (*domain.Page, error) {
	raw, err := unwrap(body)
	if err != nil {
		return nil, err
	}
	var data listData
	if err := rest.Decode(raw, &data); err != nil {
		return nil, err
	}
	if data.List == nil {
		return nil, rest.Terminal("tiktok_ads: response has no data.list")
	}
	records, err := rest.Records(*data.List)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if _, ok := rec["advertiser_id"]; !ok {
			rec["advertiser_id"] = p.AdvertiserID
		}
	}
	return &domain.Page{
		Records: records,
		Next:    rest.NextPageNumber("page", data.PageInfo.Page, data.PageInfo.TotalPage),
	}, nil
}

// ReportParser reads /report/integrated/get/ and flattens each row's
// dimensions and metrics into one record.
type ReportParser struct {
	AdvertiserID string
}

// ParsePage implements rest.PageParser.
func (p ReportParser) ParsePage(body []byte) (*domain.Page, error) {
	raw, err := unwrap(body)
	if err != nil {
		return nil, err
	}
	var data reportData
	if err := rest.Decode(raw, &data); err != nil {
		return nil, err
	}
	if data.List == nil {
		return nil, rest.Terminal("tiktok_ads: report has no data.list")
	}

	records := make([]domain.Record, 0, len(*data.List))
	for _, row := range *data.List {
		rec := make(domain.Record, len(row.Dimensions)+len(row.Metrics)+1)
		for k, v := range row.Dimensions {
			rec[k] = v
		}
		for k, v := range row.Metrics {
			rec[k] = v
		}
		rec["advertiser_id"] = p.AdvertiserID
		records = append(records, rec)
	}
	return &domain.Page{
		Records: records,
		Next:    rest.NextPageNumber("page", data.PageInfo.Page, data.PageInfo.TotalPage),
	}, nil
}
