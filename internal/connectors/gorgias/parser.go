package gorgias

import (
	"github.com/goccy/go-json"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// listResponse is the envelope of every Gorgias listing.
type listResponse struct {
	Data *[]json.RawMessage `json:"data"`
	Meta struct {
		NextCursor *string `json:"next_cursor"`
	} `json:"meta"`
}

// Parser reads a Gorgias listing page. The data key is mandatory.
type Parser struct{}

// ParsePage implements rest.PageParser.
func (Parser) ParsePage(body []byte) (*domain.Page, error) {
	var resp listResponse
	if err := rest.Decode(body, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, rest.Terminal("gorgias: response has no data")
	}

	records, err := rest.Records(*resp.Data)
	if err != nil {
		return nil, err
	}

	page := &domain.Page{Records: records}
	if resp.Meta.NextCursor != nil {
		page.Next = rest.NextCursor("cursor", *resp.Meta.NextCursor)
	}
	return page, nil
}
