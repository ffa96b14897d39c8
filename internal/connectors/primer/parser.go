package primer

import (
	"github.com/goccy/go-json"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
)

type paymentsResponse struct {
	Data       *[]json.RawMessage `json:"data"`
	NextCursor string             `json:"nextCursor"`
}

// Parser reads a page of the payments listing.
type Parser struct{}

// ParsePage implements rest.PageParser.
func (Parser) ParsePage(body []byte) (*domain.Page, error) {
	var resp paymentsResponse
	if err := rest.Decode(body, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, rest.Terminal("primer: response has no data")
	}
	records, err := rest.Records(*resp.Data)
	if err != nil {
		return nil, err
	}
	return &domain.Page{Records: records, Next: rest.NextCursor("cursor", resp.NextCursor)}, nil
}
