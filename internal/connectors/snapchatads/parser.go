package snapchatads

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
)

const statusSuccess = "SUCCESS"

type paging struct {
	NextLink string `json:"next_link"`
}

// Parser reads one listing. ListKey names the array in the body and
// ItemKey the object inside each wrapper, e.g. "campaigns" and "campaign".
type Parser struct {
	ListKey string
	ItemKey string
}

// ParsePage implements rest.PageParser.
func (p Parser) ParsePage(body []byte) (*domain.Page, error) {
	var fields map[string]json.RawMessage
	if err := rest.Decode(body, &fields); err != nil {
		return nil, err
	}

	var status string
	if raw, ok := fields["request_status"]; ok {
		if err := rest.Decode(raw, &status); err != nil {
			return nil, err
		}
	}
	if !strings.EqualFold(status, statusSuccess) {
		var reason string
		if raw, ok := fields["debug_message"]; ok {
			_ = json.Unmarshal(raw, &reason)
		}
		return nil, rest.Terminal("snapchat_ads: request status %q: %s", status, reason)
	}

	raw, ok := fields[p.ListKey]
	if !ok {
		return nil, rest.Terminal("snapchat_ads: response has no %s", p.ListKey)
	}
	var wrappers []map[string]json.RawMessage
	if err := rest.Decode(raw, &wrappers); err != nil {
		return nil, err
	}

	records := make([]domain.Record, 0, len(wrappers))
	for _, w := range wrappers {
		var sub string
		if sraw, ok := w["sub_request_status"]; ok {
			if err := rest.Decode(sraw, &sub); err != nil {
				return nil, err
			}
		}
		if !strings.EqualFold(sub, statusSuccess) {
			continue
		}
		item, ok := w[p.ItemKey]
		if !ok {
			continue
		}
		var rec domain.Record
		if err := rest.Decode(item, &rec); err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		records = append(records, rec)
	}

	page := &domain.Page{Records: records}
	if praw, ok := fields["paging"]; ok {
		var pg paging
		if err := rest.Decode(praw, &pg); err != nil {
			return nil, err
		}
		page.Next = rest.NextLinkParam(pg.NextLink, "cursor")
	}
	return page, nil
}
