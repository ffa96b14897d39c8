package rest

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// Decode unmarshals a response body. Malformed JSON is a terminal API error.
func Decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrTerminalAPI, err)
	}
	return nil
}

// Records decodes raw JSON objects into records.
func Records(raw []json.RawMessage) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(raw))
	for i, r := range raw {
		var rec domain.Record
		if err := json.Unmarshal(r, &rec); err != nil {
			return nil, fmt.Errorf("%w: decode record %d: %v", domain.ErrTerminalAPI, i, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: record %d is not an object", domain.ErrTerminalAPI, i)
		}
		records = append(records, rec)
	}
	return records, nil
}
