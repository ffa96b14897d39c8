package appstore

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
)

type resourceObject struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

type document struct {
	Data  *[]resourceObject `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// Parser reads a JSON:API collection. Each record holds the object's
// attributes plus its id and type.
type Parser struct{}

// ParsePage implements rest.PageParser.
func (Parser) ParsePage(body []byte) (*domain.Page, error) {
	var doc document
	if err := rest.Decode(body, &doc); err != nil {
		return nil, err
	}
	if doc.Data == nil {
		return nil, rest.Terminal("app_store: response has no data")
	}

	records := make([]domain.Record, 0, len(*doc.Data))
	for _, obj := range *doc.Data {
		rec := make(domain.Record, len(obj.Attributes)+2)
		for k, v := range obj.Attributes {
			rec[k] = v
		}
		rec["id"] = obj.ID
		rec["type"] = obj.Type
		records = append(records, rec)
	}
	return &domain.Page{Records: records, Next: rest.NextLink(doc.Links.Next)}, nil
}

// ParseSegment decompresses a report segment and returns one record per
// TSV row, keyed by the snake_cased header.
func ParseSegment(data []byte) ([]domain.Record, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, rest.Terminal("app_store: segment is not gzip: %v", err)
	}
	defer zr.Close()

	r := csv.NewReader(zr)
	r.Comma = '\t'
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, rest.Terminal("app_store: read segment header: %v", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = SnakeCase(h)
	}

	var records []domain.Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rest.Terminal("app_store: read segment row: %v", err)
		}
		rec := make(domain.Record, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// SnakeCase turns a report column title into a field name:
// "App Apple Identifier" becomes "app_apple_identifier".
func SnakeCase(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if underscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			underscore = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		underscore = true
	}
	return b.String()
}

func attr(rec domain.Record, key string) string {
	switch v := rec[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
