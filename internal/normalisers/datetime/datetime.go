// Package datetime parses the timestamp formats providers emit and
// normalises record fields to UTC time.Time values.
package datetime

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrUnparseable indicates a value matched none of the known formats.
var ErrUnparseable = errors.New("unparseable timestamp")

// layouts are tried in order. Values without a zone are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// compactLayouts are the all-digit date forms, keyed by length.
var compactLayouts = map[int]string{
	8:  "20060102",
	10: "2006010215",
	12: "200601021504",
}

// Parse converts v to a UTC time. It accepts time.Time, ISO 8601 strings
// with or without zone, compact digit dates from 1970 to 2100 (20250102, 2025010215,
// 202501021530) and unix seconds as integers, floats, json.Number or
// digit strings.
func Parse(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("%w: nil", ErrUnparseable)
		}
		return t.UTC(), nil
	case string:
		return parseString(t)
	case json.Number:
		return parseString(t.String())
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case int32:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case float64:
		return fromFloat(t)
	default:
		return time.Time{}, fmt.Errorf("%w: %T", ErrUnparseable, v)
	}
}

func parseString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrUnparseable)
	}

	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}

	if isDigits(s) {
		if layout, ok := compactLayouts[len(s)]; ok {
			// Ten digits are also unix seconds; only plausible years read as dates.
			if ts, err := time.Parse(layout, s); err == nil && plausibleYear(ts.Year()) {
				return ts, nil
			}
		}
		secs, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromFloat(f)
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
}

func fromFloat(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnparseable, f)
	}
	secs, frac := math.Modf(f)
	return time.Unix(int64(secs), int64(frac*1e9)).UTC(), nil
}

// Compact dates outside [minCompactYear, maxCompactYear] are read as unix seconds.
const (
	minCompactYear = 1970
	maxCompactYear = 2100
)

func plausibleYear(y int) bool {
	return y >= minCompactYear && y <= maxCompactYear
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Normaliser converts the listed timestamp fields of a record to UTC time.Time.
type Normaliser struct {
	Fields []string
}

// New creates a normaliser for the given fields.
func New(fields ...string) *Normaliser {
	return &Normaliser{Fields: fields}
}

// Normalise rewrites each listed field in place. Missing, nil and empty
// values are left untouched. An unparseable value is a terminal API error.
func (n *Normaliser) Normalise(rec domain.Record) error {
	for _, field := range n.Fields {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		ts, err := Parse(v)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", domain.ErrTerminalAPI, field, err)
		}
		rec[field] = ts
	}
	return nil
}
