package rest

import (
	"time"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/normalisers/datetime"
)

// Tracker filters records against the incremental window and remembers
// the newest cursor value seen.
//
// The window is closed at both ends, so a record equal to the stored
// watermark is extracted again on the next run. Duplicates at the
// boundary are merged downstream by primary key.
type Tracker struct {
	// Field is the record field holding the cursor timestamp.
	Field string

	// Since is the lower bound. Zero means unbounded.
	Since time.Time

	// Until is the upper bound. Zero means unbounded.
	Until time.Time

	// NewestFirst enables early stop once a page reaches Since.
	NewestFirst bool

	max time.Time
}

// Filter returns the records inside [Since, Until] and observes their
// cursor values. Records whose field is missing or unparseable are kept.
func (t *Tracker) Filter(records []domain.Record) []domain.Record {
	kept := records[:0:0]
	for _, rec := range records {
		ts, ok := t.value(rec)
		if !ok {
			kept = append(kept, rec)
			continue
		}
		if !t.Since.IsZero() && ts.Before(t.Since) {
			continue
		}
		if !t.Until.IsZero() && ts.After(t.Until) {
			continue
		}
		if ts.After(t.max) {
			t.max = ts
		}
		kept = append(kept, rec)
	}
	return kept
}

// Reached reports whether a newest-first page got to the lower bound,
// meaning older pages hold nothing new.
func (t *Tracker) Reached(page *domain.Page) bool {
	if !t.NewestFirst || t.Since.IsZero() {
		return false
	}
	last := page.Last()
	if last == nil {
		return false
	}
	ts, ok := t.value(last)
	if !ok {
		return false
	}
	return !ts.After(t.Since)
}

// Watermark returns the newest observed value, or Since when nothing was observed.
func (t *Tracker) Watermark() time.Time {
	if t.max.IsZero() {
		return t.Since
	}
	return t.max
}

func (t *Tracker) value(rec domain.Record) (time.Time, bool) {
	v, ok := rec[t.Field]
	if !ok || v == nil {
		return time.Time{}, false
	}
	ts, err := datetime.Parse(v)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
