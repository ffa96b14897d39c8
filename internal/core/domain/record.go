package domain

import (
	"net/url"
	"sort"
	"strings"
)

// Record is a single provider record: a flat or shallowly nested mapping
// from field name to value. Records are identified downstream by a
// provider-defined primary key (usually "id").
type Record map[string]any

// String returns the field as a string, or "" if it is absent or not a string.
func (r Record) String(field string) string {
	v, ok := r[field].(string)
	if !ok {
		return ""
	}
	return v
}

// Page is an ordered batch of records returned by one provider call.
type Page struct {
	// Records in provider order. Newest first when the API allows it.
	Records []Record

	// Next is nil when the provider signalled there are no more pages.
	Next *Continuation
}

// Len returns the number of records on the page.
func (p *Page) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Records)
}

// Last returns the last record on the page, or nil for an empty page.
func (p *Page) Last() Record {
	if p.Len() == 0 {
		return nil
	}
	return p.Records[len(p.Records)-1]
}

// Continuation describes how to request the page after the current one.
// Providers either hand back an absolute URL or a set of query parameters
// (opaque cursor, page number, offset) applied on top of the base request.
type Continuation struct {
	// URL replaces the base request URL when set.
	URL string

	// Params are set on the request query, overriding base values.
	Params map[string]string
}

// CursorParam returns a continuation that sets a single query parameter.
func CursorParam(name, value string) *Continuation {
	return &Continuation{Params: map[string]string{name: value}}
}

// NextURL returns a continuation that follows an absolute URL.
func NextURL(u string) *Continuation {
	return &Continuation{URL: u}
}

// Key returns a canonical representation used to detect a continuation
// that has already been followed.
func (c *Continuation) Key() string {
	if c == nil {
		return ""
	}
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		q.Set(k, c.Params[k])
	}

	var b strings.Builder
	b.WriteString(c.URL)
	b.WriteByte('?')
	b.WriteString(q.Encode())
	return b.String()
}
