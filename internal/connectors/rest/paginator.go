package rest

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"google.golang.org/api/iterator"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// PageSource fetches one page. A nil continuation requests the first page.
type PageSource interface {
	FetchPage(ctx context.Context, next *domain.Continuation) (*domain.Page, error)
}

// PageParser turns one provider response body into a page and the
// continuation to the following one. Each provider implements its own.
type PageParser interface {
	ParsePage(body []byte) (*domain.Page, error)
}

// ParserFunc adapts a function to PageParser.
type ParserFunc func(body []byte) (*domain.Page, error)

// ParsePage calls f(body).
func (f ParserFunc) ParsePage(body []byte) (*domain.Page, error) {
	return f(body)
}

// JSONSource fetches pages from a JSON endpoint. The continuation's URL
// replaces URL and its Params are set over Params.
type JSONSource struct {
	Client *Client
	URL    string
	Params url.Values
	Parser PageParser
}

// FetchPage performs exactly one GET and parses the body.
func (s *JSONSource) FetchPage(ctx context.Context, next *domain.Continuation) (*domain.Page, error) {
	target := s.URL
	query := url.Values{}
	for k, vs := range s.Params {
		query[k] = append([]string(nil), vs...)
	}
	if next != nil {
		if next.URL != "" {
			// Absolute next links carry the full query already.
			target = next.URL
			query = url.Values{}
		}
		for k, v := range next.Params {
			query.Set(k, v)
		}
	}

	body, err := s.Client.Get(ctx, target, query)
	if err != nil {
		return nil, err
	}
	return s.Parser.ParsePage(body)
}

// DefaultMaxPages bounds a walk whose provider never stops handing out
// continuations.
const DefaultMaxPages = 10000

// PaginatorOption configures a Paginator.
type PaginatorOption func(*Paginator)

// MaxPages stops pagination after n pages. A non-positive n keeps
// DefaultMaxPages; a walk is never unbounded.
func MaxPages(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// MaxItems stops pagination once n records were yielded, truncating the
// last page. Zero means unlimited.
func MaxItems(n int) PaginatorOption {
	return func(p *Paginator) { p.maxItems = n }
}

// StopWhen stops pagination after yielding a page for which fn is true.
func StopWhen(fn func(*domain.Page) bool) PaginatorOption {
	return func(p *Paginator) { p.stopWhen = fn }
}

// Paginator walks a PageSource until the provider has no more pages, the
// stop condition holds, or a safety cap is reached. Next returns
// iterator.Done when finished.
//
// A Paginator is not safe for concurrent use.
type Paginator struct {
	source   PageSource
	maxPages int
	maxItems int
	stopWhen func(*domain.Page) bool

	next   *domain.Continuation
	seen   map[string]struct{}
	done   bool
	capped bool
	pages  int
	items  int
}

// NewPaginator creates a paginator positioned before the first page.
// It fetches at most DefaultMaxPages pages unless MaxPages says otherwise.
func NewPaginator(source PageSource, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		source:   source,
		maxPages: DefaultMaxPages,
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next returns the next non-empty page, or iterator.Done.
// Errors are final: subsequent calls return iterator.Done.
func (p *Paginator) Next(ctx context.Context) (*domain.Page, error) {
	for {
		if p.done {
			return nil, iterator.Done
		}
		if err := ctx.Err(); err != nil {
			p.done = true
			return nil, err
		}
		if p.pages >= p.maxPages {
			p.done = true
			p.capped = true
			return nil, iterator.Done
		}

		page, err := p.source.FetchPage(ctx, p.next)
		p.pages++
		if err != nil {
			p.done = true
			return nil, err
		}
		if page == nil {
			page = &domain.Page{}
		}

		if p.maxItems > 0 && p.items+page.Len() >= p.maxItems {
			p.capped = page.Len() > p.maxItems-p.items || page.Next != nil
			page.Records = page.Records[:p.maxItems-p.items]
			p.done = true
		}
		p.items += page.Len()

		if page.Next == nil {
			p.done = true
		}
		if !p.done && p.stopWhen != nil && p.stopWhen(page) {
			p.done = true
		}

		if !p.done {
			key := page.Next.Key()
			if _, ok := p.seen[key]; ok {
				p.done = true
				return nil, fmt.Errorf("%w: %s", domain.ErrCursorStalled, key)
			}
			p.seen[key] = struct{}{}
			p.next = page.Next
		}

		if page.Len() == 0 {
			continue
		}
		return page, nil
	}
}

// Each calls fn for every page until the paginator is exhausted.
func (p *Paginator) Each(ctx context.Context, fn func(*domain.Page) error) error {
	for {
		page, err := p.Next(ctx)
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
	}
}

// Pages returns the number of pages fetched so far.
func (p *Paginator) Pages() int { return p.pages }

// Items returns the number of records yielded so far.
func (p *Paginator) Items() int { return p.items }

// Capped reports whether a safety cap ended the walk while the provider
// still had records.
func (p *Paginator) Capped() bool { return p.capped }
