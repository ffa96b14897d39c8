package rest

import (
	"net/url"
	"strconv"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// MaxOffset bounds offset pagination.
const MaxOffset = 1_000_000

// NextCursor returns a continuation for an opaque cursor, or nil when the
// cursor is empty.
func NextCursor(param, cursor string) *domain.Continuation {
	if cursor == "" {
		return nil
	}
	return domain.CursorParam(param, cursor)
}

// NextPageNumber returns a continuation to page+1, or nil when page is the last.
func NextPageNumber(param string, page, totalPages int) *domain.Continuation {
	if page >= totalPages {
		return nil
	}
	return domain.CursorParam(param, strconv.Itoa(page+1))
}

// NextOffset returns a continuation past the rows just read, or nil when
// the page was short or the offset would exceed MaxOffset.
func NextOffset(param string, offset, got, limit int) *domain.Continuation {
	if got < limit {
		return nil
	}
	next := offset + got
	if next > MaxOffset {
		return nil
	}
	return domain.CursorParam(param, strconv.Itoa(next))
}

// NextLinkParam extracts one query parameter from a provider next link.
// It returns nil when the link is empty or lacks the parameter.
func NextLinkParam(link, param string) *domain.Continuation {
	if link == "" {
		return nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return nil
	}
	return NextCursor(param, u.Query().Get(param))
}

// NextLink follows an absolute next URL, or returns nil when it is empty.
func NextLink(link string) *domain.Continuation {
	if link == "" {
		return nil
	}
	return domain.NextURL(link)
}
