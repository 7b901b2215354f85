package listutil

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// Pagination errors.
var (
	ErrInvalidPage    = errors.New("page must be a whole number >= 1")
	ErrInvalidPerPage = errors.New("per_page must be a whole number between 1 and 100")
)

// DefaultPerPage is the page size used when a request does not name one.
const DefaultPerPage = 10

// MaxPerPage bounds a single page.
const MaxPerPage = 100

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed page number
	PerPage int // rows per page
}

// ParsePageParams extracts page and per_page from URL query values. Missing values take
// the defaults; malformed or out-of-range values are rejected rather than clamped.
// PRE: none
// POST: returns PageParams with Page >= 1 and 1 <= PerPage <= MaxPerPage, or an error
func ParsePageParams(q url.Values) (PageParams, error) {
	p := PageParams{Page: 1, PerPage: DefaultPerPage}
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return PageParams{}, ErrInvalidPage
		}
		p.Page = n
	}
	if raw := strings.TrimSpace(q.Get("per_page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxPerPage {
			return PageParams{}, ErrInvalidPerPage
		}
		p.PerPage = n
	}
	return p, nil
}

// Validate checks p the way ParsePageParams does, for callers that build PageParams directly.
func (p PageParams) Validate() error {
	if p.Page < 1 {
		return ErrInvalidPage
	}
	if p.PerPage < 1 || p.PerPage > MaxPerPage {
		return ErrInvalidPerPage
	}
	return nil
}

// PageInfo carries pagination metadata for a response.
type PageInfo struct {
	Page    int // requested page, echoed even when past the end
	PerPage int
	Total   int // total matching rows
	EndPage int // ceil(Total / PerPage); 0 when there are no rows
}

// NewPageInfo computes pagination metadata. The requested page is never clamped.
// PRE: total >= 0, perPage >= 1, page >= 1
// POST: EndPage == ceil(total / perPage)
func NewPageInfo(page, perPage, total int) PageInfo {
	return PageInfo{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		EndPage: (total + perPage - 1) / perPage,
	}
}

// Offset returns the index of the first row on the current page.
// POST: Returns (Page-1) * PerPage
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Slice returns the rows of items that fall on the page described by p.
// POST: empty (never nil) when the page starts past the end of items
func Slice[T any](items []T, p PageInfo) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
