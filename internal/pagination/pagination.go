// Package pagination turns limit/offset query parameters into a page window
// with previous/next navigation links.
package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the page size used when the client sends none.
	DefaultLimit = 10
	// MaxLimit caps the page size a client can request.
	MaxLimit = 100
)

// Params is a coerced limit/offset pair. Limit is always positive and offset
// never negative.
type Params struct {
	Limit  int
	Offset int
}

// Window is the slice of a collection a single page covers.
type Window struct {
	Limit    int
	Offset   int
	Total    int
	Previous *string
	Next     *string
}

// LinkFunc renders the URL of the page starting at offset.
type LinkFunc func(limit, offset int) string

// ParseParams reads limit and offset from a query string. Absent, malformed or
// non-positive limits fall back to defaultLimit; limits above maxLimit are
// clamped. Absent, malformed or negative offsets become zero.
func ParseParams(q url.Values, defaultLimit, maxLimit int) Params {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}

	p := Params{Limit: defaultLimit}
	if value := strings.TrimSpace(q.Get("limit")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			p.Limit = parsed
		}
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}

	if value := strings.TrimSpace(q.Get("offset")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			p.Offset = parsed
		}
	}
	return p
}

// Plan computes the window for a collection of total records.
func Plan(total int, p Params, link LinkFunc) Window {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if total < 0 {
		total = 0
	}

	w := Window{Limit: p.Limit, Offset: p.Offset, Total: total}
	if link == nil {
		return w
	}
	if p.Offset > 0 {
		prev := link(p.Limit, max(0, p.Offset-p.Limit))
		w.Previous = &prev
	}
	if p.Offset < total-p.Limit {
		next := link(p.Limit, p.Offset+p.Limit)
		w.Next = &next
	}
	return w
}

// Links builds absolute page links of the form base+path?limit=L&offset=O.
func Links(baseURL, path string) LinkFunc {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	return func(limit, offset int) string {
		return base + "?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	}
}
