package domain

import (
	"encoding/base64"
	"strconv"
)

// Page size bounds for list operations.
const (
	DefaultMaxResults = 100
	MaxMaxResults     = 1000
)

// PageRequest carries the pagination parameters of a list call. PageToken is
// opaque to clients; internally it encodes the row offset of the next page.
type PageRequest struct {
	MaxResults int
	PageToken  string
}

// Offset recovers the row offset from the page token. An empty or garbled
// token starts the listing from the top rather than failing.
func (p PageRequest) Offset() int {
	raw, err := base64.StdEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Limit clamps the requested page size to [1, MaxMaxResults], defaulting
// when the caller asked for nothing.
func (p PageRequest) Limit() int {
	switch {
	case p.MaxResults <= 0:
		return DefaultMaxResults
	case p.MaxResults > MaxMaxResults:
		return MaxMaxResults
	}
	return p.MaxResults
}

// NextPageToken returns the token for the page after (offset, limit), or ""
// when total rows are exhausted.
func NextPageToken(offset, limit int, total int64) string {
	next := offset + limit
	if int64(next) >= total {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(next)))
}
