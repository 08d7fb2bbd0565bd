package model

// Page is one batch of records from a collection endpoint.
// A present NextToken means more data exists; its absence is the only
// termination signal.
type Page[T any] struct {
	Data      []T     `json:"data"`
	NextToken *string `json:"next_token"`
}

// Cursor returns the continuation token, or "" when this is the last page.
func (p *Page[T]) Cursor() string {
	if p == nil || p.NextToken == nil {
		return ""
	}
	return *p.NextToken
}

// HasMore reports whether another page follows this one.
func (p *Page[T]) HasMore() bool {
	return p.Cursor() != ""
}
