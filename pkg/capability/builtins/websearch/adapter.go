package websearch

import "context"

// Hit is a single search result.
type Hit struct {
	Title   string
	URL     string
	Snippet string
}

// Results is the outcome of one search. Answer is a backend-synthesized
// summary and may be empty.
type Results struct {
	Answer string
	Hits   []Hit
}

// SearchAdapter is the interface for pluggable search backends.
type SearchAdapter interface {
	Search(ctx context.Context, query string, maxResults int) (*Results, error)
}
