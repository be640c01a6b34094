package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	Snippet     string `json:"snippet"`
	AuthorLabel string `json:"authorLabel"`
	AuthorID    string `json:"authorId"`
	CreatedAt   int64  `json:"createdAt"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterAuthorID string // empty = all authors
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over messages.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// MessageRecord is the data we index for a message.
type MessageRecord struct {
	ID          string `json:"id"`
	Body        string `json:"body"`
	AuthorLabel string `json:"authorLabel"`
	AuthorID    string `json:"authorId"`
	CreatedAt   int64  `json:"createdAt"`
}
