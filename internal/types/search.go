package types

// SearchResult is one hit returned by the search service.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ScrapedPage is the outcome of fetching one document. A failed fetch is still a
// ScrapedPage, with Success false and Error set.
type ScrapedPage struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
