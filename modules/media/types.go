package media

// SearchRequest represents a gif search request.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResponse represents a gif search response.
type SearchResponse struct {
	Query string `json:"query"`
	Gifs  []Gif  `json:"gifs"`
}

// Gif represents a single search result.
type Gif struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
	Width      string `json:"width"`
	Height     string `json:"height"`
}
