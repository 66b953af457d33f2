package files

// StoreRequest represents an upload store request.
type StoreRequest struct {
	Name        string `json:"name"`
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// StoreResponse represents an upload store response.
type StoreResponse struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// FetchRequest represents an upload fetch request.
type FetchRequest struct {
	Name string `json:"name"`
}

// FetchResponse represents an upload fetch response.
type FetchResponse struct {
	Name        string `json:"name"`
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}
