package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// GiphyClient queries the Giphy search API.
type GiphyClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewGiphyClient creates a client for the Giphy API.
func NewGiphyClient(apiKey, baseURL string) *GiphyClient {
	return &GiphyClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// giphySearchResult mirrors the subset of the Giphy response we consume.
type giphySearchResult struct {
	Data []struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Images struct {
			FixedHeight struct {
				URL    string `json:"url"`
				Width  string `json:"width"`
				Height string `json:"height"`
			} `json:"fixed_height"`
			FixedHeightSmall struct {
				URL string `json:"url"`
			} `json:"fixed_height_small"`
		} `json:"images"`
	} `json:"data"`
}

// Search queries Giphy for gifs matching the query.
func (c *GiphyClient) Search(ctx context.Context, query string, limit int) ([]Gif, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("rating", "g")
	params.Set("lang", "en")

	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, body)
	}

	var result giphySearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	gifs := make([]Gif, 0, len(result.Data))
	for _, d := range result.Data {
		gifs = append(gifs, Gif{
			ID:         d.ID,
			Title:      d.Title,
			URL:        d.Images.FixedHeight.URL,
			PreviewURL: d.Images.FixedHeightSmall.URL,
			Width:      d.Images.FixedHeight.Width,
			Height:     d.Images.FixedHeight.Height,
		})
	}

	return gifs, nil
}
