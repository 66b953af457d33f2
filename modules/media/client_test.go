package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const giphyFixture = `{
  "data": [
    {
      "id": "gif-1",
      "title": "Funny Cat",
      "images": {
        "fixed_height": {
          "url": "https://media.example/gif-1/200.gif",
          "width": "356",
          "height": "200"
        },
        "fixed_height_small": {
          "url": "https://media.example/gif-1/100.gif"
        }
      }
    },
    {
      "id": "gif-2",
      "title": "Dancing Dog",
      "images": {
        "fixed_height": {
          "url": "https://media.example/gif-2/200.gif",
          "width": "200",
          "height": "200"
        },
        "fixed_height_small": {
          "url": "https://media.example/gif-2/100.gif"
        }
      }
    }
  ]
}`

func TestGiphyClient_Search(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"api_key": q.Get("api_key"),
			"q":       q.Get("q"),
			"limit":   q.Get("limit"),
			"rating":  q.Get("rating"),
			"lang":    q.Get("lang"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(giphyFixture))
	}))
	defer server.Close()

	client := NewGiphyClient("test-key", server.URL)
	gifs, err := client.Search(context.Background(), "cats", 10)
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotQuery["api_key"])
	assert.Equal(t, "cats", gotQuery["q"])
	assert.Equal(t, "10", gotQuery["limit"])
	assert.Equal(t, "g", gotQuery["rating"])
	assert.Equal(t, "en", gotQuery["lang"])

	require.Len(t, gifs, 2)
	assert.Equal(t, "gif-1", gifs[0].ID)
	assert.Equal(t, "Funny Cat", gifs[0].Title)
	assert.Equal(t, "https://media.example/gif-1/200.gif", gifs[0].URL)
	assert.Equal(t, "https://media.example/gif-1/100.gif", gifs[0].PreviewURL)
	assert.Equal(t, "356", gifs[0].Width)
	assert.Equal(t, "200", gifs[0].Height)
}

func TestGiphyClient_Search_LimitBounds(t *testing.T) {
	var gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewGiphyClient("test-key", server.URL)

	_, err := client.Search(context.Background(), "cats", 0)
	require.NoError(t, err)
	assert.Equal(t, "20", gotLimit, "zero limit falls back to the default")

	_, err = client.Search(context.Background(), "cats", 500)
	require.NoError(t, err)
	assert.Equal(t, "50", gotLimit, "oversized limit is clamped")
}

func TestGiphyClient_Search_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "invalid api key"}`))
	}))
	defer server.Close()

	client := NewGiphyClient("bad-key", server.URL)
	_, err := client.Search(context.Background(), "cats", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestGiphyClient_Search_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewGiphyClient("test-key", server.URL)
	gifs, err := client.Search(context.Background(), "nothing", 10)
	require.NoError(t, err)
	assert.Empty(t, gifs)
}
