package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storiesPage = `{
	"stories": [
		{
			"id": 101,
			"title": "Forest walk",
			"created_at": "2024-05-01T00:00:00Z",
			"updated_at": "2024-05-02T10:30:00Z",
			"media": [
				{"id": 1, "type": "video", "resized_url": "https://cdn.example.com/v/1"},
				{"id": 2, "type": "image", "resized_url": "https://cdn.example.com/i/2"}
			]
		}
	],
	"next_page_token": "page-2"
}`

func TestFetchStories(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(storiesPage))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "child42", nil)

	page, err := client.FetchStories("")
	require.NoError(t, err)

	assert.Equal(t, "updated_at", gotQuery["sort_by"][0])
	assert.Equal(t, "all", gotQuery["story_type"][0])

	require.Len(t, page.Stories, 1)
	story := page.Stories[0]
	assert.Equal(t, "101", story.ID.String())
	assert.Equal(t, "Forest walk", story.Title)
	assert.Equal(t, "2024-05-02T10:30:00Z", story.Timestamp())
	require.Len(t, story.Media, 2)
	assert.Equal(t, "1.mp4", story.Media[0].FileName())
	assert.Equal(t, "2.jpg", story.Media[1].FileName())
	assert.Equal(t, "page-2", page.NextPageToken)
}

func TestFetchStoriesSendsPageToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.URL.Query().Get("page_token"))
		w.Write([]byte(`{"stories": []}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "child42", nil)

	page, err := client.FetchStories("tok-1")
	require.NoError(t, err)
	assert.Empty(t, page.Stories)
	assert.Empty(t, page.NextPageToken)
}

func TestGetJSONErrorClassification(t *testing.T) {
	tests := []struct {
		status   int
		wantType ErrorType
	}{
		{http.StatusUnauthorized, ErrorTypeAuth},
		{http.StatusForbidden, ErrorTypeAuth},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusInternalServerError, ErrorTypeServerError},
		{http.StatusBadGateway, ErrorTypeServerError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		client := NewClient(server.Client(), server.URL, "c", nil)
		var out StoriesResponse
		err := client.GetJSON(server.URL, &out)

		require.Error(t, err, "status %d", tt.status)
		apiErr, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, tt.wantType, apiErr.Type, "status %d", tt.status)
		assert.Equal(t, tt.status, apiErr.Code)

		server.Close()
	}
}

func TestGetJSONParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "c", nil)
	var out StoriesResponse
	err := client.GetJSON(server.URL, &out)

	require.Error(t, err)
	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeParsing, apiErr.Type)
}

func TestGetNetworkError(t *testing.T) {
	client := NewClient(http.DefaultClient, "http://127.0.0.1:1", "c", nil)

	_, err := client.Get("http://127.0.0.1:1/nothing")
	require.Error(t, err)
	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeNetwork, apiErr.Type)
}

func TestMediaItemURL(t *testing.T) {
	assert.Equal(t, "r", MediaItem{ResizedURL: "r", CloudfrontFeatureURL: "c"}.URL())
	assert.Equal(t, "c", MediaItem{CloudfrontFeatureURL: "c"}.URL())
	assert.Equal(t, "", MediaItem{}.URL())
}

func TestMediaItemFileName(t *testing.T) {
	assert.Equal(t, "7.mp4", MediaItem{ID: "7", Type: "video"}.FileName())
	assert.Equal(t, "7.jpg", MediaItem{ID: "7", Type: "image"}.FileName())
	assert.Equal(t, "7.jpg", MediaItem{ID: "7"}.FileName())
	assert.Equal(t, "media_item.jpg", MediaItem{}.FileName())
}
