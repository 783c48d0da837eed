package api

import "encoding/json"

// StoriesResponse is one page of the stories endpoint.
// An absent next_page_token signals the end of pagination.
type StoriesResponse struct {
	Stories       []Story `json:"stories"`
	NextPageToken string  `json:"next_page_token"`
}

// Story is a single story as returned by the API. Stories are read-only;
// nothing beyond derived folder names is ever persisted from them.
type Story struct {
	ID        json.Number `json:"id"`
	Title     string      `json:"title"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
	Media     []MediaItem `json:"media"`
}

// Timestamp returns the story's updated_at timestamp, falling back to
// created_at when updated_at is absent.
func (s Story) Timestamp() string {
	if s.UpdatedAt != "" {
		return s.UpdatedAt
	}
	return s.CreatedAt
}

// MediaItem is a single downloadable media entry attached to a story.
// The ID field may be numeric or a string in the source JSON.
type MediaItem struct {
	ID                   json.Number `json:"id"`
	Type                 string      `json:"type"`
	ResizedURL           string      `json:"resized_url"`
	CloudfrontFeatureURL string      `json:"cloudfront_feature_url"`
}

// URL returns the preferred download URL, or "" if the item has none.
// An item with no URL is skipped, not treated as a failure.
func (m MediaItem) URL() string {
	if m.ResizedURL != "" {
		return m.ResizedURL
	}
	return m.CloudfrontFeatureURL
}

// Ext returns the file extension for the item based on its media type.
func (m MediaItem) Ext() string {
	if m.Type == "video" {
		return ".mp4"
	}
	return ".jpg"
}

// FileName returns the local file name for the item.
func (m MediaItem) FileName() string {
	id := m.ID.String()
	if id == "" {
		id = "media_item"
	}
	return id + m.Ext()
}
