package api

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// StoriesEndpoint is the endpoint pattern for a child's stories
	StoriesEndpoint = "children/%s/stories"

	// SortBy is the fixed sort order requested from the stories endpoint
	SortBy = "updated_at"

	// StoryType is the fixed story type filter requested from the stories endpoint
	StoryType = "all"
)

// StoriesURL constructs the URL for fetching a page of a child's stories.
// An empty pageToken requests the first page.
func StoriesURL(baseURL, childID, pageToken string) string {
	endpoint := fmt.Sprintf(StoriesEndpoint, url.PathEscape(childID))

	params := url.Values{}
	params.Set("sort_by", SortBy)
	params.Set("story_type", StoryType)
	if pageToken != "" {
		params.Set("page_token", pageToken)
	}

	return fmt.Sprintf("%s/%s?%s", strings.TrimSuffix(baseURL, "/"), endpoint, params.Encode())
}
