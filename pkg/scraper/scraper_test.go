package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyscraper/pkg/api"
	"storyscraper/pkg/checkpoint"
	"storyscraper/pkg/ratelimit"
)

// fakeClient serves a fixed sequence of pages keyed by token
type fakeClient struct {
	pages  map[string]*api.StoriesResponse
	calls  []string
	errOn  string
	errVal error
}

func (f *fakeClient) FetchStories(pageToken string) (*api.StoriesResponse, error) {
	f.calls = append(f.calls, pageToken)
	if f.errVal != nil && pageToken == f.errOn {
		return nil, f.errVal
	}
	page, ok := f.pages[pageToken]
	if !ok {
		return nil, fmt.Errorf("unexpected page token %q", pageToken)
	}
	return page, nil
}

// fakeDownloader records downloaded story ids and can fail specific stories
type fakeDownloader struct {
	downloaded []string
	failStory  string
}

func (f *fakeDownloader) DownloadStoryMedia(story *api.Story, basePath string) error {
	if story.ID.String() == f.failStory {
		return errors.New("download failed")
	}
	f.downloaded = append(f.downloaded, story.ID.String())
	return nil
}

func story(id string) api.Story {
	return api.Story{ID: json.Number(id), Title: "story " + id}
}

func twoPages() map[string]*api.StoriesResponse {
	return map[string]*api.StoriesResponse{
		"": {
			Stories:       []api.Story{story("1"), story("2")},
			NextPageToken: "page-2",
		},
		"page-2": {
			Stories: []api.Story{story("3")},
		},
	}
}

func newTestScraper(t *testing.T, client *fakeClient, dl *fakeDownloader) (*Scraper, *checkpoint.Manager) {
	t.Helper()
	cp := checkpoint.NewManager(filepath.Join(t.TempDir(), "checkpoint.json"), nil)
	s := New(client, dl, cp, ratelimit.None, t.TempDir(), nil)
	return s, cp
}

func TestRunProcessesAllPages(t *testing.T) {
	client := &fakeClient{pages: twoPages()}
	dl := &fakeDownloader{}
	s, cp := newTestScraper(t, client, dl)

	require.NoError(t, s.Run())

	assert.Equal(t, []string{"", "page-2"}, client.calls)
	assert.Equal(t, []string{"1", "2", "3"}, dl.downloaded)
	assert.False(t, cp.Exists(), "checkpoint must be removed on completion")
}

func TestRunStopsOnEmptyPage(t *testing.T) {
	client := &fakeClient{pages: map[string]*api.StoriesResponse{
		"": {Stories: []api.Story{story("1")}, NextPageToken: "page-2"},
		"page-2": {NextPageToken: "page-3"},
	}}
	dl := &fakeDownloader{}
	s, _ := newTestScraper(t, client, dl)

	require.NoError(t, s.Run())

	// The empty page ends the run even though it advertises another token
	assert.Equal(t, []string{"", "page-2"}, client.calls)
	assert.Equal(t, []string{"1"}, dl.downloaded)
}

func TestRunStoryFailureSavesCurrentPage(t *testing.T) {
	client := &fakeClient{pages: twoPages()}
	dl := &fakeDownloader{failStory: "3"}
	s, cp := newTestScraper(t, client, dl)

	err := s.Run()
	require.Error(t, err)

	// Page one completed, page two failed, so page two is retried next run
	assert.Equal(t, "page-2", cp.Load())
	assert.Equal(t, []string{"1", "2"}, dl.downloaded)
}

func TestRunStoryFailureOnFirstPage(t *testing.T) {
	client := &fakeClient{pages: twoPages()}
	dl := &fakeDownloader{failStory: "2"}
	s, cp := newTestScraper(t, client, dl)

	err := s.Run()
	require.Error(t, err)

	assert.True(t, cp.Exists())
	assert.Equal(t, "", cp.Load(), "first page retry token is the empty token")
	assert.Equal(t, []string{""}, client.calls, "no further pages fetched after a failure")
}

func TestRunFetchFailureAborts(t *testing.T) {
	client := &fakeClient{
		pages:  twoPages(),
		errOn:  "page-2",
		errVal: errors.New("server unavailable"),
	}
	dl := &fakeDownloader{}
	s, cp := newTestScraper(t, client, dl)

	err := s.Run()
	require.Error(t, err)

	// Page one was already checkpointed, so the failed page is retried
	assert.Equal(t, "page-2", cp.Load())
	assert.Equal(t, []string{"1", "2"}, dl.downloaded)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	client := &fakeClient{pages: twoPages()}
	dl := &fakeDownloader{}
	s, cp := newTestScraper(t, client, dl)
	require.NoError(t, cp.Save("page-2"))

	require.NoError(t, s.Run())

	assert.Equal(t, []string{"page-2"}, client.calls, "run must start at the saved page")
	assert.Equal(t, []string{"3"}, dl.downloaded)
}
