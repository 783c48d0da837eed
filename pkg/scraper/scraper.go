// Package scraper drives the paginated story fetch and download loop.
package scraper

import (
	"fmt"

	"storyscraper/pkg/api"
	"storyscraper/pkg/checkpoint"
	"storyscraper/pkg/logger"
	"storyscraper/pkg/ratelimit"
)

// StoriesClient fetches one page of stories at a time
type StoriesClient interface {
	FetchStories(pageToken string) (*api.StoriesResponse, error)
}

// StoryDownloader downloads all media belonging to one story
type StoryDownloader interface {
	DownloadStoryMedia(story *api.Story, basePath string) error
}

// Scraper walks every page of stories in order, handing each story to the
// downloader. Progress is checkpointed per page: after a page is fully
// processed the next page's token is saved, so an interrupted run resumes at
// the first page not yet confirmed complete. A story failure aborts the run
// with the current page's token saved, so that page is retried in full.
type Scraper struct {
	client      StoriesClient
	downloader  StoryDownloader
	checkpoints *checkpoint.Manager
	limiter     ratelimit.Limiter
	basePath    string
	logger      logger.Logger
}

// New creates a scraper writing downloads under basePath
func New(client StoriesClient, dl StoryDownloader, cp *checkpoint.Manager, limiter ratelimit.Limiter, basePath string, log logger.Logger) *Scraper {
	if limiter == nil {
		limiter = ratelimit.None
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		client:      client,
		downloader:  dl,
		checkpoints: cp,
		limiter:     limiter,
		basePath:    basePath,
		logger:      log,
	}
}

// Run processes stories page by page until the API reports no further pages.
// It returns nil only on a complete run, in which case the checkpoint is
// removed so the next run starts from the beginning.
func (s *Scraper) Run() error {
	token := s.checkpoints.Load()

	pages := 0
	stories := 0
	for {
		page, err := s.client.FetchStories(token)
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch stories page, stopping")
			return err
		}

		if len(page.Stories) == 0 {
			s.logger.Info("received an empty page, all stories processed")
			break
		}

		for _, story := range page.Stories {
			story := story
			if err := s.downloader.DownloadStoryMedia(&story, s.basePath); err != nil {
				// Save the current page so the whole page is retried next run
				if saveErr := s.checkpoints.Save(token); saveErr != nil {
					s.logger.WithError(saveErr).Error("failed to save retry checkpoint")
				}
				return fmt.Errorf("story %s failed, run aborted: %w", story.ID.String(), err)
			}
			stories++
		}
		pages++

		if page.NextPageToken == "" {
			s.logger.Info("no further pages, all stories processed")
			break
		}

		token = page.NextPageToken
		if err := s.checkpoints.Save(token); err != nil {
			s.logger.WithError(err).Error("failed to save checkpoint")
		}

		s.limiter.Wait()
	}

	if err := s.checkpoints.Delete(); err != nil {
		s.logger.WithError(err).Warn("failed to remove checkpoint after completion")
	}

	s.logger.InfoWithFields("scrape complete", map[string]interface{}{
		"pages":   pages,
		"stories": stories,
	})
	return nil
}
