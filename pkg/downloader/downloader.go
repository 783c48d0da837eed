// Package downloader saves story media files into a per-story folder tree.
package downloader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"storyscraper/pkg/api"
	"storyscraper/pkg/logger"
	"storyscraper/pkg/ratelimit"
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	nonDigits   = regexp.MustCompile(`[^0-9]`)
)

// SanitizeTitle collapses every run of filesystem-unsafe characters in a story
// title into a single underscore and trims leading and trailing underscores.
// An empty result becomes "untitled".
func SanitizeTitle(title string) string {
	sanitized := unsafeChars.ReplaceAllString(title, "_")
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		return "untitled"
	}
	return sanitized
}

// SanitizeTimestamp strips every non-digit character from a timestamp string.
// An empty result becomes "nodate".
func SanitizeTimestamp(ts string) string {
	sanitized := nonDigits.ReplaceAllString(ts, "")
	if sanitized == "" {
		return "nodate"
	}
	return sanitized
}

// StoryFolderName builds the folder name for a story from its timestamp,
// identifier, and sanitized title.
func StoryFolderName(story *api.Story) string {
	return fmt.Sprintf("%s_%s_%s", SanitizeTimestamp(story.Timestamp()), story.ID.String(), SanitizeTitle(story.Title))
}

// Downloader fetches media files over an authenticated HTTP session and
// writes them to disk. Files already on disk are never re-fetched, which
// makes repeated runs over the same stories cheap.
type Downloader struct {
	client  *api.Client
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// New creates a downloader using the given API client for fetches
func New(client *api.Client, limiter ratelimit.Limiter, log logger.Logger) *Downloader {
	if limiter == nil {
		limiter = ratelimit.None
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		client:  client,
		limiter: limiter,
		logger:  log,
	}
}

// DownloadStoryMedia downloads every media item of a story into its folder
// under basePath. Items without a usable URL are skipped. A failed item does
// not stop the remaining items from being attempted, but any failure makes
// the story as a whole fail.
func (d *Downloader) DownloadStoryMedia(story *api.Story, basePath string) error {
	if len(story.Media) == 0 {
		d.logger.InfoWithFields("story has no media, skipping", map[string]interface{}{
			"story_id": story.ID.String(),
		})
		return nil
	}

	folder := filepath.Join(basePath, StoryFolderName(story))

	log := d.logger.WithFields(map[string]interface{}{
		"story_id": story.ID.String(),
		"folder":   folder,
	})
	log.InfoWithFields("downloading story media", map[string]interface{}{
		"items": len(story.Media),
	})

	var failed int
	for _, item := range story.Media {
		url := item.URL()
		if url == "" {
			log.WarnWithFields("media item has no URL, skipping", map[string]interface{}{
				"media_id": item.ID.String(),
			})
			continue
		}

		d.limiter.Wait()

		if err := d.DownloadFile(url, folder, item.FileName()); err != nil {
			log.WithError(err).ErrorWithFields("failed to download media item", map[string]interface{}{
				"media_id": item.ID.String(),
			})
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("story %s: %d of %d media items failed to download", story.ID.String(), failed, len(story.Media))
	}
	return nil
}

// DownloadFile fetches a single URL into folder/name. An already existing
// destination file counts as success without any network activity. The body
// is streamed to a temp file and renamed into place on completion.
func (d *Downloader) DownloadFile(url, folder, name string) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", folder, err)
	}

	dest := filepath.Join(folder, name)
	if _, err := os.Stat(dest); err == nil {
		d.logger.DebugWithFields("file already exists, skipping", map[string]interface{}{
			"file": dest,
		})
		return nil
	}

	body, err := d.client.Fetch(url)
	if err != nil {
		return err
	}
	defer body.Close()

	tempPath := dest + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, dest); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize %s: %w", dest, err)
	}

	d.logger.DebugWithFields("file downloaded", map[string]interface{}{
		"file": dest,
	})
	return nil
}
