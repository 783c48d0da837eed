package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storyscraper/pkg/api"
	"storyscraper/pkg/auth"
	"storyscraper/pkg/checkpoint"
	"storyscraper/pkg/config"
	"storyscraper/pkg/downloader"
	"storyscraper/pkg/logger"
	"storyscraper/pkg/ratelimit"
	"storyscraper/pkg/scraper"
)

var (
	// Scrape command flags
	downloadPath string
	childID      string
	accountName  string
	pageDelay    time.Duration
	mediaDelay   time.Duration
	restart      bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download all story media into the download folder",
	Long: `Log in, then walk every page of stories and download each story's
media files into a folder named after the story.

Credentials can come from (in order of precedence):
  - Environment variables or a .env file (API_USERNAME and API_PASSWORD)
  - A stored account (use 'storyscraper auth login' to store one)

Each run picks up where the previous one left off: already downloaded
files are skipped and an interrupted run resumes from the page it had
reached.`,
	Example: `  # Download using settings from the environment or .env
  storyscraper scrape

  # Download to a specific directory
  storyscraper scrape --download-path ./stories

  # Ignore the saved checkpoint and start from the first page
  storyscraper scrape --restart

  # Use a specific stored account
  storyscraper scrape --account parent@example.com`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&downloadPath, "download-path", "d", "", "directory to download media into")
	scrapeCmd.Flags().StringVar(&childID, "child-id", "", "child identifier to fetch stories for")
	scrapeCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	scrapeCmd.Flags().DurationVar(&pageDelay, "page-delay", time.Second, "pause between story pages")
	scrapeCmd.Flags().DurationVar(&mediaDelay, "media-delay", time.Second, "pause before each media download")
	scrapeCmd.Flags().BoolVar(&restart, "restart", false, "ignore the saved checkpoint and start from the first page")

	// The same flags work on the bare root command
	rootCmd.Flags().StringVarP(&downloadPath, "download-path", "d", "", "directory to download media into")
	rootCmd.Flags().StringVar(&childID, "child-id", "", "child identifier to fetch stories for")
	rootCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	rootCmd.Flags().DurationVar(&pageDelay, "page-delay", time.Second, "pause between story pages")
	rootCmd.Flags().DurationVar(&mediaDelay, "media-delay", time.Second, "pause before each media download")
	rootCmd.Flags().BoolVar(&restart, "restart", false, "ignore the saved checkpoint and start from the first page")
}

func runScrape(cmd *cobra.Command, args []string) error {
	// Build flags map from command line
	flags := make(map[string]interface{})
	if downloadPath != "" {
		flags["download-path"] = downloadPath
	}
	if childID != "" {
		flags["child-id"] = childID
	}
	if pageDelay != time.Second {
		flags["page-delay"] = pageDelay
	}
	if mediaDelay != time.Second {
		flags["media-delay"] = mediaDelay
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Stored credentials are consulted before validation so that a run
	// without API_USERNAME/API_PASSWORD in the environment can still work.
	if err := resolveStoredCredentials(); err != nil {
		return err
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("story scraper starting")

	if err := os.MkdirAll(cfg.Output.DownloadPath, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	checkpoints := checkpoint.NewManager(cfg.Checkpoint.File, log)
	if restart && checkpoints.Exists() {
		if err := checkpoints.Delete(); err != nil {
			return fmt.Errorf("failed to remove checkpoint: %w", err)
		}
		log.Info("checkpoint removed, starting from the first page")
	}

	// Authenticate, restoring a cached session when one is still valid
	cache := auth.NewSessionCache(cfg.Session.CacheFile, cfg.Session.TTL, log)
	authenticator := auth.NewAuthenticator(auth.Credentials{
		LoginURL: cfg.API.LoginURL,
		Username: cfg.API.Username,
		Password: cfg.API.Password,
	}, cache, cfg.API.UserAgent, cfg.API.LoginTimeout, log)

	session, err := authenticator.Authenticate()
	if err != nil {
		log.WithError(err).Error("authentication failed")
		return fmt.Errorf("authentication failed: %w", err)
	}

	httpClient := session.Client()
	httpClient.Timeout = cfg.API.Timeout

	client := api.NewClient(httpClient, cfg.API.BaseURL, cfg.API.ChildID, log)
	client.SetHeader("User-Agent", cfg.API.UserAgent)

	dl := downloader.New(client, ratelimit.NewFixedDelay(cfg.Delay.MediaDelay), log)
	s := scraper.New(client, dl, checkpoints, ratelimit.NewFixedDelay(cfg.Delay.PageDelay), cfg.Output.DownloadPath, log)

	if err := s.Run(); err != nil {
		log.WithError(err).Error("scrape failed")
		return err
	}

	log.Info("scrape completed successfully")
	return nil
}

// resolveStoredCredentials fills API_USERNAME/API_PASSWORD from the credential
// store when the environment does not already provide them. Environment
// credentials always win.
func resolveStoredCredentials() error {
	if os.Getenv("API_USERNAME") != "" && os.Getenv("API_PASSWORD") != "" {
		if accountName != "" && os.Getenv("API_USERNAME") != accountName {
			return fmt.Errorf("account %q requested but API_USERNAME is set to a different user", accountName)
		}
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return nil // no credential store available, validation will report what is missing
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
		if err != nil {
			return fmt.Errorf("account %q not found, use 'storyscraper auth list' to see stored accounts", accountName)
		}
	} else {
		account, err = manager.RetrieveDefault()
		if err != nil {
			return nil
		}
	}

	os.Setenv("API_USERNAME", account.Username)
	os.Setenv("API_PASSWORD", account.Password)
	return nil
}
