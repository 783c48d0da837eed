package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"storyscraper/pkg/auth"
	"storyscraper/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage Story Scraper configuration.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables or a .env file
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as '.storyscraper.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration that a scrape run would use, merged from all
sources. The password is masked.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

const exampleConfig = `# Story Scraper Configuration File
#
# Credentials and endpoints can also come from environment variables or a
# .env file: API_LOGIN_URL, API_BASE_URL, API_USERNAME, API_PASSWORD,
# CHILD_ID, DOWNLOAD_PATH. Environment values override this file.

api:
  # Login page URL (required)
  login_url: "https://example.com/users/sign_in"

  # API base URL (required)
  base_url: "https://example.com/api/v1"

  # Account email (required; prefer .env or 'storyscraper auth login')
  username: ""

  # Account password (required; prefer .env or 'storyscraper auth login')
  password: ""

  # Child identifier whose stories are fetched (required)
  child_id: ""

  # Request timeouts
  timeout: 30s
  login_timeout: 15s

# Download destination (required)
output:
  download_path: "./stories"

# Cached login session
session:
  cache_file: "login_session_cache.json"
  ttl: 24h

# Pagination resume point
checkpoint:
  file: "last_processed_page_token.json"

# Courtesy pauses between requests
delay:
  page_delay: 1s
  media_delay: 1s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional, stdout only when empty)
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".storyscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	fmt.Printf("Configuration file created: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the file and fill in the endpoints and child identifier")
	fmt.Println("2. Store credentials with 'storyscraper auth login' or a .env file")
	fmt.Println("3. Start downloading with 'storyscraper scrape'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Merge sources without validating, so an incomplete setup can still
	// be inspected.
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	displayCfg := *cfg
	if displayCfg.API.Password != "" {
		displayCfg.API.Password = auth.MaskPassword(displayCfg.API.Password)
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables and .env")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")

	if missing := cfg.Validate(); missing != nil {
		fmt.Printf("\nNot yet runnable:\n%v\n", missing)
	}
	return nil
}
