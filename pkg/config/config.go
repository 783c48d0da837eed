package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the story scraper
type Config struct {
	// API endpoint and credential settings
	API APIConfig `yaml:"api" json:"api"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Session cache settings
	Session SessionConfig `yaml:"session" json:"session"`

	// Pagination checkpoint settings
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Request pacing settings
	Delay DelayConfig `yaml:"delay" json:"delay"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds the endpoint URLs and login credentials
type APIConfig struct {
	LoginURL     string        `yaml:"login_url" json:"login_url"`
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	Username     string        `yaml:"username" json:"username"`
	Password     string        `yaml:"password" json:"password"`
	ChildID      string        `yaml:"child_id" json:"child_id"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	LoginTimeout time.Duration `yaml:"login_timeout" json:"login_timeout"`
}

// OutputConfig holds the download destination configuration
type OutputConfig struct {
	DownloadPath string `yaml:"download_path" json:"download_path"`
}

// SessionConfig holds session cache configuration
type SessionConfig struct {
	CacheFile string        `yaml:"cache_file" json:"cache_file"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

// CheckpointConfig holds pagination checkpoint configuration
type CheckpointConfig struct {
	File string `yaml:"file" json:"file"`
}

// DelayConfig holds the fixed courtesy delays between requests
type DelayConfig struct {
	PageDelay  time.Duration `yaml:"page_delay" json:"page_delay"`
	MediaDelay time.Duration `yaml:"media_delay" json:"media_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// UnmarshalYAML parses APIConfig with human-readable durations ("30s")
func (a *APIConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		LoginURL     string `yaml:"login_url"`
		BaseURL      string `yaml:"base_url"`
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		ChildID      string `yaml:"child_id"`
		UserAgent    string `yaml:"user_agent"`
		Timeout      string `yaml:"timeout"`
		LoginTimeout string `yaml:"login_timeout"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}

	setString(&a.LoginURL, aux.LoginURL)
	setString(&a.BaseURL, aux.BaseURL)
	setString(&a.Username, aux.Username)
	setString(&a.Password, aux.Password)
	setString(&a.ChildID, aux.ChildID)
	setString(&a.UserAgent, aux.UserAgent)
	if err := setDuration(&a.Timeout, aux.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if err := setDuration(&a.LoginTimeout, aux.LoginTimeout); err != nil {
		return fmt.Errorf("invalid login_timeout: %w", err)
	}
	return nil
}

// UnmarshalYAML parses SessionConfig with human-readable durations ("24h")
func (s *SessionConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		CacheFile string `yaml:"cache_file"`
		TTL       string `yaml:"ttl"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}

	setString(&s.CacheFile, aux.CacheFile)
	if err := setDuration(&s.TTL, aux.TTL); err != nil {
		return fmt.Errorf("invalid session ttl: %w", err)
	}
	return nil
}

// UnmarshalYAML parses DelayConfig with human-readable durations ("1s")
func (d *DelayConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		PageDelay  string `yaml:"page_delay"`
		MediaDelay string `yaml:"media_delay"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}

	if err := setDuration(&d.PageDelay, aux.PageDelay); err != nil {
		return fmt.Errorf("invalid page_delay: %w", err)
	}
	if err := setDuration(&d.MediaDelay, aux.MediaDelay); err != nil {
		return fmt.Errorf("invalid media_delay: %w", err)
	}
	return nil
}

// MarshalYAML renders durations in their human-readable form
func (a APIConfig) MarshalYAML() (interface{}, error) {
	return struct {
		LoginURL     string `yaml:"login_url"`
		BaseURL      string `yaml:"base_url"`
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		ChildID      string `yaml:"child_id"`
		UserAgent    string `yaml:"user_agent"`
		Timeout      string `yaml:"timeout"`
		LoginTimeout string `yaml:"login_timeout"`
	}{
		LoginURL:     a.LoginURL,
		BaseURL:      a.BaseURL,
		Username:     a.Username,
		Password:     a.Password,
		ChildID:      a.ChildID,
		UserAgent:    a.UserAgent,
		Timeout:      a.Timeout.String(),
		LoginTimeout: a.LoginTimeout.String(),
	}, nil
}

func (s SessionConfig) MarshalYAML() (interface{}, error) {
	return struct {
		CacheFile string `yaml:"cache_file"`
		TTL       string `yaml:"ttl"`
	}{
		CacheFile: s.CacheFile,
		TTL:       s.TTL.String(),
	}, nil
}

func (d DelayConfig) MarshalYAML() (interface{}, error) {
	return struct {
		PageDelay  string `yaml:"page_delay"`
		MediaDelay string `yaml:"media_delay"`
	}{
		PageDelay:  d.PageDelay.String(),
		MediaDelay: d.MediaDelay.String(),
	}, nil
}

// setString assigns src to dst only when the document provided a value,
// preserving defaults for absent fields.
func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func setDuration(dst *time.Duration, src string) error {
	if src == "" {
		return nil
	}
	parsed, err := time.ParseDuration(src)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
			Timeout:      30 * time.Second,
			LoginTimeout: 15 * time.Second,
		},
		Output: OutputConfig{},
		Session: SessionConfig{
			CacheFile: "login_session_cache.json",
			TTL:       24 * time.Hour,
		},
		Checkpoint: CheckpointConfig{
			File: "last_processed_page_token.json",
		},
		Delay: DelayConfig{
			PageDelay:  time.Second,
			MediaDelay: time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if loginURL := os.Getenv("API_LOGIN_URL"); loginURL != "" {
		c.API.LoginURL = loginURL
	}
	if baseURL := os.Getenv("API_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if username := os.Getenv("API_USERNAME"); username != "" {
		c.API.Username = username
	}
	if password := os.Getenv("API_PASSWORD"); password != "" {
		c.API.Password = password
	}
	if childID := os.Getenv("CHILD_ID"); childID != "" {
		c.API.ChildID = childID
	}
	if downloadPath := os.Getenv("DOWNLOAD_PATH"); downloadPath != "" {
		c.Output.DownloadPath = downloadPath
	}

	if cacheFile := os.Getenv("STORYSCRAPER_SESSION_CACHE"); cacheFile != "" {
		c.Session.CacheFile = cacheFile
	}
	if checkpointFile := os.Getenv("STORYSCRAPER_CHECKPOINT_FILE"); checkpointFile != "" {
		c.Checkpoint.File = checkpointFile
	}
	if logLevel := os.Getenv("STORYSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("STORYSCRAPER_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".storyscraper.yaml",
		".storyscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "storyscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "storyscraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// All six API settings are required before any network activity happens.
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{"API_LOGIN_URL", c.API.LoginURL},
		{"API_BASE_URL", c.API.BaseURL},
		{"API_USERNAME", c.API.Username},
		{"API_PASSWORD", c.API.Password},
		{"CHILD_ID", c.API.ChildID},
		{"DOWNLOAD_PATH", c.Output.DownloadPath},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("missing required setting: %s", r.name))
		}
	}

	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session TTL must be positive"))
	}
	if c.Session.CacheFile == "" {
		errs = append(errs, errors.New("session cache file is required"))
	}
	if c.Checkpoint.File == "" {
		errs = append(errs, errors.New("checkpoint file is required"))
	}
	if c.Delay.PageDelay < 0 || c.Delay.MediaDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	if c.API.Timeout <= 0 || c.API.LoginTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if downloadPath, ok := flags["download-path"].(string); ok && downloadPath != "" {
		c.Output.DownloadPath = downloadPath
	}
	if childID, ok := flags["child-id"].(string); ok && childID != "" {
		c.API.ChildID = childID
	}
	if pageDelay, ok := flags["page-delay"].(time.Duration); ok && pageDelay >= 0 {
		c.Delay.PageDelay = pageDelay
	}
	if mediaDelay, ok := flags["media-delay"].(time.Duration); ok && mediaDelay >= 0 {
		c.Delay.MediaDelay = mediaDelay
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".storyscraper.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
