package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Kinopoisk
	APIKey              string
	HTTPTimeoutSeconds  int // Per-request timeout (default: 20)
	RequestDelaySeconds int // Fixed delay between bulk refresh calls (default: 5)

	// Refresh
	UpdateThresholdDays int // Days before cached catalog data is considered stale (default: 120)

	// Paths
	ExperienceFile string // $DATA_DIR/experience.json
	CatalogFile    string // $DATA_DIR/catalog_cache.json
	CurrentFile    string // $DATA_DIR/current_viewing.json
	ExceptionsFile string // $DATA_DIR/exceptions.json
	NotesFolder    string

	// Rendering
	FilenameReplacements map[string]string
	ContentReplacements  map[string]string

	// Logging
	LogLevel  string
	LogFolder string // Empty disables per-run log files
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("UPDATE_THRESHOLD_DAYS", 120)
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 20)
	viper.SetDefault("REQUEST_DELAY_SECONDS", 5)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("FILENAME_REPLACEMENTS", defaultFilenameReplacements())
	viper.SetDefault("CONTENT_REPLACEMENTS", defaultContentReplacements())

	// NOW read DATA_DIR from viper (which has loaded .env file)
	dataDir := viper.GetString("DATA_DIR")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".config", "kinolog")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for DATA_DIR: %w", err)
		}
		dataDir = absPath
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	config := &Config{
		// Kinopoisk
		APIKey:              viper.GetString("API_KEY"),
		HTTPTimeoutSeconds:  viper.GetInt("HTTP_TIMEOUT_SECONDS"),
		RequestDelaySeconds: viper.GetInt("REQUEST_DELAY_SECONDS"),

		// Refresh
		UpdateThresholdDays: viper.GetInt("UPDATE_THRESHOLD_DAYS"),

		// Paths
		ExperienceFile: filepath.Join(dataDir, "experience.json"),
		CatalogFile:    filepath.Join(dataDir, "catalog_cache.json"),
		CurrentFile:    filepath.Join(dataDir, "current_viewing.json"),
		ExceptionsFile: filepath.Join(dataDir, "exceptions.json"),
		NotesFolder:    viper.GetString("NOTES_FOLDER"),

		// Rendering
		FilenameReplacements: viper.GetStringMapString("FILENAME_REPLACEMENTS"),
		ContentReplacements:  viper.GetStringMapString("CONTENT_REPLACEMENTS"),

		// Logging
		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFolder: viper.GetString("LOG_FOLDER"),
	}

	// Validate required fields
	if config.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	if config.NotesFolder == "" {
		return nil, fmt.Errorf("NOTES_FOLDER is required")
	}

	return config, nil
}

// defaultFilenameReplacements substitutes characters that note files cannot
// carry in their names.
func defaultFilenameReplacements() map[string]string {
	return map[string]string{
		":": "",
		"?": "",
		"/": " ",
		"—": "–",
	}
}

// defaultContentReplacements collapses line-ending variants so content hashes
// stay stable across platforms.
func defaultContentReplacements() map[string]string {
	return map[string]string{
		"\r\n ": "\n",
		"\r\n":  "\n",
		"\r ":   "\n\n",
		"\r":    "\n\n",
	}
}
