package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cesargomez89/tidarr/internal/constants"
	"github.com/cesargomez89/tidarr/internal/storage"
)

// Config holds all application configuration
type Config struct {
	Port                  string        `mapstructure:"port"`
	DBPath                string        `mapstructure:"db_path"`
	DownloadsDir          string        `mapstructure:"downloads_dir"`
	ProcessingDir         string        `mapstructure:"processing_dir"`
	LidarrDir             string        `mapstructure:"lidarr_dir"`
	PathTemplate          string        `mapstructure:"path_template"`
	Quality               string        `mapstructure:"quality"`
	LogLevel              string        `mapstructure:"log_level"`
	LogFormat             string        `mapstructure:"log_format"`
	NoDownload            bool          `mapstructure:"no_download"`
	HistoryEnabled        bool          `mapstructure:"history_enabled"`
	HistoryPath           string        `mapstructure:"history_path"`
	DownloadCommand       string        `mapstructure:"download_command"`
	PlaylistDeleteCommand string        `mapstructure:"playlist_delete_command"`
	KillGrace             time.Duration `mapstructure:"kill_grace"`
	LockPath              string        `mapstructure:"lock_path"`
}

// DefaultDownloadCommand is run through sh inside the item's work dir with
// TIDARR_ID, TIDARR_TYPE, TIDARR_URL, TIDARR_QUALITY and TIDARR_DIR set.
const DefaultDownloadCommand = `tiddl url "$TIDARR_URL" download --quality "$TIDARR_QUALITY" --path "$TIDARR_DIR"`

// Load loads configuration from environment variables, an optional
// tidarr.yaml in the working directory (or CONFIG_DIR), and defaults.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	home, _ := os.UserHomeDir()
	defaultDownload := filepath.Join(home, "Downloads", "tidarr")

	v.AutomaticEnv()

	v.SetDefault("port", constants.DefaultPort)
	v.SetDefault("db_path", constants.DefaultDBPath)
	v.SetDefault("downloads_dir", defaultDownload)
	v.SetDefault("processing_dir", "")
	v.SetDefault("lidarr_dir", "")
	v.SetDefault("path_template", storage.DefaultPathTemplate)
	v.SetDefault("quality", constants.DefaultQuality)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("no_download", false)
	v.SetDefault("history_enabled", false)
	v.SetDefault("history_path", constants.DefaultHistoryPath)
	v.SetDefault("download_command", DefaultDownloadCommand)
	v.SetDefault("playlist_delete_command", "")
	v.SetDefault("kill_grace", constants.DefaultKillGrace)
	v.SetDefault("lock_path", "")

	v.SetConfigName("tidarr")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, ok := os.LookupEnv("CONFIG_DIR"); ok && dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ProcessingDir == "" {
		cfg.ProcessingDir = filepath.Join(cfg.DownloadsDir, constants.DefaultProcessingDir)
	}
	if cfg.LockPath == "" {
		cfg.LockPath = filepath.Join(filepath.Dir(cfg.DBPath), constants.DefaultLockName)
	}

	return &cfg, nil
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errs []string

	// Validate Port
	if c.Port == "" {
		errs = append(errs, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errs = append(errs, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errs = append(errs, "DB_PATH cannot be empty")
	}

	if c.DownloadsDir == "" {
		errs = append(errs, "DOWNLOADS_DIR cannot be empty")
	}

	if c.ProcessingDir == "" {
		errs = append(errs, "PROCESSING_DIR cannot be empty")
	} else if c.DownloadsDir != "" && filepath.Clean(c.ProcessingDir) == filepath.Clean(c.DownloadsDir) {
		errs = append(errs, "PROCESSING_DIR must differ from DOWNLOADS_DIR")
	}

	if c.PathTemplate == "" {
		errs = append(errs, "PATH_TEMPLATE cannot be empty")
	} else if _, err := storage.BuildPath(c.PathTemplate, storage.NewPathTemplateData("a", "a", "a", 1, 1, "a", 2000)); err != nil {
		errs = append(errs, fmt.Sprintf("PATH_TEMPLATE is invalid: %v", err))
	}

	validQualities := map[string]bool{
		constants.QualityLow:    true,
		constants.QualityNormal: true,
		constants.QualityHigh:   true,
		constants.QualityMaster: true,
	}
	if !validQualities[c.Quality] {
		errs = append(errs, fmt.Sprintf("QUALITY must be one of: low, normal, high, master, got: %s", c.Quality))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if c.HistoryEnabled && c.HistoryPath == "" {
		errs = append(errs, "HISTORY_PATH cannot be empty when HISTORY_ENABLED is set")
	}

	if !c.NoDownload && strings.TrimSpace(c.DownloadCommand) == "" {
		errs = append(errs, "DOWNLOAD_COMMAND cannot be empty")
	}

	if c.KillGrace <= 0 {
		errs = append(errs, fmt.Sprintf("KILL_GRACE must be positive, got: %s", c.KillGrace))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
