package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/dyt-client/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.dyt")
		v.AddConfigPath("/etc/dyt")
	}

	// DYT_SERVICE_BASE_URL overrides service.base_url
	v.SetEnvPrefix("DYT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers every key so AutomaticEnv also applies to keys
// missing from the config file
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"service.base_url", "service.request_timeout",
		"session.auto_save_delay", "session.playlist_save_delay", "session.playlist_error_pause",
		"session.batch_quality", "session.native_host",
		"download.save_dir", "download.inspect_tags",
		"ledger.database_path",
		"notification.enabled", "notification.sound", "notification.method",
		"logging.level", "logging.format", "logging.output_path", "logging.events_dir",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.SaveDir = expandPath(config.Download.SaveDir)
	config.Logging.EventsDir = expandPath(config.Logging.EventsDir)

	if config.Ledger.DatabasePath != domain.InMemoryLedger {
		config.Ledger.DatabasePath = expandPath(config.Ledger.DatabasePath)
	}

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	u, err := url.Parse(config.Service.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid service base url: %q", config.Service.BaseURL)
	}

	if config.Service.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	if config.Session.AutoSaveDelay < 0 || config.Session.PlaylistSaveDelay < 0 || config.Session.PlaylistErrorPause < 0 {
		return fmt.Errorf("session delays cannot be negative")
	}

	if config.Session.BatchQuality == "" {
		config.Session.BatchQuality = domain.DefaultQuality
	}

	if config.Download.SaveDir == "" {
		return fmt.Errorf("download save directory not configured")
	}

	if config.Ledger.DatabasePath == "" {
		return fmt.Errorf("ledger database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "warn"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("service.base_url", config.Service.BaseURL)
	v.Set("service.request_timeout", config.Service.RequestTimeout.String())
	v.Set("session.auto_save_delay", config.Session.AutoSaveDelay.String())
	v.Set("session.playlist_save_delay", config.Session.PlaylistSaveDelay.String())
	v.Set("session.playlist_error_pause", config.Session.PlaylistErrorPause.String())
	v.Set("session.batch_quality", config.Session.BatchQuality)
	v.Set("session.native_host", config.Session.NativeHost)
	v.Set("download.save_dir", config.Download.SaveDir)
	v.Set("download.inspect_tags", config.Download.InspectTags)
	v.Set("ledger.database_path", config.Ledger.DatabasePath)
	v.Set("notification.enabled", config.Notification.Enabled)
	v.Set("notification.sound", config.Notification.Sound)
	v.Set("notification.method", config.Notification.Method)
	v.Set("logging.level", config.Logging.Level)
	v.Set("logging.format", config.Logging.Format)
	v.Set("logging.output_path", config.Logging.OutputPath)
	v.Set("logging.events_dir", config.Logging.EventsDir)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
