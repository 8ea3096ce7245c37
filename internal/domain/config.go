package domain

import "time"

// Config represents the application configuration
type Config struct {
	Service      ServiceConfig      `mapstructure:"service"`
	Session      SessionConfig      `mapstructure:"session"`
	Download     DownloadConfig     `mapstructure:"download"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServiceConfig locates the download service
type ServiceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SessionConfig contains the timing and host settings of a session
type SessionConfig struct {
	AutoSaveDelay      time.Duration `mapstructure:"auto_save_delay"`
	PlaylistSaveDelay  time.Duration `mapstructure:"playlist_save_delay"`
	PlaylistErrorPause time.Duration `mapstructure:"playlist_error_pause"`
	BatchQuality       string        `mapstructure:"batch_quality"`
	NativeHost         bool          `mapstructure:"native_host"` // host already persists finished files
}

// DownloadConfig contains local export settings
type DownloadConfig struct {
	SaveDir     string `mapstructure:"save_dir"`
	InspectTags bool   `mapstructure:"inspect_tags"`
}

// LedgerConfig contains the task ledger settings
type LedgerConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	EventsDir  string `mapstructure:"events_dir"`  // categorized JSON event logs, empty to disable
}

// InMemoryLedger keeps the ledger for the lifetime of the process only
const InMemoryLedger = "file::memory:?cache=shared"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:        "http://localhost:8000",
			RequestTimeout: 90 * time.Second,
		},
		Session: SessionConfig{
			AutoSaveDelay:      500 * time.Millisecond,
			PlaylistSaveDelay:  1500 * time.Millisecond,
			PlaylistErrorPause: 2 * time.Second,
			BatchQuality:       DefaultQuality,
			NativeHost:         false,
		},
		Download: DownloadConfig{
			SaveDir:     "$HOME/Downloads/dyt",
			InspectTags: true,
		},
		Ledger: LedgerConfig{
			DatabasePath: InMemoryLedger,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "console",
			OutputPath: "stderr",
			EventsDir:  "",
		},
	}
}
