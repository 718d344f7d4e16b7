package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "dropkit.yaml"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default bind host.
	DefaultHost = "0.0.0.0"
)

// Config represents the complete dropkit.yaml configuration.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `yaml:"server"`

	// Dropzone contains control settings.
	Dropzone DropzoneConfig `yaml:"dropzone"`

	// Staging contains temp store settings.
	Staging StagingConfig `yaml:"staging"`

	// Archive contains batch archive settings.
	Archive ArchiveConfig `yaml:"archive"`

	// Session contains WebSocket session settings.
	Session SessionConfig `yaml:"session"`

	// Log contains logging settings.
	Log LogConfig `yaml:"log"`

	// configPath stores where the config was loaded from.
	configPath string
}

// Duration is a time.Duration that YAML-decodes from strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the bind host.
	Host string `yaml:"host"`

	// Port is the listen port.
	Port int `yaml:"port"`
}

// DropzoneConfig contains control settings.
type DropzoneConfig struct {
	// MaxFiles is the exact number of files a submission requires.
	MaxFiles int `yaml:"max_files"`

	// Multiple allows multi-select in the native file picker.
	Multiple bool `yaml:"multiple"`

	// EnableAddMore shows the secondary add-file affordance.
	EnableAddMore bool `yaml:"enable_add_more"`

	// ErrorDismissAfter is how long error messages stay visible.
	ErrorDismissAfter Duration `yaml:"error_dismiss_after"`
}

// StagingConfig contains temp store settings.
type StagingConfig struct {
	// Dir is the local staging directory.
	Dir string `yaml:"dir"`

	// MaxFileSize bounds each staged file in bytes.
	MaxFileSize int64 `yaml:"max_file_size"`

	// TempExpiry is how long unclaimed staged files live.
	TempExpiry Duration `yaml:"temp_expiry"`

	// CleanupInterval is how often the sweep runs.
	CleanupInterval Duration `yaml:"cleanup_interval"`

	// S3 stages uploads in S3 when Bucket is set.
	S3 S3Config `yaml:"s3"`
}

// ArchiveConfig contains batch archive settings.
type ArchiveConfig struct {
	// Dir is the local archive directory.
	Dir string `yaml:"dir"`

	// S3 archives batches in S3 when Bucket is set.
	S3 S3Config `yaml:"s3"`
}

// S3Config points a store or archive at an S3 bucket.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// SessionConfig contains WebSocket session settings.
type SessionConfig struct {
	ReadTimeout       Duration `yaml:"read_timeout"`
	WriteTimeout      Duration `yaml:"write_timeout"`
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`
	MaxEventQueue     int      `yaml:"max_event_queue"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Dropzone: DropzoneConfig{
			MaxFiles:          1,
			ErrorDismissAfter: Duration(4 * time.Second),
		},
		Staging: StagingConfig{
			Dir:             "uploads/staging",
			MaxFileSize:     10 << 20,
			TempExpiry:      Duration(time.Hour),
			CleanupInterval: Duration(5 * time.Minute),
		},
		Archive: ArchiveConfig{
			Dir: "uploads/batches",
		},
		Session: SessionConfig{
			ReadTimeout:       Duration(60 * time.Second),
			WriteTimeout:      Duration(10 * time.Second),
			HeartbeatInterval: Duration(30 * time.Second),
			MaxEventQueue:     64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory, looking for
// dropkit.yaml.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. A missing
// file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from, if any.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	def := New()

	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Dropzone.MaxFiles == 0 {
		c.Dropzone.MaxFiles = def.Dropzone.MaxFiles
	}
	if c.Dropzone.ErrorDismissAfter == 0 {
		c.Dropzone.ErrorDismissAfter = def.Dropzone.ErrorDismissAfter
	}
	if c.Staging.Dir == "" {
		c.Staging.Dir = def.Staging.Dir
	}
	if c.Staging.MaxFileSize == 0 {
		c.Staging.MaxFileSize = def.Staging.MaxFileSize
	}
	if c.Staging.TempExpiry == 0 {
		c.Staging.TempExpiry = def.Staging.TempExpiry
	}
	if c.Staging.CleanupInterval == 0 {
		c.Staging.CleanupInterval = def.Staging.CleanupInterval
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = def.Archive.Dir
	}
	if c.Session.ReadTimeout == 0 {
		c.Session.ReadTimeout = def.Session.ReadTimeout
	}
	if c.Session.WriteTimeout == 0 {
		c.Session.WriteTimeout = def.Session.WriteTimeout
	}
	if c.Session.HeartbeatInterval == 0 {
		c.Session.HeartbeatInterval = def.Session.HeartbeatInterval
	}
	if c.Session.MaxEventQueue == 0 {
		c.Session.MaxEventQueue = def.Session.MaxEventQueue
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Dropzone.MaxFiles < 1 {
		return fmt.Errorf("dropzone.max_files must be at least 1, got %d", c.Dropzone.MaxFiles)
	}
	if c.Staging.MaxFileSize < 0 {
		return fmt.Errorf("staging.max_file_size must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}
	return nil
}

// Address returns the listen address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
