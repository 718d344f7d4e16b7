package dropkit

import (
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dropkit-go/dropkit/pkg/dropzone"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the main application configuration. This is the
// user-friendly entry point for configuring a dropkit app.
type Config struct {
	// Dropzone configures each session's control.
	Dropzone DropzoneConfig

	// Staging configures the temp store behind the upload endpoint.
	Staging StagingConfig

	// Archive configures the durable batch destination.
	Archive ArchiveConfig

	// Session configures WebSocket session behavior.
	Session SessionConfig

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// OnBatchArchived is called after a submitted batch lands in the
	// archive, with the batch ID and the archived filenames. Use it to
	// kick off downstream processing.
	OnBatchArchived func(batchID string, filenames []string)
}

// DropzoneConfig configures the selection control.
type DropzoneConfig struct {
	// MaxFiles is the exact number of files a submission requires.
	// Default: 1.
	MaxFiles int

	// Multiple allows multi-select in the native file picker.
	Multiple bool

	// EnableAddMore shows the secondary add-file affordance below
	// capacity.
	EnableAddMore bool

	// ErrorDismissAfter overrides how long error messages stay
	// visible. Default: 4 seconds.
	ErrorDismissAfter time.Duration
}

// StagingConfig configures the temp upload store.
type StagingConfig struct {
	// Dir is the local staging directory. Default: "uploads/staging".
	// Ignored when S3 is set.
	Dir string

	// MaxFileSize bounds each staged file in bytes. Default: 10MB.
	MaxFileSize int64

	// TempExpiry is how long unclaimed staged files live.
	// Default: 1 hour.
	TempExpiry time.Duration

	// CleanupInterval is how often the sweep runs. Default: 5 minutes.
	CleanupInterval time.Duration

	// S3 stages uploads in S3 instead of local disk.
	S3 *S3Config
}

// ArchiveConfig configures the batch archive.
type ArchiveConfig struct {
	// Dir is the local archive directory. Default: "uploads/batches".
	// Ignored when S3 is set.
	Dir string

	// S3 archives batches in S3 instead of local disk.
	S3 *S3Config
}

// S3Config points a store or archive at an S3 bucket. The client is
// injected so credentials and region stay the caller's concern.
type S3Config struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

// SessionConfig configures WebSocket session behavior.
type SessionConfig struct {
	// ReadTimeout is the socket read deadline. Default: 60s.
	ReadTimeout time.Duration

	// WriteTimeout is the socket write deadline. Default: 10s.
	WriteTimeout time.Duration

	// HeartbeatInterval is the ping period. Default: 30s.
	HeartbeatInterval time.Duration

	// MaxEventQueue bounds the per-session event queue. Default: 64.
	MaxEventQueue int
}

// =============================================================================
// Default Configurations
// =============================================================================

// DefaultConfig returns a Config with the package defaults.
func DefaultConfig() Config {
	return Config{
		Dropzone: DefaultDropzoneConfig(),
		Staging:  DefaultStagingConfig(),
		Archive:  DefaultArchiveConfig(),
		Session:  DefaultSessionConfig(),
	}
}

// DefaultDropzoneConfig returns a DropzoneConfig with the package
// defaults.
func DefaultDropzoneConfig() DropzoneConfig {
	return DropzoneConfig{
		MaxFiles:          1,
		ErrorDismissAfter: 4 * time.Second,
	}
}

// DefaultStagingConfig returns a StagingConfig with the package
// defaults.
func DefaultStagingConfig() StagingConfig {
	return StagingConfig{
		Dir:             "uploads/staging",
		MaxFileSize:     10 << 20,
		TempExpiry:      time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

// DefaultArchiveConfig returns an ArchiveConfig with the package
// defaults.
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Dir: "uploads/batches",
	}
}

// DefaultSessionConfig returns a SessionConfig with the package
// defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxEventQueue:     64,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Dropzone.MaxFiles <= 0 {
		c.Dropzone.MaxFiles = def.Dropzone.MaxFiles
	}
	if c.Dropzone.ErrorDismissAfter <= 0 {
		c.Dropzone.ErrorDismissAfter = def.Dropzone.ErrorDismissAfter
	}
	if c.Staging.Dir == "" {
		c.Staging.Dir = def.Staging.Dir
	}
	if c.Staging.MaxFileSize <= 0 {
		c.Staging.MaxFileSize = def.Staging.MaxFileSize
	}
	if c.Staging.TempExpiry <= 0 {
		c.Staging.TempExpiry = def.Staging.TempExpiry
	}
	if c.Staging.CleanupInterval <= 0 {
		c.Staging.CleanupInterval = def.Staging.CleanupInterval
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = def.Archive.Dir
	}
	if c.Session.ReadTimeout <= 0 {
		c.Session.ReadTimeout = def.Session.ReadTimeout
	}
	if c.Session.WriteTimeout <= 0 {
		c.Session.WriteTimeout = def.Session.WriteTimeout
	}
	if c.Session.HeartbeatInterval <= 0 {
		c.Session.HeartbeatInterval = def.Session.HeartbeatInterval
	}
	if c.Session.MaxEventQueue <= 0 {
		c.Session.MaxEventQueue = def.Session.MaxEventQueue
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// dropzoneConfig translates the user-facing settings into the control's
// configuration, minus the Upload collaborator which the app wires.
func (c *Config) dropzoneConfig() dropzone.Config {
	return dropzone.Config{
		Multiple:      c.Dropzone.Multiple,
		MaxFiles:      c.Dropzone.MaxFiles,
		EnableAddMore: c.Dropzone.EnableAddMore,
		DismissAfter:  c.Dropzone.ErrorDismissAfter,
	}
}
