package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/dropkit-go/dropkit"
	"github.com/dropkit-go/dropkit/internal/config"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the upload server",
		Long: `Start the upload server.

Configuration is read from dropkit.yaml in the working directory
unless --config points elsewhere. Flags override the file.

Examples:
  dropkit serve
  dropkit serve --port=9090
  dropkit serve --config=/etc/dropkit/dropkit.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, port, host)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from dropkit.yaml)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from dropkit.yaml)")

	return cmd
}

func runServe(configPath string, port int, host string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	log := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg, err := appConfig(ctx, cfg, log)
	if err != nil {
		return err
	}

	app, err := dropkit.New(appCfg)
	if err != nil {
		return err
	}

	log.Info("starting server", "addr", cfg.Address())
	return app.Run(ctx, cfg.Address())
}

// appConfig translates the file configuration into a dropkit.Config,
// building S3 clients where buckets are set.
func appConfig(ctx context.Context, cfg *config.Config, log *slog.Logger) (dropkit.Config, error) {
	appCfg := dropkit.Config{
		Dropzone: dropkit.DropzoneConfig{
			MaxFiles:          cfg.Dropzone.MaxFiles,
			Multiple:          cfg.Dropzone.Multiple,
			EnableAddMore:     cfg.Dropzone.EnableAddMore,
			ErrorDismissAfter: cfg.Dropzone.ErrorDismissAfter.Std(),
		},
		Staging: dropkit.StagingConfig{
			Dir:             cfg.Staging.Dir,
			MaxFileSize:     cfg.Staging.MaxFileSize,
			TempExpiry:      cfg.Staging.TempExpiry.Std(),
			CleanupInterval: cfg.Staging.CleanupInterval.Std(),
		},
		Archive: dropkit.ArchiveConfig{
			Dir: cfg.Archive.Dir,
		},
		Session: dropkit.SessionConfig{
			ReadTimeout:       cfg.Session.ReadTimeout.Std(),
			WriteTimeout:      cfg.Session.WriteTimeout.Std(),
			HeartbeatInterval: cfg.Session.HeartbeatInterval.Std(),
			MaxEventQueue:     cfg.Session.MaxEventQueue,
		},
		Logger: log,
		OnBatchArchived: func(batchID string, filenames []string) {
			log.Info("batch archived", "batch_id", batchID, "files", filenames)
		},
	}

	if cfg.Staging.S3.Bucket != "" {
		client, err := s3Client(ctx, cfg.Staging.S3.Region)
		if err != nil {
			return dropkit.Config{}, err
		}
		appCfg.Staging.S3 = &dropkit.S3Config{
			Client: client,
			Bucket: cfg.Staging.S3.Bucket,
			Prefix: cfg.Staging.S3.Prefix,
		}
	}
	if cfg.Archive.S3.Bucket != "" {
		client, err := s3Client(ctx, cfg.Archive.S3.Region)
		if err != nil {
			return dropkit.Config{}, err
		}
		appCfg.Archive.S3 = &dropkit.S3Config{
			Client: client,
			Bucket: cfg.Archive.S3.Bucket,
			Prefix: cfg.Archive.S3.Prefix,
		}
	}

	return appCfg, nil
}

// s3Client builds a client from the default credential chain.
func s3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
