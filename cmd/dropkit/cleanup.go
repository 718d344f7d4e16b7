package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropkit-go/dropkit/internal/config"
	"github.com/dropkit-go/dropkit/pkg/upload"
)

func cleanupCmd() *cobra.Command {
	var (
		configPath string
		maxAge     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired staged files",
		Long: `Remove staged files older than the configured expiry.

The running server sweeps the staging area on its own schedule; this
command runs a single sweep, for cron jobs or after a crash.

Examples:
  dropkit cleanup
  dropkit cleanup --max-age=10m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd.Context(), configPath, maxAge)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to config file")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Expiry override (default from dropkit.yaml)")

	return cmd
}

func runCleanup(ctx context.Context, configPath string, maxAge time.Duration) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if maxAge == 0 {
		maxAge = cfg.Staging.TempExpiry.Std()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var store upload.Store
	if cfg.Staging.S3.Bucket != "" {
		client, err := s3Client(ctx, cfg.Staging.S3.Region)
		if err != nil {
			return err
		}
		store = upload.NewS3Store(client, cfg.Staging.S3.Bucket, cfg.Staging.S3.Prefix, cfg.Staging.MaxFileSize)
	} else {
		store, err = upload.NewDiskStore(cfg.Staging.Dir, cfg.Staging.MaxFileSize, cfg.Staging.TempExpiry.Std())
		if err != nil {
			return err
		}
	}

	removed, err := store.Cleanup(ctx, maxAge)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d expired staged file(s)\n", removed)
	return nil
}
