package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dropkit-go/dropkit/internal/config"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default dropkit.yaml",
		Long: `Write a dropkit.yaml with default values to the working directory.

Edit the file to set the batch size, storage directories, and S3
buckets, then start the server with "dropkit serve".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Exists(".") && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", config.ConfigFileName)
			}
			cfg := config.New()
			if err := cfg.SaveTo(config.ConfigFileName); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %s\n", config.ConfigFileName)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}
