package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"photo-map/internal/logging"
	"photo-map/internal/startup"
)

type options struct {
	photosDir     string
	thumbnailsDir string
	logLevel      string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "thumbgen",
		Short:         "Generate photo thumbnails and clusters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.apply()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.photosDir, "photos", "", "Photos directory (overrides PHOTOS_DIR)")
	rootCmd.PersistentFlags().StringVar(&opts.thumbnailsDir, "thumbnails", "", "Thumbnail directory (overrides THUMBNAIL_DIR)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newCleanCommand())

	return rootCmd
}

// apply exports flag values to the environment read by startup.LoadConfig.
func (o *options) apply() error {
	if o.logLevel != "" {
		level, ok := logging.ParseLevel(o.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", o.logLevel)
		}
		logging.SetLevel(level)
	}

	if o.photosDir != "" {
		if err := os.Setenv("PHOTOS_DIR", o.photosDir); err != nil {
			return err
		}
	}
	if o.thumbnailsDir != "" {
		if err := os.Setenv("THUMBNAIL_DIR", o.thumbnailsDir); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig() (*startup.Config, error) {
	config, err := startup.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return config, nil
}

// isTerminal reports whether out is an interactive terminal.
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
