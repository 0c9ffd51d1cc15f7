package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"photo-map/internal/media"
)

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove thumbnails whose source photo no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			removed, err := media.ReconcileOrphans(config.PhotosDir, config.ThumbnailDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range removed {
				fmt.Fprintln(out, "removed", name)
			}
			fmt.Fprintf(out, "%d orphaned thumbnail(s) removed\n", len(removed))
			return nil
		},
	}
}
