package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"photo-map/internal/indexer"
	"photo-map/internal/media"
	"photo-map/internal/startup"
)

func newGenerateCommand() *cobra.Command {
	var normalize bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write missing thumbnails, remove orphans and cluster the photos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			if normalize {
				if err := config.EnableNormalization(); err != nil {
					return err
				}
			}
			pipeline, err := startup.BuildPipeline(config, nil)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput || !isTerminal(out) {
				return writeResultJSON(out, result)
			}
			printSummary(out, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&normalize, "normalize", false, "Rename and downscale sources by capture time")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run result and clusters as JSON")

	return cmd
}

// runOutput is the machine-readable form of a run.
type runOutput struct {
	*indexer.Result
	Clusters [][]media.PhotoRecord `json:"clusters"`
}

func writeResultJSON(out io.Writer, result *indexer.Result) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(runOutput{Result: result, Clusters: result.Clusters})
}

func printSummary(out io.Writer, result *indexer.Result) {
	s := result.Stats
	fmt.Fprintf(out, "Run %s finished in %v\n", result.RunID, result.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Photos:      %d listed, %d kept, %d dropped, %d without GPS\n", s.Files, s.Records, s.Dropped, s.WithoutGPS)
	fmt.Fprintf(out, "  Thumbnails:  %d generated, %d skipped, %d failed\n", s.ThumbnailsGenerated, s.ThumbnailsSkipped, s.ThumbnailErrors)
	if s.Normalized > 0 {
		fmt.Fprintf(out, "  Normalized:  %d\n", s.Normalized)
	}
	if s.Timeouts > 0 {
		fmt.Fprintf(out, "  Timed out:   %d\n", s.Timeouts)
	}
	fmt.Fprintf(out, "  Orphans:     %d removed\n", s.OrphansRemoved)
	fmt.Fprintf(out, "  Clusters:    %d\n", s.Clusters)
	for i, c := range result.Clusters {
		if len(c) == 0 {
			continue
		}
		fmt.Fprintf(out, "    #%d  %d photo(s) at %.4f,%.4f\n", i+1, len(c), c[0].Latitude, c[0].Longitude)
	}
}
