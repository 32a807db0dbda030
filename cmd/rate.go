package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"photo-curator/internal/ratingstore"
	"photo-curator/internal/tasks"
	"photo-curator/internal/worker"
)

func init() {
	var flags scanFlags
	var promptFile string

	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Rate images for stock photography potential",
		Long: `Scores every image on technical quality, composition, commercial
appeal, uniqueness, and editorial value, and recommends KEEP, REVIEW,
or DELETE. Results are cached; a re-run with an unchanged prompt only
rates new images.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			customPrompt := ""
			if promptFile != "" {
				data, err := os.ReadFile(promptFile)
				if err != nil {
					return fmt.Errorf("failed to read prompt file: %w", err)
				}
				customPrompt = strings.TrimSpace(string(data))
			}

			store, err := ratingstore.New(cmd.Context(), app.cfg.RatingsPath)
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := flags.items()
			if err != nil {
				return err
			}

			w := tasks.NewRate(app.cfg, app.client, store, customPrompt)
			counts := map[string]int{}
			_, err = runWorker(cmd, w, items, func(r worker.Result) string {
				if !r.OK {
					return fmt.Sprintf("FAIL    %s: %s", r.Path, r.Reason)
				}
				rating, ok := r.Data.(ratingstore.Rating)
				if !ok {
					return ""
				}
				counts[rating.Recommendation]++
				cached := ""
				if r.FromCache {
					cached = " (cached)"
				}
				return fmt.Sprintf("%-7s %.1f  %s%s", rating.Recommendation, rating.Overall, r.Path, cached)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "KEEP: %d, REVIEW: %d, DELETE: %d\n",
				counts["KEEP"], counts["REVIEW"], counts["DELETE"])
			return nil
		},
	}

	addScanFlags(cmd, &flags)
	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "file containing a custom rating prompt")
	rootCmd.AddCommand(cmd)
}
