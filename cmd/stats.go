package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"photo-curator/internal/ratingstore"
	"photo-curator/internal/vecstore"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store and cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			out := cmd.OutOrStdout()

			s := app.thumbs.Stats()
			fmt.Fprintf(out, "thumbnail cache: %d hits, %d misses, %d in memory\n",
				s.Hits, s.Misses, s.MemoryItems)

			ratings, err := ratingstore.New(cmd.Context(), app.cfg.RatingsPath)
			if err != nil {
				fmt.Fprintf(out, "ratings: unavailable (%v)\n", err)
			} else {
				defer ratings.Close()
				if n, err := ratings.Count(cmd.Context()); err == nil {
					fmt.Fprintf(out, "ratings: %d stored\n", n)
				} else {
					fmt.Fprintf(out, "ratings: unavailable (%v)\n", err)
				}
			}

			if app.cfg.PostgresDSN == "" {
				fmt.Fprintln(out, "index: not configured")
				return nil
			}
			index, err := vecstore.New(cmd.Context(), app.cfg.PostgresDSN)
			if err != nil {
				fmt.Fprintf(out, "index: unavailable (%v)\n", err)
				return nil
			}
			defer index.Close()
			if n, err := index.Count(cmd.Context()); err == nil {
				fmt.Fprintf(out, "index: %d images\n", n)
			} else {
				fmt.Fprintf(out, "index: unavailable (%v)\n", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(cmd)
}
