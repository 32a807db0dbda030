package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"photo-curator/internal/tasks"
	"photo-curator/internal/vecstore"
)

func init() {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed images by description",
		Long: `Embeds the query text and returns the indexed images whose
descriptions are semantically closest to it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if app.cfg.PostgresDSN == "" {
				return fmt.Errorf("postgres_dsn is not configured; run 'photo-curator index' first")
			}
			store, err := vecstore.New(cmd.Context(), app.cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer store.Close()

			query := strings.Join(args, " ")
			matches, err := tasks.Search(cmd.Context(), app.client, store, query, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			for i, m := range matches {
				fmt.Fprintf(out, "%2d. %s (distance %.3f)\n    %s\n", i+1, m.Path, m.Distance, m.Description)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	rootCmd.AddCommand(cmd)
}
