package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"photo-curator/internal/tasks"
	"photo-curator/internal/vecstore"
	"photo-curator/internal/worker"
)

func init() {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index images for natural-language search",
		Long: `Describes every image with the vision model, embeds the description,
and stores the vector in Postgres. Already-indexed images are skipped,
so an interrupted run picks up where it left off.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if app.cfg.PostgresDSN == "" {
				return fmt.Errorf("postgres_dsn is not configured; indexing needs a Postgres with pgvector")
			}
			store, err := vecstore.New(cmd.Context(), app.cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer store.Close()

			dim := app.client.ProbeDimension(cmd.Context())
			if err := store.EnsureSchema(cmd.Context(), dim); err != nil {
				return err
			}

			items, err := flags.items()
			if err != nil {
				return err
			}

			w := tasks.NewIndex(app.cfg, app.client, store)
			_, err = runWorker(cmd, w, items, func(r worker.Result) string {
				if !r.OK {
					return fmt.Sprintf("FAIL %s: %s", r.Path, r.Reason)
				}
				return fmt.Sprintf("INDEXED %s", r.Path)
			})
			return err
		},
	}

	addScanFlags(cmd, &flags)
	rootCmd.AddCommand(cmd)
}
