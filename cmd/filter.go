package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"photo-curator/internal/tasks"
	"photo-curator/internal/worker"
)

func init() {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "filter <object>",
		Short: "Find images containing a given object",
		Long: `Asks the vision model, for every image in the folder, whether it
contains the named object, and lists the matches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			items, err := flags.items()
			if err != nil {
				return err
			}

			w := tasks.NewFilter(app.cfg, app.client, app.thumbs, args[0])
			matched := 0
			_, err = runWorker(cmd, w, items, func(r worker.Result) string {
				if !r.OK {
					return fmt.Sprintf("FAIL  %s: %s", r.Path, r.Reason)
				}
				if data, ok := r.Data.(tasks.FilterData); ok && data.Matched {
					matched++
					return fmt.Sprintf("MATCH %s", r.Path)
				}
				return ""
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d images contain a %s\n", matched, args[0])
			return nil
		},
	}

	addScanFlags(cmd, &flags)
	rootCmd.AddCommand(cmd)
}
