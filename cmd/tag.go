package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"photo-curator/internal/metadata"
	"photo-curator/internal/tasks"
	"photo-curator/internal/worker"
)

func init() {
	var flags scanFlags
	var numKeywords int
	var replace bool

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Generate and embed stock keywords",
		Long: `Generates keywords for every image with the vision model and embeds
them in the file's IPTC/XMP metadata via exiftool. By default generated
keywords are appended to existing ones; --replace overwrites them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyworder := metadata.NewExifTool()
			if err := keyworder.Available(); err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			items, err := flags.items()
			if err != nil {
				return err
			}

			w := tasks.NewTag(app.cfg, app.client, keyworder, numKeywords, !replace)
			_, err = runWorker(cmd, w, items, func(r worker.Result) string {
				if !r.OK {
					return fmt.Sprintf("FAIL %s: %s", r.Path, r.Reason)
				}
				if data, ok := r.Data.(tasks.TagData); ok {
					return fmt.Sprintf("%s: %s", r.Path, strings.Join(data.Keywords, ", "))
				}
				return ""
			})
			return err
		},
	}

	addScanFlags(cmd, &flags)
	cmd.Flags().IntVarP(&numKeywords, "keywords", "k", 20, "number of keywords to generate per image")
	cmd.Flags().BoolVar(&replace, "replace", false, "replace existing keywords instead of appending")
	rootCmd.AddCommand(cmd)
}
