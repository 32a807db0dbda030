package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the thumbnail cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show thumbnail cache counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			s := app.thumbs.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "hits: %d\nmisses: %d\nmemory items: %d\n",
				s.Hits, s.Misses, s.MemoryItems)
			return nil
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Enforce the disk cache byte budget now",
		Long: `Deletes the oldest disk cache entries until the cache fits the
configured budget. This pass also runs automatically at shutdown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			remaining, deleted := app.thumbs.Cleanup()
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries, %d bytes remaining (budget %d)\n",
				deleted, remaining, app.cfg.DiskCacheBytes())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached thumbnail",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			app.thumbs.ClearMemory()
			app.thumbs.ClearDisk()
			fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
			return nil
		},
	}

	cacheCmd.AddCommand(statsCmd, cleanupCmd, clearCmd)
	rootCmd.AddCommand(cacheCmd)
}
