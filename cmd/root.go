package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"photo-curator/internal/config"
	"photo-curator/internal/logging"
	"photo-curator/internal/media"
	"photo-curator/internal/memwatch"
	"photo-curator/internal/metrics"
	"photo-curator/internal/scan"
	"photo-curator/internal/thumbcache"
	"photo-curator/internal/vision"
	"photo-curator/internal/worker"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "photo-curator",
	Short: "AI-assisted curation for image libraries",
	Long: `photo-curator filters, rates, tags, and indexes image folders using a
local vision model, with a persistent thumbnail cache and resumable
batch runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if verbose {
			logging.SetLevel(logging.LevelDebug)
		}
	},
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.photo-curator.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.String("api-host", "", "model service base URL")
	pf.String("api-type", "", "model API flavor (ollama or openai)")
	pf.String("vision-model", "", "vision model name")
	pf.Int("workers", 0, "parallel worker count")
	pf.String("metrics-addr", "", "address for the /metrics and /stats listener")

	viper.BindPFlag("api_host", pf.Lookup("api-host"))
	viper.BindPFlag("api_type", pf.Lookup("api-type"))
	viper.BindPFlag("vision_model", pf.Lookup("vision-model"))
	viper.BindPFlag("workers", pf.Lookup("workers"))
	viper.BindPFlag("metrics_addr", pf.Lookup("metrics-addr"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".photo-curator")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PHOTO_CURATOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logging.Debug("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
		logging.Warn("Could not read config file: %v", err)
	}
}

// app bundles the long-lived pieces a command needs. Close tears them
// down in reverse order, running the cache's disk cleanup pass last.
type app struct {
	cfg        *config.Config
	client     *vision.Client
	thumbs     *thumbcache.Cache
	watcher    *memwatch.Watcher
	metricsSrv *http.Server
}

type statsFunc func() any

func (f statsFunc) Stats() any { return f() }

func newApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	thumbs, err := thumbcache.New(cfg.CacheDir, cfg.MemoryCacheItems, cfg.DiskCacheBytes())
	if err != nil {
		return nil, err
	}

	media.InitVips()

	a := &app{
		cfg:     cfg,
		client:  vision.NewClient(cfg),
		thumbs:  thumbs,
		watcher: memwatch.New(thumbs.ClearMemory),
	}
	a.watcher.Start()
	if cfg.MetricsAddr != "" {
		a.metricsSrv = metrics.Serve(cfg.MetricsAddr, statsFunc(func() any { return thumbs.Stats() }))
	}
	return a, nil
}

func (a *app) Close() {
	if a.metricsSrv != nil {
		a.metricsSrv.Close()
	}
	a.watcher.Stop()
	a.thumbs.Close()
	media.ShutdownVips()
}

// scanFlags are the source-selection flags shared by the batch commands.
type scanFlags struct {
	folder    string
	recursive bool
	fileType  string
}

func addScanFlags(cmd *cobra.Command, f *scanFlags) {
	cmd.Flags().StringVarP(&f.folder, "folder", "f", "", "folder containing the images")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "include subfolders")
	cmd.Flags().StringVar(&f.fileType, "type", "both", "file type to process (png, jpg, or both)")
	cmd.MarkFlagRequired("folder")
}

func (f *scanFlags) items() ([]worker.Item, error) {
	switch scan.FileType(f.fileType) {
	case scan.TypeBoth, scan.TypePNG, scan.TypeJPG:
	default:
		return nil, fmt.Errorf("invalid --type %q (must be png, jpg, or both)", f.fileType)
	}

	paths, err := scan.Images(f.folder, scan.FileType(f.fileType), f.recursive)
	if err != nil {
		return nil, err
	}
	items := make([]worker.Item, len(paths))
	for i, p := range paths {
		items[i] = worker.Item{Path: p}
	}
	return items, nil
}

// runWorker drives a batch worker to completion, rendering its event
// stream and translating interrupts into a cooperative stop: the first
// Ctrl-C skips pending items and lets in-flight calls drain, the second
// aborts the process.
func runWorker(cmd *cobra.Command, w *worker.Worker, items []worker.Item, renderItem func(worker.Result) string) (worker.SummaryEvent, error) {
	if err := w.Start(cmd.Context(), items); err != nil {
		return worker.SummaryEvent{}, err
	}

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-sigs:
		case <-finished:
			return
		}
		fmt.Fprintln(os.Stderr, "\nStopping after in-flight items, Ctrl-C again to abort...")
		w.Stop()
		select {
		case <-sigs:
			os.Exit(1)
		case <-finished:
		}
	}()

	out := cmd.OutOrStdout()
	var summary worker.SummaryEvent
	for ev := range w.Events() {
		switch e := ev.(type) {
		case worker.StatusEvent:
			fmt.Fprintln(out, e.Message)
		case worker.ItemEvent:
			if line := renderItem(e.Result); line != "" {
				fmt.Fprintln(out, line)
			}
		case worker.ProgressEvent:
			fmt.Fprintf(out, "[%d/%d] skipped=%d eta=%s\n",
				e.Completed, e.Total, e.Skipped, formatETA(e.ETA))
		case worker.SummaryEvent:
			summary = e
		}
	}

	fmt.Fprintf(out, "Done in %s: %d ok, %d failed, %d skipped, %d from cache",
		summary.Elapsed.Round(time.Millisecond), summary.Succeeded, summary.Failed,
		summary.Skipped, summary.FromCache)
	if summary.Stopped {
		fmt.Fprint(out, " (stopped early)")
	}
	fmt.Fprintln(out)
	return summary, nil
}

func formatETA(eta time.Duration) string {
	if eta <= 0 {
		return "--"
	}
	return eta.Round(time.Second).String()
}
