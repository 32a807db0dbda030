package tasks

import (
	"context"
	"fmt"

	"photo-curator/internal/config"
	"photo-curator/internal/logging"
	"photo-curator/internal/media"
	"photo-curator/internal/thumbcache"
	"photo-curator/internal/vision"
	"photo-curator/internal/worker"
)

// FilterData is the per-item payload of a filter run.
type FilterData struct {
	Matched bool `json:"matched"`
}

// NewFilter builds the worker that asks the vision model whether each
// image contains the named object. Matched images get their thumbnails
// warmed so a follow-up review pass renders instantly; thumbs may be
// nil to skip warming.
func NewFilter(cfg *config.Config, client *vision.Client, thumbs *thumbcache.Cache, object string) *worker.Worker {
	process := func(ctx context.Context, item worker.Item) worker.Result {
		encoded, err := media.ResizeAndEncode(item.Path, cfg.MaxImageSize)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("encode failed: %v", err)}
		}

		matched, err := client.AskYesNo(ctx, object, encoded)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("model call failed: %v", err)}
		}

		if matched && thumbs != nil {
			if _, err := thumbs.GetOrCreate(item.Path, cfg.ThumbnailSize, media.Thumbnail); err != nil {
				logging.Warn("Thumbnail warm failed for %s: %v", item.Path, err)
			}
		}

		return worker.Result{Path: item.Path, OK: true, Data: FilterData{Matched: matched}}
	}

	return worker.New("filter", cfg.Workers, process)
}
