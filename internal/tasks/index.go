package tasks

import (
	"context"
	"fmt"

	"photo-curator/internal/config"
	"photo-curator/internal/logging"
	"photo-curator/internal/media"
	"photo-curator/internal/vision"
	"photo-curator/internal/worker"
)

const describePrompt = "Describe this image in detail in English. Focus on objects, colors, setting, and mood."

// IndexData is the per-item payload of an index run.
type IndexData struct {
	Description string `json:"description"`
}

// VectorIndex is the persistence the index worker needs: a snapshot of
// already-indexed paths before the pool starts and per-item inserts.
type VectorIndex interface {
	IndexedPaths(ctx context.Context) (map[string]bool, error)
	Add(ctx context.Context, path, description string, embedding []float32) error
}

// NewIndex builds the worker that describes each image with the vision
// model, embeds the description, and stores the vector for search.
// Already-indexed paths are skipped; the indexed set is snapshotted once
// before parallel work starts so a run never double-processes a path.
func NewIndex(cfg *config.Config, client *vision.Client, index VectorIndex) *worker.Worker {
	prefilter := func(ctx context.Context, items []worker.Item) ([]worker.Item, []worker.Result, error) {
		indexed, err := index.IndexedPaths(ctx)
		if err != nil {
			return nil, nil, err
		}
		logging.Debug("Index snapshot: %d paths already indexed", len(indexed))

		var remaining []worker.Item
		for _, item := range items {
			if !indexed[item.Path] {
				remaining = append(remaining, item)
			}
		}
		return remaining, nil, nil
	}

	process := func(ctx context.Context, item worker.Item) worker.Result {
		encoded, err := media.ResizeAndEncode(item.Path, cfg.MaxImageSize)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("encode failed: %v", err)}
		}

		description, err := client.Generate(ctx, describePrompt, encoded)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("describe failed: %v", err)}
		}
		if description == "" {
			return worker.Result{Path: item.Path, Reason: "model returned an empty description"}
		}

		embedding, err := client.Embed(ctx, description)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("embed failed: %v", err)}
		}

		if err := index.Add(ctx, item.Path, description, embedding); err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("store failed: %v", err)}
		}
		return worker.Result{Path: item.Path, OK: true, Data: IndexData{Description: description}}
	}

	return worker.New("index", cfg.Workers, process, worker.WithPrefilter(prefilter))
}
