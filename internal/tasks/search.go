package tasks

import (
	"context"
	"fmt"
	"os"

	"photo-curator/internal/logging"
	"photo-curator/internal/vecstore"
	"photo-curator/internal/vision"
)

// SearchMatch is one ranked search hit.
type SearchMatch struct {
	Path        string  `json:"path"`
	Description string  `json:"description"`
	Distance    float64 `json:"distance"`
}

// VectorSearcher serves nearest-neighbor queries over the image index.
type VectorSearcher interface {
	SearchNearest(ctx context.Context, query []float32, limit int) ([]vecstore.SearchResult, error)
}

// Search embeds the query text and returns the closest indexed images.
// Records whose files have since been deleted are dropped from the
// results rather than shown as dead entries; the index itself is
// cleaned up lazily by a later re-index.
func Search(ctx context.Context, client *vision.Client, index VectorSearcher, query string, limit int) ([]SearchMatch, error) {
	embedding, err := client.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Over-fetch so dropped dead entries still leave a full page.
	results, err := index.SearchNearest(ctx, embedding, limit*2)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]SearchMatch, 0, limit)
	for _, r := range results {
		if _, err := os.Stat(r.Path); err != nil {
			logging.Debug("Dropping stale index entry %s: %v", r.Path, err)
			continue
		}
		matches = append(matches, SearchMatch{Path: r.Path, Description: r.Description, Distance: r.Distance})
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}
