package thumbcache

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"photo-curator/internal/logging"
	"photo-curator/internal/metrics"
)

// jpegQuality is the encode quality for disk-cached thumbnails.
const jpegQuality = 85

// RenderFunc decodes and scales a source image into a thumbnail bounded
// by the given square size. It is only invoked on a full cache miss.
type RenderFunc func(path string, size int) (image.Image, error)

// Stats is a snapshot of the façade's hit/miss counters.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	MemoryItems int    `json:"memory_items"`
}

// Cache is the two-tier thumbnail cache: a bounded in-memory LRU of
// decoded thumbnails backed by a byte-budgeted disk cache of encoded
// JPEGs. It is safe for concurrent use; construct it once and pass it
// by reference to every worker that needs thumbnails.
type Cache struct {
	mu         sync.Mutex
	mem        *memoryTier
	disk       *diskTier
	diskBudget int64

	hits   uint64
	misses uint64
}

// New creates a thumbnail cache storing encoded entries under dir,
// holding at most memItems decoded thumbnails in memory, and bounding
// the disk tier to diskBudget bytes (enforced by Cleanup, not per write).
func New(dir string, memItems int, diskBudget int64) (*Cache, error) {
	mem, err := newMemoryTier(memItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	disk, err := newDiskTier(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache at %s: %w", dir, err)
	}
	logging.Debug("Thumbnail cache ready: dir=%s memory=%d diskBudget=%d", dir, memItems, diskBudget)
	return &Cache{mem: mem, disk: disk, diskBudget: diskBudget}, nil
}

// GetOrCreate returns the thumbnail for (path, size), consulting the
// memory tier, then the disk tier, and finally invoking render against
// the source file. A successful render populates both tiers; a failed
// render is returned as an error and cached nowhere, so a source that is
// still being written can succeed on a later attempt.
func (c *Cache) GetOrCreate(path string, size int, render RenderFunc) (image.Image, error) {
	key := DeriveKey(path, size)

	c.mu.Lock()
	defer c.mu.Unlock()

	if img, ok := c.mem.get(key); ok {
		c.hits++
		metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
		return img, nil
	}

	if data := c.disk.read(key); data != nil {
		img, err := imaging.Decode(bytes.NewReader(data))
		if err == nil {
			c.mem.put(key, img)
			c.hits++
			metrics.CacheHitsTotal.WithLabelValues("disk").Inc()
			return img, nil
		}
		// Corrupt cache file: drop it and fall through to a re-render.
		logging.Debug("Corrupt disk cache entry %s: %v", key, err)
		c.disk.remove(key)
	}

	c.misses++
	metrics.CacheMissesTotal.Inc()

	img, err := render(path, size)
	if err != nil {
		return nil, fmt.Errorf("thumbnail render failed for %s: %w", path, err)
	}
	if img == nil {
		return nil, fmt.Errorf("thumbnail render returned no image for %s", path)
	}

	c.mem.put(key, img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		logging.Warn("Failed to encode thumbnail for disk cache: %v", err)
		return img, nil
	}
	c.disk.write(key, buf.Bytes())

	return img, nil
}

// Stats returns a snapshot of the running hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, MemoryItems: c.mem.len()}
}

// Cleanup enforces the disk byte budget, evicting oldest entries first.
// It is invoked explicitly (shutdown or the cache cleanup command), not
// per write; a long session may temporarily exceed the budget.
func (c *Cache) Cleanup() (bytesRemaining int64, deleted int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disk.cleanup(c.diskBudget)
}

// ClearMemory empties the in-memory tier.
func (c *Cache) ClearMemory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem.clear()
}

// ClearDisk deletes every entry in the disk tier.
func (c *Cache) ClearDisk() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disk.clear()
}

// Close tears the cache down, running a final disk cleanup pass.
func (c *Cache) Close() {
	c.Cleanup()
}
