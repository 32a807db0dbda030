package thumbcache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"photo-curator/internal/logging"
	"photo-curator/internal/metrics"
)

// diskTier persists encoded thumbnails as one JPEG file per cache key.
// Files are independently readable and deletable; a corrupt or missing
// file is just a miss.
type diskTier struct {
	dir string
}

func newDiskTier(dir string) (*diskTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &diskTier{dir: dir}, nil
}

func (d *diskTier) path(key string) string {
	return filepath.Join(d.dir, key+".jpg")
}

// read returns the encoded bytes for key, or nil when absent.
func (d *diskTier) read(key string) []byte {
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		return nil
	}
	return data
}

// write persists encoded bytes under the key. Failure is logged and
// reported but never fatal: the caller proceeds as if nothing was cached.
func (d *diskTier) write(key string, data []byte) bool {
	if err := os.WriteFile(d.path(key), data, 0o644); err != nil {
		logging.Warn("Failed to write thumbnail to disk cache: %v", err)
		return false
	}
	return true
}

// remove deletes a single cached entry, tolerating its absence.
func (d *diskTier) remove(key string) {
	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		logging.Debug("Failed to remove cache file %s: %v", key, err)
	}
}

type cacheFile struct {
	path    string
	size    int64
	modTime time.Time
}

// cleanup scans the cache directory and deletes entries oldest-mtime-first
// until the aggregate size is under budget. The newest entry is always
// retained, so a single entry larger than the budget stays in place.
// Files that fail to delete are skipped. Returns bytes remaining and the
// number of files deleted.
func (d *diskTier) cleanup(budget int64) (int64, int) {
	files, total := d.scan()
	metrics.DiskCacheBytes.Set(float64(total))

	if total <= budget {
		return total, 0
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	deleted := 0
	for _, f := range files {
		if total <= budget || deleted == len(files)-1 {
			break
		}
		if err := os.Remove(f.path); err != nil {
			logging.Warn("Cleanup could not delete %s: %v", f.path, err)
			continue
		}
		total -= f.size
		deleted++
		metrics.DiskCacheEvictionsTotal.Inc()
	}

	logging.Info("Disk cache cleanup: deleted %d files, %d bytes remain (budget %d)", deleted, total, budget)
	metrics.DiskCacheBytes.Set(float64(total))
	return total, deleted
}

// clear deletes every cached entry.
func (d *diskTier) clear() {
	files, _ := d.scan()
	for _, f := range files {
		if err := os.Remove(f.path); err != nil {
			logging.Debug("Failed to remove %s: %v", f.path, err)
		}
	}
	metrics.DiskCacheBytes.Set(0)
}

// scan lists all cache entries with their sizes and modification times.
func (d *diskTier) scan() ([]cacheFile, int64) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		logging.Warn("Failed to scan cache dir %s: %v", d.dir, err)
		return nil, 0
	}

	var files []cacheFile
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{
			path:    filepath.Join(d.dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	return files, total
}
