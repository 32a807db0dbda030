package thumbcache

import (
	"crypto/md5" //nolint:gosec // cache key derivation, not security
	"fmt"
	"os"
)

// DeriveKey computes the cache key for a (source path, square size) pair.
// The key covers the file's modification time, so touching a file orphans
// its previously cached thumbnails instead of serving stale ones.
//
// A file that cannot be stat-ed gets mtime 0 rather than an error: the
// cache is not the system of record, and colliding keys for missing files
// are harmless.
func DeriveKey(path string, size int) string {
	var mtime int64
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime().UnixNano()
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%s_%d_%d", path, mtime, size)))) //nolint:gosec
}
