package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"photo-curator/internal/logging"
)

// FileType selects which image extensions a scan collects.
type FileType string

const (
	// TypeBoth collects PNG and JPEG sources.
	TypeBoth FileType = "both"
	// TypePNG collects only PNG sources.
	TypePNG FileType = "png"
	// TypeJPG collects only JPEG sources.
	TypeJPG FileType = "jpg"
)

func (t FileType) extensions() []string {
	switch t {
	case TypePNG:
		return []string{".png"}
	case TypeJPG:
		return []string{".jpg", ".jpeg"}
	default:
		return []string{".png", ".jpg", ".jpeg"}
	}
}

// Images collects the image files under folder, optionally recursing
// into subfolders. A missing or unreadable folder is a batch-fatal
// precondition and returns an error; unreadable entries below it are
// skipped with a log line.
func Images(folder string, fileType FileType, includeSubfolders bool) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("folder not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a folder", folder)
	}

	exts := make(map[string]bool)
	for _, ext := range fileType.extensions() {
		exts[ext] = true
	}

	var files []string
	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Error accessing %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if !includeSubfolders && path != folder {
				return filepath.SkipDir
			}
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(d.Name()))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk failed: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
