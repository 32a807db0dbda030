package metadata

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"photo-curator/internal/logging"
)

const commandTimeout = 30 * time.Second

// Keyworder reads and writes keyword metadata on image files.
type Keyworder interface {
	Read(ctx context.Context, path string) ([]string, error)
	Write(ctx context.Context, path string, keywords []string) error
}

// ExifTool shells out to the exiftool binary for IPTC keyword access.
// Keywords land in both IPTC:Keywords and XMP:Subject so Lightroom,
// Bridge, and stock-agency ingest tools all see them.
type ExifTool struct {
	binary string

	checkOnce sync.Once
	checkErr  error
}

// NewExifTool returns a Keyworder backed by the exiftool binary on PATH.
func NewExifTool() *ExifTool {
	return &ExifTool{binary: "exiftool"}
}

// Available reports whether the exiftool binary can be found. The check
// runs once and is cached.
func (e *ExifTool) Available() error {
	e.checkOnce.Do(func() {
		if _, err := exec.LookPath(e.binary); err != nil {
			e.checkErr = fmt.Errorf("exiftool not found on PATH: %w", err)
		}
	})
	return e.checkErr
}

// Read returns the keywords currently stored on the file. A file with
// no keyword tag yields an empty slice, not an error.
func (e *ExifTool) Read(ctx context.Context, path string) ([]string, error) {
	if err := e.Available(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	// -sep forces a predictable list separator, -s3 prints bare values.
	cmd := exec.CommandContext(ctx, e.binary, "-s3", "-sep", ";;", "-Keywords", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("exiftool read failed for %s: %w (%s)", path, err, strings.TrimSpace(string(out)))
	}
	return ParseKeywordList(string(out)), nil
}

// Write replaces the file's keywords. exiftool rewrites the file in
// place; -overwrite_original avoids littering _original backups.
func (e *ExifTool) Write(ctx context.Context, path string, keywords []string) error {
	if err := e.Available(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	args := []string{"-overwrite_original", "-Keywords=", "-XMP:Subject="}
	for _, kw := range keywords {
		args = append(args, "-Keywords+="+kw, "-XMP:Subject+="+kw)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("exiftool write failed for %s: %w (%s)", path, err, strings.TrimSpace(string(out)))
	}
	logging.Debug("Wrote %d keywords to %s", len(keywords), path)
	return nil
}

// ParseKeywordList splits exiftool's ";;"-separated keyword output into
// trimmed, non-empty keywords.
func ParseKeywordList(out string) []string {
	out = strings.TrimSpace(out)
	if out == "" {
		return []string{}
	}
	var keywords []string
	for _, part := range strings.Split(out, ";;") {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if keywords == nil {
		return []string{}
	}
	return keywords
}

// Merge appends the new keywords to existing ones, dropping duplicates
// case-insensitively while preserving first-seen order and casing.
func Merge(existing, added []string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, kw := range append(append([]string{}, existing...), added...) {
		key := strings.ToLower(strings.TrimSpace(kw))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, strings.TrimSpace(kw))
	}
	return merged
}
