package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"photo-curator/internal/logging"
)

// imageExts are the source extensions the batch tasks operate on.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".bmp": true, ".webp": true,
	".tiff": true, ".tif": true,
}

// IsImage reports whether path looks like a supported source image.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Thumbnail decodes the image at path and scales it to fit within a
// size x size bounding box, preserving aspect ratio. The libvips path is
// preferred when initialized; decoding falls back to the pure-Go chain.
func Thumbnail(path string, size int) (image.Image, error) {
	if img, err := loadWithVips(path, size, size); err == nil {
		return img, nil
	}

	img, err := decode(path)
	if err != nil {
		return nil, err
	}
	return imaging.Fit(img, size, size, imaging.Lanczos), nil
}

// decode opens an image with auto-orientation, falling back to the
// stdlib decoder registry when imaging cannot handle the file.
func decode(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	logging.Debug("imaging.Open failed for %s: %v, trying stdlib decode", path, err)

	file, err2 := os.Open(path)
	if err2 != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err2)
	}
	defer file.Close()

	img, format, err2 := image.Decode(file)
	if err2 != nil {
		return nil, fmt.Errorf("all decode methods failed for %s: %w", path, err)
	}
	logging.Debug("Decoded %s as %s via stdlib fallback", path, format)
	return img, nil
}
