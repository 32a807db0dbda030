package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// ResizeAndEncode prepares an image for a vision RPC call: decoded,
// shrunk to fit within maxSize, re-encoded as JPEG quality 85, and
// base64-encoded. Alpha is flattened to white so RGBA sources survive
// the JPEG round trip.
func ResizeAndEncode(path string, maxSize int) (string, error) {
	var img image.Image
	var err error

	if img, err = loadWithVips(path, maxSize, maxSize); err != nil {
		img, err = decode(path)
		if err != nil {
			return "", err
		}
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}

	flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), image.White.C)
	flat = imaging.Overlay(flat, img, image.Point{}, 1.0)

	data, err := EncodeJPEG(flat, 85)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
