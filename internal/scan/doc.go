// Package scan collects source image files for batch processing.
package scan
