// Package metadata reads and writes image keyword metadata through the
// external exiftool binary.
package metadata
