// Package ratingstore caches image rating results in SQLite, keyed by
// file path and rating prompt hash.
package ratingstore
