// Package tasks builds the batch workers for the curation operations:
// object filtering, stock rating, keyword tagging, semantic indexing,
// and natural-language search.
package tasks
