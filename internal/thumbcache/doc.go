// Package thumbcache implements the two-tier thumbnail cache.
//
// Keys are derived from the source path, its modification time, and the
// requested square size, so edits to a file implicitly orphan its old
// entries. The memory tier is a bounded LRU of decoded images; the disk
// tier holds one encoded JPEG per key under a dedicated directory and is
// bounded by a byte budget enforced in explicit batched cleanup passes.
// The Cache façade unifies lookup and population behind a single
// get-or-create contract and tolerates every cache-tier failure by
// recomputing from source.
package thumbcache
