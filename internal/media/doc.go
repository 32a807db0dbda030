// Package media handles image decoding and scaling: thumbnail rendering
// for the cache façade and size-capped base64 JPEG payloads for the
// vision service. Decoding prefers libvips (decode-time shrinking) and
// falls back to the pure-Go imaging/stdlib chain.
package media
