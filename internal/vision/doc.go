// Package vision is the client for the remote vision/embedding model
// service. Vision calls carry a size-capped base64 JPEG and an
// instruction; embedding calls carry UTF-8 text and return a
// fixed-length float vector. Every failure mode (non-2xx, timeout,
// malformed JSON) surfaces as an error that callers count as a single
// item failure, never as a batch abort.
package vision
