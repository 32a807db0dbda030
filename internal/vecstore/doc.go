// Package vecstore persists image description embeddings in Postgres
// using the pgvector extension and serves nearest-neighbor queries for
// natural-language search.
package vecstore
