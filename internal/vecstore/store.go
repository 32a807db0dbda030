package vecstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"photo-curator/internal/logging"
)

// Record is one indexed image: its path, the vision model's description,
// and the description's embedding.
type Record struct {
	ID          uuid.UUID
	Path        string
	Description string
	Embedding   pgvector.Vector
	IndexedAt   time.Time
}

// SearchResult is a Record ranked by cosine distance to a query vector.
type SearchResult struct {
	Record
	Distance float64
}

// Store persists image description embeddings in Postgres with the
// pgvector extension. The vector dimensionality is fixed at schema
// creation from a probe of the embedding model and stays fixed for the
// table's lifetime.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and registers the pgvector types.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 1 * time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Store{pool: pool}, nil
}

// EnsureSchema creates the images table with the given embedding
// dimension if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context, dim int) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS images (
			id          uuid PRIMARY KEY,
			filepath    text NOT NULL UNIQUE,
			description text NOT NULL,
			embedding   vector(%d) NOT NULL,
			indexed_at  timestamptz NOT NULL DEFAULT now()
		)`, dim)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create images table: %w", err)
	}

	logging.Debug("Vector store schema ready (dimension %d)", dim)
	return nil
}

// Add inserts or replaces the record for a path.
func (s *Store) Add(ctx context.Context, path, description string, embedding []float32) error {
	query := `
		INSERT INTO images (id, filepath, description, embedding, indexed_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (filepath) DO UPDATE
		SET description = EXCLUDED.description,
		    embedding = EXCLUDED.embedding,
		    indexed_at = now()`
	_, err := s.pool.Exec(ctx, query, uuid.New(), path, description, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to add image record: %w", err)
	}
	return nil
}

// SearchNearest returns up to limit records ranked by cosine distance
// to the query vector.
func (s *Store) SearchNearest(ctx context.Context, query []float32, limit int) ([]SearchResult, error) {
	sql := `
		SELECT id, filepath, description, embedding, indexed_at,
		       embedding <=> $1 AS distance
		FROM images
		ORDER BY distance ASC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search images: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Path, &r.Description, &r.Embedding, &r.IndexedAt, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

// IndexedPaths returns the set of every indexed path. The index worker
// snapshots this once before parallel work starts so one run never
// processes the same path twice.
func (s *Store) IndexedPaths(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT filepath FROM images`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]bool)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths[p] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return paths, nil
}

// DeleteByPath removes the record for a path, tolerating its absence.
func (s *Store) DeleteByPath(ctx context.Context, path string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM images WHERE filepath = $1`, path); err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}
	return nil
}

// Count returns the total number of indexed images.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM images`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
