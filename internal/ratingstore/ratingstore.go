package ratingstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"photo-curator/internal/logging"
)

const defaultTimeout = 5 * time.Second

// Rating is one stored rating result for an image. PromptHash ties the
// stored scores to the prompt text that produced them, so a prompt
// change invalidates cached entries.
type Rating struct {
	Path           string    `json:"path"`
	PromptHash     string    `json:"prompt_hash"`
	Technical      float64   `json:"technical"`
	Composition    float64   `json:"composition"`
	Commercial     float64   `json:"commercial"`
	Uniqueness     float64   `json:"uniqueness"`
	Editorial      float64   `json:"editorial"`
	Overall        float64   `json:"overall"`
	Recommendation string    `json:"recommendation"`
	Defects        []string  `json:"defects,omitempty"`
	Categories     []string  `json:"categories,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	RatedAt        time.Time `json:"rated_at"`
}

// Store persists rating results in a local SQLite database so a re-run
// with an unchanged prompt serves scores without repeating the RPC.
type Store struct {
	db     *sql.DB
	dbPath string
}

// New opens (creating if necessary) the ratings database at dbPath.
func New(ctx context.Context, dbPath string) (*Store, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratings database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close ratings database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to ratings database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close ratings database after init failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize ratings schema: %w", err)
	}

	logging.Debug("Ratings database ready at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ratings (
		filepath       TEXT PRIMARY KEY,
		prompt_hash    TEXT NOT NULL,
		technical      REAL NOT NULL,
		composition    REAL NOT NULL,
		commercial     REAL NOT NULL,
		uniqueness     REAL NOT NULL,
		editorial      REAL NOT NULL,
		overall        REAL NOT NULL,
		recommendation TEXT NOT NULL,
		defects        TEXT NOT NULL DEFAULT '[]',
		categories     TEXT NOT NULL DEFAULT '[]',
		notes          TEXT NOT NULL DEFAULT '',
		rated_at       INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ratings_prompt_hash ON ratings(prompt_hash);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

// Save inserts or replaces the rating for r.Path.
func (s *Store) Save(ctx context.Context, r Rating) error {
	defects, err := json.Marshal(emptyIfNil(r.Defects))
	if err != nil {
		return fmt.Errorf("failed to encode defects: %w", err)
	}
	categories, err := json.Marshal(emptyIfNil(r.Categories))
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	query := `
	INSERT INTO ratings (filepath, prompt_hash, technical, composition, commercial,
		uniqueness, editorial, overall, recommendation, defects, categories, notes, rated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(filepath) DO UPDATE SET
		prompt_hash = excluded.prompt_hash,
		technical = excluded.technical,
		composition = excluded.composition,
		commercial = excluded.commercial,
		uniqueness = excluded.uniqueness,
		editorial = excluded.editorial,
		overall = excluded.overall,
		recommendation = excluded.recommendation,
		defects = excluded.defects,
		categories = excluded.categories,
		notes = excluded.notes,
		rated_at = excluded.rated_at`

	ratedAt := r.RatedAt
	if ratedAt.IsZero() {
		ratedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, query,
		r.Path, r.PromptHash, r.Technical, r.Composition, r.Commercial,
		r.Uniqueness, r.Editorial, r.Overall, r.Recommendation,
		string(defects), string(categories), r.Notes, ratedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	return nil
}

// Get returns the rating for a path, or ok=false when none is stored.
func (s *Store) Get(ctx context.Context, path string) (Rating, bool, error) {
	query := `
	SELECT filepath, prompt_hash, technical, composition, commercial,
		uniqueness, editorial, overall, recommendation, defects, categories, notes, rated_at
	FROM ratings WHERE filepath = ?`

	r, err := scanRating(s.db.QueryRowContext(ctx, query, path))
	if err == sql.ErrNoRows {
		return Rating{}, false, nil
	}
	if err != nil {
		return Rating{}, false, fmt.Errorf("failed to load rating: %w", err)
	}
	return r, true, nil
}

// LoadAll returns every stored rating keyed by path. The rate worker
// snapshots this once before parallel work starts.
func (s *Store) LoadAll(ctx context.Context) (map[string]Rating, error) {
	query := `
	SELECT filepath, prompt_hash, technical, composition, commercial,
		uniqueness, editorial, overall, recommendation, defects, categories, notes, rated_at
	FROM ratings`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	defer rows.Close()

	ratings := make(map[string]Rating)
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings[r.Path] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ratings, nil
}

// Delete removes the rating for a path, tolerating its absence.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ratings WHERE filepath = ?`, path); err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	return nil
}

// Count returns the number of stored ratings.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM ratings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRating(row rowScanner) (Rating, error) {
	var r Rating
	var defects, categories string
	var ratedAt int64
	err := row.Scan(&r.Path, &r.PromptHash, &r.Technical, &r.Composition, &r.Commercial,
		&r.Uniqueness, &r.Editorial, &r.Overall, &r.Recommendation,
		&defects, &categories, &r.Notes, &ratedAt)
	if err != nil {
		return Rating{}, err
	}
	if err := json.Unmarshal([]byte(defects), &r.Defects); err != nil {
		logging.Warn("Malformed defects for %s: %v", r.Path, err)
	}
	if err := json.Unmarshal([]byte(categories), &r.Categories); err != nil {
		logging.Warn("Malformed categories for %s: %v", r.Path, err)
	}
	r.RatedAt = time.Unix(ratedAt, 0)
	return r, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
