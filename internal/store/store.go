// Package store is the persistence layer for the passage corpus: a single
// SQLite database holding passages, annotations, proper nouns, stopwords
// and the derived predictor/centrality tables. All downstream stages read
// and write through an explicit *Store handle so they can be tested
// against a throwaway database.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrDuplicateCitation indicates two passages with the same citation key.
// It signals corrupted input and is fatal to the run.
var ErrDuplicateCitation = errors.New("duplicate citation key")

// Store wraps the SQLite corpus database
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS passages (
	id TEXT PRIMARY KEY,
	book INTEGER NOT NULL,
	chapter INTEGER NOT NULL,
	section INTEGER NOT NULL,
	greek TEXT NOT NULL,
	translation TEXT
);

CREATE TABLE IF NOT EXISTS annotations (
	passage_id TEXT NOT NULL REFERENCES passages(id),
	dimension TEXT NOT NULL,
	label INTEGER NOT NULL,
	confidence REAL NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (passage_id, dimension)
);

CREATE TABLE IF NOT EXISTS proper_nouns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	passage_id TEXT NOT NULL REFERENCES passages(id),
	exact_form TEXT NOT NULL,
	canonical_form TEXT NOT NULL,
	transcription TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	UNIQUE (passage_id, exact_form)
);

CREATE TABLE IF NOT EXISTS noun_extraction_status (
	passage_id TEXT PRIMARY KEY REFERENCES passages(id),
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS translation_queries (
	passage_id TEXT PRIMARY KEY REFERENCES passages(id),
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS passage_summaries (
	passage_id TEXT PRIMARY KEY REFERENCES passages(id),
	summary TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS manual_stopwords (
	word TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS predictors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dimension TEXT NOT NULL,
	phrase TEXT NOT NULL,
	coefficient REAL NOT NULL,
	positive INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS noun_centrality (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	canonical_form TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	transcription TEXT NOT NULL,
	component INTEGER NOT NULL,
	degree REAL NOT NULL,
	betweenness REAL NOT NULL,
	eigenvector REAL NOT NULL,
	pagerank REAL NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (canonical_form, entity_type)
);
`

// Open opens or creates the corpus database at the given path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
