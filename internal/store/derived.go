package store

import (
	"fmt"
	"time"

	"github.com/kmatzaris/periegete/internal/model"
)

// The predictor and centrality tables hold derived artifacts: each run
// replaces the previous result wholesale, there is no incremental update.

// ReplacePredictors clears and repopulates the predictor table for one
// dimension in a single transaction
func (s *Store) ReplacePredictors(d model.Dimension, preds []model.Predictor) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin predictor replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM predictors WHERE dimension = ?", d); err != nil {
		return fmt.Errorf("clear predictors %s: %w", d, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range preds {
		positive := 0
		if p.Positive {
			positive = 1
		}
		_, err := tx.Exec(`
		INSERT INTO predictors (dimension, phrase, coefficient, positive, created_at)
		VALUES (?, ?, ?, ?, ?)`,
			d, p.Phrase, p.Coefficient, positive, now)
		if err != nil {
			return fmt.Errorf("save predictor %q: %w", p.Phrase, err)
		}
	}

	return tx.Commit()
}

// Predictors returns the stored predictor words for a dimension, strongest
// coefficients first
func (s *Store) Predictors(d model.Dimension) ([]model.Predictor, error) {
	rows, err := s.db.Query(`
	SELECT phrase, coefficient, positive FROM predictors
	WHERE dimension = ? ORDER BY ABS(coefficient) DESC, phrase`, d)
	if err != nil {
		return nil, fmt.Errorf("select predictors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var preds []model.Predictor
	for rows.Next() {
		var (
			p        model.Predictor
			positive int
		)
		if err := rows.Scan(&p.Phrase, &p.Coefficient, &positive); err != nil {
			return nil, fmt.Errorf("scan predictor: %w", err)
		}
		p.Dimension = d
		p.Positive = positive != 0
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// CentralityRow is one node's persisted centrality record
type CentralityRow struct {
	CanonicalForm string
	EntityType    model.EntityType
	Transcription string
	Component     int
	Degree        float64
	Betweenness   float64
	Eigenvector   float64
	PageRank      float64
}

// ReplaceCentrality clears and repopulates the centrality table in a
// single transaction
func (s *Store) ReplaceCentrality(rowset []CentralityRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin centrality replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM noun_centrality"); err != nil {
		return fmt.Errorf("clear centrality: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rowset {
		_, err := tx.Exec(`
		INSERT INTO noun_centrality
			(canonical_form, entity_type, transcription, component,
			 degree, betweenness, eigenvector, pagerank, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.CanonicalForm, r.EntityType, r.Transcription, r.Component,
			r.Degree, r.Betweenness, r.Eigenvector, r.PageRank, now)
		if err != nil {
			return fmt.Errorf("save centrality %q: %w", r.CanonicalForm, err)
		}
	}

	return tx.Commit()
}
