package store

import (
	"fmt"
	"time"

	"github.com/kmatzaris/periegete/internal/model"
)

// SaveNounExtraction commits the proper nouns found in one passage together
// with the extraction-status row that gates reprocessing. One transaction:
// a crash leaves the passage unprocessed, never half-recorded.
func (s *Store) SaveNounExtraction(passageID string, nouns []model.ProperNoun, llmModel string, inputTokens, outputTokens int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin noun commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, n := range nouns {
		_, err := tx.Exec(`
		INSERT OR IGNORE INTO proper_nouns
			(passage_id, exact_form, canonical_form, transcription, entity_type)
		VALUES (?, ?, ?, ?, ?)`,
			passageID, n.ExactForm, n.CanonicalForm, n.Transcription, n.EntityType)
		if err != nil {
			return fmt.Errorf("save noun %q in %s: %w", n.ExactForm, passageID, err)
		}
	}

	_, err = tx.Exec(`
	INSERT INTO noun_extraction_status (passage_id, model, input_tokens, output_tokens, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		passageID, llmModel, inputTokens, outputTokens, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record noun extraction %s: %w", passageID, err)
	}

	return tx.Commit()
}

// ProperNouns returns every stored proper-noun occurrence
func (s *Store) ProperNouns() ([]model.ProperNoun, error) {
	rows, err := s.db.Query(`
	SELECT passage_id, exact_form, canonical_form, transcription, entity_type
	FROM proper_nouns`)
	if err != nil {
		return nil, fmt.Errorf("select proper nouns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nouns []model.ProperNoun
	for rows.Next() {
		var n model.ProperNoun
		if err := rows.Scan(&n.PassageID, &n.ExactForm, &n.CanonicalForm, &n.Transcription, &n.EntityType); err != nil {
			return nil, fmt.Errorf("scan proper noun: %w", err)
		}
		nouns = append(nouns, n)
	}
	return nouns, rows.Err()
}

// NounForms returns the distinct surface and canonical forms of every
// extracted proper noun; both carry the entity inventory into the
// stopword set
func (s *Store) NounForms() ([]string, error) {
	rows, err := s.db.Query(`
	SELECT exact_form FROM proper_nouns
	UNION
	SELECT canonical_form FROM proper_nouns`)
	if err != nil {
		return nil, fmt.Errorf("select noun forms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var forms []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan noun form: %w", err)
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// AddStopword inserts a manual stopword; adding an existing word is a no-op
func (s *Store) AddStopword(word string) error {
	if _, err := s.db.Exec("INSERT OR IGNORE INTO manual_stopwords (word) VALUES (?)", word); err != nil {
		return fmt.Errorf("add stopword %q: %w", word, err)
	}
	return nil
}

// RemoveStopword removes a manual stopword
func (s *Store) RemoveStopword(word string) error {
	if _, err := s.db.Exec("DELETE FROM manual_stopwords WHERE word = ?", word); err != nil {
		return fmt.Errorf("remove stopword %q: %w", word, err)
	}
	return nil
}

// ManualStopwords returns the curated stopword list
func (s *Store) ManualStopwords() ([]string, error) {
	rows, err := s.db.Query("SELECT word FROM manual_stopwords ORDER BY word")
	if err != nil {
		return nil, fmt.Errorf("select manual stopwords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan stopword: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}
