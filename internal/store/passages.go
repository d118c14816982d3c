package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kmatzaris/periegete/internal/model"
)

// citationOrder is appended to every passage query so "N processed so far"
// resumption sees a stable total order
const citationOrder = " ORDER BY book, chapter, section"

// InsertPassage adds a passage to the corpus. A passage with the same
// citation key is corrupted input: ErrDuplicateCitation, fatal.
func (s *Store) InsertPassage(c model.Citation, greek string) error {
	_, err := s.db.Exec(
		"INSERT INTO passages (id, book, chapter, section, greek) VALUES (?, ?, ?, ?, ?)",
		c.String(), c.Book, c.Chapter, c.Section, greek,
	)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) {
			switch se.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				return fmt.Errorf("passage %s: %w", c, ErrDuplicateCitation)
			}
		}
		return fmt.Errorf("insert passage %s: %w", c, err)
	}
	return nil
}

// PassageCount returns the number of passages in the corpus
func (s *Store) PassageCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM passages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// TextUnit is the minimal passage view the pipeline stages operate on.
// Text is the Greek for most stages; Unsummarized yields the translation.
type TextUnit struct {
	ID   string
	Text string
}

// Unannotated returns passages lacking an annotation for the dimension, in
// citation order. limit <= 0 means all.
func (s *Store) Unannotated(d model.Dimension, limit int) ([]TextUnit, error) {
	query := `
	SELECT p.id, p.greek FROM passages p
	LEFT JOIN annotations a ON p.id = a.passage_id AND a.dimension = ?
	WHERE a.passage_id IS NULL` + citationOrder
	return s.selectUnits(query, d, limit)
}

// NounsPending returns passages not yet processed for proper-noun
// extraction, in citation order
func (s *Store) NounsPending(limit int) ([]TextUnit, error) {
	query := `
	SELECT p.id, p.greek FROM passages p
	LEFT JOIN noun_extraction_status n ON p.id = n.passage_id
	WHERE n.passage_id IS NULL` + citationOrder
	return s.selectUnits(query, nil, limit)
}

// Untranslated returns passages without an English translation, in
// citation order
func (s *Store) Untranslated(limit int) ([]TextUnit, error) {
	query := `
	SELECT id, greek FROM passages
	WHERE translation IS NULL` + citationOrder
	return s.selectUnits(query, nil, limit)
}

// Unsummarized returns translated passages without a one-line summary, in
// citation order. Text carries the English translation: the summariser
// reads the translation, not the Greek.
func (s *Store) Unsummarized(limit int) ([]TextUnit, error) {
	query := `
	SELECT p.id, p.translation FROM passages p
	LEFT JOIN passage_summaries ps ON p.id = ps.passage_id
	WHERE p.translation IS NOT NULL AND ps.passage_id IS NULL` + citationOrder
	return s.selectUnits(query, nil, limit)
}

func (s *Store) selectUnits(query string, dim any, limit int) ([]TextUnit, error) {
	args := []any{}
	if dim != nil {
		args = append(args, dim)
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("select passages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var units []TextUnit
	for rows.Next() {
		var u TextUnit
		if err := rows.Scan(&u.ID, &u.Text); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// SaveAnnotations commits a set of annotations for one passage in a single
// transaction, so a crash can never leave the passage half-annotated
func (s *Store) SaveAnnotations(passageID string, anns map[model.Dimension]model.Annotation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin annotation commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for d, a := range anns {
		label := 0
		if a.Label {
			label = 1
		}
		_, err := tx.Exec(`
		INSERT INTO annotations
			(passage_id, dimension, label, confidence, model, input_tokens, output_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			passageID, d, label, a.Confidence, a.Model,
			a.InputTokens, a.OutputTokens, a.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("save annotation %s/%s: %w", passageID, d, err)
		}
	}

	return tx.Commit()
}

// Annotation returns the stored annotation for a passage and dimension,
// or ok=false when the passage has not been annotated for it
func (s *Store) Annotation(passageID string, d model.Dimension) (model.Annotation, bool, error) {
	var (
		a       model.Annotation
		label   int
		created string
	)
	err := s.db.QueryRow(`
	SELECT label, confidence, model, input_tokens, output_tokens, created_at
	FROM annotations WHERE passage_id = ? AND dimension = ?`, passageID, d,
	).Scan(&label, &a.Confidence, &a.Model, &a.InputTokens, &a.OutputTokens, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Annotation{}, false, nil
	}
	if err != nil {
		return model.Annotation{}, false, fmt.Errorf("load annotation %s/%s: %w", passageID, d, err)
	}

	a.Label = label != 0
	a.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return a, true, nil
}

// TrainingSample is a passage with a confident boolean label
type TrainingSample struct {
	ID    string
	Greek string
	Label bool
}

// TrainingSamples returns passages annotated for the dimension with
// confidence at or above the threshold, in citation order
func (s *Store) TrainingSamples(d model.Dimension, minConfidence float64) ([]TrainingSample, error) {
	rows, err := s.db.Query(`
	SELECT p.id, p.greek, a.label FROM passages p
	JOIN annotations a ON p.id = a.passage_id
	WHERE a.dimension = ? AND a.confidence >= ?`+citationOrder, d, minConfidence)
	if err != nil {
		return nil, fmt.Errorf("select training samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []TrainingSample
	for rows.Next() {
		var (
			sm    TrainingSample
			label int
		)
		if err := rows.Scan(&sm.ID, &sm.Greek, &label); err != nil {
			return nil, fmt.Errorf("scan training sample: %w", err)
		}
		sm.Label = label != 0
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// SaveTranslation stores a passage translation and its query bookkeeping
// in one transaction
func (s *Store) SaveTranslation(passageID, english, llmModel string, inputTokens, outputTokens int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin translation commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("UPDATE passages SET translation = ? WHERE id = ?", english, passageID); err != nil {
		return fmt.Errorf("save translation %s: %w", passageID, err)
	}
	_, err = tx.Exec(`
	INSERT INTO translation_queries (passage_id, model, input_tokens, output_tokens, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		passageID, llmModel, inputTokens, outputTokens, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record translation query %s: %w", passageID, err)
	}

	return tx.Commit()
}

// SaveSummary stores a passage's one-line summary with its bookkeeping
func (s *Store) SaveSummary(passageID, summary, llmModel string, inputTokens, outputTokens int) error {
	_, err := s.db.Exec(`
	INSERT INTO passage_summaries (passage_id, summary, model, input_tokens, output_tokens, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		passageID, summary, llmModel, inputTokens, outputTokens,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save summary %s: %w", passageID, err)
	}
	return nil
}

// Passage assembles the full record for one citation: text, translation,
// summary and every stored annotation. ok=false when the citation is not
// in the corpus.
func (s *Store) Passage(id string) (*model.Passage, bool, error) {
	var (
		p           model.Passage
		translation sql.NullString
	)
	err := s.db.QueryRow(`
	SELECT book, chapter, section, greek, translation FROM passages WHERE id = ?`, id,
	).Scan(&p.Citation.Book, &p.Citation.Chapter, &p.Citation.Section, &p.Greek, &translation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load passage %s: %w", id, err)
	}
	p.Translation = translation.String

	err = s.db.QueryRow("SELECT summary FROM passage_summaries WHERE passage_id = ?", id).Scan(&p.Summary)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("load summary %s: %w", id, err)
	}

	for _, d := range model.Dimensions() {
		a, ok, err := s.Annotation(id, d)
		if err != nil {
			return nil, false, err
		}
		if ok {
			if p.Annotations == nil {
				p.Annotations = make(map[model.Dimension]model.Annotation, 2)
			}
			p.Annotations[d] = a
		}
	}

	return &p, true, nil
}

// AnnotationTokenTotals sums the token cost bookkeeping across all
// committed annotations for a dimension
func (s *Store) AnnotationTokenTotals(d model.Dimension) (input, output int, err error) {
	err = s.db.QueryRow(`
	SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
	FROM annotations WHERE dimension = ?`, d).Scan(&input, &output)
	if err != nil {
		return 0, 0, fmt.Errorf("sum annotation tokens: %w", err)
	}
	return input, output, nil
}
