package model

import "time"

// Dimension identifies one annotation axis of a passage
type Dimension string

const (
	// DimensionMythic marks whether a passage references the mythic era
	// rather than the historical one
	DimensionMythic Dimension = "mythic"

	// DimensionSceptical marks whether the author expresses scepticism
	// about the subject matter
	DimensionSceptical Dimension = "sceptical"
)

// Dimensions lists every annotation axis in a fixed order
func Dimensions() []Dimension {
	return []Dimension{DimensionMythic, DimensionSceptical}
}

// Passage is one citation-addressed unit of the source text
type Passage struct {
	Citation    Citation `json:"citation"`              // Hierarchical citation key (book.chapter.section)
	Greek       string   `json:"greek"`                 // Original-language text
	Translation string   `json:"translation,omitempty"` // English translation, if made
	Summary     string   `json:"summary,omitempty"`     // One-line summary of the translation, if made

	// Annotations keyed by dimension; absent key means the passage has
	// not been annotated for that dimension yet
	Annotations map[Dimension]Annotation `json:"annotations,omitempty"`
}

// Annotated reports whether the passage carries a label for the dimension
func (p *Passage) Annotated(d Dimension) bool {
	_, ok := p.Annotations[d]
	return ok
}

// Annotation is one machine-derived label with its provenance
type Annotation struct {
	Label        bool      `json:"label"`
	Confidence   float64   `json:"confidence"`
	Model        string    `json:"model"`         // Classifier model that produced the label
	InputTokens  int       `json:"input_tokens"`  // Token cost of the call that produced it
	OutputTokens int       `json:"output_tokens"`
	CreatedAt    time.Time `json:"created_at"`
}

// EntityType categorizes a proper noun
type EntityType string

const (
	EntityPerson EntityType = "person"
	EntityPlace  EntityType = "place"
	EntityDeity  EntityType = "deity"
	EntityOther  EntityType = "other"
)

// ProperNoun is one proper-noun occurrence extracted from a passage
type ProperNoun struct {
	PassageID     string     `json:"passage_id"`
	ExactForm     string     `json:"exact_form"`     // As it appears in the passage, inflected
	CanonicalForm string     `json:"canonical_form"` // Nominative reference form
	Transcription string     `json:"transcription"`  // English transliteration
	EntityType    EntityType `json:"entity_type"`
}

// Predictor is one literal word with its learned weight for a dimension
type Predictor struct {
	Dimension   Dimension `json:"dimension"`
	Phrase      string    `json:"phrase"`
	Coefficient float64   `json:"coefficient"`
	Positive    bool      `json:"positive"` // Associated with the true label
}
