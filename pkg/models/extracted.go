package models

// ExtractedVars is the per-request record produced by variable extraction
// and enriched by classification. Created fresh per question, discarded
// after answering.
type ExtractedVars struct {
	// InputQuestion is the raw question as asked.
	InputQuestion string

	// NormalizedQuestion has the recognized entity replaced by its
	// bracketed tag, e.g. "Who teaches [COURSE]?".
	NormalizedQuestion string

	// Entity is the surface form of the recognized entity.
	Entity string

	// NormalizedEntity is the entity with excess words (honorific titles)
	// stripped. Used as the fuzzy-match identifier.
	NormalizedEntity string

	// Tag is the entity's extraction tag (e.g. "COURSE").
	Tag string

	// QuestionClass is the matched template's question format, set after
	// classification.
	QuestionClass string
}

// Identifier returns the string used for fuzzy matching: the normalized
// entity when present, otherwise the raw entity.
func (v ExtractedVars) Identifier() string {
	if v.NormalizedEntity != "" {
		return v.NormalizedEntity
	}
	return v.Entity
}
