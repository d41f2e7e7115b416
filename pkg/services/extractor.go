package services

import (
	"context"
	"strings"

	"github.com/calpoly-csai/nimbus/pkg/models"
)

// VariableExtractor recognizes the entity mentioned in a raw question and
// produces the normalized question with the entity replaced by its
// bracketed tag (e.g. "Who teaches [COURSE]?").
type VariableExtractor interface {
	Extract(ctx context.Context, question string) (models.ExtractedVars, error)
}

// honorifics are stripped from professor entities so "Dr. Khosmood" and
// "Khosmood" fuzzy-match the same records.
var honorifics = map[string]struct{}{
	"professor":  {},
	"dr.":        {},
	"dr":         {},
	"doctor":     {},
	"prof":       {},
	"instructor": {},
	"mrs.":       {},
	"mr.":        {},
	"ms.":        {},
	"mrs":        {},
	"mr":         {},
	"ms":         {},
	"mister":     {},
}

// normalizeEntity strips excess words from an extracted entity. Only
// professor entities carry honorific titles.
func normalizeEntity(entity, tag string) string {
	if !strings.EqualFold(tag, "PROF") {
		return entity
	}
	return stripTitles(entity)
}

func stripTitles(entity string) string {
	for _, word := range strings.Fields(entity) {
		if _, ok := honorifics[strings.ToLower(word)]; ok {
			return strings.TrimSpace(strings.Replace(entity, word+" ", "", 1))
		}
	}
	return entity
}
