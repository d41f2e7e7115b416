package services

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/models"
	"github.com/calpoly-csai/nimbus/pkg/repositories"
)

// minPhraseLength guards against one- and two-letter tag values matching
// everywhere in a question.
const minPhraseLength = 3

// LexiconExtractor recognizes entities by scanning the question for the
// tag-column values of every stored record. The longest match wins, so
// "CSC 357" beats "CSC". It needs no external service, making it the
// default extractor.
type LexiconExtractor struct {
	repo   repositories.EntityRepository
	logger *zap.Logger
}

// NewLexiconExtractor creates a lexicon-based extractor over stored records.
func NewLexiconExtractor(repo repositories.EntityRepository, logger *zap.Logger) *LexiconExtractor {
	return &LexiconExtractor{
		repo:   repo,
		logger: logger.Named("lexicon-extractor"),
	}
}

var _ VariableExtractor = (*LexiconExtractor)(nil)

// Extract finds the longest stored tag-column value mentioned in the
// question. When nothing matches, the vars carry the question untouched
// with an empty entity and tag; classification may still succeed on
// questions that need no entity.
func (e *LexiconExtractor) Extract(ctx context.Context, question string) (models.ExtractedVars, error) {
	vars := models.ExtractedVars{
		InputQuestion:      question,
		NormalizedQuestion: question,
	}

	var (
		bestPhrase string
		bestTag    string
		bestStart  int
		bestEnd    int
	)

	schemas := e.repo.Schemas()
	for _, entityType := range sortedTypes(schemas) {
		schema := schemas[entityType]
		if len(schema.TagColumns) == 0 {
			continue
		}
		records, err := e.repo.AllRows(ctx, entityType)
		if err != nil {
			return models.ExtractedVars{}, err
		}
		for _, record := range records {
			for _, column := range schema.TagColumns {
				value, ok := record.Property(column)
				if !ok || len(value) < minPhraseLength {
					continue
				}
				start, end := indexFold(question, value)
				if start == -1 {
					continue
				}
				if len(value) > len(bestPhrase) {
					bestPhrase = value
					bestTag = schema.Tag
					bestStart = start
					bestEnd = end
				}
			}
		}
	}

	if bestPhrase == "" {
		e.logger.Debug("No stored entity mentioned in question")
		return vars, nil
	}

	// Preserve the question's own casing of the entity.
	surface := question[bestStart:bestEnd]

	vars.Entity = surface
	vars.Tag = bestTag
	vars.NormalizedEntity = normalizeEntity(surface, bestTag)
	vars.NormalizedQuestion = strings.Replace(question, surface, "["+bestTag+"]", 1)

	return vars, nil
}

// sortedTypes fixes the scan order so equal-length phrases from different
// entity types always resolve to the same winner.
func sortedTypes(schemas models.SchemaSet) []models.EntityType {
	types := make([]models.EntityType, 0, len(schemas))
	for entityType := range schemas {
		types = append(types, entityType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// indexFold locates the first case-insensitive occurrence of phrase in s
// and returns its byte range, or (-1, -1). Offsets are measured against s
// itself, so the result slices s safely even when lowercasing a rune
// changes its UTF-8 byte length.
func indexFold(s, phrase string) (int, int) {
	want := []rune(phrase)
	if len(want) == 0 {
		return -1, -1
	}
	for i := 0; i < len(s); {
		j := i
		matched := true
		for _, w := range want {
			r, size := utf8.DecodeRuneInString(s[j:])
			if size == 0 || unicode.ToLower(r) != unicode.ToLower(w) {
				matched = false
				break
			}
			j += size
		}
		if matched {
			return i, j
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}
