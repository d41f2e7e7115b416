package services

import (
	"context"
	"fmt"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/models"
	"github.com/calpoly-csai/nimbus/pkg/repositories"
)

// EntityMatcher scores stored records against free-text identifiers by
// string similarity and extracts properties from the best matches.
type EntityMatcher interface {
	// MatchProperty returns the named property of the single best-matching
	// record. The boolean is false when no record clears the threshold;
	// that is recoverable input data, not an error. An unknown entity type
	// IS an error: it means a template or schema bug.
	MatchProperty(ctx context.Context, property string, entityType models.EntityType, identifier string) (string, bool, error)

	// MatchAllProperties returns the named property of every record tied at
	// the maximum similarity score, in storage order.
	MatchAllProperties(ctx context.Context, property string, entityType models.EntityType, identifier string) ([]string, error)
}

// fuzzyEntityMatcher implements EntityMatcher over an EntityRepository.
type fuzzyEntityMatcher struct {
	repo      repositories.EntityRepository
	threshold int
	logger    *zap.Logger
}

// NewFuzzyEntityMatcher creates a matcher. A record matches when the sum of
// its per-tag-column similarity ratios (0-100 each) exceeds the threshold.
func NewFuzzyEntityMatcher(repo repositories.EntityRepository, threshold int, logger *zap.Logger) EntityMatcher {
	return &fuzzyEntityMatcher{
		repo:      repo,
		threshold: threshold,
		logger:    logger.Named("entity-matcher"),
	}
}

var _ EntityMatcher = (*fuzzyEntityMatcher)(nil)

func (m *fuzzyEntityMatcher) MatchProperty(ctx context.Context, property string, entityType models.EntityType, identifier string) (string, bool, error) {
	best, _, err := m.scan(ctx, entityType, identifier)
	if err != nil {
		return "", false, err
	}
	if best == nil {
		return "", false, nil
	}

	value, ok := best.Property(property)
	if !ok {
		m.logger.Warn("Matched record is missing requested property",
			zap.String("entity_type", string(entityType)),
			zap.String("property", property))
		return "", false, nil
	}
	return value, true, nil
}

func (m *fuzzyEntityMatcher) MatchAllProperties(ctx context.Context, property string, entityType models.EntityType, identifier string) ([]string, error) {
	_, tied, err := m.scan(ctx, entityType, identifier)
	if err != nil {
		return nil, err
	}

	var values []string
	for _, record := range tied {
		if value, ok := record.Property(property); ok {
			values = append(values, value)
		}
	}
	return values, nil
}

// scan scores every record of the type and returns the best match plus all
// records tied at the maximum score. Ties on the single best are broken by
// storage order with the last-encountered record winning, which is stable
// across runs because AllRows ordering is stable.
func (m *fuzzyEntityMatcher) scan(ctx context.Context, entityType models.EntityType, identifier string) (models.EntityRecord, []models.EntityRecord, error) {
	schemas := m.repo.Schemas()
	schema, ok := schemas[entityType]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownEntityType, entityType)
	}

	// A type with no tag columns can never exceed the threshold.
	if len(schema.TagColumns) == 0 {
		return nil, nil, nil
	}

	records, err := m.repo.AllRows(ctx, entityType)
	if err != nil {
		return nil, nil, err
	}

	needle := strings.ToLower(identifier)

	var (
		best      models.EntityRecord
		bestScore int
		tied      []models.EntityRecord
	)
	for _, record := range records {
		score := 0
		for _, column := range schema.TagColumns {
			value, ok := record.Property(column)
			if !ok {
				continue
			}
			score += fuzzy.Ratio(strings.ToLower(value), needle)
		}
		if score <= m.threshold {
			continue
		}
		switch {
		case best == nil || score > bestScore:
			best = record
			bestScore = score
			tied = []models.EntityRecord{record}
		case score == bestScore:
			// Last-seen-wins for the single best match.
			best = record
			tied = append(tied, record)
		}
	}

	if best == nil {
		m.logger.Debug("No record cleared the similarity threshold",
			zap.String("entity_type", string(entityType)),
			zap.Int("threshold", m.threshold))
	}

	return best, tied, nil
}
