package repositories

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/database"
	"github.com/calpoly-csai/nimbus/pkg/models"
)

// EntityRepository provides read access to stored campus entities. The
// question-answering pipeline never assumes any index or query-pushdown
// capability from storage; all filtering and scoring happens in the caller.
type EntityRepository interface {
	// Schemas returns the static descriptors for every known entity type.
	Schemas() models.SchemaSet

	// AllRows returns every stored record of the given type as a flat
	// property mapping, in stable storage order.
	AllRows(ctx context.Context, entityType models.EntityType) ([]models.EntityRecord, error)
}

// entityRepository implements EntityRepository using PostgreSQL.
type entityRepository struct {
	db      *database.DB
	schemas models.SchemaSet
	logger  *zap.Logger
}

// NewEntityRepository creates a new entity repository over the given pool.
func NewEntityRepository(db *database.DB, schemas models.SchemaSet, logger *zap.Logger) EntityRepository {
	return &entityRepository{
		db:      db,
		schemas: schemas,
		logger:  logger.Named("entity-repository"),
	}
}

var _ EntityRepository = (*entityRepository)(nil)

func (r *entityRepository) Schemas() models.SchemaSet {
	return r.schemas
}

// AllRows scans the entity's whole table. Rows are ordered by primary key so
// tie-breaking in fuzzy matching stays reproducible across runs.
func (r *entityRepository) AllRows(ctx context.Context, entityType models.EntityType) ([]models.EntityRecord, error) {
	schema, ok := r.schemas[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownEntityType, entityType)
	}

	columns := schema.ColumnNames()
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id",
		strings.Join(columns, ", "), schema.Table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w: %w", schema.Table, apperrors.ErrUnavailable, err)
	}
	defer rows.Close()

	var records []models.EntityRecord
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", schema.Table, err)
		}
		record := make(models.EntityRecord, len(columns))
		for i, col := range columns {
			record[col] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w: %w", schema.Table, apperrors.ErrUnavailable, err)
	}

	return records, nil
}
