package repositories

import (
	"context"
	"fmt"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/models"
)

// MemoryEntityRepository is an in-memory EntityRepository. It backs unit
// tests and demo mode, where no database is available. Row order is
// preserved as inserted, matching the stable-ordering guarantee of the
// PostgreSQL implementation.
type MemoryEntityRepository struct {
	schemas models.SchemaSet
	rows    map[models.EntityType][]models.EntityRecord
}

// NewMemoryEntityRepository creates an empty in-memory repository over the
// given schema set.
func NewMemoryEntityRepository(schemas models.SchemaSet) *MemoryEntityRepository {
	return &MemoryEntityRepository{
		schemas: schemas,
		rows:    make(map[models.EntityType][]models.EntityRecord),
	}
}

var _ EntityRepository = (*MemoryEntityRepository)(nil)

// Add appends a record to the given entity type's rows.
func (r *MemoryEntityRepository) Add(entityType models.EntityType, record models.EntityRecord) {
	r.rows[entityType] = append(r.rows[entityType], record)
}

// Schemas returns the repository's schema set.
func (r *MemoryEntityRepository) Schemas() models.SchemaSet {
	return r.schemas
}

// AllRows returns the stored records of the given type in insertion order.
func (r *MemoryEntityRepository) AllRows(_ context.Context, entityType models.EntityType) ([]models.EntityRecord, error) {
	if _, ok := r.schemas[entityType]; !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownEntityType, entityType)
	}
	return r.rows[entityType], nil
}
