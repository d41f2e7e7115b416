package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/models"
)

func TestMemoryEntityRepository_PreservesInsertionOrder(t *testing.T) {
	repo := NewMemoryEntityRepository(models.DefaultSchemas())
	repo.Add(models.EntityCourses, models.EntityRecord{"course_name": "CSC 101"})
	repo.Add(models.EntityCourses, models.EntityRecord{"course_name": "CSC 357"})

	rows, err := repo.AllRows(context.Background(), models.EntityCourses)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first, _ := rows[0].Property("course_name")
	second, _ := rows[1].Property("course_name")
	assert.Equal(t, "CSC 101", first)
	assert.Equal(t, "CSC 357", second)
}

func TestMemoryEntityRepository_UnknownType(t *testing.T) {
	repo := NewMemoryEntityRepository(models.DefaultSchemas())

	_, err := repo.AllRows(context.Background(), models.EntityType("Starships"))
	assert.ErrorIs(t, err, apperrors.ErrUnknownEntityType)
}

func TestMemoryEntityRepository_EmptyType(t *testing.T) {
	repo := NewMemoryEntityRepository(models.DefaultSchemas())

	rows, err := repo.AllRows(context.Background(), models.EntityClubs)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
