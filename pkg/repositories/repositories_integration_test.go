package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/database"
	"github.com/calpoly-csai/nimbus/pkg/models"
	"github.com/calpoly-csai/nimbus/pkg/testhelpers"
)

func TestEntityRepository_AllRows_Integration(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	profID := uuid.New()
	_, err := testDB.Pool.Exec(ctx, `
		INSERT INTO professors (id, first_name, last_name, email)
		VALUES ($1, $2, $3, $4)`,
		profID, "Foaad", "Khosmood", "foaad@calpoly.edu")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testDB.Pool.Exec(ctx, "DELETE FROM professors WHERE id = $1", profID)
	})

	repo := NewEntityRepository(&database.DB{Pool: testDB.Pool}, models.DefaultSchemas(), zap.NewNop())

	rows, err := repo.AllRows(ctx, models.EntityProfessors)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	var found bool
	for _, row := range rows {
		if last, _ := row.Property("last_name"); last == "Khosmood" {
			found = true
			email, ok := row.Property("email")
			assert.True(t, ok)
			assert.Equal(t, "foaad@calpoly.edu", email)

			// phone_number was never set; NULL must read as absent.
			_, ok = row.Property("phone_number")
			assert.False(t, ok)
		}
	}
	assert.True(t, found)
}

func TestTemplateRepository_CreateAndList_Integration(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	repo := NewTemplateRepository(&database.DB{Pool: testDB.Pool})

	verified := &models.QuestionTemplate{
		ID:             uuid.New(),
		QuestionFormat: "Who teaches [COURSE]?",
		AnswerFormat:   "[prof..first_name] teaches [ex].",
		Verified:       true,
	}
	unverified := &models.QuestionTemplate{
		ID:             uuid.New(),
		QuestionFormat: "What is the meaning of life?",
		AnswerFormat:   "Forty-two.",
		Verified:       false,
	}
	require.NoError(t, repo.Create(ctx, verified))
	require.NoError(t, repo.Create(ctx, unverified))
	t.Cleanup(func() {
		_, _ = testDB.Pool.Exec(ctx, "DELETE FROM qa_pairs WHERE id = ANY($1)",
			[]uuid.UUID{verified.ID, unverified.ID})
	})

	templates, err := repo.ListVerified(ctx)
	require.NoError(t, err)

	var sawVerified, sawUnverified bool
	for _, tmpl := range templates {
		switch tmpl.ID {
		case verified.ID:
			sawVerified = true
			assert.Equal(t, verified.QuestionFormat, tmpl.QuestionFormat)
			assert.Equal(t, verified.AnswerFormat, tmpl.AnswerFormat)
		case unverified.ID:
			sawUnverified = true
		}
	}
	assert.True(t, sawVerified)
	assert.False(t, sawUnverified, "unverified pairs must not be listed")
}
