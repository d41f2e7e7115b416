package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/models"
	"github.com/calpoly-csai/nimbus/pkg/repositories"
)

func newMatcherRepo() *repositories.MemoryEntityRepository {
	return repositories.NewMemoryEntityRepository(models.DefaultSchemas())
}

func TestFuzzyEntityMatcher_UnknownEntityType(t *testing.T) {
	matcher := NewFuzzyEntityMatcher(newMatcherRepo(), 80, zap.NewNop())

	_, _, err := matcher.MatchProperty(context.Background(), "email", models.EntityType("Starships"), "Enterprise")
	assert.ErrorIs(t, err, apperrors.ErrUnknownEntityType)

	_, err = matcher.MatchAllProperties(context.Background(), "email", models.EntityType("Starships"), "Enterprise")
	assert.ErrorIs(t, err, apperrors.ErrUnknownEntityType)
}

func TestFuzzyEntityMatcher_NoTagColumnsNeverMatches(t *testing.T) {
	repo := newMatcherRepo()
	repo.Add(models.EntityAudioSampleMetaData, models.EntityRecord{
		"filename": "sample.wav",
		"username": "jdoe",
	})
	matcher := NewFuzzyEntityMatcher(repo, 0, zap.NewNop())

	value, found, err := matcher.MatchProperty(context.Background(), "filename", models.EntityAudioSampleMetaData, "sample.wav")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

func TestFuzzyEntityMatcher_ThresholdIsExclusive(t *testing.T) {
	repo := newMatcherRepo()
	repo.Add(models.EntityCourses, models.EntityRecord{
		"course_name": "CSC 357",
		"units":       "4",
	})

	// An identical single-column value scores exactly 100. A score equal
	// to the threshold must not match; one point under it must.
	atThreshold := NewFuzzyEntityMatcher(repo, 100, zap.NewNop())
	_, found, err := atThreshold.MatchProperty(context.Background(), "units", models.EntityCourses, "CSC 357")
	require.NoError(t, err)
	assert.False(t, found)

	underThreshold := NewFuzzyEntityMatcher(repo, 99, zap.NewNop())
	value, found, err := underThreshold.MatchProperty(context.Background(), "units", models.EntityCourses, "CSC 357")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "4", value)
}

func TestFuzzyEntityMatcher_MatchIsCaseInsensitive(t *testing.T) {
	repo := newMatcherRepo()
	repo.Add(models.EntityCourses, models.EntityRecord{
		"course_name": "csc 357",
		"units":       "4",
	})
	matcher := NewFuzzyEntityMatcher(repo, 80, zap.NewNop())

	value, found, err := matcher.MatchProperty(context.Background(), "units", models.EntityCourses, "CSC 357")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "4", value)
}

func TestFuzzyEntityMatcher_SumsOverTagColumns(t *testing.T) {
	repo := newMatcherRepo()
	repo.Add(models.EntityProfessors, models.EntityRecord{
		"first_name": "Foaad",
		"last_name":  "Khosmood",
		"email":      "foaad@calpoly.edu",
	})
	matcher := NewFuzzyEntityMatcher(repo, 80, zap.NewNop())

	// A perfect last-name match alone contributes 100, clearing the
	// threshold regardless of the first-name ratio.
	value, found, err := matcher.MatchProperty(context.Background(), "email", models.EntityProfessors, "Khosmood")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "foaad@calpoly.edu", value)
}

func TestFuzzyEntityMatcher_LastSeenWinsOnTies(t *testing.T) {
	repo := newMatcherRepo()
	repo.Add(models.EntityProfessors, models.EntityRecord{
		"first_name": "Pat",
		"last_name":  "Smith",
		"office":     "14-201",
	})
	repo.Add(models.EntityProfessors, models.EntityRecord{
		"first_name": "Pat",
		"last_name":  "Smith",
		"office":     "14-202",
	})
	matcher := NewFuzzyEntityMatcher(repo, 80, zap.NewNop())

	value, found, err := matcher.MatchProperty(context.Background(), "office", models.EntityProfessors, "Pat Smith")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "14-202", value, "the later of two tied records should win")

	offices, err := matcher.MatchAllProperties(context.Background(), "office", models.EntityProfessors, "Pat Smith")
	require.NoError(t, err)
	assert.Equal(t, []string{"14-201", "14-202"}, offices, "ties should surface in storage order")
}

func TestFuzzyEntityMatcher_MissingPropertyIsNotFound(t *testing.T) {
	repo := newMatcherRepo()
	repo.Add(models.EntityCourses, models.EntityRecord{
		"course_name": "CSC 357",
	})
	matcher := NewFuzzyEntityMatcher(repo, 80, zap.NewNop())

	_, found, err := matcher.MatchProperty(context.Background(), "instructor", models.EntityCourses, "CSC 357")
	require.NoError(t, err)
	assert.False(t, found, "a matched record without the property is recoverable, not an error")
}

func TestFuzzyEntityMatcher_NothingClearsThreshold(t *testing.T) {
	repo := newMatcherRepo()
	repo.Add(models.EntityCourses, models.EntityRecord{
		"course_name": "CSC 357",
	})
	matcher := NewFuzzyEntityMatcher(repo, 80, zap.NewNop())

	_, found, err := matcher.MatchProperty(context.Background(), "course_name", models.EntityCourses, "underwater basket weaving")
	require.NoError(t, err)
	assert.False(t, found)

	values, err := matcher.MatchAllProperties(context.Background(), "course_name", models.EntityCourses, "underwater basket weaving")
	require.NoError(t, err)
	assert.Empty(t, values)
}
