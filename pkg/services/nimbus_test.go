package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/models"
	"github.com/calpoly-csai/nimbus/pkg/nlp"
	"github.com/calpoly-csai/nimbus/pkg/nlp/classifier"
	"github.com/calpoly-csai/nimbus/pkg/repositories"
)

// failingEntityRepo simulates unreachable storage.
type failingEntityRepo struct {
	schemas models.SchemaSet
}

func (r *failingEntityRepo) Schemas() models.SchemaSet { return r.schemas }

func (r *failingEntityRepo) AllRows(context.Context, models.EntityType) ([]models.EntityRecord, error) {
	return nil, fmt.Errorf("listing rows: %w: connection refused", apperrors.ErrUnavailable)
}

var nimbusTemplates = []models.QuestionTemplate{
	{QuestionFormat: "Who teaches [COURSE]?", AnswerFormat: "[prof..first_name] [prof..last_name] teaches [ex].", Verified: true},
	{QuestionFormat: "What is the email of [PROF]?", AnswerFormat: "The email of [ex] is [db..email].", Verified: true},
}

func newTestNimbus(t *testing.T, repo repositories.EntityRepository) *Nimbus {
	t.Helper()
	logger := zap.NewNop()

	featureExtractor, err := nlp.NewFeatureExtractor()
	require.NoError(t, err)

	clf := classifier.New(featureExtractor, 150, logger)
	model, err := clf.Train(nimbusTemplates)
	require.NoError(t, err)
	clf.Swap(model)

	matcher := NewFuzzyEntityMatcher(repo, 80, logger)
	engine := NewTemplateEngine(matcher, repo.Schemas(), time.Second, logger)
	registry, err := BuildRegistry(nimbusTemplates, engine)
	require.NoError(t, err)

	extractor := NewLexiconExtractor(repo, logger)
	return NewNimbus(extractor, clf, registry, logger)
}

func newPopulatedRepo() *repositories.MemoryEntityRepository {
	repo := repositories.NewMemoryEntityRepository(models.DefaultSchemas())
	repo.Add(models.EntityProfessors, models.EntityRecord{
		"first_name": "Foaad",
		"last_name":  "Khosmood",
		"email":      "foaad@calpoly.edu",
	})
	repo.Add(models.EntityCourses, models.EntityRecord{
		"course_name": "CSC 357",
		"instructor":  "Khosmood",
	})
	// A course nobody is assigned to yet.
	repo.Add(models.EntityCourses, models.EntityRecord{
		"course_name": "CSC 481",
	})
	return repo
}

func TestNimbus_AnswersChainedQuestion(t *testing.T) {
	nimbus := newTestNimbus(t, newPopulatedRepo())

	result, err := nimbus.AnswerQuestion(context.Background(), "Who teaches CSC 357?")
	require.NoError(t, err)
	assert.Equal(t, models.StateAnswered, result.State)
	assert.Equal(t, "Foaad Khosmood teaches CSC 357.", result.Text)
}

func TestNimbus_AnswersDirectLookup(t *testing.T) {
	nimbus := newTestNimbus(t, newPopulatedRepo())

	result, err := nimbus.AnswerQuestion(context.Background(), "What is the email of Khosmood?")
	require.NoError(t, err)
	assert.Equal(t, models.StateAnswered, result.State)
	assert.Equal(t, "The email of Khosmood is foaad@calpoly.edu.", result.Text)
}

func TestNimbus_NoDataWhenLookupComesBackEmpty(t *testing.T) {
	nimbus := newTestNimbus(t, newPopulatedRepo())

	// CSC 481 exists but has no instructor, so the chained lookup finds
	// nothing and the question is understood-but-unanswerable.
	result, err := nimbus.AnswerQuestion(context.Background(), "Who teaches CSC 481?")
	require.NoError(t, err)
	assert.Equal(t, models.StateNoData, result.State)
	assert.Equal(t, models.MsgNoData, result.Text)
}

func TestNimbus_UnknownQuestion(t *testing.T) {
	nimbus := newTestNimbus(t, newPopulatedRepo())

	result, err := nimbus.AnswerQuestion(context.Background(), "Sing me a sea shanty about compilers.")
	require.NoError(t, err)
	assert.Equal(t, models.StateUnknown, result.State)
	assert.Equal(t, models.MsgUnknown, result.Text)
}

func TestNimbus_EmptyQuestion(t *testing.T) {
	nimbus := newTestNimbus(t, newPopulatedRepo())

	result, err := nimbus.AnswerQuestion(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, models.StateUnknown, result.State)
}

func TestNimbus_CollaboratorFailureIsAnError(t *testing.T) {
	repo := &failingEntityRepo{schemas: models.DefaultSchemas()}
	nimbus := newTestNimbus(t, repo)

	result, err := nimbus.AnswerQuestion(context.Background(), "Who teaches CSC 357?")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestNimbus_SwapRegistry(t *testing.T) {
	repo := newPopulatedRepo()
	nimbus := newTestNimbus(t, repo)

	// An empty registry turns every classified question into unknown.
	matcher := NewFuzzyEntityMatcher(repo, 80, zap.NewNop())
	engine := NewTemplateEngine(matcher, repo.Schemas(), time.Second, zap.NewNop())
	empty, err := BuildRegistry(nil, engine)
	require.NoError(t, err)
	nimbus.SwapRegistry(empty)

	result, err := nimbus.AnswerQuestion(context.Background(), "Who teaches CSC 357?")
	require.NoError(t, err)
	assert.Equal(t, models.StateUnknown, result.State)
}
