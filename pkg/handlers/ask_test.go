package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
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
	"github.com/calpoly-csai/nimbus/pkg/services"
)

type unavailableRepo struct {
	schemas models.SchemaSet
}

func (r *unavailableRepo) Schemas() models.SchemaSet { return r.schemas }

func (r *unavailableRepo) AllRows(context.Context, models.EntityType) ([]models.EntityRecord, error) {
	return nil, fmt.Errorf("listing rows: %w: connection refused", apperrors.ErrUnavailable)
}

func newAskServer(t *testing.T, repo repositories.EntityRepository) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	templates := []models.QuestionTemplate{
		{QuestionFormat: "Who teaches [COURSE]?", AnswerFormat: "[prof..first_name] [prof..last_name] teaches [ex].", Verified: true},
	}

	featureExtractor, err := nlp.NewFeatureExtractor()
	require.NoError(t, err)
	clf := classifier.New(featureExtractor, 150, logger)
	model, err := clf.Train(templates)
	require.NoError(t, err)
	clf.Swap(model)

	matcher := services.NewFuzzyEntityMatcher(repo, 80, logger)
	engine := services.NewTemplateEngine(matcher, repo.Schemas(), time.Second, logger)
	registry, err := services.BuildRegistry(templates, engine)
	require.NoError(t, err)

	extractor := services.NewLexiconExtractor(repo, logger)
	nimbus := services.NewNimbus(extractor, clf, registry, logger)

	mux := http.NewServeMux()
	NewAskHandler(nimbus, logger).RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newAskRepo() *repositories.MemoryEntityRepository {
	repo := repositories.NewMemoryEntityRepository(models.DefaultSchemas())
	repo.Add(models.EntityProfessors, models.EntityRecord{
		"first_name": "Foaad",
		"last_name":  "Khosmood",
	})
	repo.Add(models.EntityCourses, models.EntityRecord{
		"course_name": "CSC 357",
		"instructor":  "Khosmood",
	})
	return repo
}

func postAsk(t *testing.T, server *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+"/ask", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAskHandler_AnswersQuestion(t *testing.T) {
	server := newAskServer(t, newAskRepo())

	resp := postAsk(t, server, `{"question": "Who teaches CSC 357?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response AskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.Equal(t, "Who teaches CSC 357?", response.Question)
	assert.Equal(t, "Foaad Khosmood teaches CSC 357.", response.Answer)
	assert.Equal(t, models.StateAnswered, response.State)
}

func TestAskHandler_UnknownQuestionIsStillOK(t *testing.T) {
	server := newAskServer(t, newAskRepo())

	resp := postAsk(t, server, `{"question": "Sing me a sea shanty about compilers."}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response AskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.Equal(t, models.StateUnknown, response.State)
	assert.Equal(t, models.MsgUnknown, response.Answer)
}

func TestAskHandler_RejectsBadRequests(t *testing.T) {
	server := newAskServer(t, newAskRepo())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"question": `},
		{"empty question", `{"question": ""}`},
		{"oversized question", fmt.Sprintf(`{"question": %q}`, strings.Repeat("a", 501))},
		{"sql injection", `{"question": "x' OR '1'='1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postAsk(t, server, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAskHandler_UnavailableCollaborator(t *testing.T) {
	server := newAskServer(t, &unavailableRepo{schemas: models.DefaultSchemas()})

	resp := postAsk(t, server, `{"question": "Who teaches CSC 357?"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unavailable", body["error"])
	assert.Equal(t, models.MsgUnavailable, body["message"])
}

func TestAskHandler_MethodNotAllowed(t *testing.T) {
	server := newAskServer(t, newAskRepo())

	resp, err := http.Get(server.URL + "/ask")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
