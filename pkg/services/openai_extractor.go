package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/models"
)

const extractionSystemPrompt = `You extract the single campus entity mentioned in a question.
Known tags: PROF (a professor's name), COURSE (a course name or number), CLUB (a student club), SECTION (a course section), LOC (a campus building or room).
Respond with JSON only: {"entity": "<exact substring of the question>", "tag": "<tag>"}.
If the question mentions no entity, respond with {"entity": "", "tag": ""}.`

// OpenAIExtractor recognizes entities with a hosted language model. It
// replaces the lexicon extractor when an API key is configured, covering
// mentions that are not verbatim tag-column values (nicknames, typos).
type OpenAIExtractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIExtractor creates an extractor backed by the given model.
func NewOpenAIExtractor(apiKey, model string, logger *zap.Logger) *OpenAIExtractor {
	return &OpenAIExtractor{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger.Named("openai-extractor"),
	}
}

var _ VariableExtractor = (*OpenAIExtractor)(nil)

type extractionReply struct {
	Entity string `json:"entity"`
	Tag    string `json:"tag"`
}

// Extract asks the model for the question's entity and tag. Transport
// failures surface as ErrUnavailable so callers can tell a retryable outage
// apart from an unanswerable question.
func (e *OpenAIExtractor) Extract(ctx context.Context, question string) (models.ExtractedVars, error) {
	vars := models.ExtractedVars{
		InputQuestion:      question,
		NormalizedQuestion: question,
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: 0,
	})
	if err != nil {
		return models.ExtractedVars{}, fmt.Errorf("variable extraction failed: %w: %w", apperrors.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return models.ExtractedVars{}, fmt.Errorf("variable extraction returned no choices: %w", apperrors.ErrUnavailable)
	}

	var reply extractionReply
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		e.logger.Warn("Unparseable extraction reply", zap.Error(err))
		return vars, nil
	}

	if reply.Entity == "" || reply.Tag == "" {
		return vars, nil
	}
	if !strings.Contains(question, reply.Entity) {
		e.logger.Warn("Extracted entity is not a substring of the question",
			zap.String("entity", reply.Entity))
		return vars, nil
	}

	vars.Entity = reply.Entity
	vars.Tag = strings.ToUpper(reply.Tag)
	vars.NormalizedEntity = normalizeEntity(reply.Entity, vars.Tag)
	vars.NormalizedQuestion = strings.Replace(question, reply.Entity, "["+vars.Tag+"]", 1)

	return vars, nil
}
