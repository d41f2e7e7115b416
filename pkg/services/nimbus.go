package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/logging"
	"github.com/calpoly-csai/nimbus/pkg/models"
	"github.com/calpoly-csai/nimbus/pkg/nlp/classifier"
)

// Nimbus orchestrates one question through variable extraction,
// classification, registry lookup and template resolution. The outcome is a
// three-state machine (unknown / no data / answered) with no retries.
type Nimbus struct {
	extractor  VariableExtractor
	classifier *classifier.Classifier
	registry   atomic.Pointer[Registry]
	logger     *zap.Logger
}

// NewNimbus creates the orchestrator. The classifier must already hold a
// trained model and the registry must be built from the same templates.
func NewNimbus(extractor VariableExtractor, clf *classifier.Classifier, registry *Registry, logger *zap.Logger) *Nimbus {
	n := &Nimbus{
		extractor:  extractor,
		classifier: clf,
		logger:     logger.Named("nimbus"),
	}
	n.registry.Store(registry)
	return n
}

// SwapRegistry atomically replaces the QA registry. Used together with
// Classifier.Swap when retraining against a refreshed template corpus.
func (n *Nimbus) SwapRegistry(registry *Registry) {
	n.registry.Store(registry)
}

// AnswerQuestion answers one raw question. Failure states collapse to
// fixed human-readable strings in the result; only collaborator outages
// (storage or extraction unreachable) are returned as errors, since those
// are retryable and an unanswerable question is not.
func (n *Nimbus) AnswerQuestion(ctx context.Context, question string) (*models.AnswerResult, error) {
	vars, err := n.extractor.Extract(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to extract variables: %w", err)
	}

	prediction, err := n.classifier.Classify(vars.NormalizedQuestion)
	if err != nil {
		if errors.Is(err, apperrors.ErrEmptyQuestion) {
			return &models.AnswerResult{State: models.StateUnknown, Text: models.MsgUnknown}, nil
		}
		return nil, fmt.Errorf("failed to classify question: %w", err)
	}

	if prediction.Outcome != classifier.OutcomeMatched {
		n.logger.Info("Question not matched",
			zap.String("question", logging.SanitizeQuestion(question)),
			zap.Float64("distance", prediction.Distance),
			zap.Bool("wh_mismatch", prediction.Outcome == classifier.OutcomeWHMismatch))
		return &models.AnswerResult{State: models.StateUnknown, Text: models.MsgUnknown}, nil
	}

	vars.QuestionClass = prediction.QuestionClass

	qa, ok := n.registry.Load().Lookup(vars.QuestionClass)
	if !ok {
		n.logger.Warn("Classified into an unregistered question format",
			zap.String("question_class", vars.QuestionClass))
		return &models.AnswerResult{State: models.StateUnknown, Text: models.MsgUnknown}, nil
	}

	answer, found, err := qa.Answer(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve answer: %w", err)
	}
	if !found {
		return &models.AnswerResult{State: models.StateNoData, Text: models.MsgNoData}, nil
	}

	n.logger.Info("Answered question",
		zap.String("question", logging.SanitizeQuestion(question)),
		zap.String("question_class", vars.QuestionClass))

	return &models.AnswerResult{State: models.StateAnswered, Text: answer}, nil
}
