package services

import (
	"context"
	"fmt"

	"github.com/calpoly-csai/nimbus/pkg/models"
)

// QA binds one question format to its parsed answer template. Built once at
// registry construction, invoked per matching request thereafter.
type QA struct {
	QuestionFormat string

	engine   *TemplateEngine
	template *AnswerTemplate
}

// Answer resolves the QA's template against the request's extracted
// variables. The boolean is false when any chained lookup found nothing.
func (q *QA) Answer(ctx context.Context, vars models.ExtractedVars) (string, bool, error) {
	return q.engine.Resolve(ctx, q.template, vars)
}

// Registry maps verbatim question format strings to their QA objects.
type Registry struct {
	byFormat map[string]*QA
}

// BuildRegistry parses every template's answer format and registers a QA
// keyed by its question format. A malformed answer format fails the whole
// build: bad templates must never reach a live request.
func BuildRegistry(templates []models.QuestionTemplate, engine *TemplateEngine) (*Registry, error) {
	registry := &Registry{byFormat: make(map[string]*QA, len(templates))}

	for _, t := range templates {
		parsed, err := engine.Parse(t.AnswerFormat)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", t.QuestionFormat, err)
		}
		registry.byFormat[t.QuestionFormat] = &QA{
			QuestionFormat: t.QuestionFormat,
			engine:         engine,
			template:       parsed,
		}
	}

	return registry, nil
}

// Lookup returns the QA registered for the question format.
func (r *Registry) Lookup(questionFormat string) (*QA, bool) {
	qa, ok := r.byFormat[questionFormat]
	return qa, ok
}

// Len returns the number of registered QA pairs.
func (r *Registry) Len() int {
	return len(r.byFormat)
}
