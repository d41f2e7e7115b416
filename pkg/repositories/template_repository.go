package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/database"
	"github.com/calpoly-csai/nimbus/pkg/models"
)

// TemplateRepository provides access to the verified question/answer
// template corpus.
type TemplateRepository interface {
	// ListVerified returns every verified template, oldest first.
	ListVerified(ctx context.Context) ([]models.QuestionTemplate, error)

	// Create stores a new template pair.
	Create(ctx context.Context, template *models.QuestionTemplate) error
}

// templateRepository implements TemplateRepository using PostgreSQL.
type templateRepository struct {
	db *database.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *database.DB) TemplateRepository {
	return &templateRepository{db: db}
}

var _ TemplateRepository = (*templateRepository)(nil)

func (r *templateRepository) ListVerified(ctx context.Context) ([]models.QuestionTemplate, error) {
	query := `
		SELECT id, question_format, answer_format, verified
		FROM qa_pairs
		WHERE verified = true
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w: %w", apperrors.ErrUnavailable, err)
	}
	defer rows.Close()

	var templates []models.QuestionTemplate
	for rows.Next() {
		var t models.QuestionTemplate
		if err := rows.Scan(&t.ID, &t.QuestionFormat, &t.AnswerFormat, &t.Verified); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read templates: %w: %w", apperrors.ErrUnavailable, err)
	}

	return templates, nil
}

func (r *templateRepository) Create(ctx context.Context, template *models.QuestionTemplate) error {
	query := `
		INSERT INTO qa_pairs (id, question_format, answer_format, verified, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		template.ID,
		template.QuestionFormat,
		template.AnswerFormat,
		template.Verified,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}
