package models

import "github.com/google/uuid"

// QuestionTemplate is one verified (question format, answer format) pair.
// Templates are loaded once at startup and are immutable for the lifetime
// of a classifier instance.
type QuestionTemplate struct {
	ID             uuid.UUID `yaml:"-"`
	QuestionFormat string    `yaml:"question"`
	AnswerFormat   string    `yaml:"answer"`
	Verified       bool      `yaml:"verified"`
}
