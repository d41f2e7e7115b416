package apperrors

import "errors"

var (
	// ErrUnknownEntityType indicates a lookup against an entity type that is
	// not part of the schema set. This is a programming error, not bad data.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrMalformedTemplate indicates an answer format that failed token
	// parsing. Detected at registry construction, never at answer time.
	ErrMalformedTemplate = errors.New("malformed answer template")

	// ErrModelMissing indicates that no trained classifier model exists on
	// disk. Fatal at startup unless a fresh training pass succeeds.
	ErrModelMissing = errors.New("no trained classifier model found")

	// ErrEmptyQuestion indicates an input with no parseable sentence.
	ErrEmptyQuestion = errors.New("question has no parseable sentence")

	// ErrUnavailable indicates a collaborator (storage, variable extraction)
	// could not be reached. Retryable, unlike a failed classification.
	ErrUnavailable = errors.New("temporarily unavailable")
)
