package models

// AnswerState is the terminal outcome of one answer attempt. There are no
// retries: a failed lookup is terminal for that request.
type AnswerState string

const (
	// StateAnswered means the template resolved to a full answer string.
	StateAnswered AnswerState = "answered"

	// StateUnknown means no known question format matched the input.
	StateUnknown AnswerState = "unknown"

	// StateNoData means the question was understood but a chained lookup
	// found nothing.
	StateNoData AnswerState = "no_data"
)

// Fixed user-facing fallback strings. Collaborator failures are surfaced as
// errors, not as one of these, so callers can tell a retryable outage apart
// from a question Nimbus will never understand.
const (
	MsgUnknown = "I'm sorry, I don't understand. Please try another question."
	MsgNoData  = "I'm sorry, I understand your question but was unable to find an answer. " +
		"Please try another question."
	MsgUnavailable = "I'm having trouble reaching campus data right now. Please try again in a moment."
)

// AnswerResult is the orchestrator's outcome for one question.
type AnswerResult struct {
	State AnswerState
	Text  string
}
