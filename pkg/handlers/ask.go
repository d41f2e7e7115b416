package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/corazawaf/libinjection-go"
	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/logging"
	"github.com/calpoly-csai/nimbus/pkg/models"
	"github.com/calpoly-csai/nimbus/pkg/services"
)

// maxQuestionLength bounds request bodies; real questions are short.
const maxQuestionLength = 500

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the reply to POST /ask.
type AskResponse struct {
	Question string             `json:"question"`
	Answer   string             `json:"answer"`
	State    models.AnswerState `json:"state"`
}

// AskHandler exposes the question-answering pipeline over HTTP.
type AskHandler struct {
	nimbus *services.Nimbus
	logger *zap.Logger
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(nimbus *services.Nimbus, logger *zap.Logger) *AskHandler {
	return &AskHandler{nimbus: nimbus, logger: logger.Named("ask-handler")}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /ask", h.Ask)
}

// Ask handles POST /ask requests. Collaborator outages map to 503 with a
// retryable message, distinct from the in-band "I don't understand"
// fallback which is a successful 200.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a question field")
		return
	}

	if req.Question == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "question must not be empty")
		return
	}
	if len(req.Question) > maxQuestionLength {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "question is too long")
		return
	}

	// Questions are free text that ends up near database code; screen for
	// injection payloads before they go any further.
	if isInjection, _ := libinjection.IsSQLi(req.Question); isInjection {
		h.logger.Warn("Rejected question flagged as SQL injection",
			zap.String("question", logging.SanitizeQuestion(req.Question)))
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "question contains unsupported characters")
		return
	}

	result, err := h.nimbus.AnswerQuestion(r.Context(), req.Question)
	if err != nil {
		h.logger.Error("Answer pipeline unavailable", zap.Error(err))
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "unavailable", models.MsgUnavailable)
		return
	}

	response := AskResponse{
		Question: req.Question,
		Answer:   result.Text,
		State:    result.State,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ask response", zap.Error(err))
	}
}
