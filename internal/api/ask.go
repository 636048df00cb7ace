package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/companyq/companyq/internal/answer"
	"github.com/companyq/companyq/internal/log"
	"github.com/companyq/companyq/internal/validate"
)

// Answerer is the part of the answering pipeline the HTTP layer needs.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

type askHandler struct {
	answerer Answerer
	logger   log.Logger
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Status   string `json:"status"`
}

// askGet handles GET /ask?q=... for quick manual testing.
func (h *askHandler) askGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, r.URL.Query().Get("q"))
}

// askPost handles POST /api/v1/ask with a JSON body.
func (h *askHandler) askPost(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with a question field", h.logger)
		return
	}
	h.respond(w, r, req.Question)
}

func (h *askHandler) respond(w http.ResponseWriter, r *http.Request, question string) {
	result, err := h.answerer.Answer(r.Context(), question)
	if err != nil {
		h.writeAnswerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Question: question,
		Answer:   result,
		Status:   "success",
	}, h.logger)
}

// writeAnswerError maps pipeline failures to HTTP status codes: rejected
// input is the client's fault (422), exhausted generation means the upstream
// model or store kept failing (502), a deadline means the request timed out
// (504), and anything else is a plain 500.
func (h *askHandler) writeAnswerError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.Error
	if errors.As(err, &ve) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", ve.Error(), h.logger)
		return
	}

	var genErr *answer.GenerationError
	if errors.As(err, &genErr) {
		h.logger.Error("answer generation failed",
			"attempts", genErr.Attempts,
			"error", genErr.Err,
			"request_id", requestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusBadGateway, "generation_failed", "failed to generate an answer, please try again", h.logger)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out", h.logger)
		return
	}

	h.logger.Error("ask request failed",
		"error", err,
		"request_id", requestIDFromContext(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
}
