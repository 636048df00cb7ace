package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/companyq/companyq/internal/ingest"
	"github.com/companyq/companyq/internal/log"
)

// Reingester triggers a full knowledge base rebuild.
type Reingester interface {
	Reingest(ctx context.Context) (*ingest.Stats, error)
}

type adminHandler struct {
	ingestor Reingester
	apiKey   string
	logger   log.Logger
}

// reingest handles POST /admin/reingest. The endpoint is disabled (503) when
// no admin key is configured and rejects requests without a matching Bearer
// token (401). Only one run executes at a time; a second trigger gets 409.
func (h *adminHandler) reingest(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		writeError(w, http.StatusServiceUnavailable, "admin_disabled", "admin endpoint not configured", h.logger)
		return
	}

	token, ok := bearerToken(r)
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.apiKey)) != 1 {
		h.logger.Warn("reingest auth failed",
			"ip", r.RemoteAddr,
			"request_id", requestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing admin token", h.logger)
		return
	}

	stats, err := h.ingestor.Reingest(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "reingest_running", "another ingestion is already running", h.logger)
		case errors.Is(err, ingest.ErrNoDocuments):
			writeError(w, http.StatusUnprocessableEntity, "no_documents", "no documents found to ingest", h.logger)
		default:
			h.logger.Error("reingest failed", "error", err)
			writeError(w, http.StatusInternalServerError, "reingest_failed", "ingestion failed", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"documents": stats.Documents,
		"chunks":    stats.Chunks,
		"elapsed":   stats.Elapsed.String(),
	}, h.logger)
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	return token, token != ""
}
