// Package handler provides the HTTP handlers of the expert finder API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/internal/agent"
	"github.com/olusayo/zendesk-sme-finder/internal/middleware"
	"github.com/olusayo/zendesk-sme-finder/internal/model"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

// maxBodyBytes bounds the request body.
const maxBodyBytes = 1 << 20

// Finder runs the expert finder workflow.
type Finder interface {
	Find(ctx context.Context, req *model.FindRequest) (*model.ResponseEnvelope, error)
}

// FinderHandler handles expert finder requests.
type FinderHandler struct {
	finder Finder
	logger *logger.Logger
}

// NewFinderHandler creates a new finder handler.
func NewFinderHandler(finder Finder, log *logger.Logger) *FinderHandler {
	return &FinderHandler{
		finder: finder,
		logger: log,
	}
}

// FindExperts handles POST /api/v1/find-experts
func (h *FinderHandler) FindExperts(w http.ResponseWriter, r *http.Request) {
	var req model.FindRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateFindRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	envelope, err := h.finder.Find(r.Context(), &req)
	if err != nil {
		status, message := StatusForError(err)
		h.logger.FromContext(r.Context()).Error("find experts failed",
			zap.Int("status", status),
			zap.Error(err),
		)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, envelope)
}

// StatusForError maps a fatal workflow error to an HTTP status and a
// client-safe message.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrThrottled):
		return http.StatusTooManyRequests, "reasoning service is throttling requests, retry later"
	case errors.Is(err, agent.ErrMalformedOutput):
		return http.StatusBadGateway, "reasoning service returned an invalid response"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "reasoning service timed out"
	case errors.Is(err, agent.ErrUnavailable):
		return http.StatusServiceUnavailable, "reasoning service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
