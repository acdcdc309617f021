package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielolaszy/nudge/internal/logging"
	"github.com/danielolaszy/nudge/pkg/models"
	"github.com/google/uuid"
)

// invokeRequest uses pointers so a missing field can be told apart from an
// empty one.
type invokeRequest struct {
	Channel *string `json:"channel"`
	JQL     *string `json:"jql"`
	At      *string `json:"at"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	runID := uuid.NewString()
	w.Header().Set("X-Run-Id", runID)

	input, err := decodeInvokeRequest(w, r)
	if err != nil {
		logging.Warn("rejected digest trigger", "run_id", runID, "error", err)
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	logging.Info("digest run requested",
		"run_id", runID,
		"channel", input.Channel,
		"mention", input.MentionTarget)

	if err := s.runner.Submit(r.Context(), input); err != nil {
		status, code := statusFor(err)
		logging.Error("digest run failed",
			"run_id", runID,
			"channel", input.Channel,
			"code", code,
			"error", err)
		writeError(w, status, code, err.Error())
		return
	}

	logging.Info("digest run finished", "run_id", runID, "channel", input.Channel)
	writeJSON(w, http.StatusOK, "ok")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "ok")
}

func decodeInvokeRequest(w http.ResponseWriter, r *http.Request) (models.PipelineInput, error) {
	var req invokeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		return models.PipelineInput{}, fmt.Errorf("%w: invalid request body: %w", models.ErrValidationFailed, err)
	}

	var missing []string
	if req.Channel == nil || strings.TrimSpace(*req.Channel) == "" {
		missing = append(missing, "channel")
	}
	if req.JQL == nil || strings.TrimSpace(*req.JQL) == "" {
		missing = append(missing, "jql")
	}
	if req.At == nil {
		missing = append(missing, "at")
	}
	if len(missing) > 0 {
		return models.PipelineInput{}, fmt.Errorf("%w: missing required fields: %v", models.ErrValidationFailed, missing)
	}

	return models.PipelineInput{
		Query:         EncodeJQL(*req.JQL),
		Channel:       strings.TrimSpace(*req.Channel),
		MentionTarget: *req.At,
	}, nil
}

// statusFor maps a failed run to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, models.ErrValidationFailed):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, models.ErrFetchFailed):
		return http.StatusBadGateway, "fetch_failed"
	case errors.Is(err, models.ErrDecodeFailed):
		return http.StatusBadGateway, "decode_failed"
	case errors.Is(err, models.ErrPostFailed):
		return http.StatusBadGateway, "post_failed"
	case errors.Is(err, ErrRunnerClosed), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
