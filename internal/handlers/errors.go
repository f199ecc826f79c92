package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/career"
	"careercoach/ai/internal/chat"
	"careercoach/ai/internal/feedback"
	"careercoach/ai/internal/history"
	"careercoach/ai/internal/interview"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/utils"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{interview.ErrEmptyResponse, http.StatusBadRequest, "empty_response"},
	{interview.ErrMissingDomain, http.StatusBadRequest, "missing_domain"},
	{interview.ErrInvalidType, http.StatusBadRequest, "invalid_interview_type"},
	{interview.ErrInvalidDuration, http.StatusBadRequest, "invalid_duration"},
	{interview.ErrInvalidElapsed, http.StatusBadRequest, "invalid_elapsed"},
	{chat.ErrEmptyMessage, http.StatusBadRequest, "missing_user_input"},
	{career.ErrEmptyInput, http.StatusBadRequest, "missing_input"},

	{interview.ErrNotFound, http.StatusNotFound, "not_found"},
	{chat.ErrNotFound, http.StatusNotFound, "not_found"},
	{career.ErrNotFound, http.StatusNotFound, "not_found"},
	{history.ErrNotFound, http.StatusNotFound, "not_found"},
	{feedback.ErrContextNotFound, http.StatusNotFound, "request_not_found"},

	{interview.ErrInvalidPhase, http.StatusConflict, "invalid_phase"},
	{history.ErrLocked, http.StatusConflict, "record_locked"},
	{history.ErrExists, http.StatusConflict, "record_exists"},
	{history.ErrAgent, http.StatusConflict, "record_agent_mismatch"},
	{interview.ErrAlreadyStarted, http.StatusConflict, "already_started"},
	{feedback.ErrAlreadyRated, http.StatusConflict, "already_rated"},
}

// statusFor maps a service error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}

	var jobErr *agent.JobError
	if errors.As(err, &jobErr) {
		switch jobErr.Kind {
		case agent.KindPayloadTooLarge:
			return http.StatusRequestEntityTooLarge, string(jobErr.Kind)
		case agent.KindJobTimedOut:
			return http.StatusGatewayTimeout, string(jobErr.Kind)
		case agent.KindSubmissionFailed:
			return http.StatusServiceUnavailable, string(jobErr.Kind)
		default:
			return http.StatusInternalServerError, string(jobErr.Kind)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error, fields ...zap.Field) {
	status, code := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", append(fields, zap.String("code", code), zap.Error(err))...)
		if code == "internal_error" {
			message = "Internal server error"
		}
	}
	utils.JSON(w, status, models.ErrorResponse{Code: code, Message: message})
}
