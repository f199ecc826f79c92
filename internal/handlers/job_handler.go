package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/utils"
)

// StatusPoller takes one status snapshot of a job; agent.Runner satisfies it.
type StatusPoller interface {
	PollOnce(ctx context.Context, handle agent.JobHandle) (agent.JobStatus, error)
}

type JobHandler struct {
	poller StatusPoller
	logger *zap.Logger
}

func NewJobHandler(poller StatusPoller, logger *zap.Logger) *JobHandler {
	return &JobHandler{poller: poller, logger: logger}
}

// StatusHandler never waits: it reports whatever the runner knows right now.
func (h *JobHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	status, err := h.poller.PollOnce(r.Context(), agent.JobHandle{ID: jobID})
	if err != nil {
		h.logger.Warn("Job status poll failed", zap.String("job_id", jobID), zap.Error(err))
		utils.JSON(w, http.StatusBadGateway, models.ErrorResponse{
			Code:    string(agent.KindPollTransport),
			Message: "Could not reach the job runner",
		})
		return
	}

	resp := models.JobStatusResponse{JobID: jobID, Status: string(status.State)}
	switch status.State {
	case agent.StateCompleted:
		resp.Output = status.Payload
	case agent.StateFailed:
		if status.Err != nil {
			resp.Error = status.Err.Message
			resp.Kind = string(status.Err.Kind)
			if status.Err.Kind == agent.KindUnknownJob {
				utils.JSON(w, http.StatusNotFound, resp)
				return
			}
		}
	}
	utils.JSON(w, http.StatusOK, resp)
}
