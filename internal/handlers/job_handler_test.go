package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/models"
)

func TestJobStatusHandler(t *testing.T) {
	tests := []struct {
		name   string
		status agent.JobStatus
		err    error
		code   int
		want   models.JobStatusResponse
	}{
		{"pending", agent.Pending(), nil, http.StatusOK, models.JobStatusResponse{JobID: "j", Status: "pending"}},
		{"completed", agent.Completed("hello"), nil, http.StatusOK, models.JobStatusResponse{JobID: "j", Status: "completed", Output: "hello"}},
		{"failed", agent.Failed(&agent.JobError{Kind: agent.KindJobFailed, Message: "quota"}), nil, http.StatusOK,
			models.JobStatusResponse{JobID: "j", Status: "failed", Error: "quota", Kind: "job_failed"}},
		{"unknown", agent.Failed(&agent.JobError{Kind: agent.KindUnknownJob, Message: "no such job"}), nil, http.StatusNotFound,
			models.JobStatusResponse{JobID: "j", Status: "failed", Error: "no such job", Kind: "unknown_job"}},
		{"transport", agent.JobStatus{}, errBoom, http.StatusBadGateway, models.JobStatusResponse{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewJobHandler(&mockStatusPoller{pollFn: func(handle agent.JobHandle) (agent.JobStatus, error) {
				if handle.ID != "j" {
					t.Errorf("unexpected handle %q", handle.ID)
				}
				return tt.status, tt.err
			}}, zap.NewNop())

			req := addURLParam(httptest.NewRequest(http.MethodGet, "/jobs/j", nil), "job_id", "j")
			rec := httptest.NewRecorder()
			h.StatusHandler(rec, req)

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			if tt.err != nil {
				return
			}
			var got models.JobStatusResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
