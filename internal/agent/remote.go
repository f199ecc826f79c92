package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type RemoteConfig struct {
	BaseURL        string
	EventKey       string
	SigningKey     string
	MaxPromptBytes int
	Timeout        time.Duration
}

// RemoteRunner hands jobs to an external event-driven task runner. Submit sends
// an event; PollOnce reads the runs that event triggered.
type RemoteRunner struct {
	cfg    RemoteConfig
	client *http.Client
	logger *zap.Logger
}

func NewRemoteRunner(cfg RemoteConfig, logger *zap.Logger) (*RemoteRunner, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote runner requires a base URL")
	}
	if cfg.EventKey == "" {
		return nil, fmt.Errorf("remote runner requires an event key")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &RemoteRunner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type sendEventRequest struct {
	Name string     `json:"name"`
	Data PromptSpec `json:"data"`
}

type sendEventResponse struct {
	IDs    []string `json:"ids"`
	Status int      `json:"status"`
	Error  string   `json:"error,omitempty"`
}

type runsResponse struct {
	Data []struct {
		RunID  string          `json:"run_id"`
		Status string          `json:"status"`
		Output json.RawMessage `json:"output"`
	} `json:"data"`
}

func (r *RemoteRunner) Submit(ctx context.Context, spec PromptSpec) (JobHandle, error) {
	if err := spec.Validate(); err != nil {
		return JobHandle{}, err
	}
	if r.cfg.MaxPromptBytes > 0 && spec.Size() > r.cfg.MaxPromptBytes {
		return JobHandle{}, newJobError(KindPayloadTooLarge, "",
			"prompt is %d bytes, limit is %d", spec.Size(), r.cfg.MaxPromptBytes)
	}

	body, err := json.Marshal(sendEventRequest{Name: "agent/" + string(spec.Task), Data: spec})
	if err != nil {
		return JobHandle{}, &JobError{Kind: KindSubmissionFailed, Message: "failed to encode event", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/e/"+r.cfg.EventKey, bytes.NewReader(body))
	if err != nil {
		return JobHandle{}, &JobError{Kind: KindSubmissionFailed, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return JobHandle{}, &JobError{Kind: KindSubmissionFailed, Message: "event request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return JobHandle{}, newJobError(KindPayloadTooLarge, "", "runner rejected event payload")
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return JobHandle{}, newJobError(KindSubmissionFailed, "", "runner returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out sendEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return JobHandle{}, &JobError{Kind: KindSubmissionFailed, Message: "failed to decode event response", Err: err}
	}
	if len(out.IDs) == 0 || out.IDs[0] == "" {
		return JobHandle{}, newJobError(KindSubmissionFailed, "", "runner returned no event id")
	}

	r.logger.Debug("Agent event sent", zap.String("job_id", out.IDs[0]), zap.String("task", string(spec.Task)))
	return JobHandle{ID: out.IDs[0]}, nil
}

func (r *RemoteRunner) PollOnce(ctx context.Context, handle JobHandle) (JobStatus, error) {
	if handle.ID == "" {
		return Failed(newJobError(KindUnknownJob, "", "empty job id")), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/v1/events/"+handle.ID+"/runs", nil)
	if err != nil {
		return JobStatus{}, &JobError{Kind: KindPollTransport, JobID: handle.ID, Message: "failed to build request", Err: err}
	}
	if r.cfg.SigningKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.SigningKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return JobStatus{}, &JobError{Kind: KindPollTransport, JobID: handle.ID, Message: "status request failed", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Failed(newJobError(KindUnknownJob, handle.ID, "runner does not know this event")), nil
	case resp.StatusCode >= 300:
		return JobStatus{}, newJobError(KindPollTransport, handle.ID, "runner returned %d", resp.StatusCode)
	}

	var runs runsResponse
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return JobStatus{}, &JobError{Kind: KindPollTransport, JobID: handle.ID, Message: "failed to decode runs", Err: err}
	}

	// the event has been accepted but no function run has been scheduled yet
	if len(runs.Data) == 0 {
		return Pending(), nil
	}

	run := runs.Data[0]
	switch strings.ToLower(run.Status) {
	case "completed":
		return Completed(outputText(run.Output)), nil
	case "failed", "cancelled":
		return Failed(newJobError(KindJobFailed, handle.ID, "run %s %s", run.RunID, strings.ToLower(run.Status))), nil
	default:
		return Pending(), nil
	}
}

// outputText unwraps a run output. A JSON string is unquoted, an object with a
// text or content field yields that field, anything else is returned raw.
func outputText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		for _, key := range []string{"text", "content"} {
			if v, ok := obj[key]; ok {
				if err := json.Unmarshal(v, &s); err == nil {
					return s
				}
			}
		}
	}
	return string(trimmed)
}
