package agent

import (
	"context"
	"strings"
	"time"
)

// Task names the backend function a job runs.
type Task string

const (
	TaskCareerChat     Task = "career_chat"
	TaskInterview      Task = "interview"
	TaskResumeAnalysis Task = "resume_analysis"
	TaskRoadmap        Task = "roadmap"
)

func (t Task) Valid() bool {
	switch t {
	case TaskCareerChat, TaskInterview, TaskResumeAnalysis, TaskRoadmap:
		return true
	}
	return false
}

// JobHandle is the opaque id of a submitted job.
type JobHandle struct {
	ID string `json:"id"`
}

type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// JobStatus is one observation of a job. Payload is set only when Completed,
// Err only when Failed.
type JobStatus struct {
	State   State
	Payload string
	Err     *JobError
}

func Pending() JobStatus {
	return JobStatus{State: StatePending}
}

func Completed(payload string) JobStatus {
	return JobStatus{State: StateCompleted, Payload: payload}
}

func Failed(err *JobError) JobStatus {
	return JobStatus{State: StateFailed, Err: err}
}

// HistoryEntry is one prior message forwarded as structured metadata.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptSpec is everything a backend needs to run one task.
type PromptSpec struct {
	Task          Task              `json:"task"`
	Instruction   string            `json:"instruction"`
	System        string            `json:"system,omitempty"`
	Domain        string            `json:"domain,omitempty"`
	InterviewType string            `json:"interview_type,omitempty"`
	CodeLanguage  string            `json:"code_language,omitempty"`
	History       []HistoryEntry    `json:"history,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Size is the number of prompt bytes sent to the model.
func (s PromptSpec) Size() int {
	return len(s.System) + len(s.Instruction)
}

// Validate checks what every runner requires before enqueueing.
func (s PromptSpec) Validate() error {
	if !s.Task.Valid() {
		return newJobError(KindSubmissionFailed, "", "unknown task %q", s.Task)
	}
	if strings.TrimSpace(s.Instruction) == "" {
		return newJobError(KindSubmissionFailed, "", "instruction is required")
	}
	return nil
}

// Runner is the submit/poll contract of a background task runner.
// PollOnce never blocks on completion; a still-running job is a Pending status.
// The returned error is reserved for transport failures while checking.
type Runner interface {
	Submit(ctx context.Context, spec PromptSpec) (JobHandle, error)
	PollOnce(ctx context.Context, handle JobHandle) (JobStatus, error)
}

// Ceiling bounds how long a caller waits for one job.
type Ceiling struct {
	Interval    time.Duration
	MaxAttempts int
}

func (c Ceiling) Max() time.Duration {
	if c.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(c.MaxAttempts-1) * c.Interval
}

// Ceilings holds the per-task poll budget.
type Ceilings map[Task]Ceiling

// DefaultCeilings gives conversational tasks a shorter budget than report tasks.
func DefaultCeilings(interval time.Duration, chatAttempts, interviewAttempts, reportAttempts int) Ceilings {
	return Ceilings{
		TaskCareerChat:     {Interval: interval, MaxAttempts: chatAttempts},
		TaskInterview:      {Interval: interval, MaxAttempts: interviewAttempts},
		TaskResumeAnalysis: {Interval: interval, MaxAttempts: reportAttempts},
		TaskRoadmap:        {Interval: interval, MaxAttempts: reportAttempts},
	}
}

func (c Ceilings) For(task Task) Ceiling {
	if ceiling, ok := c[task]; ok {
		return ceiling
	}
	return Ceiling{Interval: 500 * time.Millisecond, MaxAttempts: 60}
}
