package agent

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable failure class of an agent job.
type ErrorKind string

const (
	KindSubmissionFailed ErrorKind = "submission_failed"
	KindPayloadTooLarge  ErrorKind = "payload_too_large"
	KindPollTransport    ErrorKind = "poll_transport_error"
	KindJobFailed        ErrorKind = "job_failed"
	KindUnknownJob       ErrorKind = "unknown_job"
	KindJobTimedOut      ErrorKind = "job_timed_out"
	KindMalformedPayload ErrorKind = "malformed_payload"
)

// JobError describes why a job could not produce a payload.
type JobError struct {
	Kind    ErrorKind
	JobID   string
	Message string
	Err     error
}

func (e *JobError) Error() string {
	msg := string(e.Kind)
	if e.JobID != "" {
		msg = "job " + e.JobID + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *JobError) Unwrap() error {
	return e.Err
}

func newJobError(kind ErrorKind, jobID, format string, args ...interface{}) *JobError {
	return &JobError{Kind: kind, JobID: jobID, Message: fmt.Sprintf(format, args...)}
}

// Retryable reports whether the poller should keep polling after this error.
func (e *JobError) Retryable() bool {
	return e.Kind == KindPollTransport
}

// IsKind reports whether err carries a JobError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var jobErr *JobError
	return errors.As(err, &jobErr) && jobErr.Kind == kind
}

// KindOf returns the JobError kind carried by err, or "" when there is none.
func KindOf(err error) ErrorKind {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	return ""
}
