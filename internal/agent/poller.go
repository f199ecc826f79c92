package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"careercoach/ai/internal/metrics"
)

// sleeper waits for d or until ctx is done.
type sleeper func(ctx context.Context, d time.Duration) error

// Result is a resolved job payload.
type Result struct {
	JobID    string
	Payload  string
	Attempts int
}

// Poller turns a Runner's submit/poll primitives into a bounded synchronous wait.
type Poller struct {
	runner Runner
	logger *zap.Logger
	sleep  sleeper
	hooks  []ResultHook
}

// ResultHook observes every payload returned by FetchResultSynchronously.
type ResultHook func(spec PromptSpec, result *Result)

func NewPoller(runner Runner, logger *zap.Logger) *Poller {
	return &Poller{
		runner: runner,
		logger: logger,
		sleep:  sleepContext,
	}
}

func (p *Poller) Runner() Runner {
	return p.runner
}

// OnResolved registers a hook; hooks must be registered before the poller is shared.
func (p *Poller) OnResolved(hook ResultHook) {
	p.hooks = append(p.hooks, hook)
}

// Resolve polls handle until it completes, fails, or maxAttempts polls have been made.
func (p *Poller) Resolve(ctx context.Context, handle JobHandle, interval time.Duration, maxAttempts int) (string, error) {
	payload, _, err := p.resolve(ctx, "", handle, Ceiling{Interval: interval, MaxAttempts: maxAttempts})
	return payload, err
}

// FetchResultSynchronously submits spec and waits for it within ceiling.
func (p *Poller) FetchResultSynchronously(ctx context.Context, spec PromptSpec, ceiling Ceiling) (*Result, error) {
	handle, err := p.runner.Submit(ctx, spec)
	if err != nil {
		metrics.ObserveSubmission(string(spec.Task), outcomeOf(err))
		p.logger.Error("Failed to submit agent job",
			zap.String("task", string(spec.Task)),
			zap.Error(err))
		return nil, err
	}
	metrics.ObserveSubmission(string(spec.Task), "ok")

	payload, attempts, err := p.resolve(ctx, spec.Task, handle, ceiling)
	if err != nil {
		return nil, err
	}
	result := &Result{JobID: handle.ID, Payload: payload, Attempts: attempts}
	for _, hook := range p.hooks {
		hook(spec, result)
	}
	return result, nil
}

func (p *Poller) resolve(ctx context.Context, task Task, handle JobHandle, ceiling Ceiling) (string, int, error) {
	maxAttempts := ceiling.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	label := string(task)
	if label == "" {
		label = "adhoc"
	}
	start := time.Now()
	logger := p.logger.With(zap.String("job_id", handle.ID), zap.String("task", label))

	finish := func(outcome string, attempts int) {
		metrics.ObserveResolution(label, outcome, attempts, time.Since(start))
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := p.runner.PollOnce(ctx, handle)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				finish("canceled", attempt)
				return "", attempt, fmt.Errorf("resolve job %s: %w", handle.ID, ctxErr)
			}
			logger.Warn("Transient error while polling job",
				zap.Int("attempt", attempt),
				zap.Error(err))

		case status.State == StateCompleted:
			if strings.TrimSpace(status.Payload) == "" {
				finish(string(KindJobFailed), attempt)
				logger.Error("Job completed without a usable payload", zap.Int("attempts", attempt))
				return "", attempt, newJobError(KindJobFailed, handle.ID, "empty or malformed result")
			}
			finish("completed", attempt)
			logger.Info("Job resolved", zap.Int("attempts", attempt))
			return status.Payload, attempt, nil

		case status.State == StateFailed:
			jobErr := status.Err
			if jobErr == nil {
				jobErr = newJobError(KindJobFailed, handle.ID, "backend reported failure")
			}
			if jobErr.JobID == "" {
				jobErr.JobID = handle.ID
			}
			finish(string(jobErr.Kind), attempt)
			logger.Error("Job failed", zap.Int("attempts", attempt), zap.Error(jobErr))
			return "", attempt, jobErr
		}

		if attempt == maxAttempts {
			break
		}
		if err := p.sleep(ctx, ceiling.Interval); err != nil {
			finish("canceled", attempt)
			return "", attempt, fmt.Errorf("resolve job %s: %w", handle.ID, err)
		}
	}

	finish(string(KindJobTimedOut), maxAttempts)
	logger.Error("Job timed out", zap.Int("attempts", maxAttempts))
	return "", maxAttempts, newJobError(KindJobTimedOut, handle.ID, "no result after %d polls", maxAttempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func outcomeOf(err error) string {
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}
