package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"careercoach/ai/internal/llm"
	"careercoach/ai/internal/models"
)

type LocalConfig struct {
	Workers        int
	QueueSize      int
	MaxPromptBytes int
	JobTimeout     time.Duration
}

// LocalRunner runs jobs on an in-process worker pool and keeps their state in the
// agent_jobs table, so any replica sharing the database can poll them.
type LocalRunner struct {
	db       *gorm.DB
	provider llm.Provider
	logger   *zap.Logger
	cfg      LocalConfig

	queue   chan string
	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewLocalRunner(db *gorm.DB, provider llm.Provider, cfg LocalConfig, logger *zap.Logger) (*LocalRunner, error) {
	if err := db.AutoMigrate(&models.AgentJob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate agent jobs: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &LocalRunner{
		db:       db,
		provider: provider,
		logger:   logger,
		cfg:      cfg,
		queue:    make(chan string, cfg.QueueSize),
	}, nil
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (r *LocalRunner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.running = true

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}
	r.logger.Info("Local agent runner started", zap.Int("workers", r.cfg.Workers))
}

// Stop cancels in-flight jobs and waits for the workers to exit.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Local agent runner stopped")
}

func (r *LocalRunner) Submit(ctx context.Context, spec PromptSpec) (JobHandle, error) {
	if err := spec.Validate(); err != nil {
		return JobHandle{}, err
	}
	if r.cfg.MaxPromptBytes > 0 && spec.Size() > r.cfg.MaxPromptBytes {
		return JobHandle{}, newJobError(KindPayloadTooLarge, "",
			"prompt is %d bytes, limit is %d", spec.Size(), r.cfg.MaxPromptBytes)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.running {
		return JobHandle{}, newJobError(KindSubmissionFailed, "", "runner is not accepting jobs")
	}

	job := &models.AgentJob{
		ID:       uuid.New().String(),
		Task:     string(spec.Task),
		Status:   models.AgentJobPending,
		System:   spec.System,
		Prompt:   spec.Instruction,
		Provider: r.provider.GetProviderName(),
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return JobHandle{}, &JobError{Kind: KindSubmissionFailed, Message: "failed to persist job", Err: err}
	}

	select {
	case r.queue <- job.ID:
	default:
		r.finish(context.Background(), job.ID, "", errors.New("queue full"))
		return JobHandle{}, newJobError(KindSubmissionFailed, job.ID, "job queue is full")
	}

	r.logger.Debug("Agent job enqueued", zap.String("job_id", job.ID), zap.String("task", job.Task))
	return JobHandle{ID: job.ID}, nil
}

func (r *LocalRunner) PollOnce(ctx context.Context, handle JobHandle) (JobStatus, error) {
	if handle.ID == "" {
		return Failed(newJobError(KindUnknownJob, "", "empty job id")), nil
	}

	var job models.AgentJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", handle.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Failed(newJobError(KindUnknownJob, handle.ID, "no such job")), nil
	}
	if err != nil {
		return JobStatus{}, &JobError{Kind: KindPollTransport, JobID: handle.ID, Message: "failed to read job", Err: err}
	}
	return statusOf(&job), nil
}

func statusOf(job *models.AgentJob) JobStatus {
	switch job.Status {
	case models.AgentJobCompleted:
		return Completed(job.Output)
	case models.AgentJobFailed:
		return Failed(&JobError{Kind: KindJobFailed, JobID: job.ID, Message: job.Error})
	default:
		return Pending()
	}
}

// Sweep deletes resolved jobs and fails abandoned ones that are older than olderThan.
func (r *LocalRunner) Sweep(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	abandoned := r.db.WithContext(ctx).Model(&models.AgentJob{}).
		Where("status IN ? AND updated_at < ?", []string{models.AgentJobPending, models.AgentJobRunning}, cutoff).
		Updates(map[string]interface{}{
			"status":       models.AgentJobFailed,
			"error":        "abandoned",
			"completed_at": time.Now(),
		})
	if abandoned.Error != nil {
		return 0, fmt.Errorf("failed to fail abandoned jobs: %w", abandoned.Error)
	}

	deleted := r.db.WithContext(ctx).
		Where("status IN ? AND completed_at < ?", []string{models.AgentJobCompleted, models.AgentJobFailed}, cutoff).
		Delete(&models.AgentJob{})
	if deleted.Error != nil {
		return 0, fmt.Errorf("failed to delete resolved jobs: %w", deleted.Error)
	}

	if deleted.RowsAffected > 0 || abandoned.RowsAffected > 0 {
		r.logger.Info("Swept agent jobs",
			zap.Int64("deleted", deleted.RowsAffected),
			zap.Int64("abandoned", abandoned.RowsAffected))
	}
	return deleted.RowsAffected, nil
}

func (r *LocalRunner) work(ctx context.Context, worker int) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			r.run(ctx, id, worker)
		}
	}
}

func (r *LocalRunner) run(ctx context.Context, id string, worker int) {
	var job models.AgentJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		r.logger.Error("Failed to load agent job", zap.String("job_id", id), zap.Error(err))
		return
	}
	if err := r.db.WithContext(ctx).Model(&job).Update("status", models.AgentJobRunning).Error; err != nil {
		r.logger.Warn("Failed to mark agent job running", zap.String("job_id", id), zap.Error(err))
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()

	resp, err := r.provider.GenerateContent(callCtx, &models.GenerationRequest{
		RequestID: id,
		System:    job.System,
		Prompt:    job.Prompt,
	})
	if err != nil {
		r.logger.Error("Agent job failed",
			zap.String("job_id", id),
			zap.String("task", job.Task),
			zap.Int("worker", worker),
			zap.Error(err))
		r.finish(context.Background(), id, "", err)
		return
	}

	r.logger.Info("Agent job completed",
		zap.String("job_id", id),
		zap.String("task", job.Task),
		zap.Int("worker", worker),
		zap.Int("processing_time_ms", resp.Metadata.ProcessingTime))
	r.finish(context.Background(), id, resp.Content, nil)
}

func (r *LocalRunner) finish(ctx context.Context, id, output string, jobErr error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.AgentJobCompleted,
		"output":       output,
		"completed_at": now,
	}
	if jobErr != nil {
		updates["status"] = models.AgentJobFailed
		updates["error"] = jobErr.Error()
	}
	if err := r.db.WithContext(ctx).Model(&models.AgentJob{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		r.logger.Error("Failed to record agent job result", zap.String("job_id", id), zap.Error(err))
	}
}
