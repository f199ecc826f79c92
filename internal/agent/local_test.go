package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"careercoach/ai/internal/models"
)

type mockProvider struct {
	generateContentFn func(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResponse, error)
}

func (m *mockProvider) GenerateContent(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResponse, error) {
	return m.generateContentFn(ctx, req)
}

func (m *mockProvider) GetProviderName() string { return "mock" }

var dbCounter int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:agent%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestLocalRunner(t *testing.T, provider *mockProvider, cfg LocalConfig) *LocalRunner {
	t.Helper()
	runner, err := NewLocalRunner(setupTestDB(t), provider, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocalRunner returned error: %v", err)
	}
	return runner
}

func TestLocalRunnerEndToEnd(t *testing.T) {
	provider := &mockProvider{generateContentFn: func(_ context.Context, req *models.GenerationRequest) (*models.GenerationResponse, error) {
		return &models.GenerationResponse{Content: "echo: " + req.Prompt, RequestID: req.RequestID}, nil
	}}
	runner := newTestLocalRunner(t, provider, LocalConfig{Workers: 2, QueueSize: 4})
	runner.Start(context.Background())
	defer runner.Stop()

	poller := NewPoller(runner, zap.NewNop())
	result, err := poller.FetchResultSynchronously(context.Background(),
		PromptSpec{Task: TaskCareerChat, Instruction: "hello"},
		Ceiling{Interval: 10 * time.Millisecond, MaxAttempts: 200})
	if err != nil {
		t.Fatalf("FetchResultSynchronously returned error: %v", err)
	}
	if result.Payload != "echo: hello" {
		t.Fatalf("unexpected payload %q", result.Payload)
	}
}

func TestLocalRunnerReportsProviderFailure(t *testing.T) {
	provider := &mockProvider{generateContentFn: func(context.Context, *models.GenerationRequest) (*models.GenerationResponse, error) {
		return nil, errors.New("quota exceeded")
	}}
	runner := newTestLocalRunner(t, provider, LocalConfig{Workers: 1, QueueSize: 1})
	runner.Start(context.Background())
	defer runner.Stop()

	poller := NewPoller(runner, zap.NewNop())
	_, err := poller.FetchResultSynchronously(context.Background(),
		PromptSpec{Task: TaskRoadmap, Instruction: "plan"},
		Ceiling{Interval: 10 * time.Millisecond, MaxAttempts: 200})
	if !IsKind(err, KindJobFailed) {
		t.Fatalf("expected job_failed, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected provider error text, got %v", err)
	}
}

func TestLocalRunnerSubmitValidation(t *testing.T) {
	provider := &mockProvider{}
	runner := newTestLocalRunner(t, provider, LocalConfig{MaxPromptBytes: 8})

	_, err := runner.Submit(context.Background(), PromptSpec{Task: TaskInterview, Instruction: "this prompt is too long"})
	if !IsKind(err, KindPayloadTooLarge) {
		t.Fatalf("expected payload_too_large, got %v", err)
	}

	_, err = runner.Submit(context.Background(), PromptSpec{Task: TaskInterview, Instruction: "short"})
	if !IsKind(err, KindSubmissionFailed) {
		t.Fatalf("expected submission_failed before Start, got %v", err)
	}
}

func TestLocalRunnerQueueFull(t *testing.T) {
	runner := newTestLocalRunner(t, &mockProvider{}, LocalConfig{QueueSize: 1})
	// accept jobs without any workers draining the queue
	runner.running = true

	first, err := runner.Submit(context.Background(), PromptSpec{Task: TaskInterview, Instruction: "one"})
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	_, err = runner.Submit(context.Background(), PromptSpec{Task: TaskInterview, Instruction: "two"})
	if !IsKind(err, KindSubmissionFailed) {
		t.Fatalf("expected submission_failed on full queue, got %v", err)
	}

	status, err := runner.PollOnce(context.Background(), first)
	if err != nil {
		t.Fatalf("PollOnce returned error: %v", err)
	}
	if status.State != StatePending {
		t.Fatalf("expected queued job to be pending, got %s", status.State)
	}
}

func TestLocalRunnerPollUnknownJob(t *testing.T) {
	runner := newTestLocalRunner(t, &mockProvider{}, LocalConfig{})

	status, err := runner.PollOnce(context.Background(), JobHandle{ID: "missing"})
	if err != nil {
		t.Fatalf("unknown job must not be a transport error: %v", err)
	}
	if status.State != StateFailed || status.Err.Kind != KindUnknownJob {
		t.Fatalf("expected unknown_job failure, got %+v", status)
	}
}

func TestLocalRunnerSweep(t *testing.T) {
	runner := newTestLocalRunner(t, &mockProvider{}, LocalConfig{})
	old := time.Now().Add(-48 * time.Hour)

	jobs := []models.AgentJob{
		{ID: "done-old", Task: "interview", Status: models.AgentJobCompleted, Prompt: "p", CompletedAt: &old},
		{ID: "stuck-old", Task: "interview", Status: models.AgentJobRunning, Prompt: "p"},
		{ID: "fresh", Task: "interview", Status: models.AgentJobPending, Prompt: "p"},
	}
	for i := range jobs {
		if err := runner.db.Create(&jobs[i]).Error; err != nil {
			t.Fatalf("failed to seed job: %v", err)
		}
	}
	if err := runner.db.Model(&models.AgentJob{}).Where("id = ?", "stuck-old").UpdateColumn("updated_at", old).Error; err != nil {
		t.Fatalf("failed to age job: %v", err)
	}

	deleted, err := runner.Sweep(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted job, got %d", deleted)
	}

	status, _ := runner.PollOnce(context.Background(), JobHandle{ID: "stuck-old"})
	if status.State != StateFailed {
		t.Fatalf("expected abandoned job to be failed, got %s", status.State)
	}
	status, _ = runner.PollOnce(context.Background(), JobHandle{ID: "fresh"})
	if status.State != StatePending {
		t.Fatalf("expected fresh job to stay pending, got %s", status.State)
	}
}
