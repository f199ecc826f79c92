package career

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/history"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/prompts"
)

var (
	ErrEmptyInput = errors.New("input is required")
	ErrNotFound   = errors.New("history record not found")
)

type Fetcher interface {
	FetchResultSynchronously(ctx context.Context, spec agent.PromptSpec, ceiling agent.Ceiling) (*agent.Result, error)
}

type Store interface {
	Get(ctx context.Context, recordID string) (*models.HistoryRecord, error)
	Replace(ctx context.Context, recordID, content string) error
}

// Service runs the one-shot report agents. Both use the longer report ceiling.
type Service struct {
	fetcher  Fetcher
	prompts  prompts.Provider
	store    Store
	ceilings agent.Ceilings
	logger   *zap.Logger
}

func NewService(fetcher Fetcher, promptProvider prompts.Provider, store Store, ceilings agent.Ceilings, logger *zap.Logger) *Service {
	return &Service{
		fetcher:  fetcher,
		prompts:  promptProvider,
		store:    store,
		ceilings: ceilings,
		logger:   logger,
	}
}

type ResumeResult struct {
	RecordID  string        `json:"record_id"`
	Report    *ResumeReport `json:"report"`
	RequestID string        `json:"request_id"`
}

type RoadmapResult struct {
	RoadmapID string   `json:"roadmap_id"`
	Roadmap   *Roadmap `json:"roadmap"`
	RequestID string   `json:"request_id"`
}

func (s *Service) AnalyzeResume(ctx context.Context, recordID, resumeText string) (*ResumeResult, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, ErrEmptyInput
	}
	if err := s.ensureRecord(ctx, recordID, models.AgentTypeResume); err != nil {
		return nil, err
	}

	result, err := s.run(ctx, agent.TaskResumeAnalysis, "resume", "analyze", map[string]string{"ResumeText": resumeText}, recordID)
	if err != nil {
		return nil, err
	}
	report, err := parseResumeReport(result.Payload)
	if err != nil {
		s.logger.Error("Unusable resume report", zap.String("record_id", recordID), zap.String("job_id", result.JobID), zap.Error(err))
		return nil, err
	}
	if err := s.persist(ctx, recordID, report); err != nil {
		return nil, err
	}
	return &ResumeResult{RecordID: recordID, Report: report, RequestID: result.JobID}, nil
}

func (s *Service) GenerateRoadmap(ctx context.Context, roadmapID, input string) (*RoadmapResult, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	if err := s.ensureRecord(ctx, roadmapID, models.AgentTypeRoadmap); err != nil {
		return nil, err
	}

	result, err := s.run(ctx, agent.TaskRoadmap, "roadmap", "generate", map[string]string{"Input": input}, roadmapID)
	if err != nil {
		return nil, err
	}
	roadmap, err := parseRoadmap(result.Payload)
	if err != nil {
		s.logger.Error("Unusable roadmap", zap.String("record_id", roadmapID), zap.String("job_id", result.JobID), zap.Error(err))
		return nil, err
	}
	if err := s.persist(ctx, roadmapID, roadmap); err != nil {
		return nil, err
	}
	s.logger.Info("Roadmap generated",
		zap.String("record_id", roadmapID),
		zap.Int("nodes", len(roadmap.Nodes)),
		zap.Int("edges", len(roadmap.Edges)))
	return &RoadmapResult{RoadmapID: roadmapID, Roadmap: roadmap, RequestID: result.JobID}, nil
}

func (s *Service) run(ctx context.Context, task agent.Task, mode, variant string, data map[string]string, recordID string) (*agent.Result, error) {
	instruction, err := s.prompts.BuildPrompt(mode, variant, data)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s prompt: %w", mode, err)
	}
	return s.fetcher.FetchResultSynchronously(ctx, agent.PromptSpec{
		Task:        task,
		Instruction: instruction,
		System:      s.prompts.System(mode),
		Metadata:    map[string]string{"record_id": recordID},
	}, s.ceilings.For(task))
}

func (s *Service) ensureRecord(ctx context.Context, recordID, agentType string) error {
	record, err := s.store.Get(ctx, recordID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return history.CheckAgent(record, agentType)
}

func (s *Service) persist(ctx context.Context, recordID string, v interface{}) error {
	content, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", recordID, err)
	}
	if err := s.store.Replace(ctx, recordID, string(content)); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to persist %s: %w", recordID, err)
	}
	return nil
}
