package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/career"
	"careercoach/ai/internal/chat"
	"careercoach/ai/internal/feedback"
	"careercoach/ai/internal/history"
	"careercoach/ai/internal/interview"
	"careercoach/ai/internal/models"
)

type mockProvider struct {
	generateContentFn func(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResponse, error)
}

func (m *mockProvider) GenerateContent(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResponse, error) {
	if m.generateContentFn == nil {
		return &models.GenerationResponse{}, nil
	}
	return m.generateContentFn(ctx, req)
}

func (m *mockProvider) GetProviderName() string { return "mock" }

type mockTemplates struct {
	modes []string
}

func (m *mockTemplates) Modes() []string { return m.modes }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// memRecords is an in-memory history.Store.
type memRecords struct {
	mu      sync.Mutex
	records map[string]*models.HistoryRecord
	created int
}

func newMemRecords() *memRecords {
	return &memRecords{records: map[string]*models.HistoryRecord{}}
}

func (m *memRecords) Get(_ context.Context, id string) (*models.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *memRecords) Create(_ context.Context, r *models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.RecordID]; ok {
		return history.ErrExists
	}
	c := *r
	m.records[r.RecordID] = &c
	m.created++
	return nil
}

func (m *memRecords) Replace(_ context.Context, id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return history.ErrNotFound
	}
	r.Content = content
	return nil
}

func (m *memRecords) List(_ context.Context, owner string) ([]models.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.HistoryRecord{}
	for _, r := range m.records {
		if r.UserEmail == owner {
			out = append(out, *r)
		}
	}
	return out, nil
}

type mockInterviews struct {
	startFn    func(p interview.StartParams) (*interview.Session, error)
	answerFn   func(id string, a interview.Answer) (*interview.Session, error)
	tickFn     func(id string, elapsed int) (*interview.Session, error)
	endFn      func(id string) (*interview.Session, error)
	completeFn func(id string) (*interview.Session, error)
	loadFn     func(id string) (*interview.Session, error)
}

func (m *mockInterviews) Start(_ context.Context, p interview.StartParams) (*interview.Session, error) {
	return m.startFn(p)
}

func (m *mockInterviews) SubmitAnswer(_ context.Context, id string, a interview.Answer) (*interview.Session, error) {
	return m.answerFn(id, a)
}

func (m *mockInterviews) Tick(_ context.Context, id string, elapsed int) (*interview.Session, error) {
	return m.tickFn(id, elapsed)
}

func (m *mockInterviews) EndNow(_ context.Context, id string) (*interview.Session, error) {
	return m.endFn(id)
}

func (m *mockInterviews) Complete(_ context.Context, id string) (*interview.Session, error) {
	return m.completeFn(id)
}

func (m *mockInterviews) Load(_ context.Context, id string) (*interview.Session, error) {
	return m.loadFn(id)
}

type mockChat struct {
	sendFn func(threadID, input string) (*chat.SendResult, error)
}

func (m *mockChat) Send(_ context.Context, threadID, input string) (*chat.SendResult, error) {
	return m.sendFn(threadID, input)
}

type mockCareer struct {
	analyzeFn func(recordID, text string) (*career.ResumeResult, error)
	roadmapFn func(roadmapID, input string) (*career.RoadmapResult, error)
}

func (m *mockCareer) AnalyzeResume(_ context.Context, recordID, text string) (*career.ResumeResult, error) {
	return m.analyzeFn(recordID, text)
}

func (m *mockCareer) GenerateRoadmap(_ context.Context, roadmapID, input string) (*career.RoadmapResult, error) {
	return m.roadmapFn(roadmapID, input)
}

type mockStatusPoller struct {
	pollFn func(handle agent.JobHandle) (agent.JobStatus, error)
}

func (m *mockStatusPoller) PollOnce(_ context.Context, handle agent.JobHandle) (agent.JobStatus, error) {
	return m.pollFn(handle)
}

type mockRatings struct {
	submitFn func(requestID string, positive bool) error
	sinceFn  func(since time.Time, limit int) ([]models.ReplyRating, error)
	statsFn  func() (*feedback.Stats, error)
}

func (m *mockRatings) SubmitFeedback(requestID string, positive bool) error {
	return m.submitFn(requestID, positive)
}

func (m *mockRatings) GetFeedbackSince(since time.Time, limit int) ([]models.ReplyRating, error) {
	return m.sinceFn(since, limit)
}

func (m *mockRatings) ExportToJSONL(ratings []models.ReplyRating) ([]byte, error) {
	return []byte(`{"contents":[]}`), nil
}

func (m *mockRatings) GetFeedbackStats() (*feedback.Stats, error) {
	return m.statsFn()
}

func addURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

var errBoom = errors.New("boom")
