package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/history"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/prompts"
)

type mockFetcher struct {
	fetchFn func(spec agent.PromptSpec) (string, error)
	specs   []agent.PromptSpec
}

func (m *mockFetcher) FetchResultSynchronously(_ context.Context, spec agent.PromptSpec, _ agent.Ceiling) (*agent.Result, error) {
	m.specs = append(m.specs, spec)
	payload, err := m.fetchFn(spec)
	if err != nil {
		return nil, err
	}
	return &agent.Result{JobID: fmt.Sprintf("job-%d", len(m.specs)), Payload: payload, Attempts: 1}, nil
}

func (m *mockFetcher) last() agent.PromptSpec {
	return m.specs[len(m.specs)-1]
}

type memStore struct {
	records  map[string]*models.HistoryRecord
	replaces int
}

func newMemStore(ids ...string) *memStore {
	s := &memStore{records: map[string]*models.HistoryRecord{}}
	for _, id := range ids {
		s.records[id] = &models.HistoryRecord{RecordID: id, AIAgentType: models.AgentTypeInterview}
	}
	return s
}

func (s *memStore) Get(_ context.Context, id string) (*models.HistoryRecord, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *memStore) Replace(_ context.Context, id, content string) error {
	r, ok := s.records[id]
	if !ok {
		return history.ErrNotFound
	}
	s.replaces++
	r.Content = content
	return nil
}

const (
	openingReply  = `{"interview_phase":"conversation","ai_message":"Welcome! Tell me about yourself.","interview_type":"technical"}`
	followUpReply = "```json\n{\"interview_phase\":\"conversation\",\"ai_message\":\"How would you index that table?\"}\n```"
	feedbackReply = `{"interview_phase":"feedback","feedback":{"overall_score":78,"strengths":["clear communication"],"areas_for_improvement":["depth"],"detailed_analysis":"Solid.","recommendations":["practice"],"next_steps":"Mock again."}}`
	dsaOpening    = `{"interview_phase":"conversation","ai_message":"Let's solve a problem.","dsa_question":{"title":"Valid Parentheses","description":"Check brackets.","difficulty":"Easy","examples":["Input: \"()\" Output: true"],"constraints":["1 <= s.length"],"test_cases":[{"input":"()","output":"true","explanation":"matched"}]}}`
)

// scripted answers by prompt variant, like a deterministic backend
func scripted(spec agent.PromptSpec) (string, error) {
	switch spec.Metadata["variant"] {
	case VariantOpening:
		return openingReply, nil
	case VariantOpeningDSA:
		return dsaOpening, nil
	case VariantFeedback:
		return feedbackReply, nil
	default:
		return followUpReply, nil
	}
}

func newTestOrchestrator(t *testing.T, fetcher *mockFetcher, store *memStore) *Orchestrator {
	t.Helper()
	pm, err := prompts.NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}
	o := NewOrchestrator(fetcher, pm, store, Config{RecentTurns: 2}, zap.NewNop())
	o.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	return o
}

func startTechnical(t *testing.T, o *Orchestrator) *Session {
	t.Helper()
	s, err := o.Start(context.Background(), StartParams{
		ID:              "iv-1",
		UserEmail:       "a@example.com",
		Domain:          "Backend Engineer",
		Type:            TypeTechnical,
		DurationSeconds: 600,
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	return s
}

func TestTechnicalInterviewEndToEnd(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	store := newMemStore("iv-1")
	o := newTestOrchestrator(t, fetcher, store)
	ctx := context.Background()

	s := startTechnical(t, o)
	if s.Phase != PhaseConversation || s.TurnCount() != 0 {
		t.Fatalf("unexpected session after start: phase=%s turns=%d", s.Phase, s.TurnCount())
	}
	if s.CurrentMessage != "Welcome! Tell me about yourself." || s.LastRequestID != "job-1" {
		t.Fatalf("unexpected opening: %+v", s)
	}
	if got := fetcher.last(); got.Task != agent.TaskInterview || got.System == "" || got.Domain != "Backend Engineer" {
		t.Fatalf("unexpected opening spec: %+v", got)
	}

	s, err := o.SubmitAnswer(ctx, "iv-1", Answer{Text: "I'd use an index"})
	if err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}
	if s.TurnCount() != 1 || s.Phase != PhaseConversation {
		t.Fatalf("expected 1 turn in conversation, got %d in %s", s.TurnCount(), s.Phase)
	}
	if s.Turns[0].AIMessage != "Welcome! Tell me about yourself." || s.Turns[0].UserResponse != "I'd use an index" {
		t.Fatalf("unexpected turn %+v", s.Turns[0])
	}
	if s.CurrentMessage != "How would you index that table?" {
		t.Fatalf("unexpected follow-up %q", s.CurrentMessage)
	}

	s, err = o.Tick(ctx, "iv-1", 600)
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if s.Phase != PhaseFeedback || s.FinalReport == nil {
		t.Fatalf("expected feedback with a report, got phase=%s report=%v", s.Phase, s.FinalReport)
	}
	if s.FinalReport.OverallScore < 0 || s.FinalReport.OverallScore > 100 {
		t.Fatalf("score out of range: %d", s.FinalReport.OverallScore)
	}
	if s.RemainingTime != 0 || s.FeedbackPending {
		t.Fatalf("unexpected final state %+v", s)
	}
	if !strings.Contains(fetcher.last().Instruction, "I'd use an index") {
		t.Fatalf("report prompt must carry the full transcript: %s", fetcher.last().Instruction)
	}

	if _, err := o.SubmitAnswer(ctx, "iv-1", Answer{Text: "one more thing"}); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("answers must be rejected after feedback, got %v", err)
	}

	s, err = o.Complete(ctx, "iv-1")
	if err != nil || s.Phase != PhaseCompleted {
		t.Fatalf("Complete failed: %v (%v)", err, s)
	}

	persisted, err := o.Load(ctx, "iv-1")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if persisted.Phase != PhaseCompleted || persisted.TurnCount() != 1 || persisted.FinalReport.OverallScore != 78 {
		t.Fatalf("unexpected persisted session %+v", persisted)
	}
}

func TestDSAInterviewOpeningHasArtifact(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	o := newTestOrchestrator(t, fetcher, newMemStore("dsa-1"))

	s, err := o.Start(context.Background(), StartParams{
		ID: "dsa-1", UserEmail: "a@example.com", Domain: "SWE", Type: TypeDSA, DurationSeconds: 1800, CodeLanguage: "python",
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if s.DSAQuestion == nil || len(s.DSAQuestion.Examples) == 0 || len(s.DSAQuestion.TestCases) == 0 {
		t.Fatalf("DSA opening must carry a complete problem: %+v", s.DSAQuestion)
	}
	if s.DSAQuestion.Title != "Valid Parentheses" || s.DSAQuestion.Difficulty != "easy" {
		t.Fatalf("unexpected problem %+v", s.DSAQuestion)
	}
	if fetcher.last().Metadata["variant"] != VariantOpeningDSA {
		t.Fatalf("expected DSA opening variant, got %s", fetcher.last().Metadata["variant"])
	}

	// follow-ups forward the existing problem instead of asking for a new one
	_, err = o.SubmitAnswer(context.Background(), "dsa-1", Answer{Text: "use a stack", Code: "def f(s):\n    return True", Language: "python"})
	if err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}
	instruction := fetcher.last().Instruction
	if !strings.Contains(instruction, "Valid Parentheses") || !strings.Contains(instruction, "1: def f(s):") {
		t.Fatalf("continuation prompt should carry the problem and numbered code: %s", instruction)
	}
}

func TestDSAOpeningWithoutProblemUsesFallback(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: func(agent.PromptSpec) (string, error) {
		return `{"ai_message":"Hi there"}`, nil
	}}
	o := newTestOrchestrator(t, fetcher, newMemStore("dsa-1"))

	s, err := o.Start(context.Background(), StartParams{ID: "dsa-1", Domain: "SWE", Type: TypeDSA, DurationSeconds: 60})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if s.DSAQuestion == nil || s.DSAQuestion.Title != "Two Sum" {
		t.Fatalf("expected Two Sum fallback, got %+v", s.DSAQuestion)
	}
	if s.CurrentMessage != "Hi there" || s.Degraded {
		t.Fatalf("agent message should be kept: %+v", s)
	}
}

func TestMalformedTurnDegradesToFallback(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: func(agent.PromptSpec) (string, error) {
		return "I am not JSON", nil
	}}
	o := newTestOrchestrator(t, fetcher, newMemStore("iv-1"))

	s := startTechnical(t, o)
	if !s.Degraded || s.CurrentMessage != fallbackMessage(TypeTechnical, "Backend Engineer", true) {
		t.Fatalf("expected canned opening, got %+v", s)
	}

	s, err := o.SubmitAnswer(context.Background(), "iv-1", Answer{Text: "hello"})
	if err != nil {
		t.Fatalf("parse failures must not surface on turns: %v", err)
	}
	if s.TurnCount() != 1 || s.CurrentMessage != fallbackMessage(TypeTechnical, "Backend Engineer", false) {
		t.Fatalf("unexpected degraded turn %+v", s)
	}
}

func TestSubmitAnswerRejectsBlankWithoutCalls(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	store := newMemStore("iv-1")
	o := newTestOrchestrator(t, fetcher, store)
	startTechnical(t, o)
	calls, writes := len(fetcher.specs), store.replaces

	if _, err := o.SubmitAnswer(context.Background(), "iv-1", Answer{Text: "   ", Code: "\t"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if len(fetcher.specs) != calls || store.replaces != writes {
		t.Fatal("blank answers must not call the agent or write the store")
	}
	s, _ := o.Load(context.Background(), "iv-1")
	if s.TurnCount() != 0 {
		t.Fatalf("turn count changed: %d", s.TurnCount())
	}
}

func TestAgentFailureLeavesSessionUnchanged(t *testing.T) {
	fail := false
	fetcher := &mockFetcher{}
	fetcher.fetchFn = func(spec agent.PromptSpec) (string, error) {
		if fail {
			return "", &agent.JobError{Kind: agent.KindJobTimedOut}
		}
		return scripted(spec)
	}
	store := newMemStore("iv-1")
	o := newTestOrchestrator(t, fetcher, store)
	startTechnical(t, o)
	before := store.records["iv-1"].Content

	fail = true
	if _, err := o.SubmitAnswer(context.Background(), "iv-1", Answer{Text: "my answer"}); !agent.IsKind(err, agent.KindJobTimedOut) {
		t.Fatalf("expected job_timed_out, got %v", err)
	}
	if store.records["iv-1"].Content != before {
		t.Fatal("failed turn must not change the stored session")
	}

	// retrying the same input succeeds once the backend recovers
	fail = false
	s, err := o.SubmitAnswer(context.Background(), "iv-1", Answer{Text: "my answer"})
	if err != nil || s.TurnCount() != 1 {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestFeedbackFailureIsPendingAndRetryable(t *testing.T) {
	reportCalls := 0
	fetcher := &mockFetcher{}
	fetcher.fetchFn = func(spec agent.PromptSpec) (string, error) {
		if spec.Metadata["variant"] == VariantFeedback {
			reportCalls++
			if reportCalls == 1 {
				return `{"ai_message":"no report here"}`, nil
			}
		}
		return scripted(spec)
	}
	o := newTestOrchestrator(t, fetcher, newMemStore("iv-1"))
	ctx := context.Background()
	startTechnical(t, o)

	if _, err := o.EndNow(ctx, "iv-1"); !agent.IsKind(err, agent.KindMalformedPayload) {
		t.Fatalf("expected malformed_payload, got %v", err)
	}
	s, _ := o.Load(ctx, "iv-1")
	if s.Phase != PhaseFeedback || !s.FeedbackPending || s.FinalReport != nil {
		t.Fatalf("expected feedback-pending session, got %+v", s)
	}

	s, err := o.EndNow(ctx, "iv-1")
	if err != nil {
		t.Fatalf("retry EndNow returned error: %v", err)
	}
	if s.FeedbackPending || s.FinalReport == nil || s.FinalReport.OverallScore != 78 {
		t.Fatalf("unexpected session after retry %+v", s)
	}

	again, err := o.EndNow(ctx, "iv-1")
	if err != nil || reportCalls != 2 || again.FinalReport.OverallScore != 78 {
		t.Fatalf("EndNow with a report should be a no-op: %v, calls=%d", err, reportCalls)
	}
}

func TestGenerateFeedbackIsIdempotent(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	o := newTestOrchestrator(t, fetcher, newMemStore("iv-1"))
	startTechnical(t, o)
	if _, err := o.SubmitAnswer(context.Background(), "iv-1", Answer{Text: "indexes"}); err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}
	s, _ := o.Load(context.Background(), "iv-1")

	first, err := o.GenerateFeedback(context.Background(), s)
	if err != nil {
		t.Fatalf("GenerateFeedback returned error: %v", err)
	}
	second, err := o.GenerateFeedback(context.Background(), s)
	if err != nil {
		t.Fatalf("GenerateFeedback returned error: %v", err)
	}
	if first.OverallScore != second.OverallScore {
		t.Fatalf("scores differ: %d vs %d", first.OverallScore, second.OverallScore)
	}
	n := len(fetcher.specs)
	if fetcher.specs[n-1].Instruction != fetcher.specs[n-2].Instruction {
		t.Fatal("same transcript should produce the same report prompt")
	}
}

func TestBackendFeedbackSignalEndsInterview(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.fetchFn = func(spec agent.PromptSpec) (string, error) {
		if spec.Metadata["variant"] == VariantContinuation {
			return `{"interview_phase":"feedback","ai_message":"Thanks, that's all."}`, nil
		}
		return scripted(spec)
	}
	o := newTestOrchestrator(t, fetcher, newMemStore("iv-1"))
	startTechnical(t, o)

	s, err := o.SubmitAnswer(context.Background(), "iv-1", Answer{Text: "done"})
	if err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}
	if s.Phase != PhaseFeedback || s.FinalReport == nil || s.TurnCount() != 1 {
		t.Fatalf("expected interview to end with a report, got %+v", s)
	}
}

func TestContinuationHistoryIsBounded(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	o := newTestOrchestrator(t, fetcher, newMemStore("iv-1"))
	startTechnical(t, o)

	for i := 1; i <= 5; i++ {
		if _, err := o.SubmitAnswer(context.Background(), "iv-1", Answer{Text: fmt.Sprintf("answer-%d", i)}); err != nil {
			t.Fatalf("SubmitAnswer %d returned error: %v", i, err)
		}
	}
	if _, err := o.SubmitAnswer(context.Background(), "iv-1", Answer{Text: "answer-6"}); err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}

	spec := fetcher.last()
	if strings.Contains(spec.Instruction, "answer-1") || strings.Contains(spec.Instruction, "answer-3") {
		t.Fatalf("continuation prompt should only carry recent turns: %s", spec.Instruction)
	}
	if !strings.Contains(spec.Instruction, "answer-4") || !strings.Contains(spec.Instruction, "answer-5") {
		t.Fatalf("continuation prompt missing recent turns: %s", spec.Instruction)
	}
	// 2 turns (4 entries) plus the question being answered
	if len(spec.History) != 5 {
		t.Fatalf("expected 5 history entries, got %d", len(spec.History))
	}

	s, _ := o.Load(context.Background(), "iv-1")
	report, err := o.GenerateFeedback(context.Background(), s)
	if err != nil || report == nil {
		t.Fatalf("GenerateFeedback failed: %v", err)
	}
	if !strings.Contains(fetcher.last().Instruction, "answer-1") {
		t.Fatal("report prompt must carry the full transcript")
	}
}

func TestTickBeforeBudgetRunsOut(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	o := newTestOrchestrator(t, fetcher, newMemStore("iv-1"))
	startTechnical(t, o)

	s, err := o.Tick(context.Background(), "iv-1", 100)
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if s.Phase != PhaseConversation || s.RemainingTime != 500 {
		t.Fatalf("unexpected session %+v", s)
	}
	if _, err := o.Tick(context.Background(), "iv-1", 0); !errors.Is(err, ErrInvalidElapsed) {
		t.Fatalf("expected ErrInvalidElapsed, got %v", err)
	}
}

func TestCompleteRequiresReport(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	o := newTestOrchestrator(t, fetcher, newMemStore("iv-1"))
	startTechnical(t, o)

	if _, err := o.Complete(context.Background(), "iv-1"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	o := newTestOrchestrator(t, fetcher, newMemStore("empty"))

	if _, err := o.Load(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := o.Load(context.Background(), "empty"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record without a session should be ErrNotFound, got %v", err)
	}
	_, err := o.Start(context.Background(), StartParams{ID: "missing", Domain: "SWE", Type: TypeTechnical, DurationSeconds: 60})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("start without a history record should be ErrNotFound, got %v", err)
	}
	if len(fetcher.specs) != 0 {
		t.Fatal("the agent must not be called for an unknown record")
	}
}

func TestPersistedContentIsSessionJSON(t *testing.T) {
	store := newMemStore("iv-1")
	o := newTestOrchestrator(t, &mockFetcher{fetchFn: scripted}, store)
	startTechnical(t, o)

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(store.records["iv-1"].Content), &decoded); err != nil {
		t.Fatalf("stored content is not JSON: %v", err)
	}
	if decoded["interview_type"] != "technical" || decoded["domain"] != "Backend Engineer" {
		t.Fatalf("unexpected stored content %v", decoded)
	}
}

func TestStartDoesNotResetExistingSession(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	store := newMemStore("iv-1")
	o := newTestOrchestrator(t, fetcher, store)
	ctx := context.Background()

	startTechnical(t, o)
	if _, err := o.SubmitAnswer(ctx, "iv-1", Answer{Text: "I'd use an index"}); err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}
	calls := len(fetcher.specs)

	_, err := o.Start(ctx, StartParams{ID: "iv-1", Domain: "Backend Engineer", Type: TypeTechnical, DurationSeconds: 600})
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if len(fetcher.specs) != calls {
		t.Fatal("the agent must not be called for a started session")
	}
	s, err := o.Load(ctx, "iv-1")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.TurnCount() != 1 || s.Phase != PhaseConversation {
		t.Fatalf("session was reset: turns=%d phase=%s", s.TurnCount(), s.Phase)
	}
}

func TestStartRejectsOtherAgentsRecord(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: scripted}
	store := newMemStore()
	store.records["iv-1"] = &models.HistoryRecord{RecordID: "iv-1", AIAgentType: models.AgentTypeChat, Content: `[{"content":"hi"}]`}
	o := newTestOrchestrator(t, fetcher, store)

	_, err := o.Start(context.Background(), StartParams{ID: "iv-1", Domain: "SWE", Type: TypeTechnical, DurationSeconds: 60})
	if !errors.Is(err, history.ErrAgent) {
		t.Fatalf("expected ErrAgent, got %v", err)
	}
	if store.replaces != 0 || len(fetcher.specs) != 0 {
		t.Fatal("chat record must stay untouched")
	}

	// a typed but empty interview record can be started
	store.records["iv-2"] = &models.HistoryRecord{RecordID: "iv-2", AIAgentType: models.AgentTypeInterview, Content: "null"}
	if _, err := o.Start(context.Background(), StartParams{ID: "iv-2", Domain: "SWE", Type: TypeTechnical, DurationSeconds: 60}); err != nil {
		t.Fatalf("Start on empty record returned error: %v", err)
	}
}
