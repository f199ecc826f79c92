package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/history"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/prompts"
	"careercoach/ai/internal/utils"
)

// Fetcher runs one agent task to completion.
type Fetcher interface {
	FetchResultSynchronously(ctx context.Context, spec agent.PromptSpec, ceiling agent.Ceiling) (*agent.Result, error)
}

// Store is the part of the history store the orchestrator needs.
type Store interface {
	Get(ctx context.Context, recordID string) (*models.HistoryRecord, error)
	Replace(ctx context.Context, recordID, content string) error
}

type Config struct {
	// RecentTurns bounds the history sent with continuation prompts.
	RecentTurns int
	Ceiling     agent.Ceiling
}

type StartParams struct {
	ID              string
	UserEmail       string
	Domain          string
	Type            Type
	DurationSeconds int
	CodeLanguage    string
}

// Orchestrator drives an interview session through its phases. It keeps no
// session state between calls; every operation loads, transitions and persists.
type Orchestrator struct {
	fetcher Fetcher
	prompts prompts.Provider
	store   Store
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

func NewOrchestrator(fetcher Fetcher, promptProvider prompts.Provider, store Store, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.RecentTurns <= 0 {
		cfg.RecentTurns = 4
	}
	return &Orchestrator{
		fetcher: fetcher,
		prompts: promptProvider,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// promptData feeds the interview templates
type promptData struct {
	Type         string
	TypeLabel    string
	Domain       string
	CodeLanguage string
	History      string
	Answer       string
	Problem      string
	Transcript   string
	IsDSA        bool
}

// Start creates a session and asks the agent for the opening message.
func (o *Orchestrator) Start(ctx context.Context, p StartParams) (*Session, error) {
	session, err := NewSession(p.ID, p.UserEmail, p.Domain, p.Type, p.DurationSeconds, p.CodeLanguage, o.now())
	if err != nil {
		return nil, err
	}
	// the record is created by the history surface before the interview starts
	record, err := o.store.Get(ctx, session.ID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := history.CheckAgent(record, models.AgentTypeInterview); err != nil {
		return nil, err
	}
	if hasContent(record.Content) {
		return nil, ErrAlreadyStarted
	}

	variant := SelectMode(session.Phase, false, session.Type)
	data := o.baseData(session)
	result, err := o.run(ctx, session, variant, data, nil)
	if err != nil {
		return nil, err
	}

	next := session.Clone()
	next.LastRequestID = result.JobID
	reply, parseErr := parseTurnReply(result.Payload, session.Type)
	if parseErr != nil {
		o.logger.Warn("Falling back to canned opening",
			zap.String("session_id", session.ID),
			zap.String("job_id", result.JobID),
			zap.Error(parseErr))
		next.CurrentMessage = fallbackMessage(session.Type, session.Domain, true)
		next.Degraded = true
	} else {
		next.CurrentMessage = reply.AIMessage
		if session.Type == TypeDSA && reply.DSAQuestion.complete() {
			next.DSAQuestion = reply.DSAQuestion.clone()
		}
	}
	if next.Type == TypeDSA && next.DSAQuestion == nil {
		next.DSAQuestion = fallbackQuestion()
	}

	if err := o.persist(ctx, next); err != nil {
		return nil, err
	}
	o.logger.Info("Interview started",
		zap.String("session_id", next.ID),
		zap.String("interview_type", string(next.Type)),
		zap.Bool("degraded", next.Degraded))
	return next, nil
}

// SubmitAnswer records the candidate's answer and fetches the next AI message.
// On any agent error the stored session is left untouched.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, id string, answer Answer) (*Session, error) {
	if answer.Blank() {
		return nil, ErrEmptyResponse
	}
	session, err := o.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.canAnswer(); err != nil {
		return nil, err
	}

	variant := SelectMode(session.Phase, true, session.Type)
	data := o.baseData(session)
	data.History = recentHistory(session, o.cfg.RecentTurns)
	data.Answer = renderAnswer(answer)
	data.Problem = session.DSAQuestion.Statement()

	result, err := o.run(ctx, session, variant, data, historyEntries(session, o.cfg.RecentTurns))
	if err != nil {
		return nil, err
	}

	next := session.Clone()
	next.appendTurn(answer, o.now())
	next.LastRequestID = result.JobID
	next.Degraded = false

	reply, parseErr := parseTurnReply(result.Payload, session.Type)
	if parseErr != nil {
		o.logger.Warn("Falling back to canned follow-up",
			zap.String("session_id", session.ID),
			zap.String("job_id", result.JobID),
			zap.Error(parseErr))
		next.CurrentMessage = fallbackMessage(session.Type, session.Domain, false)
		next.Degraded = true
		if err := o.persist(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	}

	next.CurrentMessage = reply.AIMessage
	if session.Type == TypeDSA && reply.DSAQuestion.complete() {
		next.DSAQuestion = reply.DSAQuestion.clone()
	}

	if reply.Phase == PhaseFeedback {
		o.logger.Info("Agent ended the interview", zap.String("session_id", next.ID))
		return o.enterFeedback(ctx, next)
	}

	if err := o.persist(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Tick consumes elapsed seconds of the interview budget. When the budget runs
// out the session moves to Feedback and the report is generated before returning.
func (o *Orchestrator) Tick(ctx context.Context, id string, elapsedSeconds int) (*Session, error) {
	if elapsedSeconds <= 0 {
		return nil, ErrInvalidElapsed
	}
	session, err := o.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Phase != PhaseConversation {
		return session, nil
	}

	next := session.Clone()
	next.UpdatedAt = o.now()
	if next.decrement(elapsedSeconds) {
		o.logger.Info("Interview time budget exhausted", zap.String("session_id", next.ID))
		return o.enterFeedback(ctx, next)
	}

	if err := o.persist(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// EndNow forces the Feedback phase. It also retries a report that failed earlier;
// a session that already has its report is returned unchanged.
func (o *Orchestrator) EndNow(ctx context.Context, id string) (*Session, error) {
	session, err := o.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case session.Phase == PhaseCompleted:
		return nil, ErrInvalidPhase
	case session.FinalReport != nil:
		return session, nil
	}
	return o.enterFeedback(ctx, session.Clone())
}

// Complete closes a reviewed report.
func (o *Orchestrator) Complete(ctx context.Context, id string) (*Session, error) {
	session, err := o.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Phase == PhaseCompleted {
		return session, nil
	}
	if session.Phase != PhaseFeedback || session.FinalReport == nil {
		return nil, ErrInvalidPhase
	}

	next := session.Clone()
	if err := next.advance(PhaseCompleted); err != nil {
		return nil, err
	}
	next.UpdatedAt = o.now()
	if err := o.persist(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// GenerateFeedback asks for a report over the full transcript. It has no side
// effects, so repeating it with the same transcript is safe.
func (o *Orchestrator) GenerateFeedback(ctx context.Context, session *Session) (*FeedbackReport, error) {
	data := o.baseData(session)
	data.Transcript = transcript(session)
	data.Problem = session.DSAQuestion.Statement()

	result, err := o.run(ctx, session, VariantFeedback, data, nil)
	if err != nil {
		return nil, err
	}
	report, err := parseFeedbackReply(result.Payload, session.Type)
	if err != nil {
		var jobErr *agent.JobError
		if errors.As(err, &jobErr) {
			jobErr.JobID = result.JobID
		}
		return nil, err
	}
	return report, nil
}

// Load reads a session back from the history store.
func (o *Orchestrator) Load(ctx context.Context, id string) (*Session, error) {
	record, err := o.store.Get(ctx, id)
	if errors.Is(err, history.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(record.Content) == "" {
		return nil, ErrNotFound
	}

	var session Session
	if err := json.Unmarshal([]byte(record.Content), &session); err != nil {
		return nil, fmt.Errorf("failed to decode interview session %s: %w", id, err)
	}
	if session.ID == "" || session.Phase == "" {
		return nil, ErrNotFound
	}
	if session.Turns == nil {
		session.Turns = []Turn{}
	}
	return &session, nil
}

// enterFeedback moves next into Feedback and tries to attach the report. On
// failure the session is stored as feedback-pending and the error is returned.
func (o *Orchestrator) enterFeedback(ctx context.Context, next *Session) (*Session, error) {
	if err := next.advance(PhaseFeedback); err != nil {
		return nil, err
	}
	next.FeedbackPending = true
	next.UpdatedAt = o.now()

	report, err := o.GenerateFeedback(ctx, next)
	if err != nil {
		o.logger.Error("Failed to generate interview report",
			zap.String("session_id", next.ID),
			zap.Error(err))
		if persistErr := o.persist(ctx, next); persistErr != nil {
			o.logger.Error("Failed to persist feedback-pending session",
				zap.String("session_id", next.ID),
				zap.Error(persistErr))
		}
		return nil, err
	}

	next.FinalReport = report
	next.FeedbackPending = false
	if err := o.persist(ctx, next); err != nil {
		return nil, err
	}
	o.logger.Info("Interview report generated",
		zap.String("session_id", next.ID),
		zap.Int("overall_score", int(report.OverallScore)),
		zap.Int("turns", next.TurnCount()))
	return next, nil
}

func (o *Orchestrator) run(ctx context.Context, session *Session, variant string, data promptData, hist []agent.HistoryEntry) (*agent.Result, error) {
	instruction, err := o.prompts.BuildPrompt(promptMode, variant, data)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s prompt: %w", variant, err)
	}

	spec := agent.PromptSpec{
		Task:          agent.TaskInterview,
		Instruction:   instruction,
		System:        o.prompts.System(promptMode),
		Domain:        session.Domain,
		InterviewType: string(session.Type),
		CodeLanguage:  session.CodeLanguage,
		History:       hist,
		Metadata: map[string]string{
			"session_id": session.ID,
			"variant":    variant,
		},
	}
	return o.fetcher.FetchResultSynchronously(ctx, spec, o.cfg.Ceiling)
}

func (o *Orchestrator) persist(ctx context.Context, session *Session) error {
	content, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode interview session %s: %w", session.ID, err)
	}
	if err := o.store.Replace(ctx, session.ID, string(content)); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to persist interview session %s: %w", session.ID, err)
	}
	return nil
}

func (o *Orchestrator) baseData(session *Session) promptData {
	return promptData{
		Type:         string(session.Type),
		TypeLabel:    session.Type.Label(),
		Domain:       session.Domain,
		CodeLanguage: session.CodeLanguage,
		IsDSA:        session.Type == TypeDSA,
	}
}

// recentHistory renders at most limit completed turns plus the message being answered.
func recentHistory(session *Session, limit int) string {
	turns := session.Turns
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	parts := make([]string, 0, len(turns)+1)
	for _, turn := range turns {
		parts = append(parts, renderTurn(turn))
	}
	if session.CurrentMessage != "" {
		parts = append(parts, "AI: "+session.CurrentMessage)
	}
	return strings.Join(parts, "\n\n")
}

func historyEntries(session *Session, limit int) []agent.HistoryEntry {
	turns := session.Turns
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	entries := make([]agent.HistoryEntry, 0, 2*len(turns)+1)
	for _, turn := range turns {
		entries = append(entries,
			agent.HistoryEntry{Role: "assistant", Content: turn.AIMessage},
			agent.HistoryEntry{Role: "user", Content: turn.UserResponse})
	}
	if session.CurrentMessage != "" {
		entries = append(entries, agent.HistoryEntry{Role: "assistant", Content: session.CurrentMessage})
	}
	return entries
}

// transcript renders every turn; only the report prompt sends the whole thing.
func transcript(session *Session) string {
	parts := make([]string, 0, len(session.Turns)+1)
	for _, turn := range session.Turns {
		parts = append(parts, renderTurn(turn))
	}
	if session.CurrentMessage != "" {
		parts = append(parts, "AI: "+session.CurrentMessage+"\nCandidate: (no answer)")
	}
	if len(parts) == 0 {
		return "(the candidate did not answer any questions)"
	}
	return strings.Join(parts, "\n\n")
}

func renderTurn(turn Turn) string {
	return "AI: " + turn.AIMessage + "\nCandidate: " + renderAnswer(Answer{
		Text:     turn.UserResponse,
		Code:     turn.Code,
		Language: turn.Language,
	})
}

// renderAnswer numbers code lines so the agent can refer to them.
func renderAnswer(answer Answer) string {
	text := strings.TrimSpace(answer.Text)
	if strings.TrimSpace(answer.Code) == "" {
		return text
	}
	lang := answer.Language
	if lang == "" {
		lang = "code"
	}
	block := fmt.Sprintf("```%s\n%s\n```", lang, utils.AddLineNumbers(strings.TrimRight(answer.Code, "\n")))
	if text == "" {
		return block
	}
	return text + "\n\n" + block
}

// hasContent reports whether a record already holds a document.
func hasContent(content string) bool {
	switch strings.TrimSpace(content) {
	case "", "null", "{}":
		return false
	}
	return true
}
