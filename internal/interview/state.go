package interview

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"careercoach/ai/internal/metrics"
)

var (
	ErrEmptyResponse   = errors.New("answer text or code is required")
	ErrMissingDomain   = errors.New("domain is required")
	ErrInvalidType     = errors.New("interview type must be one of: technical, culture-fit, dsa")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidElapsed  = errors.New("elapsed seconds must be positive")
	ErrInvalidPhase    = errors.New("operation not allowed in the current interview phase")
	ErrNotFound        = errors.New("interview session not found")
	ErrAlreadyStarted  = errors.New("interview session already started")
)

type Phase string

const (
	PhaseConversation Phase = "conversation"
	PhaseFeedback     Phase = "feedback"
	PhaseCompleted    Phase = "completed"
)

func (p Phase) rank() int {
	switch p {
	case PhaseConversation:
		return 0
	case PhaseFeedback:
		return 1
	case PhaseCompleted:
		return 2
	}
	return -1
}

type Type string

const (
	TypeTechnical  Type = "technical"
	TypeCultureFit Type = "culture-fit"
	TypeDSA        Type = "dsa"
)

func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeTechnical:
		return TypeTechnical, nil
	case TypeCultureFit:
		return TypeCultureFit, nil
	case TypeDSA:
		return TypeDSA, nil
	}
	return "", ErrInvalidType
}

// Label is the human name used in prompts.
func (t Type) Label() string {
	switch t {
	case TypeCultureFit:
		return "Culture Fit"
	case TypeDSA:
		return "DSA (Data Structures & Algorithms)"
	default:
		return "Technical"
	}
}

// Turn pairs an AI message with the candidate's answer to it.
type Turn struct {
	AIMessage    string    `json:"ai_message"`
	UserResponse string    `json:"user_response"`
	Code         string    `json:"code,omitempty"`
	Language     string    `json:"language,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Answer is one candidate submission; text, code or both.
type Answer struct {
	Text     string `json:"text"`
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
}

func (a Answer) Blank() bool {
	return strings.TrimSpace(a.Text) == "" && strings.TrimSpace(a.Code) == ""
}

type TestCase struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation"`
}

// DSAQuestion is the coding problem posed in a DSA interview.
type DSAQuestion struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	Examples    []string   `json:"examples"`
	Constraints []string   `json:"constraints"`
	TestCases   []TestCase `json:"test_cases"`
}

// complete reports whether the problem can be posed as-is
func (q *DSAQuestion) complete() bool {
	return q != nil &&
		strings.TrimSpace(q.Title) != "" &&
		strings.TrimSpace(q.Description) != "" &&
		len(q.Examples) > 0 &&
		len(q.TestCases) > 0
}

func (q *DSAQuestion) normalize() {
	q.Difficulty = strings.ToLower(strings.TrimSpace(q.Difficulty))
	if q.Examples == nil {
		q.Examples = []string{}
	}
	if q.Constraints == nil {
		q.Constraints = []string{}
	}
	if q.TestCases == nil {
		q.TestCases = []TestCase{}
	}
}

// Statement renders the problem for follow-up prompts.
func (q *DSAQuestion) Statement() string {
	if q == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s", q.Title)
	if q.Difficulty != "" {
		fmt.Fprintf(&b, " (%s)", q.Difficulty)
	}
	fmt.Fprintf(&b, "\n%s", q.Description)
	for i, ex := range q.Examples {
		fmt.Fprintf(&b, "\nExample %d: %s", i+1, ex)
	}
	if len(q.Constraints) > 0 {
		fmt.Fprintf(&b, "\nConstraints: %s", strings.Join(q.Constraints, "; "))
	}
	return b.String()
}

func (q *DSAQuestion) clone() *DSAQuestion {
	if q == nil {
		return nil
	}
	c := *q
	c.Examples = append([]string(nil), q.Examples...)
	c.Constraints = append([]string(nil), q.Constraints...)
	c.TestCases = append([]TestCase(nil), q.TestCases...)
	c.normalize()
	return &c
}

// Session is the full state of one mock interview. It is a value owned by the
// caller for the length of a request and persisted whole after every change.
type Session struct {
	ID              string          `json:"id"`
	UserEmail       string          `json:"user_email"`
	Domain          string          `json:"domain"`
	Type            Type            `json:"interview_type"`
	Phase           Phase           `json:"interview_phase"`
	Turns           []Turn          `json:"turns"`
	CurrentMessage  string          `json:"current_message"`
	Degraded        bool            `json:"degraded,omitempty"`
	CodeLanguage    string          `json:"code_language,omitempty"`
	DurationBudget  int             `json:"duration_budget"`
	RemainingTime   int             `json:"remaining_time"`
	DSAQuestion     *DSAQuestion    `json:"dsa_question,omitempty"`
	FinalReport     *FeedbackReport `json:"final_report,omitempty"`
	FeedbackPending bool            `json:"feedback_pending"`
	LastRequestID   string          `json:"last_request_id,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewSession validates the start parameters and returns a session in Conversation.
func NewSession(id, userEmail, domain string, typ Type, durationSeconds int, codeLanguage string, now time.Time) (*Session, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, ErrMissingDomain
	}
	if _, err := ParseType(string(typ)); err != nil {
		return nil, err
	}
	if durationSeconds <= 0 {
		return nil, ErrInvalidDuration
	}
	return &Session{
		ID:             id,
		UserEmail:      userEmail,
		Domain:         domain,
		Type:           typ,
		Phase:          PhaseConversation,
		Turns:          []Turn{},
		CodeLanguage:   codeLanguage,
		DurationBudget: durationSeconds,
		RemainingTime:  durationSeconds,
		StartedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (s *Session) TurnCount() int {
	return len(s.Turns)
}

// Clone returns a deep copy so a failed operation never leaks partial changes.
func (s *Session) Clone() *Session {
	c := *s
	c.Turns = append([]Turn{}, s.Turns...)
	c.DSAQuestion = s.DSAQuestion.clone()
	if s.FinalReport != nil {
		report := s.FinalReport.clone()
		c.FinalReport = &report
	}
	return &c
}

// canAnswer guards every new user turn.
func (s *Session) canAnswer() error {
	if s.Phase != PhaseConversation {
		return ErrInvalidPhase
	}
	return nil
}

func (s *Session) appendTurn(answer Answer, now time.Time) {
	s.Turns = append(s.Turns, Turn{
		AIMessage:    s.CurrentMessage,
		UserResponse: strings.TrimSpace(answer.Text),
		Code:         answer.Code,
		Language:     answer.Language,
		Timestamp:    now,
	})
	s.UpdatedAt = now
}

// decrement consumes elapsed seconds and reports whether the budget is spent.
func (s *Session) decrement(elapsed int) bool {
	s.RemainingTime -= elapsed
	if s.RemainingTime <= 0 {
		s.RemainingTime = 0
		return true
	}
	return false
}

// advance moves the phase forward; backward moves are rejected.
func (s *Session) advance(to Phase) error {
	if to.rank() < s.Phase.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidPhase, s.Phase, to)
	}
	if to != s.Phase {
		metrics.ObservePhaseTransition(string(s.Phase), string(to))
		s.Phase = to
	}
	return nil
}
