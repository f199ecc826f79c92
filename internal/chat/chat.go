package chat

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
	"careercoach/ai/internal/utils"
)

var (
	ErrEmptyMessage = errors.New("user_input is required")
	ErrNotFound     = errors.New("chat thread not found")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	promptMode    = "chat"
	defaultRecent = 10
)

type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
	Type    string `json:"type"`
}

// Thread is an append-only Q&A conversation. Its messages are the stored content.
type Thread struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

type Fetcher interface {
	FetchResultSynchronously(ctx context.Context, spec agent.PromptSpec, ceiling agent.Ceiling) (*agent.Result, error)
}

type Store interface {
	Get(ctx context.Context, recordID string) (*models.HistoryRecord, error)
	Replace(ctx context.Context, recordID, content string) error
}

type Service struct {
	fetcher Fetcher
	prompts prompts.Provider
	store   Store
	ceiling agent.Ceiling
	recent  int
	logger  *zap.Logger
}

func NewService(fetcher Fetcher, promptProvider prompts.Provider, store Store, ceiling agent.Ceiling, logger *zap.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		prompts: promptProvider,
		store:   store,
		ceiling: ceiling,
		recent:  defaultRecent,
		logger:  logger,
	}
}

type SendResult struct {
	Thread    *Thread `json:"thread"`
	Reply     Message `json:"reply"`
	RequestID string  `json:"request_id"`
}

// Send asks the career agent about input and appends both messages to the thread.
// The thread is only written when the agent answered.
func (s *Service) Send(ctx context.Context, threadID, input string) (*SendResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyMessage
	}
	thread, err := s.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	instruction, err := s.prompts.BuildPrompt(promptMode, "message", map[string]string{
		"History": renderHistory(thread.Messages, s.recent),
		"Input":   input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build chat prompt: %w", err)
	}

	result, err := s.fetcher.FetchResultSynchronously(ctx, agent.PromptSpec{
		Task:        agent.TaskCareerChat,
		Instruction: instruction,
		System:      s.prompts.System(promptMode),
		History:     historyEntries(thread.Messages, s.recent),
		Metadata:    map[string]string{"thread_id": threadID},
	}, s.ceiling)
	if err != nil {
		return nil, err
	}

	reply := Message{Content: strings.TrimSpace(result.Payload), Role: RoleAssistant, Type: "text"}
	thread.Messages = append(thread.Messages,
		Message{Content: input, Role: RoleUser, Type: "text"},
		reply)

	content, err := json.Marshal(thread.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat thread %s: %w", threadID, err)
	}
	if err := s.store.Replace(ctx, threadID, string(content)); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to persist chat thread %s: %w", threadID, err)
	}

	s.logger.Info("Chat reply stored",
		zap.String("thread_id", threadID),
		zap.String("job_id", result.JobID),
		zap.Int("messages", len(thread.Messages)),
		zap.String("reply_preview", utils.Truncate(reply.Content, 80)))
	return &SendResult{Thread: thread, Reply: reply, RequestID: result.JobID}, nil
}

// Load returns the thread stored under threadID; an empty record is an empty thread.
func (s *Service) Load(ctx context.Context, threadID string) (*Thread, error) {
	record, err := s.store.Get(ctx, threadID)
	if errors.Is(err, history.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := history.CheckAgent(record, models.AgentTypeChat); err != nil {
		return nil, err
	}

	thread := &Thread{ID: threadID, Messages: []Message{}}
	content := strings.TrimSpace(record.Content)
	if content == "" || content == "null" {
		return thread, nil
	}
	if err := json.Unmarshal([]byte(content), &thread.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode chat thread %s: %w", threadID, err)
	}
	return thread, nil
}

func recent(messages []Message, limit int) []Message {
	if len(messages) > limit {
		return messages[len(messages)-limit:]
	}
	return messages
}

func renderHistory(messages []Message, limit int) string {
	lines := make([]string, 0, limit)
	for _, m := range recent(messages, limit) {
		speaker := "User"
		if m.Role == RoleAssistant {
			speaker = "Coach"
		}
		lines = append(lines, speaker+": "+m.Content)
	}
	return strings.Join(lines, "\n\n")
}

func historyEntries(messages []Message, limit int) []agent.HistoryEntry {
	window := recent(messages, limit)
	entries := make([]agent.HistoryEntry, 0, len(window))
	for _, m := range window {
		entries = append(entries, agent.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return entries
}
