package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"careercoach/ai/internal/career"
	"careercoach/ai/internal/chat"
	"careercoach/ai/internal/middleware"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/utils"
)

type ChatService interface {
	Send(ctx context.Context, threadID, input string) (*chat.SendResult, error)
}

type CareerService interface {
	AnalyzeResume(ctx context.Context, recordID, resumeText string) (*career.ResumeResult, error)
	GenerateRoadmap(ctx context.Context, roadmapID, input string) (*career.RoadmapResult, error)
}

// CareerHandler serves the career chat, resume analysis and roadmap agents.
type CareerHandler struct {
	chat    ChatService
	career  CareerService
	records RecordCreator
	logger  *zap.Logger
}

func NewCareerHandler(chatService ChatService, careerService CareerService, records RecordCreator, logger *zap.Logger) *CareerHandler {
	return &CareerHandler{
		chat:    chatService,
		career:  careerService,
		records: records,
		logger:  logger,
	}
}

func (h *CareerHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "thread_id")
	req := middleware.GetValidatedRequest[*models.ChatMessageRequest](r)

	if err := ensureRecord(r.Context(), h.records, threadID, req.UserEmail, models.AgentTypeChat); err != nil {
		writeError(w, h.logger, err, zap.String("thread_id", threadID))
		return
	}
	result, err := h.chat.Send(r.Context(), threadID, req.UserInput)
	if err != nil {
		writeError(w, h.logger, err, zap.String("thread_id", threadID))
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

func (h *CareerHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "record_id")
	req := middleware.GetValidatedRequest[*models.ResumeAnalysisRequest](r)

	if err := ensureRecord(r.Context(), h.records, recordID, req.UserEmail, models.AgentTypeResume); err != nil {
		writeError(w, h.logger, err, zap.String("record_id", recordID))
		return
	}
	result, err := h.career.AnalyzeResume(r.Context(), recordID, req.ResumeText)
	if err != nil {
		writeError(w, h.logger, err, zap.String("record_id", recordID))
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

func (h *CareerHandler) RoadmapHandler(w http.ResponseWriter, r *http.Request) {
	roadmapID := chi.URLParam(r, "roadmap_id")
	req := middleware.GetValidatedRequest[*models.RoadmapRequest](r)

	if err := ensureRecord(r.Context(), h.records, roadmapID, req.UserEmail, models.AgentTypeRoadmap); err != nil {
		writeError(w, h.logger, err, zap.String("record_id", roadmapID))
		return
	}
	result, err := h.career.GenerateRoadmap(r.Context(), roadmapID, req.UserInput)
	if err != nil {
		writeError(w, h.logger, err, zap.String("record_id", roadmapID))
		return
	}
	utils.JSON(w, http.StatusOK, result)
}
