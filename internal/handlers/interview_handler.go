package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"careercoach/ai/internal/interview"
	"careercoach/ai/internal/middleware"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/utils"
)

// InterviewService is implemented by interview.Orchestrator.
type InterviewService interface {
	Start(ctx context.Context, p interview.StartParams) (*interview.Session, error)
	SubmitAnswer(ctx context.Context, id string, answer interview.Answer) (*interview.Session, error)
	Tick(ctx context.Context, id string, elapsedSeconds int) (*interview.Session, error)
	EndNow(ctx context.Context, id string) (*interview.Session, error)
	Complete(ctx context.Context, id string) (*interview.Session, error)
	Load(ctx context.Context, id string) (*interview.Session, error)
}

type InterviewHandler struct {
	service InterviewService
	records RecordCreator
	locker  middleware.RecordLocker
	logger  *zap.Logger
}

func NewInterviewHandler(service InterviewService, records RecordCreator, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{service: service, records: records, logger: logger}
}

// WithLocker makes Start hold the record lock that guards the other interview writes.
func (h *InterviewHandler) WithLocker(locker middleware.RecordLocker) *InterviewHandler {
	h.locker = locker
	return h
}

func (h *InterviewHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.StartInterviewRequest](r)

	typ, err := interview.ParseType(req.InterviewType)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	// the id comes from the body, so RecordLock cannot guard this route
	if h.locker != nil {
		release, err := h.locker.Acquire(r.Context(), req.InterviewID)
		if err != nil {
			writeError(w, h.logger, err, zap.String("session_id", req.InterviewID))
			return
		}
		defer release()
	}
	if err := ensureRecord(r.Context(), h.records, req.InterviewID, req.UserEmail, models.AgentTypeInterview); err != nil {
		writeError(w, h.logger, err, zap.String("session_id", req.InterviewID))
		return
	}

	session, err := h.service.Start(r.Context(), interview.StartParams{
		ID:              req.InterviewID,
		UserEmail:       req.UserEmail,
		Domain:          req.Domain,
		Type:            typ,
		DurationSeconds: req.DurationSeconds,
		CodeLanguage:    req.CodeLanguage,
	})
	if err != nil {
		writeError(w, h.logger, err, zap.String("session_id", req.InterviewID))
		return
	}

	h.logger.Info("Interview started",
		zap.String("session_id", session.ID),
		zap.String("interview_type", string(session.Type)),
		zap.Bool("degraded", session.Degraded))
	utils.JSON(w, http.StatusCreated, session)
}

func (h *InterviewHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interview_id")
	session, err := h.service.Load(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, zap.String("session_id", id))
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) AnswerHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interview_id")
	req := middleware.GetValidatedRequest[*models.SubmitAnswerRequest](r)

	session, err := h.service.SubmitAnswer(r.Context(), id, interview.Answer{
		Text:     req.Text,
		Code:     req.Code,
		Language: req.Language,
	})
	if err != nil {
		writeError(w, h.logger, err, zap.String("session_id", id))
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) TickHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interview_id")
	req := middleware.GetValidatedRequest[*models.TickRequest](r)

	session, err := h.service.Tick(r.Context(), id, req.ElapsedSeconds)
	if err != nil {
		writeError(w, h.logger, err, zap.String("session_id", id))
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) EndHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interview_id")
	session, err := h.service.EndNow(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, zap.String("session_id", id))
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interview_id")
	session, err := h.service.Complete(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, zap.String("session_id", id))
		return
	}
	utils.JSON(w, http.StatusOK, session)
}
