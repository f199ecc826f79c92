package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"careercoach/ai/internal/history"
	"careercoach/ai/internal/middleware"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/utils"
)

type HistoryHandler struct {
	store  history.Store
	logger *zap.Logger
}

func NewHistoryHandler(store history.Store, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: logger}
}

// ListHandler handles GET /api/v1/history?owner=
func (h *HistoryHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "missing_owner",
			Message: "owner query parameter is required",
		})
		return
	}

	records, err := h.store.List(r.Context(), owner)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.Resp{OK: true, Info: records})
}

func (h *HistoryHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "record_id")
	record, err := h.store.Get(r.Context(), recordID)
	if err != nil {
		writeError(w, h.logger, err, zap.String("record_id", recordID))
		return
	}
	utils.JSON(w, http.StatusOK, models.Resp{OK: true, Info: record})
}

func (h *HistoryHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.CreateHistoryRequest](r)

	record := &models.HistoryRecord{
		RecordID:    req.RecordID,
		UserEmail:   req.UserEmail,
		AIAgentType: req.AIAgentType,
		RecordedAt:  time.Now(),
	}
	if req.Content != nil {
		content, err := json.Marshal(req.Content)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		record.Content = string(content)
	}

	if err := h.store.Create(r.Context(), record); err != nil {
		writeError(w, h.logger, err, zap.String("record_id", req.RecordID))
		return
	}
	utils.JSON(w, http.StatusCreated, models.Resp{OK: true, Info: record})
}
