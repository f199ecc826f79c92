package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"careercoach/ai/internal/feedback"
	"careercoach/ai/internal/models"
	"careercoach/ai/internal/utils"
)

// RatingService is implemented by feedback.FeedbackManager.
type RatingService interface {
	SubmitFeedback(requestID string, isPositive bool) error
	GetFeedbackSince(since time.Time, limit int) ([]models.ReplyRating, error)
	ExportToJSONL(ratings []models.ReplyRating) ([]byte, error)
	GetFeedbackStats() (*feedback.Stats, error)
}

type FeedbackHandler struct {
	ratings RatingService
	logger  *zap.Logger
}

func NewFeedbackHandler(ratings RatingService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{ratings: ratings, logger: logger}
}

type SubmitFeedbackRequest struct {
	IsPositive *bool `json:"is_positive"`
}

// SubmitFeedback handles POST /api/v1/feedback/{request_id}
func (fh *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")

	var req SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsPositive == nil {
		utils.JSON(w, http.StatusBadRequest, models.Resp{
			OK:   false,
			Info: "is_positive is required",
		})
		return
	}

	if err := fh.ratings.SubmitFeedback(requestID, *req.IsPositive); err != nil {
		status, _ := statusFor(err)
		if status >= http.StatusInternalServerError {
			fh.logger.Error("Failed to submit feedback", zap.String("request_id", requestID), zap.Error(err))
		}
		utils.JSON(w, status, models.Resp{
			OK:   false,
			Info: "failed to submit feedback: " + err.Error(),
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.Resp{
		OK:   true,
		Info: "feedback submitted successfully",
	})
}

// ExportFeedback handles GET /api/v1/feedback/export
// Query params:
// - days: number of days to look back (default: 7)
// - limit: maximum number of records (optional)
// - format: "jsonl" (default) or "json"
func (fh *FeedbackHandler) ExportFeedback(w http.ResponseWriter, r *http.Request) {
	days := positiveQuery(r, "days", 7)
	limit := positiveQuery(r, "limit", 0)
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "jsonl"
	}

	since := time.Now().AddDate(0, 0, -days)
	ratings, err := fh.ratings.GetFeedbackSince(since, limit)
	if err != nil {
		fh.logger.Error("Failed to get feedback", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.Resp{
			OK:   false,
			Info: "failed to export feedback",
		})
		return
	}

	if len(ratings) == 0 {
		utils.JSON(w, http.StatusOK, models.Resp{
			OK:   true,
			Info: "no feedback to export",
		})
		return
	}

	if format == "jsonl" {
		data, err := fh.ratings.ExportToJSONL(ratings)
		if err != nil {
			fh.logger.Error("Failed to export to JSONL", zap.Error(err))
			utils.JSON(w, http.StatusInternalServerError, models.Resp{
				OK:   false,
				Info: "failed to export to JSONL",
			})
			return
		}

		utils.Attachment(w, "application/jsonl", "rating_export.jsonl", data)
	} else {
		utils.JSON(w, http.StatusOK, models.Resp{
			OK:   true,
			Info: ratings,
		})
	}

	fh.logger.Info("Exported ratings", zap.Int("records", len(ratings)), zap.Int("days", days))
}

// GetFeedbackStats handles GET /api/v1/feedback/stats
func (fh *FeedbackHandler) GetFeedbackStats(w http.ResponseWriter, r *http.Request) {
	stats, err := fh.ratings.GetFeedbackStats()
	if err != nil {
		fh.logger.Error("Failed to get feedback stats", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.Resp{
			OK:   false,
			Info: "failed to get feedback stats",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.Resp{
		OK:   true,
		Info: stats,
	})
}

func positiveQuery(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
