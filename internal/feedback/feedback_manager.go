package feedback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/models"
)

var (
	ErrContextNotFound = errors.New("request context not found or expired")
	ErrAlreadyRated    = errors.New("reply already rated")
)

// Stats summarizes stored ratings.
type Stats struct {
	TotalCount      int64 `json:"total_count"`
	PositiveCount   int64 `json:"positive_count"`
	UnexportedCount int64 `json:"unexported_count"`
	CachedContexts  int   `json:"cached_contexts"`
}

// FeedbackManager stores reply ratings and exports them as fine-tuning data.
type FeedbackManager struct {
	db           *gorm.DB
	contextCache *ContextCache
	provider     string
	logger       *zap.Logger
}

func NewFeedbackManager(db *gorm.DB, cacheTTL time.Duration, provider string, logger *zap.Logger) (*FeedbackManager, error) {
	if err := db.AutoMigrate(&models.ReplyRating{}); err != nil {
		return nil, fmt.Errorf("failed to migrate reply ratings: %w", err)
	}
	return &FeedbackManager{
		db:           db,
		contextCache: NewContextCache(cacheTTL),
		provider:     provider,
		logger:       logger,
	}, nil
}

func (fm *FeedbackManager) Cache() *ContextCache {
	return fm.contextCache
}

func (fm *FeedbackManager) StoreRequestContext(ctx *models.RequestContext) {
	fm.contextCache.Set(ctx.RequestID, ctx)
	fm.logger.Debug("Stored request context",
		zap.String("request_id", ctx.RequestID),
		zap.String("task", ctx.Task))
}

// Hook caches every resolved agent reply under its job id.
func (fm *FeedbackManager) Hook() agent.ResultHook {
	return func(spec agent.PromptSpec, result *agent.Result) {
		prompt := spec.Instruction
		if spec.System != "" {
			prompt = spec.System + "\n\n" + spec.Instruction
		}
		fm.StoreRequestContext(&models.RequestContext{
			RequestID: result.JobID,
			Task:      string(spec.Task),
			Prompt:    prompt,
			Response:  result.Payload,
			Provider:  fm.provider,
			Timestamp: time.Now(),
		})
	}
}

func (fm *FeedbackManager) SubmitFeedback(requestID string, isPositive bool) error {
	ctx, exists := fm.contextCache.Get(requestID)
	if !exists {
		var count int64
		if err := fm.db.Model(&models.ReplyRating{}).Where("request_id = ?", requestID).Count(&count).Error; err == nil && count > 0 {
			return ErrAlreadyRated
		}
		return fmt.Errorf("%w: %s", ErrContextNotFound, requestID)
	}

	rating := &models.ReplyRating{
		RequestID:  requestID,
		Task:       ctx.Task,
		Prompt:     ctx.Prompt,
		Response:   ctx.Response,
		IsPositive: isPositive,
		Provider:   ctx.Provider,
		RatedAt:    time.Now(),
	}
	if err := fm.db.Create(rating).Error; err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	fm.contextCache.Delete(requestID)

	fm.logger.Info("Stored reply rating",
		zap.String("request_id", requestID),
		zap.Bool("positive", isPositive),
		zap.String("task", ctx.Task))
	return nil
}

func (fm *FeedbackManager) GetUnexportedFeedback(limit int) ([]models.ReplyRating, error) {
	var ratings []models.ReplyRating

	query := fm.db.Where("exported = ?", false).Order("rated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("failed to get unexported feedback: %w", err)
	}
	return ratings, nil
}

func (fm *FeedbackManager) GetFeedbackSince(since time.Time, limit int) ([]models.ReplyRating, error) {
	var ratings []models.ReplyRating

	query := fm.db.Where("rated_at >= ?", since).Order("rated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("failed to get feedback since %v: %w", since, err)
	}
	return ratings, nil
}

func (fm *FeedbackManager) MarkAsExported(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	result := fm.db.Model(&models.ReplyRating{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"exported":    true,
			"exported_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark feedback as exported: %w", result.Error)
	}

	fm.logger.Info("Marked ratings as exported", zap.Int64("count", result.RowsAffected))
	return nil
}

// ExportToJSONL renders positive ratings as Gemini tuning examples, one per line.
func (fm *FeedbackManager) ExportToJSONL(ratings []models.ReplyRating) ([]byte, error) {
	var buf bytes.Buffer
	exported := 0

	for _, r := range ratings {
		if !r.IsPositive {
			continue
		}
		line, err := json.Marshal(trainingPoint(r))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal training data: %w", err)
		}
		if exported > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line)
		exported++
	}

	fm.logger.Info("Exported ratings to JSONL",
		zap.Int("positive", exported),
		zap.Int("total", len(ratings)))
	return buf.Bytes(), nil
}

func trainingPoint(r models.ReplyRating) models.TrainingDataPoint {
	return models.TrainingDataPoint{
		Contents: []models.TrainingContent{
			{Role: "user", Parts: []models.TrainingPart{{Text: r.Prompt}}},
			{Role: "model", Parts: []models.TrainingPart{{Text: r.Response}}},
		},
	}
}

func (fm *FeedbackManager) GetFeedbackStats() (*Stats, error) {
	stats := &Stats{CachedContexts: fm.contextCache.Size()}

	if err := fm.db.Model(&models.ReplyRating{}).Count(&stats.TotalCount).Error; err != nil {
		return nil, err
	}
	if err := fm.db.Model(&models.ReplyRating{}).Where("is_positive = ?", true).Count(&stats.PositiveCount).Error; err != nil {
		return nil, err
	}
	if err := fm.db.Model(&models.ReplyRating{}).Where("exported = ?", false).Count(&stats.UnexportedCount).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
