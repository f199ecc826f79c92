package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"careercoach/ai/internal/models"
)

// RatingSource is the part of the feedback manager the exporter needs.
type RatingSource interface {
	GetUnexportedFeedback(limit int) ([]models.ReplyRating, error)
	ExportToJSONL(ratings []models.ReplyRating) ([]byte, error)
	MarkAsExported(ids []uint) error
}

// FeedbackExporter writes unexported positive ratings to timestamped JSONL files.
type FeedbackExporter struct {
	source    RatingSource
	exportDir string
	logger    *zap.Logger
	now       func() time.Time
}

func NewFeedbackExporter(source RatingSource, exportDir string, logger *zap.Logger) *FeedbackExporter {
	return &FeedbackExporter{
		source:    source,
		exportDir: exportDir,
		logger:    logger,
		now:       time.Now,
	}
}

// RunExport performs a single export run and returns the written file path, if any.
func (fe *FeedbackExporter) RunExport() (string, error) {
	ratings, err := fe.source.GetUnexportedFeedback(0)
	if err != nil {
		return "", fmt.Errorf("failed to get unexported feedback: %w", err)
	}
	if len(ratings) == 0 {
		fe.logger.Debug("No unexported ratings found")
		return "", nil
	}

	ids := make([]uint, len(ratings))
	positive := 0
	for i, r := range ratings {
		ids[i] = r.ID
		if r.IsPositive {
			positive++
		}
	}

	// negative ratings are marked too so they are not reprocessed
	if positive == 0 {
		fe.logger.Info("No positive ratings to export", zap.Int("ratings", len(ratings)))
		return "", fe.source.MarkAsExported(ids)
	}

	data, err := fe.source.ExportToJSONL(ratings)
	if err != nil {
		return "", fmt.Errorf("failed to export to JSONL: %w", err)
	}

	if err := os.MkdirAll(fe.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	filename := fmt.Sprintf("rating_export_%s.jsonl", fe.now().Format("20060102_150405"))
	path := filepath.Join(fe.exportDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	if err := fe.source.MarkAsExported(ids); err != nil {
		return path, fmt.Errorf("failed to mark as exported: %w", err)
	}

	fe.logger.Info("Exported ratings", zap.Int("positive", positive), zap.String("file", path))
	return path, nil
}
