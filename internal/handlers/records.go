package handlers

import (
	"context"
	"errors"
	"time"

	"careercoach/ai/internal/history"
	"careercoach/ai/internal/models"
)

// RecordCreator is the part of the history store handlers use to open records.
type RecordCreator interface {
	Create(ctx context.Context, record *models.HistoryRecord) error
}

// ensureRecord creates an empty record for id unless one already exists.
func ensureRecord(ctx context.Context, store RecordCreator, id, owner, agentType string) error {
	err := store.Create(ctx, &models.HistoryRecord{
		RecordID:    id,
		UserEmail:   owner,
		AIAgentType: agentType,
		RecordedAt:  time.Now(),
	})
	if err != nil && !errors.Is(err, history.ErrExists) {
		return err
	}
	return nil
}
