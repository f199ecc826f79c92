package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"careercoach/ai/internal/models"
)

var (
	ErrNotFound = errors.New("history record not found")
	ErrExists   = errors.New("history record already exists")
	ErrLocked   = errors.New("history record is locked")
	ErrAgent    = errors.New("history record belongs to another agent")
)

// CheckAgent returns ErrAgent when record was opened for a different agent.
// Records without an agent type accept any agent.
func CheckAgent(record *models.HistoryRecord, agentType string) error {
	if record.AIAgentType != "" && record.AIAgentType != agentType {
		return fmt.Errorf("%w: %s is %s", ErrAgent, record.RecordID, record.AIAgentType)
	}
	return nil
}

// Store persists agent content keyed by record id.
// Replace overwrites the whole content document, so repeating it is safe.
type Store interface {
	Get(ctx context.Context, recordID string) (*models.HistoryRecord, error)
	Create(ctx context.Context, record *models.HistoryRecord) error
	Replace(ctx context.Context, recordID, content string) error
	List(ctx context.Context, owner string) ([]models.HistoryRecord, error)
}

type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&models.HistoryRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history records: %w", err)
	}
	return &GormStore{db: db, logger: logger}, nil
}

func (s *GormStore) Get(ctx context.Context, recordID string) (*models.HistoryRecord, error) {
	var record models.HistoryRecord
	err := s.db.WithContext(ctx).Where("record_id = ?", recordID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history record %s: %w", recordID, err)
	}
	return &record, nil
}

// Create inserts a new record; an existing record id is ErrExists.
func (s *GormStore) Create(ctx context.Context, record *models.HistoryRecord) error {
	var existing models.HistoryRecord
	err := s.db.WithContext(ctx).Where("record_id = ?", record.RecordID).First(&existing).Error
	if err == nil {
		return ErrExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check history record %s: %w", record.RecordID, err)
	}

	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create history record %s: %w", record.RecordID, err)
	}
	s.logger.Debug("History record created",
		zap.String("record_id", record.RecordID),
		zap.String("agent_type", record.AIAgentType))
	return nil
}

func (s *GormStore) Replace(ctx context.Context, recordID, content string) error {
	result := s.db.WithContext(ctx).Model(&models.HistoryRecord{}).
		Where("record_id = ?", recordID).
		Update("content", content)
	if result.Error != nil {
		return fmt.Errorf("failed to replace history record %s: %w", recordID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the owner's records, newest first.
func (s *GormStore) List(ctx context.Context, owner string) ([]models.HistoryRecord, error) {
	records := []models.HistoryRecord{}
	err := s.db.WithContext(ctx).
		Where("user_email = ?", owner).
		Order("recorded_at DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history for %s: %w", owner, err)
	}
	return records, nil
}

// Ping checks the underlying database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
