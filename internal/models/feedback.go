package models

import (
	"time"

	"gorm.io/gorm"
)

// ReplyRating stores a user's rating of one AI reply for fine-tuning
// Note: User IDs are intentionally excluded for privacy
type ReplyRating struct {
	gorm.Model
	RequestID  string     `gorm:"uniqueIndex;not null" json:"request_id"`
	Task       string     `gorm:"not null" json:"task"` // "career_chat", "interview", "resume_analysis", "roadmap"
	Prompt     string     `gorm:"type:text;not null" json:"prompt"`
	Response   string     `gorm:"type:text;not null" json:"response"`
	IsPositive bool       `gorm:"not null" json:"is_positive"`
	Provider   string     `json:"provider"`
	RatedAt    time.Time  `gorm:"not null" json:"rated_at"`
	Exported   bool       `gorm:"not null;default:false;index" json:"exported"`
	ExportedAt *time.Time `json:"exported_at"`
}

// TrainingDataPoint represents a single training example in JSONL format for Gemini fine-tuning
type TrainingDataPoint struct {
	Contents []TrainingContent `json:"contents"`
}

type TrainingContent struct {
	Role  string         `json:"role"` // "user" or "model"
	Parts []TrainingPart `json:"parts"`
}

type TrainingPart struct {
	Text string `json:"text"`
}

// RequestContext keeps a resolved prompt/reply pair until the user rates it.
// This is stored in-memory with TTL, not in database
type RequestContext struct {
	RequestID string
	Task      string
	Prompt    string
	Response  string
	Provider  string
	Timestamp time.Time
}
