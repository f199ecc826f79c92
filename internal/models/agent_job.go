package models

import "time"

// AgentJob is one asynchronous generation task handled by the local runner
type AgentJob struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Task        string     `gorm:"index;size:64;not null" json:"task"`
	Status      string     `gorm:"index;size:20;not null;default:'pending'" json:"status"`
	System      string     `gorm:"type:text" json:"-"`
	Prompt      string     `gorm:"type:text;not null" json:"-"`
	Output      string     `gorm:"type:text" json:"output,omitempty"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	Provider    string     `gorm:"size:64" json:"provider,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt *time.Time `gorm:"index" json:"completed_at,omitempty"`
}

const (
	AgentJobPending   = "pending"
	AgentJobRunning   = "running"
	AgentJobCompleted = "completed"
	AgentJobFailed    = "failed"
)
