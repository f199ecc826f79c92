package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// HistoryRecord is one saved agent conversation or report, addressed by record id
type HistoryRecord struct {
	gorm.Model
	RecordID    string    `gorm:"uniqueIndex;size:64;not null" json:"record_id"`
	UserEmail   string    `gorm:"index;not null" json:"user_email"`
	AIAgentType string    `gorm:"size:64" json:"ai_agent_type"`
	Content     string    `gorm:"type:text" json:"-"` // JSON document
	MetaData    string    `json:"meta_data,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// MarshalJSON inlines the stored JSON content instead of quoting it
func (h HistoryRecord) MarshalJSON() ([]byte, error) {
	type alias HistoryRecord
	content := json.RawMessage("null")
	if h.Content != "" && json.Valid([]byte(h.Content)) {
		content = json.RawMessage(h.Content)
	}
	return json.Marshal(struct {
		alias
		Content json.RawMessage `json:"content"`
	}{alias: alias(h), Content: content})
}
