package model

import (
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategorySettings  = "settings"
	EventCategoryHistory   = "history"
	EventCategoryMigration = "migration"
	EventCategoryStorage   = "storage"
	EventCategorySystem    = "system"
)

// Event is one entry of the admin-facing event log.
type Event struct {
	Level     string            `json:"level"`
	Category  string            `json:"category"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
