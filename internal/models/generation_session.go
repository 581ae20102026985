package models

import "time"

type SessionStatus string

const (
	SessionPending         SessionStatus = "pending"
	SessionRunning         SessionStatus = "running"
	SessionCompleted       SessionStatus = "completed"
	SessionPartiallyFailed SessionStatus = "partially_failed"
	SessionFailed          SessionStatus = "failed"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionRunning, SessionCompleted, SessionPartiallyFailed, SessionFailed:
		return true
	}
	return false
}

// GenerationSession is one logical generation request with its base
// prompt/parameters and resulting images. The CREATED_BY and USES_MODEL
// edges are rendered as foreign keys onto the session row.
type GenerationSession struct {
	ID                 string `gorm:"primaryKey;size:64"`
	Name               string `gorm:"size:255"`
	Timestamp          time.Time
	BaseParameters     string        `gorm:"type:text;not null"`
	BasePromptPositive string        `gorm:"type:text;not null"`
	BasePromptNegative string        `gorm:"type:text"`
	Notes              string        `gorm:"type:text"`
	OverallStatus      SessionStatus `gorm:"size:32;not null;default:'pending'"`

	UserID    string `gorm:"size:64;index"`
	ModelName string `gorm:"size:120;index"`
}

func (GenerationSession) TableName() string { return "generation_sessions" }
