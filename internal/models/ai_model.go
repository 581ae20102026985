package models

// AiModel is identified by name and created lazily on first use.
type AiModel struct {
	Name string `gorm:"primaryKey;size:120"`
	Type string `gorm:"size:60;not null;default:'unknown'"`
}

func (AiModel) TableName() string { return "ai_models" }
