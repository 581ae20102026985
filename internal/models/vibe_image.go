package models

import "time"

type VibeType string

const (
	VibeGeneric VibeType = "Generic"
	VibeParent  VibeType = "Parent"
	VibeChild   VibeType = "Child"
)

func (v VibeType) Valid() bool {
	switch v {
	case VibeGeneric, VibeParent, VibeChild:
		return true
	}
	return false
}

// VibeImage is a source image pre-processed into an encoded style blob
// usable as a generation influence. Vibes live outside any session.
type VibeImage struct {
	ID              string   `gorm:"primaryKey;size:64"`
	ImagePath       string   `gorm:"size:512;not null"`
	VibeType        VibeType `gorm:"size:16;not null"`
	EncodedIE       float64  `gorm:"not null"`
	EncodedVibePath string   `gorm:"size:512;not null"`
	Notes           string   `gorm:"type:text"`
	CreatedAt       time.Time
}

func (VibeImage) TableName() string { return "vibe_images" }
