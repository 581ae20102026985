package models

import "fmt"

type ImageStatus string

const (
	ImagePending    ImageStatus = "pending"
	ImageProcessing ImageStatus = "processing"
	ImageSuccess    ImageStatus = "success"
	ImageError      ImageStatus = "error"
)

func (s ImageStatus) Valid() bool {
	switch s {
	case ImagePending, ImageProcessing, ImageSuccess, ImageError:
		return true
	}
	return false
}

const (
	MinRating = 0
	MaxRating = 5
)

// ValidateRating enforces the 0-5 rating bound shared by the graph store
// and the curation exporter.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("rating must be between %d and %d, got %d", MinRating, MaxRating, rating)
	}
	return nil
}

// GeneratedImage is one output image plus its actual generation
// parameters, rating, and curation linkage. SessionID renders the
// GENERATED_IN edge; every image belongs to exactly one session.
type GeneratedImage struct {
	ID                   string         `gorm:"primaryKey;size:64"`
	SessionID            string         `gorm:"size:64;not null;index"`
	ImagePath            string         `gorm:"size:512;not null"`
	Seed                 int64          `gorm:"not null"`
	ActualParameters     map[string]any `gorm:"serializer:json;type:text"`
	ActualPromptPositive string         `gorm:"type:text;not null"`
	ActualPromptNegative string         `gorm:"type:text"`
	Rating               int            `gorm:"not null;default:0"`
	EagleItemID          string         `gorm:"size:64"`
	GenerationStatus     ImageStatus    `gorm:"size:32;not null;default:'pending'"`
	ErrorMessage         string         `gorm:"type:text"`
	IsVibeCandidate      bool           `gorm:"not null;default:false"`
}

func (GeneratedImage) TableName() string { return "generated_images" }
