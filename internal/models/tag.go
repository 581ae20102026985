package models

// Tag is a shared, deduplicated label attachable to many images.
type Tag struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null;uniqueIndex"`
}

func (Tag) TableName() string { return "tags" }

// ImageTag renders the HAS_TAG edge. The composite unique index makes
// re-tagging an image with the same tag a no-op.
type ImageTag struct {
	ID      uint   `gorm:"primaryKey"`
	ImageID string `gorm:"size:64;not null;index:idx_image_tag,unique"`
	TagID   uint   `gorm:"not null;index:idx_image_tag,unique"`
}

func (ImageTag) TableName() string { return "image_tags" }
