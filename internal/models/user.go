package models

import "time"

// DefaultUserID is the single well-known operator the MVP assumes.
const DefaultUserID = "default"

type User struct {
	ID        string `gorm:"primaryKey;size:64"`
	Username  string `gorm:"size:120"`
	CreatedAt time.Time
}

func (User) TableName() string { return "users" }
