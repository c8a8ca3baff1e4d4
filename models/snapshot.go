package models

import "time"

// StateSnapshot stores one user's full state tree as a versioned JSON
// envelope. One row per user, overwritten on every durable write.
type StateSnapshot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Version   int       `gorm:"not null;default:1" json:"version"`
	Data      []byte    `gorm:"type:mediumblob" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
