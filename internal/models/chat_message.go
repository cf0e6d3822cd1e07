package models

import "time"

// ChatMessage is a single message in a group's chat stream.
type ChatMessage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Text string `gorm:"type:text;not null"` // Message body.

	UserID uint64 `gorm:"not null;index"`    // Authoring user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Authoring user.

	GroupID uint64 `gorm:"not null;index"`     // Owning group ID, set once.
	Group   *Group `gorm:"foreignKey:GroupID"` // Owning group.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
