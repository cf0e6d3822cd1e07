package models

import "time"

// Meetup is a scheduled group study session.
type Meetup struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Topic       string `gorm:"type:text;not null"` // Session topic.
	Description string `gorm:"type:text"`          // Optional description.
	MeetupLink  string `gorm:"type:text"`          // Optional external link.

	ScheduledTime time.Time `gorm:"not null"` // When the session takes place.

	CreatorID uint64 `gorm:"not null;index"`       // Creating user ID.
	Creator   *User  `gorm:"foreignKey:CreatorID"` // Creating user.

	GroupID uint64 `gorm:"not null;index"`     // Owning group ID, set once.
	Group   *Group `gorm:"foreignKey:GroupID"` // Owning group.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
