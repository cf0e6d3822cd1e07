package models

import "time"

// Note is a shared study note. Notes are append-only: there is no edit or
// delete path, they disappear only when their group is deleted.
type Note struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Title   string `gorm:"type:text;not null"` // Note title.
	Content string `gorm:"type:text;not null"` // Note body.

	UploaderID uint64 `gorm:"not null;index"`        // Authoring user ID.
	Uploader   *User  `gorm:"foreignKey:UploaderID"` // Authoring user.

	GroupID uint64 `gorm:"not null;index"`     // Owning group ID, set once.
	Group   *Group `gorm:"foreignKey:GroupID"` // Owning group.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
