package models

import "time"

// JoinCodeLength is the number of characters in a group join code.
const JoinCodeLength = 6

// Group represents a study group and owns all records scoped to it.
type Group struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null"`             // Display name.
	CourseCode  string `gorm:"type:text"`                      // Optional course label.
	Description string `gorm:"type:text"`                      // Optional free-text description.
	JoinCode    string `gorm:"type:text;not null;uniqueIndex"` // Unique share code, uppercase.

	CreatorID uint64 `gorm:"not null;index"`       // Creating user ID, set once.
	Creator   *User  `gorm:"foreignKey:CreatorID"` // Creating user.

	Members []GroupMember `gorm:"foreignKey:GroupID"` // Membership rows.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// GroupMember links a user to a group it belongs to.
type GroupMember struct {
	UserID  uint64 `gorm:"primaryKey;autoIncrement:false"` // Member user ID.
	GroupID uint64 `gorm:"primaryKey;autoIncrement:false"` // Group ID.

	User  *User  `gorm:"foreignKey:UserID"`  // Member user.
	Group *Group `gorm:"foreignKey:GroupID"` // Group.

	JoinedAt time.Time `gorm:"not null;autoCreateTime"` // Enrollment timestamp.
}
