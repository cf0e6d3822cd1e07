package db

import (
	"errors"
	"fmt"

	"github.com/studyhubapp/studyhub/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Migrate applies the schema and seeds default settings.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Note{},
		&models.Meetup{},
		&models.ChatMessage{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}
	return nil
}

// Seeded setting keys.
const (
	SettingSiteName         = "site-name"
	SettingRegistrationOpen = "registration-open"
)

// defaultSettings are inserted once on first migration.
var defaultSettings = map[string]string{
	SettingSiteName:         `"StudyHub"`,
	SettingRegistrationOpen: `true`,
}

// ensureDefaultSettings inserts missing default settings without touching
// existing values.
func ensureDefaultSettings(conn *gorm.DB) error {
	for key, value := range defaultSettings {
		var existing models.Setting
		errFind := conn.Where("key = ?", key).First(&existing).Error
		if errFind == nil {
			continue
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("db: read setting %s: %w", key, errFind)
		}
		record := models.Setting{Key: key, Value: datatypes.JSON(value)}
		if errCreate := conn.Create(&record).Error; errCreate != nil {
			if IsUniqueViolation(errCreate) {
				continue
			}
			return fmt.Errorf("db: seed setting %s: %w", key, errCreate)
		}
	}
	return nil
}
