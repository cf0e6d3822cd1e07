package db

import (
	"encoding/json"

	"github.com/studyhubapp/studyhub/internal/models"
	"gorm.io/gorm"
)

// BoolSetting reads a boolean setting, falling back when the key is missing
// or the payload is not a JSON boolean.
func BoolSetting(conn *gorm.DB, key string, fallback bool) bool {
	var record models.Setting
	if errFind := conn.Where("key = ?", key).First(&record).Error; errFind != nil {
		return fallback
	}
	var value bool
	if errDecode := json.Unmarshal(record.Value, &value); errDecode != nil {
		return fallback
	}
	return value
}

// StringSetting reads a string setting, falling back when the key is missing
// or the payload is not a JSON string.
func StringSetting(conn *gorm.DB, key string, fallback string) string {
	var record models.Setting
	if errFind := conn.Where("key = ?", key).First(&record).Error; errFind != nil {
		return fallback
	}
	var value string
	if errDecode := json.Unmarshal(record.Value, &value); errDecode != nil {
		return fallback
	}
	return value
}
