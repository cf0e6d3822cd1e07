package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	dbutil "github.com/studyhubapp/studyhub/internal/db"
	"gorm.io/gorm"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz pings the database and reports status.
func (h *HealthHandler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	site := dbutil.StringSetting(h.db.WithContext(c.Request.Context()), dbutil.SettingSiteName, "StudyHub")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "site": site})
}
