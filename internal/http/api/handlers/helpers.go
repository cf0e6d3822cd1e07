package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/studyhubapp/studyhub/internal/models"
	"gorm.io/gorm"
)

// ContextUserID is the gin context key carrying the authenticated user ID.
const ContextUserID = "userID"

// CurrentUserID returns the authenticated user ID from the request context.
func CurrentUserID(c *gin.Context) (uint64, bool) {
	value, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

// EnsureUserExists verifies the user row behind a token still exists.
func EnsureUserExists(ctx context.Context, db *gorm.DB, userID uint64) error {
	var user models.User
	return db.WithContext(ctx).Select("id").First(&user, userID).Error
}

// groupIDParam parses the :id path parameter. On failure it writes the 400
// response and reports false.
func groupIDParam(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, false
	}
	return id, true
}
