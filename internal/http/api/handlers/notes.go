package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/studyhubapp/studyhub/internal/models"
	"github.com/studyhubapp/studyhub/internal/records"
)

// NoteHandler manages group note endpoints.
type NoteHandler struct {
	records *records.Service
}

// NewNoteHandler constructs a NoteHandler.
func NewNoteHandler(svc *records.Service) *NoteHandler {
	return &NoteHandler{records: svc}
}

// noteJSON renders one note.
func noteJSON(note models.Note) gin.H {
	uploader := ""
	if note.Uploader != nil {
		uploader = note.Uploader.Username
	}
	return gin.H{
		"id":         note.ID,
		"title":      note.Title,
		"content":    note.Content,
		"uploader":   uploader,
		"created_at": note.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// List returns a group's notes, newest first.
func (h *NoteHandler) List(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	rows, errList := h.records.ListNotes(c.Request.Context(), userID, groupID)
	if errList != nil {
		writeRecordError(c, errList, "list notes failed")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, noteJSON(row))
	}
	c.JSON(http.StatusOK, out)
}

// createNoteRequest defines the request body for note creation.
type createNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Create appends a note to the group.
func (h *NoteHandler) Create(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	var body createNoteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	note, errCreate := h.records.CreateNote(c.Request.Context(), userID, groupID,
		strings.TrimSpace(body.Title), strings.TrimSpace(body.Content))
	if errCreate != nil {
		writeRecordError(c, errCreate, "create note failed")
		return
	}
	c.JSON(http.StatusCreated, noteJSON(*note))
}

// writeRecordError maps record-service failures onto HTTP responses.
func writeRecordError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, records.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
	case errors.Is(err, records.ErrNotAMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this group"})
	case errors.Is(err, records.ErrMissingField):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field"})
	default:
		log.WithError(err).Error(logMsg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": logMsg})
	}
}
