package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studyhubapp/studyhub/internal/models"
	"github.com/studyhubapp/studyhub/internal/records"
)

// MeetupHandler manages group meetup endpoints.
type MeetupHandler struct {
	records *records.Service
}

// NewMeetupHandler constructs a MeetupHandler.
func NewMeetupHandler(svc *records.Service) *MeetupHandler {
	return &MeetupHandler{records: svc}
}

// meetupJSON renders one meetup.
func meetupJSON(meetup models.Meetup) gin.H {
	creator := ""
	if meetup.Creator != nil {
		creator = meetup.Creator.Username
	}
	return gin.H{
		"id":          meetup.ID,
		"topic":       meetup.Topic,
		"description": meetup.Description,
		"link":        meetup.MeetupLink,
		"time":        meetup.ScheduledTime.UTC().Format(time.RFC3339),
		"creator":     creator,
	}
}

// List returns a group's meetups ordered by scheduled time, soonest first.
func (h *MeetupHandler) List(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	rows, errList := h.records.ListMeetups(c.Request.Context(), userID, groupID)
	if errList != nil {
		writeRecordError(c, errList, "list meetups failed")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, meetupJSON(row))
	}
	c.JSON(http.StatusOK, out)
}

// createMeetupRequest defines the request body for scheduling a meetup.
type createMeetupRequest struct {
	Topic       string `json:"topic"`
	Time        string `json:"time"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// Create schedules a meetup for the group.
func (h *MeetupHandler) Create(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	var body createMeetupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	scheduled, errParse := records.ParseScheduledTime(strings.TrimSpace(body.Time))
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unparsable time"})
		return
	}

	meetup, errCreate := h.records.CreateMeetup(c.Request.Context(), userID, groupID,
		strings.TrimSpace(body.Topic), strings.TrimSpace(body.Description), strings.TrimSpace(body.Link), scheduled)
	if errCreate != nil {
		writeRecordError(c, errCreate, "create meetup failed")
		return
	}
	c.JSON(http.StatusCreated, meetupJSON(*meetup))
}
