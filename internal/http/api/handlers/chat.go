package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/studyhubapp/studyhub/internal/chat"
	"github.com/studyhubapp/studyhub/internal/groups"
	"github.com/studyhubapp/studyhub/internal/models"
	"github.com/studyhubapp/studyhub/internal/records"
)

// ChatHandler manages group chat endpoints, REST and websocket.
type ChatHandler struct {
	records  *records.Service
	groups   *groups.Service
	hubs     *chat.Registry
	upgrader websocket.Upgrader
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(recordsSvc *records.Service, groupsSvc *groups.Service, hubs *chat.Registry) *ChatHandler {
	return &ChatHandler{
		records: recordsSvc,
		groups:  groupsSvc,
		hubs:    hubs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is token-authenticated, not cookie-authenticated, so
			// cross-origin upgrades carry no ambient credentials.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// messageJSON renders one chat message.
func messageJSON(message models.ChatMessage) gin.H {
	author := ""
	if message.User != nil {
		author = message.User.Username
	}
	return gin.H{
		"id":        message.ID,
		"text":      message.Text,
		"author":    author,
		"timestamp": message.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// List returns the most recent messages, oldest first.
func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	rows, errList := h.records.ListChat(c.Request.Context(), userID, groupID)
	if errList != nil {
		writeRecordError(c, errList, "list chat failed")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, messageJSON(row))
	}
	c.JSON(http.StatusOK, out)
}

// postChatRequest defines the request body for posting a message.
type postChatRequest struct {
	Text string `json:"text"`
}

// Post stores a chat message, then relays it to connected subscribers. The
// broadcast happens strictly after the database write, so a listing issued
// after the response always includes the message.
func (h *ChatHandler) Post(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	var body postChatRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	message, errCreate := h.records.CreateChatMessage(c.Request.Context(), userID, groupID, strings.TrimSpace(body.Text))
	if errCreate != nil {
		writeRecordError(c, errCreate, "post chat message failed")
		return
	}

	if h.hubs != nil {
		if payload, errMarshal := json.Marshal(messageJSON(*message)); errMarshal == nil {
			h.hubs.Publish(groupID, payload)
		}
	}
	c.JSON(http.StatusCreated, messageJSON(*message))
}

// Subscribe upgrades the connection to a websocket fed by the group's hub.
func (h *ChatHandler) Subscribe(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	isMember, errProbe := h.groups.IsMember(c.Request.Context(), userID, groupID)
	if errProbe != nil {
		log.WithError(errProbe).Error("chat subscribe membership check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this group"})
		return
	}
	if h.hubs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live chat unavailable"})
		return
	}

	conn, errUpgrade := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if errUpgrade != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}
	chat.ServeClient(h.hubs.Hub(groupID), conn)
}
