package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/studyhubapp/studyhub/internal/chat"
	"github.com/studyhubapp/studyhub/internal/groups"
	"github.com/studyhubapp/studyhub/internal/joincode"
)

// GroupHandler manages group lifecycle and membership endpoints.
type GroupHandler struct {
	groups *groups.Service
	hubs   *chat.Registry
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(svc *groups.Service, hubs *chat.Registry) *GroupHandler {
	return &GroupHandler{groups: svc, hubs: hubs}
}

// createGroupRequest defines the request body for group creation.
type createGroupRequest struct {
	Name        string `json:"name"`
	CourseCode  string `json:"course_code"`
	Description string `json:"description"`
}

// Create creates a group and enrolls the caller as its first member.
func (h *GroupHandler) Create(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	var body createGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}

	group, errCreate := h.groups.Create(c.Request.Context(), userID, body.Name, body.CourseCode, body.Description)
	if errCreate != nil {
		if errors.Is(errCreate, joincode.ErrSpaceExhausted) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not allocate a join code"})
			return
		}
		log.WithError(errCreate).Error("create group failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create group failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Group created",
		"group_id":  group.ID,
		"join_code": group.JoinCode,
	})
}

// List returns the caller's groups with member counts. An optional `q` query
// parameter filters by group name or course code.
func (h *GroupHandler) List(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}

	rows, errList := h.groups.ListForUser(c.Request.Context(), userID, c.Query("q"))
	if errList != nil {
		log.WithError(errList).Error("list groups failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list groups failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":           row.ID,
			"name":         row.Name,
			"course_code":  row.CourseCode,
			"member_count": row.MemberCount,
			"join_code":    row.JoinCode,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Get returns the full detail of one group.
func (h *GroupHandler) Get(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	detail, errGet := h.groups.Get(c.Request.Context(), groupID)
	if errGet != nil {
		if errors.Is(errGet, groups.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		log.WithError(errGet).Error("get group failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get group failed"})
		return
	}

	members := make([]gin.H, 0, len(detail.Members))
	for _, member := range detail.Members {
		members = append(members, gin.H{"id": member.ID, "username": member.Username})
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           detail.ID,
		"name":         detail.Name,
		"course_code":  detail.CourseCode,
		"description":  detail.Description,
		"join_code":    detail.JoinCode,
		"creator":      gin.H{"id": detail.Creator.ID, "username": detail.Creator.Username},
		"members":      members,
		"member_count": detail.MemberCount,
	})
}

// joinGroupRequest defines the request body for joining by code.
type joinGroupRequest struct {
	JoinCode string `json:"join_code"`
}

// Join adds the caller to the group carrying the submitted code.
func (h *GroupHandler) Join(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	var body joinGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	group, errJoin := h.groups.JoinByCode(c.Request.Context(), userID, body.JoinCode)
	if errJoin != nil {
		switch {
		case errors.Is(errJoin, groups.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid join code"})
		case errors.Is(errJoin, groups.ErrAlreadyMember):
			c.JSON(http.StatusConflict, gin.H{"error": "you are already a member"})
		default:
			log.WithError(errJoin).Error("join group failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "join group failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Successfully joined group: %s", group.Name)})
}

// Leave removes the caller from the group, deleting it when empty.
func (h *GroupHandler) Leave(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	result, errLeave := h.groups.Leave(c.Request.Context(), userID, groupID)
	if errLeave != nil {
		switch {
		case errors.Is(errLeave, groups.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		case errors.Is(errLeave, groups.ErrNotAMember):
			c.JSON(http.StatusBadRequest, gin.H{"error": "you are not a member of this group"})
		default:
			log.WithError(errLeave).Error("leave group failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "leave group failed"})
		}
		return
	}

	if result.Deleted {
		if h.hubs != nil {
			h.hubs.Drop(groupID)
		}
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("You have left the group '%s', and it has been deleted as you were the last member.", result.GroupName),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("You have successfully left the group '%s'.", result.GroupName),
	})
}
