// Package records implements the append-only, group-scoped collections:
// notes, meetups, and chat messages. Records are never edited or deleted
// individually; they vanish only when their group is cascade-deleted.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyhubapp/studyhub/internal/models"
	"gorm.io/gorm"
)

// Typed failures surfaced to the API boundary.
var (
	ErrGroupNotFound = errors.New("records: group not found")
	ErrNotAMember    = errors.New("records: not a member of this group")
	ErrMissingField  = errors.New("records: missing required field")
)

// MembershipChecker reports whether a user belongs to a group.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, groupID uint64) (bool, error)
}

// Service provides access to a group's scoped records. Every operation
// verifies the caller's membership first.
type Service struct {
	db          *gorm.DB
	membership  MembershipChecker
	chatHistory int
}

// NewService constructs a Service. chatHistory caps how many messages a chat
// listing returns; non-positive values fall back to 50.
func NewService(db *gorm.DB, membership MembershipChecker, chatHistory int) *Service {
	if chatHistory <= 0 {
		chatHistory = 50
	}
	return &Service{db: db, membership: membership, chatHistory: chatHistory}
}

// requireMember resolves the group and verifies the user belongs to it.
func (s *Service) requireMember(ctx context.Context, userID, groupID uint64) error {
	var count int64
	errCount := s.db.WithContext(ctx).Model(&models.Group{}).
		Where("id = ?", groupID).Count(&count).Error
	if errCount != nil {
		return fmt.Errorf("records: find group: %w", errCount)
	}
	if count == 0 {
		return ErrGroupNotFound
	}
	isMember, errProbe := s.membership.IsMember(ctx, userID, groupID)
	if errProbe != nil {
		return errProbe
	}
	if !isMember {
		return ErrNotAMember
	}
	return nil
}

// ListNotes returns a group's notes, newest first.
func (s *Service) ListNotes(ctx context.Context, userID, groupID uint64) ([]models.Note, error) {
	if errMember := s.requireMember(ctx, userID, groupID); errMember != nil {
		return nil, errMember
	}
	var rows []models.Note
	errFind := s.db.WithContext(ctx).Preload("Uploader").
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("records: list notes: %w", errFind)
	}
	return rows, nil
}

// CreateNote appends a note to the group.
func (s *Service) CreateNote(ctx context.Context, userID, groupID uint64, title, content string) (*models.Note, error) {
	if title == "" || content == "" {
		return nil, ErrMissingField
	}
	if errMember := s.requireMember(ctx, userID, groupID); errMember != nil {
		return nil, errMember
	}
	note := models.Note{
		Title:      title,
		Content:    content,
		UploaderID: userID,
		GroupID:    groupID,
	}
	if errCreate := s.db.WithContext(ctx).Create(&note).Error; errCreate != nil {
		return nil, fmt.Errorf("records: create note: %w", errCreate)
	}
	if errLoad := s.db.WithContext(ctx).Preload("Uploader").First(&note, note.ID).Error; errLoad != nil {
		return nil, fmt.Errorf("records: reload note: %w", errLoad)
	}
	return &note, nil
}

// ListMeetups returns a group's meetups ordered by scheduled time, soonest
// first.
func (s *Service) ListMeetups(ctx context.Context, userID, groupID uint64) ([]models.Meetup, error) {
	if errMember := s.requireMember(ctx, userID, groupID); errMember != nil {
		return nil, errMember
	}
	var rows []models.Meetup
	errFind := s.db.WithContext(ctx).Preload("Creator").
		Where("group_id = ?", groupID).
		Order("scheduled_time ASC, id ASC").
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("records: list meetups: %w", errFind)
	}
	return rows, nil
}

// CreateMeetup schedules a meetup for the group.
func (s *Service) CreateMeetup(ctx context.Context, userID, groupID uint64, topic, description, link string, scheduled time.Time) (*models.Meetup, error) {
	if topic == "" || scheduled.IsZero() {
		return nil, ErrMissingField
	}
	if errMember := s.requireMember(ctx, userID, groupID); errMember != nil {
		return nil, errMember
	}
	meetup := models.Meetup{
		Topic:         topic,
		Description:   description,
		MeetupLink:    link,
		ScheduledTime: scheduled,
		CreatorID:     userID,
		GroupID:       groupID,
	}
	if errCreate := s.db.WithContext(ctx).Create(&meetup).Error; errCreate != nil {
		return nil, fmt.Errorf("records: create meetup: %w", errCreate)
	}
	if errLoad := s.db.WithContext(ctx).Preload("Creator").First(&meetup, meetup.ID).Error; errLoad != nil {
		return nil, fmt.Errorf("records: reload meetup: %w", errLoad)
	}
	return &meetup, nil
}

// ListChat returns the most recent messages of a group's chat stream,
// capped at the history limit and ordered oldest-first among those kept.
func (s *Service) ListChat(ctx context.Context, userID, groupID uint64) ([]models.ChatMessage, error) {
	if errMember := s.requireMember(ctx, userID, groupID); errMember != nil {
		return nil, errMember
	}
	var rows []models.ChatMessage
	errFind := s.db.WithContext(ctx).Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Limit(s.chatHistory).
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("records: list chat: %w", errFind)
	}
	// Flip to ascending for presentation.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// CreateChatMessage appends a message to the group's chat stream. The write
// is committed before the function returns, so any subsequent listing by any
// client observes the message.
func (s *Service) CreateChatMessage(ctx context.Context, userID, groupID uint64, text string) (*models.ChatMessage, error) {
	if text == "" {
		return nil, ErrMissingField
	}
	if errMember := s.requireMember(ctx, userID, groupID); errMember != nil {
		return nil, errMember
	}
	message := models.ChatMessage{
		Text:    text,
		UserID:  userID,
		GroupID: groupID,
	}
	if errCreate := s.db.WithContext(ctx).Create(&message).Error; errCreate != nil {
		return nil, fmt.Errorf("records: create chat message: %w", errCreate)
	}
	if errLoad := s.db.WithContext(ctx).Preload("User").First(&message, message.ID).Error; errLoad != nil {
		return nil, fmt.Errorf("records: reload chat message: %w", errLoad)
	}
	return &message, nil
}

// Meetup time formats accepted from clients. RFC 3339 first, then the same
// layout without a zone offset.
var scheduledTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseScheduledTime parses an ISO-8601 meetup time.
func ParseScheduledTime(raw string) (time.Time, error) {
	for _, layout := range scheduledTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("records: unparsable time %q", raw)
}
