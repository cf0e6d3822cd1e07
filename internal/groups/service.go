// Package groups implements the group membership lifecycle: creation with a
// unique join code, joining by code, and leaving with deletion of the group
// once its member set is empty.
package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dbutil "github.com/studyhubapp/studyhub/internal/db"
	"github.com/studyhubapp/studyhub/internal/joincode"
	"github.com/studyhubapp/studyhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Typed failures surfaced to the API boundary.
var (
	ErrGroupNotFound = errors.New("groups: group not found")
	ErrAlreadyMember = errors.New("groups: already a member")
	ErrNotAMember    = errors.New("groups: not a member")
)

// createRetries bounds how often group creation regenerates a code after a
// storage-level unique violation. The application pre-check already filters
// collisions, so a violation here means a concurrent creation raced us.
const createRetries = 3

// codeGenerator produces unique join codes. Satisfied by joincode.Generator.
type codeGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// Service mutates group membership against the database.
type Service struct {
	db  *gorm.DB
	gen codeGenerator
}

// NewService constructs a Service with a join-code generator bound to the
// group registry.
func NewService(db *gorm.DB) *Service {
	s := &Service{db: db}
	s.gen = joincode.NewGenerator(models.JoinCodeLength, s.codeExists)
	return s
}

// codeExists reports whether a join code is already assigned.
func (s *Service) codeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	errCount := s.db.WithContext(ctx).Model(&models.Group{}).
		Where("join_code = ?", code).Count(&count).Error
	if errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// Summary is one row of a user's group list.
type Summary struct {
	ID          uint64
	Name        string
	CourseCode  string
	MemberCount int64
	JoinCode    string
}

// Member is a group member in a detail view.
type Member struct {
	ID       uint64
	Username string
}

// Detail is the full view of a single group.
type Detail struct {
	ID          uint64
	Name        string
	CourseCode  string
	Description string
	JoinCode    string
	Creator     Member
	Members     []Member
	MemberCount int64
}

// LeaveResult reports the outcome of leaving a group.
type LeaveResult struct {
	GroupName string
	Deleted   bool
}

// Create allocates a group with a fresh unique join code and enrolls the
// owner as its first member. A unique violation on insert means a concurrent
// creation claimed the same code between check and commit; the code is
// regenerated and the insert retried.
func (s *Service) Create(ctx context.Context, ownerID uint64, name, courseCode, description string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("groups: missing name")
	}

	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		code, errGen := s.gen.Generate(ctx)
		if errGen != nil {
			return nil, errGen
		}

		group := models.Group{
			Name:        name,
			CourseCode:  strings.TrimSpace(courseCode),
			Description: strings.TrimSpace(description),
			JoinCode:    code,
			CreatorID:   ownerID,
		}
		errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if errCreate := tx.Create(&group).Error; errCreate != nil {
				return errCreate
			}
			member := models.GroupMember{UserID: ownerID, GroupID: group.ID}
			return tx.Create(&member).Error
		})
		if errTx == nil {
			return &group, nil
		}
		if !dbutil.IsUniqueViolation(errTx) {
			return nil, fmt.Errorf("groups: create: %w", errTx)
		}
		lastErr = errTx
	}
	return nil, fmt.Errorf("groups: create: code collision persisted: %w", lastErr)
}

// JoinByCode adds the user to the group carrying the code. The code is
// normalized to uppercase before lookup.
func (s *Service) JoinByCode(ctx context.Context, userID uint64, code string) (*models.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrGroupNotFound
	}

	var group models.Group
	errFind := s.db.WithContext(ctx).Where("join_code = ?", code).First(&group).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("groups: find by code: %w", errFind)
	}

	member := models.GroupMember{UserID: userID, GroupID: group.ID}
	errCreate := s.db.WithContext(ctx).Create(&member).Error
	if errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("groups: join: %w", errCreate)
	}
	return &group, nil
}

// Leave removes the user from the group. The whole removal, the emptiness
// check, and the cascade delete run in one transaction with the group row
// locked, so two concurrent leavers cannot both observe "last member".
func (s *Service) Leave(ctx context.Context, userID, groupID uint64) (LeaveResult, error) {
	var result LeaveResult
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SQLite has no FOR UPDATE; its single-writer transactions already
		// serialize concurrent leaves.
		q := tx
		if !dbutil.IsSQLite(tx) {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var group models.Group
		errFind := q.First(&group, groupID).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return fmt.Errorf("groups: find: %w", errFind)
		}
		result.GroupName = group.Name

		removal := tx.Where("user_id = ? AND group_id = ?", userID, groupID).
			Delete(&models.GroupMember{})
		if removal.Error != nil {
			return fmt.Errorf("groups: remove member: %w", removal.Error)
		}
		if removal.RowsAffected == 0 {
			return ErrNotAMember
		}

		var remaining int64
		if errCount := tx.Model(&models.GroupMember{}).
			Where("group_id = ?", groupID).Count(&remaining).Error; errCount != nil {
			return fmt.Errorf("groups: count members: %w", errCount)
		}
		if remaining > 0 {
			return nil
		}

		result.Deleted = true
		return deleteGroupCascade(tx, groupID)
	})
	if errTx != nil {
		return LeaveResult{}, errTx
	}
	return result, nil
}

// deleteGroupCascade removes a group and every record scoped to it. The
// cascade is explicit rather than delegated to foreign-key actions so it
// behaves identically on both dialects.
func deleteGroupCascade(tx *gorm.DB, groupID uint64) error {
	if errNotes := tx.Where("group_id = ?", groupID).Delete(&models.Note{}).Error; errNotes != nil {
		return fmt.Errorf("groups: delete notes: %w", errNotes)
	}
	if errMeetups := tx.Where("group_id = ?", groupID).Delete(&models.Meetup{}).Error; errMeetups != nil {
		return fmt.Errorf("groups: delete meetups: %w", errMeetups)
	}
	if errChat := tx.Where("group_id = ?", groupID).Delete(&models.ChatMessage{}).Error; errChat != nil {
		return fmt.Errorf("groups: delete chat messages: %w", errChat)
	}
	if errMembers := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; errMembers != nil {
		return fmt.Errorf("groups: delete members: %w", errMembers)
	}
	if errGroup := tx.Delete(&models.Group{}, groupID).Error; errGroup != nil {
		return fmt.Errorf("groups: delete group: %w", errGroup)
	}
	return nil
}

// ListForUser returns the groups the user belongs to, newest membership
// first, with member counts. A non-empty query filters by name or course code,
// case-insensitively on both dialects.
func (s *Service) ListForUser(ctx context.Context, userID uint64, query string) ([]Summary, error) {
	q := s.db.WithContext(ctx).
		Select("groups.*").
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Order("group_members.joined_at DESC")
	if query = strings.TrimSpace(query); query != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+query+"%")
		q = q.Where(
			s.db.Where(dbutil.CaseInsensitiveLikeExpr(s.db, "groups.name"), pattern).
				Or(dbutil.CaseInsensitiveLikeExpr(s.db, "groups.course_code"), pattern),
		)
	}

	var rows []models.Group
	errFind := q.Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("groups: list: %w", errFind)
	}

	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		var count int64
		if errCount := s.db.WithContext(ctx).Model(&models.GroupMember{}).
			Where("group_id = ?", row.ID).Count(&count).Error; errCount != nil {
			return nil, fmt.Errorf("groups: count members: %w", errCount)
		}
		out = append(out, Summary{
			ID:          row.ID,
			Name:        row.Name,
			CourseCode:  row.CourseCode,
			MemberCount: count,
			JoinCode:    row.JoinCode,
		})
	}
	return out, nil
}

// Get returns the full detail of a group, members included.
func (s *Service) Get(ctx context.Context, groupID uint64) (*Detail, error) {
	var group models.Group
	errFind := s.db.WithContext(ctx).Preload("Creator").First(&group, groupID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("groups: get: %w", errFind)
	}

	var memberRows []models.GroupMember
	errMembers := s.db.WithContext(ctx).Preload("User").
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Find(&memberRows).Error
	if errMembers != nil {
		return nil, fmt.Errorf("groups: get members: %w", errMembers)
	}

	detail := Detail{
		ID:          group.ID,
		Name:        group.Name,
		CourseCode:  group.CourseCode,
		Description: group.Description,
		JoinCode:    group.JoinCode,
		MemberCount: int64(len(memberRows)),
	}
	if group.Creator != nil {
		detail.Creator = Member{ID: group.Creator.ID, Username: group.Creator.Username}
	}
	for _, row := range memberRows {
		member := Member{ID: row.UserID}
		if row.User != nil {
			member.Username = row.User.Username
		}
		detail.Members = append(detail.Members, member)
	}
	return &detail, nil
}

// IsMember reports whether the user belongs to the group.
func (s *Service) IsMember(ctx context.Context, userID, groupID uint64) (bool, error) {
	var count int64
	errCount := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Count(&count).Error
	if errCount != nil {
		return false, fmt.Errorf("groups: membership check: %w", errCount)
	}
	return count > 0, nil
}
