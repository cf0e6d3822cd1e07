package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	dbutil "github.com/studyhubapp/studyhub/internal/db"
	"github.com/studyhubapp/studyhub/internal/joincode"
	"github.com/studyhubapp/studyhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func createTestUser(t *testing.T, conn *gorm.DB, username string) uint64 {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", Password: "x"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user.ID
}

func TestCreate_CodeShapeAndCreatorEnrolled(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")

	group, err := svc.Create(ctx, alice, "CS101 Study", "CS101", "weekly sessions")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(group.JoinCode) != models.JoinCodeLength {
		t.Fatalf("expected %d-char code, got %q", models.JoinCodeLength, group.JoinCode)
	}
	for _, r := range group.JoinCode {
		if !strings.ContainsRune(joincode.Alphabet, r) {
			t.Fatalf("unexpected character %q in code %q", r, group.JoinCode)
		}
	}
	if group.CreatorID != alice {
		t.Fatalf("expected creator %d, got %d", alice, group.CreatorID)
	}

	isMember, errProbe := svc.IsMember(ctx, alice, group.ID)
	if errProbe != nil {
		t.Fatalf("membership check: %v", errProbe)
	}
	if !isMember {
		t.Fatalf("expected creator to be auto-enrolled")
	}

	second, errSecond := svc.Create(ctx, alice, "CS101 Study 2", "", "")
	if errSecond != nil {
		t.Fatalf("create second: %v", errSecond)
	}
	if second.JoinCode == group.JoinCode {
		t.Fatalf("expected distinct join codes, both got %q", group.JoinCode)
	}
}

// queuedCodes emits a fixed sequence of codes without consulting the
// registry, so inserts can be driven into the unique index on join_code.
type queuedCodes struct {
	codes []string
}

func (q *queuedCodes) Generate(context.Context) (string, error) {
	code := q.codes[0]
	if len(q.codes) > 1 {
		q.codes = q.codes[1:]
	}
	return code, nil
}

func TestCreate_RetriesOnStorageCodeCollision(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")

	existing, err := svc.Create(ctx, alice, "First", "", "")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}

	// The generator emits the taken code first, so the insert trips the
	// unique index and the service must retry with the next code.
	svc.gen = &queuedCodes{codes: []string{existing.JoinCode, "FRESH1"}}
	group, errCreate := svc.Create(ctx, alice, "Second", "", "")
	if errCreate != nil {
		t.Fatalf("expected retry to absorb the collision, got %v", errCreate)
	}
	if group.JoinCode != "FRESH1" {
		t.Fatalf("expected regenerated code FRESH1, got %q", group.JoinCode)
	}

	isMember, errProbe := svc.IsMember(ctx, alice, group.ID)
	if errProbe != nil || !isMember {
		t.Fatalf("expected creator enrolled after retry, member=%v err=%v", isMember, errProbe)
	}
}

func TestCreate_PersistentCollisionSurfaces(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")

	existing, err := svc.Create(ctx, alice, "First", "", "")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}

	svc.gen = &queuedCodes{codes: []string{existing.JoinCode}}
	if _, errCreate := svc.Create(ctx, alice, "Second", "", ""); errCreate == nil {
		t.Fatalf("expected error when every generated code collides")
	}
}

func TestCreate_MissingName(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	alice := createTestUser(t, conn, "alice")
	if _, err := svc.Create(context.Background(), alice, "  ", "", ""); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestJoinByCode(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")
	bob := createTestUser(t, conn, "bob")

	group, err := svc.Create(ctx, alice, "Algorithms", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Lowercase input must be normalized before lookup.
	joined, errJoin := svc.JoinByCode(ctx, bob, strings.ToLower(group.JoinCode))
	if errJoin != nil {
		t.Fatalf("join: %v", errJoin)
	}
	if joined.ID != group.ID {
		t.Fatalf("expected group %d, got %d", group.ID, joined.ID)
	}

	for _, userID := range []uint64{alice, bob} {
		list, errList := svc.ListForUser(ctx, userID, "")
		if errList != nil {
			t.Fatalf("list for %d: %v", userID, errList)
		}
		if len(list) != 1 || list[0].ID != group.ID {
			t.Fatalf("expected user %d to see group %d, got %+v", userID, group.ID, list)
		}
		if list[0].MemberCount != 2 {
			t.Fatalf("expected member_count=2, got %d", list[0].MemberCount)
		}
	}
}

func TestJoinByCode_Idempotence(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")
	bob := createTestUser(t, conn, "bob")

	group, err := svc.Create(ctx, alice, "Algorithms", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, errJoin := svc.JoinByCode(ctx, bob, group.JoinCode); errJoin != nil {
		t.Fatalf("first join: %v", errJoin)
	}
	if _, errAgain := svc.JoinByCode(ctx, bob, group.JoinCode); !errors.Is(errAgain, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", errAgain)
	}

	var count int64
	if errCount := conn.Model(&models.GroupMember{}).
		Where("user_id = ? AND group_id = ?", bob, group.ID).Count(&count).Error; errCount != nil {
		t.Fatalf("count memberships: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected exactly one membership row, got %d", count)
	}
}

func TestJoinByCode_UnknownCode(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	alice := createTestUser(t, conn, "alice")
	if _, err := svc.JoinByCode(context.Background(), alice, "ZZZZZZ"); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestLeave_LastMemberCascades(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")

	group, err := svc.Create(ctx, alice, "Doomed Group", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	scoped := []any{
		&models.Note{Title: "t", Content: "c", UploaderID: alice, GroupID: group.ID},
		&models.Meetup{Topic: "m", CreatorID: alice, GroupID: group.ID},
		&models.ChatMessage{Text: "hi", UserID: alice, GroupID: group.ID},
	}
	for _, record := range scoped {
		if errCreate := conn.Create(record).Error; errCreate != nil {
			t.Fatalf("create scoped record: %v", errCreate)
		}
	}

	result, errLeave := svc.Leave(ctx, alice, group.ID)
	if errLeave != nil {
		t.Fatalf("leave: %v", errLeave)
	}
	if !result.Deleted {
		t.Fatalf("expected deleted=true for last member")
	}
	if result.GroupName != "Doomed Group" {
		t.Fatalf("expected prior group name, got %q", result.GroupName)
	}

	if _, errGet := svc.Get(ctx, group.ID); !errors.Is(errGet, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound after cascade, got %v", errGet)
	}
	for model, label := range map[any]string{
		&models.Note{}:        "notes",
		&models.Meetup{}:      "meetups",
		&models.ChatMessage{}: "chat messages",
		&models.GroupMember{}: "memberships",
	} {
		var count int64
		if errCount := conn.Model(model).Where("group_id = ?", group.ID).Count(&count).Error; errCount != nil {
			t.Fatalf("count %s: %v", label, errCount)
		}
		if count != 0 {
			t.Fatalf("expected no %s after cascade, got %d", label, count)
		}
	}
}

func TestLeave_RemainingMembers(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")
	bob := createTestUser(t, conn, "bob")

	group, err := svc.Create(ctx, alice, "Persistent Group", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, errJoin := svc.JoinByCode(ctx, bob, group.JoinCode); errJoin != nil {
		t.Fatalf("join: %v", errJoin)
	}

	result, errLeave := svc.Leave(ctx, alice, group.ID)
	if errLeave != nil {
		t.Fatalf("leave: %v", errLeave)
	}
	if result.Deleted {
		t.Fatalf("expected deleted=false with members remaining")
	}

	detail, errGet := svc.Get(ctx, group.ID)
	if errGet != nil {
		t.Fatalf("get after leave: %v", errGet)
	}
	if detail.MemberCount != 1 {
		t.Fatalf("expected member_count=1, got %d", detail.MemberCount)
	}
	if len(detail.Members) != 1 || detail.Members[0].ID != bob {
		t.Fatalf("expected bob to remain, got %+v", detail.Members)
	}
}

func TestLeave_NotAMember(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")
	bob := createTestUser(t, conn, "bob")

	group, err := svc.Create(ctx, alice, "Members Only", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, errLeave := svc.Leave(ctx, bob, group.ID); !errors.Is(errLeave, ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", errLeave)
	}
}

func TestLeave_UnknownGroup(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	alice := createTestUser(t, conn, "alice")
	if _, err := svc.Leave(context.Background(), alice, 9999); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestListForUser_Query(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")

	if _, err := svc.Create(ctx, alice, "Operating Systems", "CS350", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, alice, "Linear Algebra", "MATH136", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	byName, errName := svc.ListForUser(ctx, alice, "operating")
	if errName != nil {
		t.Fatalf("list by name: %v", errName)
	}
	if len(byName) != 1 || byName[0].Name != "Operating Systems" {
		t.Fatalf("expected name match only, got %+v", byName)
	}

	byCourse, errCourse := svc.ListForUser(ctx, alice, "math")
	if errCourse != nil {
		t.Fatalf("list by course: %v", errCourse)
	}
	if len(byCourse) != 1 || byCourse[0].CourseCode != "MATH136" {
		t.Fatalf("expected course match only, got %+v", byCourse)
	}

	none, errNone := svc.ListForUser(ctx, alice, "chemistry")
	if errNone != nil {
		t.Fatalf("list with no match: %v", errNone)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %+v", none)
	}
}

func TestGet_Detail(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	alice := createTestUser(t, conn, "alice")

	group, err := svc.Create(ctx, alice, "Databases", "DB200", "index deep dives")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	detail, errGet := svc.Get(ctx, group.ID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if detail.Name != "Databases" || detail.CourseCode != "DB200" || detail.Description != "index deep dives" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.JoinCode != group.JoinCode {
		t.Fatalf("expected code %q, got %q", group.JoinCode, detail.JoinCode)
	}
	if detail.Creator.ID != alice || detail.Creator.Username != "alice" {
		t.Fatalf("unexpected creator: %+v", detail.Creator)
	}
}
