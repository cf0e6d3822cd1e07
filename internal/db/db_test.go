package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/studyhubapp/studyhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return conn
}

func TestNormalizeSQLiteDSN(t *testing.T) {
	normalized := normalizeSQLiteDSN("study.db")
	if !strings.HasPrefix(normalized, "file:study.db?") {
		t.Fatalf("expected file: prefix, got %q", normalized)
	}
	for _, param := range []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=synchronous(NORMAL)",
	} {
		if !strings.Contains(normalized, param) {
			t.Fatalf("expected %q in %q", param, normalized)
		}
	}

	memory := normalizeSQLiteDSN("file::memory:?cache=shared")
	if memory != "file::memory:?cache=shared" {
		t.Fatalf("expected in-memory dsn untouched, got %q", memory)
	}
}

func TestOpen_AppliesSQLitePragmas(t *testing.T) {
	conn, errOpen := Open(filepath.Join(t.TempDir(), "study.db"))
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}

	var journalMode string
	if err := conn.Raw("PRAGMA journal_mode").Scan(&journalMode).Error; err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if !strings.EqualFold(journalMode, "wal") {
		t.Fatalf("expected journal_mode wal, got %q", journalMode)
	}

	var foreignKeys int
	if err := conn.Raw("PRAGMA foreign_keys").Scan(&foreignKeys).Error; err != nil {
		t.Fatalf("read foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Fatalf("expected foreign_keys on, got %d", foreignKeys)
	}

	var busyTimeout int
	if err := conn.Raw("PRAGMA busy_timeout").Scan(&busyTimeout).Error; err != nil {
		t.Fatalf("read busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Fatalf("expected busy_timeout 5000, got %d", busyTimeout)
	}
}

func TestMigrate_SeedsSettings(t *testing.T) {
	conn := openMemoryDB(t)
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Second run must be a no-op.
	if err := Migrate(conn); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}

	var count int64
	if err := conn.Model(&models.Setting{}).Count(&count).Error; err != nil {
		t.Fatalf("count settings: %v", err)
	}
	if count != int64(len(defaultSettings)) {
		t.Fatalf("expected %d seeded settings, got %d", len(defaultSettings), count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	conn := openMemoryDB(t)
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	first := models.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	if err := conn.Create(&first).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	duplicate := models.User{Username: "alice", Email: "other@example.com", Password: "x"}
	errCreate := conn.Create(&duplicate).Error
	if errCreate == nil {
		t.Fatalf("expected unique violation")
	}
	if !IsUniqueViolation(errCreate) {
		t.Fatalf("expected IsUniqueViolation to match, got %v", errCreate)
	}
	if IsUniqueViolation(nil) {
		t.Fatalf("nil must not be a unique violation")
	}
}
