package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Organizations persistence.OrganizationRepository
	Sessions      persistence.SessionRepository
	Registrations persistence.RegistrationRepository
	Students      persistence.StudentRepository
	Attendance    persistence.AttendanceRepository
	Users         persistence.UserRepository
	AuthSessions  persistence.AuthSessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "granttracker.db")

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool, nil); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Organizations: sqlite.NewOrganizationRepository(pool),
		Sessions:      sqlite.NewSessionRepository(pool),
		Registrations: sqlite.NewRegistrationRepository(pool),
		Students:      sqlite.NewStudentRepository(pool),
		Attendance:    sqlite.NewAttendanceRepository(pool),
		Users:         sqlite.NewUserRepository(pool),
		AuthSessions:  sqlite.NewAuthSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
