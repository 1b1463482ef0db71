package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// migrationStep is one versioned schema change applied inside a transaction.
type migrationStep struct {
	version     int
	description string
	statements  []string
}

var migrations = []migrationStep{
	{
		version:     1,
		description: "organizations, years and users",
		statements: []string{
			`CREATE TABLE organizations (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE organization_years (
				id TEXT PRIMARY KEY,
				organization_id TEXT NOT NULL REFERENCES organizations(id),
				label TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (organization_id, label)
			)`,
			`CREATE TABLE users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE COLLATE NOCASE,
				display_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				is_admin INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE user_organizations (
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				organization_id TEXT NOT NULL REFERENCES organizations(id),
				PRIMARY KEY (user_id, organization_id)
			)`,
			`CREATE TABLE auth_sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				token TEXT NOT NULL UNIQUE,
				expires_at TEXT NOT NULL,
				created_at TEXT NOT NULL,
				revoked_at TEXT
			)`,
		},
	},
	{
		version:     2,
		description: "sessions and weekly schedules",
		statements: []string{
			`CREATE TABLE sessions (
				id TEXT PRIMARY KEY,
				organization_year_id TEXT NOT NULL REFERENCES organization_years(id),
				name TEXT NOT NULL,
				first_session_date TEXT NOT NULL,
				last_session_date TEXT NOT NULL,
				recurring INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE day_schedules (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				weekday INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
				UNIQUE (session_id, weekday)
			)`,
			`CREATE TABLE time_schedules (
				id TEXT PRIMARY KEY,
				day_schedule_id TEXT NOT NULL REFERENCES day_schedules(id) ON DELETE CASCADE,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL
			)`,
			`CREATE INDEX idx_day_schedules_session ON day_schedules(session_id)`,
			`CREATE INDEX idx_time_schedules_day ON time_schedules(day_schedule_id)`,
		},
	},
	{
		version:     3,
		description: "students and registrations",
		statements: []string{
			`CREATE TABLE student_school_years (
				id TEXT PRIMARY KEY,
				organization_year_id TEXT NOT NULL REFERENCES organization_years(id),
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				matric_number TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (organization_year_id, matric_number)
			)`,
			`CREATE TABLE student_registrations (
				student_school_year_id TEXT NOT NULL REFERENCES student_school_years(id),
				day_schedule_id TEXT NOT NULL REFERENCES day_schedules(id) ON DELETE CASCADE,
				created_at TEXT NOT NULL,
				PRIMARY KEY (student_school_year_id, day_schedule_id)
			)`,
			`CREATE INDEX idx_registrations_day ON student_registrations(day_schedule_id)`,
		},
	},
	{
		version:     4,
		description: "attendance and blackout dates",
		statements: []string{
			`CREATE TABLE attendance_records (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL REFERENCES sessions(id),
				instance_date TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (session_id, instance_date)
			)`,
			`CREATE TABLE student_attendance (
				attendance_record_id TEXT NOT NULL REFERENCES attendance_records(id) ON DELETE CASCADE,
				student_school_year_id TEXT NOT NULL REFERENCES student_school_years(id),
				times_present INTEGER NOT NULL DEFAULT 1 CHECK (times_present > 0),
				PRIMARY KEY (attendance_record_id, student_school_year_id)
			)`,
			`CREATE TABLE blackout_dates (
				id TEXT PRIMARY KEY,
				organization_id TEXT NOT NULL REFERENCES organizations(id),
				date TEXT NOT NULL,
				UNIQUE (organization_id, date)
			)`,
			`CREATE TABLE session_blackout_dates (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				date TEXT NOT NULL,
				UNIQUE (session_id, date)
			)`,
			`CREATE INDEX idx_attendance_session ON attendance_records(session_id)`,
		},
	},
}

// Migrate brings the schema up to the latest version. Applied versions are
// tracked in schema_migrations and skipped on later runs.
func Migrate(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) error {
	_, err := pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := pool.DB().QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	rows.Close()

	for _, step := range migrations {
		if applied[step.version] {
			continue
		}

		start := time.Now()
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, statement := range step.statements {
				if _, err := tx.Exec(statement); err != nil {
					return fmt.Errorf("migration %d (%s): %w", step.version, step.description, err)
				}
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
				step.version, step.description, time.Now().UTC().Format(time.RFC3339),
			)
			return err
		})
		if err != nil {
			return err
		}

		if logger != nil {
			logger.InfoContext(ctx, "applied migration",
				slog.Int("version", step.version),
				slog.String("description", step.description),
				slog.Duration("elapsed", time.Since(start)),
			)
		}
	}

	return nil
}
