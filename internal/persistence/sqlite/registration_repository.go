package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
)

// RegistrationRepository implements persistence.RegistrationRepository using SQLite.
type RegistrationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRegistrationRepository creates a new SQLite registration repository.
func NewRegistrationRepository(pool *ConnectionPool) *RegistrationRepository {
	return &RegistrationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRegistrations inserts every registration pair in one transaction.
// Any failure rolls back the whole batch.
func (r *RegistrationRepository) CreateRegistrations(ctx context.Context, registrations []persistence.StudentRegistration) error {
	if len(registrations) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, registration := range registrations {
			if registration.StudentSchoolYearID == "" || registration.DayScheduleID == "" {
				return persistence.ErrConstraintViolation
			}
			_, err := r.helper.ExecTx(tx,
				`INSERT INTO student_registrations (student_school_year_id, day_schedule_id, created_at) VALUES (?, ?, ?)`,
				registration.StudentSchoolYearID, registration.DayScheduleID, now)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}

// RegisterStudent inserts the batch after running the conflict check against
// the student's existing registrations, all inside one transaction. The check
// sees the same snapshot the insert commits against, so a concurrent
// conflicting batch cannot land between validation and commit.
func (r *RegistrationRepository) RegisterStudent(ctx context.Context, studentSchoolYearID string, registrations []persistence.StudentRegistration, check func(existing []persistence.RegisteredDay) error) error {
	now := time.Now().UTC().Format(time.RFC3339)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		existing, err := r.queryRegisteredDays(r.txQuerier(tx), studentRegistrationsQuery, studentSchoolYearID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(existing); err != nil {
				return err
			}
		}

		for _, registration := range registrations {
			if registration.StudentSchoolYearID == "" || registration.DayScheduleID == "" {
				return persistence.ErrConstraintViolation
			}
			_, err := r.helper.ExecTx(tx,
				`INSERT INTO student_registrations (student_school_year_id, day_schedule_id, created_at) VALUES (?, ?, ?)`,
				registration.StudentSchoolYearID, registration.DayScheduleID, now)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}

// DeleteRegistration removes one student/day-schedule pair.
func (r *RegistrationRepository) DeleteRegistration(ctx context.Context, studentSchoolYearID, dayScheduleID string) error {
	result, err := r.helper.Exec(ctx,
		`DELETE FROM student_registrations WHERE student_school_year_id = ? AND day_schedule_id = ?`,
		studentSchoolYearID, dayScheduleID)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const registeredDayColumns = `
	sr.student_school_year_id,
	ssy.first_name,
	ssy.last_name,
	ds.session_id,
	s.name,
	ds.id,
	ds.weekday
`

const studentRegistrationsQuery = `
	SELECT ` + registeredDayColumns + `
	FROM student_registrations sr
	JOIN student_school_years ssy ON ssy.id = sr.student_school_year_id
	JOIN day_schedules ds ON ds.id = sr.day_schedule_id
	JOIN sessions s ON s.id = ds.session_id
	WHERE sr.student_school_year_id = ?
	ORDER BY ds.weekday ASC, s.name ASC, ds.id ASC
`

// ListStudentRegistrations returns every registration a student holds across
// all sessions, with day-schedule intervals attached.
func (r *RegistrationRepository) ListStudentRegistrations(ctx context.Context, studentSchoolYearID string) ([]persistence.RegisteredDay, error) {
	return r.queryRegisteredDays(r.poolQuerier(ctx), studentRegistrationsQuery, studentSchoolYearID)
}

// ListSessionRegistrations returns registrations against a session's day
// schedules, optionally narrowed to one weekday.
func (r *RegistrationRepository) ListSessionRegistrations(ctx context.Context, sessionID string, weekday *time.Weekday) ([]persistence.RegisteredDay, error) {
	query := `
		SELECT ` + registeredDayColumns + `
		FROM student_registrations sr
		JOIN student_school_years ssy ON ssy.id = sr.student_school_year_id
		JOIN day_schedules ds ON ds.id = sr.day_schedule_id
		JOIN sessions s ON s.id = ds.session_id
		WHERE ds.session_id = ?
	`
	args := []interface{}{sessionID}
	if weekday != nil {
		query += ` AND ds.weekday = ?`
		args = append(args, int(*weekday))
	}
	query += ` ORDER BY ds.weekday ASC, ssy.last_name ASC, ssy.first_name ASC, sr.student_school_year_id ASC`

	return r.queryRegisteredDays(r.poolQuerier(ctx), query, args...)
}

// CountRegistrationsForDaySchedules counts registrations pointing at any of
// the given day schedules.
func (r *RegistrationRepository) CountRegistrationsForDaySchedules(ctx context.Context, dayScheduleIDs []string) (int, error) {
	if len(dayScheduleIDs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(dayScheduleIDs))
	args := make([]interface{}, len(dayScheduleIDs))
	for i, id := range dayScheduleIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM student_registrations WHERE day_schedule_id IN (%s)`,
		strings.Join(placeholders, ","))

	var count int
	if err := r.helper.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// registeredDayQuerier abstracts over pool-level and transaction-scoped reads
// so the registered-day projection can run inside RegisterStudent's transaction.
type registeredDayQuerier func(query string, args ...interface{}) (*sql.Rows, error)

func (r *RegistrationRepository) poolQuerier(ctx context.Context) registeredDayQuerier {
	return func(query string, args ...interface{}) (*sql.Rows, error) {
		return r.helper.Query(ctx, query, args...)
	}
}

func (r *RegistrationRepository) txQuerier(tx *sql.Tx) registeredDayQuerier {
	return func(query string, args ...interface{}) (*sql.Rows, error) {
		return r.helper.QueryTx(tx, query, args...)
	}
}

func (r *RegistrationRepository) queryRegisteredDays(run registeredDayQuerier, query string, args ...interface{}) ([]persistence.RegisteredDay, error) {
	rows, err := run(query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var days []persistence.RegisteredDay
	for rows.Next() {
		var day persistence.RegisteredDay
		var weekday int
		err := rows.Scan(
			&day.StudentSchoolYearID,
			&day.StudentFirstName,
			&day.StudentLastName,
			&day.SessionID,
			&day.SessionName,
			&day.DayScheduleID,
			&weekday,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		day.Weekday = time.Weekday(weekday)
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range days {
		intervals, err := r.loadIntervals(run, days[i].DayScheduleID)
		if err != nil {
			return nil, err
		}
		days[i].Intervals = intervals
	}
	return days, nil
}

func (r *RegistrationRepository) loadIntervals(run registeredDayQuerier, dayScheduleID string) ([]persistence.TimeSchedule, error) {
	query := `
		SELECT id, day_schedule_id, start_time, end_time
		FROM time_schedules
		WHERE day_schedule_id = ?
		ORDER BY start_time ASC, end_time ASC
	`
	rows, err := run(query, dayScheduleID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var intervals []persistence.TimeSchedule
	for rows.Next() {
		interval, err := scanTimeSchedule(rows)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return intervals, nil
}
