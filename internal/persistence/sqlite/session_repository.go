package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/schedule"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSession inserts a session with its day schedules and intervals.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session, days []persistence.DaySchedule) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if session.LastSessionDate.Before(session.FirstSessionDate) {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO sessions (id, organization_year_id, name, first_session_date, last_session_date, recurring, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.helper.ExecTx(tx, query,
			session.ID,
			session.OrganizationYearID,
			session.Name,
			session.FirstSessionDate.String(),
			session.LastSessionDate.String(),
			boolToInt(session.Recurring),
			session.CreatedAt.Format(time.RFC3339),
			session.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		for _, day := range days {
			if err := r.insertDaySchedule(tx, session.ID, day); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, organization_year_id, name, first_session_date, last_session_date, recurring, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`
	return r.scanSession(r.helper.QueryRow(ctx, query, id))
}

// ListSessions returns sessions of an organization year ordered by first date.
func (r *SessionRepository) ListSessions(ctx context.Context, organizationYearID string) ([]persistence.Session, error) {
	query := `
		SELECT id, organization_year_id, name, first_session_date, last_session_date, recurring, created_at, updated_at
		FROM sessions
		WHERE organization_year_id = ?
		ORDER BY first_session_date ASC, name ASC, id ASC
	`
	rows, err := r.helper.Query(ctx, query, organizationYearID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sessions, nil
}

// UpdateSession updates the session row and applies the schedule revision in
// a single transaction. Registrations of removed day schedules are re-pointed
// to revision.MoveRegistrationsTo when set, otherwise they are removed with
// their day.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session, revision persistence.ScheduleRevision) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if session.LastSessionDate.Before(session.FirstSessionDate) {
		return persistence.ErrConstraintViolation
	}

	session.UpdatedAt = time.Now().UTC()

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE sessions
			SET name = ?, first_session_date = ?, last_session_date = ?, recurring = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := r.helper.ExecTx(tx, query,
			session.Name,
			session.FirstSessionDate.String(),
			session.LastSessionDate.String(),
			boolToInt(session.Recurring),
			session.UpdatedAt.Format(time.RFC3339),
			session.ID,
		)
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

		for _, day := range revision.Add {
			if err := r.insertDaySchedule(tx, session.ID, day); err != nil {
				return err
			}
		}

		for _, update := range revision.Update {
			if err := r.replaceIntervals(tx, update.DayScheduleID, update.Intervals); err != nil {
				return err
			}
			_, err := r.helper.ExecTx(tx,
				`UPDATE day_schedules SET weekday = ? WHERE id = ?`,
				int(update.Weekday), update.DayScheduleID)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}

		for _, dayScheduleID := range revision.Remove {
			if revision.MoveRegistrationsTo != "" {
				// Re-point registrations before the day row disappears. The
				// OR IGNORE keeps a student registered on several collapsed
				// days from violating the primary key.
				_, err := r.helper.ExecTx(tx, `
					UPDATE OR IGNORE student_registrations
					SET day_schedule_id = ?
					WHERE day_schedule_id = ?
				`, revision.MoveRegistrationsTo, dayScheduleID)
				if err != nil {
					return r.mapper.MapError(err)
				}
				_, err = r.helper.ExecTx(tx,
					`DELETE FROM student_registrations WHERE day_schedule_id = ?`, dayScheduleID)
				if err != nil {
					return r.mapper.MapError(err)
				}
			}
			_, err := r.helper.ExecTx(tx, `DELETE FROM day_schedules WHERE id = ?`, dayScheduleID)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
}

// DeleteSession removes a session with its schedule rows. Interval and
// registration rows cascade from day_schedules.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx, `DELETE FROM sessions WHERE id = ?`, id)
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
	})
}

// ListDaySchedules returns the day schedules of a session with intervals,
// ordered Sunday through Saturday.
func (r *SessionRepository) ListDaySchedules(ctx context.Context, sessionID string) ([]persistence.DaySchedule, error) {
	query := `
		SELECT id, session_id, weekday
		FROM day_schedules
		WHERE session_id = ?
		ORDER BY weekday ASC
	`
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var days []persistence.DaySchedule
	for rows.Next() {
		var day persistence.DaySchedule
		var weekday int
		if err := rows.Scan(&day.ID, &day.SessionID, &weekday); err != nil {
			return nil, r.mapper.MapError(err)
		}
		day.Weekday = time.Weekday(weekday)
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range days {
		intervals, err := r.loadIntervals(ctx, days[i].ID)
		if err != nil {
			return nil, err
		}
		days[i].Intervals = intervals
	}
	return days, nil
}

// GetDaySchedule retrieves one day schedule with its intervals.
func (r *SessionRepository) GetDaySchedule(ctx context.Context, id string) (persistence.DaySchedule, error) {
	if id == "" {
		return persistence.DaySchedule{}, persistence.ErrNotFound
	}

	var day persistence.DaySchedule
	var weekday int
	err := r.helper.QueryRow(ctx,
		`SELECT id, session_id, weekday FROM day_schedules WHERE id = ?`, id).
		Scan(&day.ID, &day.SessionID, &weekday)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.DaySchedule{}, persistence.ErrNotFound
		}
		return persistence.DaySchedule{}, r.mapper.MapError(err)
	}
	day.Weekday = time.Weekday(weekday)

	intervals, err := r.loadIntervals(ctx, day.ID)
	if err != nil {
		return persistence.DaySchedule{}, err
	}
	day.Intervals = intervals
	return day, nil
}

func (r *SessionRepository) insertDaySchedule(tx *sql.Tx, sessionID string, day persistence.DaySchedule) error {
	if day.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.ExecTx(tx,
		`INSERT INTO day_schedules (id, session_id, weekday) VALUES (?, ?, ?)`,
		day.ID, sessionID, int(day.Weekday))
	if err != nil {
		return r.mapper.MapError(err)
	}

	for _, interval := range day.Intervals {
		_, err := r.helper.ExecTx(tx,
			`INSERT INTO time_schedules (id, day_schedule_id, start_time, end_time) VALUES (?, ?, ?, ?)`,
			interval.ID, day.ID, interval.StartTime.String(), interval.EndTime.String())
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *SessionRepository) replaceIntervals(tx *sql.Tx, dayScheduleID string, intervals []persistence.TimeSchedule) error {
	_, err := r.helper.ExecTx(tx, `DELETE FROM time_schedules WHERE day_schedule_id = ?`, dayScheduleID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	for _, interval := range intervals {
		_, err := r.helper.ExecTx(tx,
			`INSERT INTO time_schedules (id, day_schedule_id, start_time, end_time) VALUES (?, ?, ?, ?)`,
			interval.ID, dayScheduleID, interval.StartTime.String(), interval.EndTime.String())
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *SessionRepository) loadIntervals(ctx context.Context, dayScheduleID string) ([]persistence.TimeSchedule, error) {
	query := `
		SELECT id, day_schedule_id, start_time, end_time
		FROM time_schedules
		WHERE day_schedule_id = ?
		ORDER BY start_time ASC, end_time ASC
	`
	rows, err := r.helper.Query(ctx, query, dayScheduleID)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SessionRepository) scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var firstStr, lastStr, createdStr, updatedStr string
	var recurring int

	err := row.Scan(
		&session.ID,
		&session.OrganizationYearID,
		&session.Name,
		&firstStr,
		&lastStr,
		&recurring,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, r.mapper.MapError(err)
	}

	session.Recurring = recurring != 0
	if session.FirstSessionDate, err = schedule.ParseDate(firstStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse first_session_date: %w", err)
	}
	if session.LastSessionDate, err = schedule.ParseDate(lastStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse last_session_date: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return session, nil
}

func scanTimeSchedule(row rowScanner) (persistence.TimeSchedule, error) {
	var interval persistence.TimeSchedule
	var startStr, endStr string

	if err := row.Scan(&interval.ID, &interval.DayScheduleID, &startStr, &endStr); err != nil {
		return persistence.TimeSchedule{}, err
	}

	var err error
	if interval.StartTime, err = schedule.ParseTimeOfDay(startStr); err != nil {
		return persistence.TimeSchedule{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if interval.EndTime, err = schedule.ParseTimeOfDay(endStr); err != nil {
		return persistence.TimeSchedule{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	return interval, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
