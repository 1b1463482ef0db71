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

// AttendanceRepository implements persistence.AttendanceRepository using SQLite.
type AttendanceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAttendanceRepository creates a new SQLite attendance repository.
func NewAttendanceRepository(pool *ConnectionPool) *AttendanceRepository {
	return &AttendanceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateAttendanceRecord inserts the record and all student rows, or nothing.
func (r *AttendanceRepository) CreateAttendanceRecord(ctx context.Context, record persistence.AttendanceRecord) error {
	if record.ID == "" || record.SessionID == "" {
		return persistence.ErrConstraintViolation
	}
	if record.InstanceDate.IsZero() {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx,
			`INSERT INTO attendance_records (id, session_id, instance_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			record.ID,
			record.SessionID,
			record.InstanceDate.String(),
			record.CreatedAt.Format(time.RFC3339),
			record.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		for _, student := range record.Students {
			_, err := r.helper.ExecTx(tx,
				`INSERT INTO student_attendance (attendance_record_id, student_school_year_id, times_present) VALUES (?, ?, ?)`,
				record.ID, student.StudentSchoolYearID, student.TimesPresent)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}

// GetAttendanceRecord retrieves a record with its student rows.
func (r *AttendanceRepository) GetAttendanceRecord(ctx context.Context, id string) (persistence.AttendanceRecord, error) {
	if id == "" {
		return persistence.AttendanceRecord{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, session_id, instance_date, created_at, updated_at
		FROM attendance_records
		WHERE id = ?
	`
	record, err := r.scanRecord(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.AttendanceRecord{}, err
	}

	students, err := r.loadStudents(ctx, record.ID)
	if err != nil {
		return persistence.AttendanceRecord{}, err
	}
	record.Students = students
	return record, nil
}

// ListAttendanceRecords returns a session's records ordered by instance date.
func (r *AttendanceRepository) ListAttendanceRecords(ctx context.Context, sessionID string) ([]persistence.AttendanceRecord, error) {
	query := `
		SELECT id, session_id, instance_date, created_at, updated_at
		FROM attendance_records
		WHERE session_id = ?
		ORDER BY instance_date ASC, id ASC
	`
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var records []persistence.AttendanceRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range records {
		students, err := r.loadStudents(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Students = students
	}
	return records, nil
}

// ListAttendanceDates returns the distinct instance dates a session already
// has records for, ascending.
func (r *AttendanceRepository) ListAttendanceDates(ctx context.Context, sessionID string) ([]schedule.Date, error) {
	query := `
		SELECT DISTINCT instance_date
		FROM attendance_records
		WHERE session_id = ?
		ORDER BY instance_date ASC
	`
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var dates []schedule.Date
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		date, err := schedule.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse instance_date: %w", err)
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return dates, nil
}

// CountAttendanceRecords counts a session's attendance records.
func (r *AttendanceRepository) CountAttendanceRecords(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx,
		`SELECT COUNT(*) FROM attendance_records WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// DeleteAttendanceRecord removes a record; student rows cascade.
func (r *AttendanceRepository) DeleteAttendanceRecord(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM attendance_records WHERE id = ?`, id)
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

func (r *AttendanceRepository) scanRecord(row rowScanner) (persistence.AttendanceRecord, error) {
	var record persistence.AttendanceRecord
	var dateStr, createdStr, updatedStr string

	err := row.Scan(&record.ID, &record.SessionID, &dateStr, &createdStr, &updatedStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.AttendanceRecord{}, persistence.ErrNotFound
		}
		return persistence.AttendanceRecord{}, r.mapper.MapError(err)
	}

	if record.InstanceDate, err = schedule.ParseDate(dateStr); err != nil {
		return persistence.AttendanceRecord{}, fmt.Errorf("failed to parse instance_date: %w", err)
	}
	if record.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.AttendanceRecord{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if record.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.AttendanceRecord{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return record, nil
}

func (r *AttendanceRepository) loadStudents(ctx context.Context, recordID string) ([]persistence.StudentAttendance, error) {
	query := `
		SELECT attendance_record_id, student_school_year_id, times_present
		FROM student_attendance
		WHERE attendance_record_id = ?
		ORDER BY student_school_year_id ASC
	`
	rows, err := r.helper.Query(ctx, query, recordID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var students []persistence.StudentAttendance
	for rows.Next() {
		var student persistence.StudentAttendance
		if err := rows.Scan(&student.AttendanceRecordID, &student.StudentSchoolYearID, &student.TimesPresent); err != nil {
			return nil, r.mapper.MapError(err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return students, nil
}
