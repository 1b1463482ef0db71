package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
)

// StudentRepository implements persistence.StudentRepository using SQLite.
type StudentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewStudentRepository creates a new SQLite student repository.
func NewStudentRepository(pool *ConnectionPool) *StudentRepository {
	return &StudentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateStudentSchoolYear inserts a new student enrollment row.
func (r *StudentRepository) CreateStudentSchoolYear(ctx context.Context, student persistence.StudentSchoolYear) error {
	if student.ID == "" || student.OrganizationYearID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO student_school_years (id, organization_year_id, first_name, last_name, matric_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		student.ID,
		student.OrganizationYearID,
		student.FirstName,
		student.LastName,
		student.MatricNumber,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	return r.mapper.MapError(err)
}

// GetStudentSchoolYear retrieves a student enrollment by ID.
func (r *StudentRepository) GetStudentSchoolYear(ctx context.Context, id string) (persistence.StudentSchoolYear, error) {
	if id == "" {
		return persistence.StudentSchoolYear{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, organization_year_id, first_name, last_name, matric_number, created_at, updated_at
		FROM student_school_years
		WHERE id = ?
	`
	return r.scanStudent(r.helper.QueryRow(ctx, query, id))
}

// ListStudentSchoolYears returns an organization year's students ordered by name.
func (r *StudentRepository) ListStudentSchoolYears(ctx context.Context, organizationYearID string) ([]persistence.StudentSchoolYear, error) {
	query := `
		SELECT id, organization_year_id, first_name, last_name, matric_number, created_at, updated_at
		FROM student_school_years
		WHERE organization_year_id = ?
		ORDER BY last_name ASC, first_name ASC, id ASC
	`
	rows, err := r.helper.Query(ctx, query, organizationYearID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var students []persistence.StudentSchoolYear
	for rows.Next() {
		student, err := r.scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return students, nil
}

func (r *StudentRepository) scanStudent(row rowScanner) (persistence.StudentSchoolYear, error) {
	var student persistence.StudentSchoolYear
	var createdStr, updatedStr string

	err := row.Scan(
		&student.ID,
		&student.OrganizationYearID,
		&student.FirstName,
		&student.LastName,
		&student.MatricNumber,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.StudentSchoolYear{}, persistence.ErrNotFound
		}
		return persistence.StudentSchoolYear{}, r.mapper.MapError(err)
	}

	if student.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.StudentSchoolYear{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if student.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.StudentSchoolYear{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return student, nil
}
