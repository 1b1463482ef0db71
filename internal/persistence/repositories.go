package persistence

import (
	"context"
	"time"

	"github.com/example/grant-tracker/internal/schedule"
)

// OrganizationRepository stores organizations, their years and blackout dates.
type OrganizationRepository interface {
	CreateOrganization(ctx context.Context, organization Organization) error
	GetOrganization(ctx context.Context, id string) (Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)

	CreateOrganizationYear(ctx context.Context, year OrganizationYear) error
	GetOrganizationYear(ctx context.Context, id string) (OrganizationYear, error)
	ListOrganizationYears(ctx context.Context, organizationID string) ([]OrganizationYear, error)

	CreateBlackoutDate(ctx context.Context, blackout BlackoutDate) error
	ListBlackoutDates(ctx context.Context, organizationID string) ([]BlackoutDate, error)
	DeleteBlackoutDate(ctx context.Context, id string) error

	CreateSessionBlackoutDate(ctx context.Context, blackout SessionBlackoutDate) error
	ListSessionBlackoutDates(ctx context.Context, sessionID string) ([]SessionBlackoutDate, error)
	DeleteSessionBlackoutDate(ctx context.Context, id string) error
}

// SessionRepository stores sessions and their weekly day schedules.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session, days []DaySchedule) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, organizationYearID string) ([]Session, error)

	// UpdateSession applies the session row update and the schedule revision
	// in a single transaction.
	UpdateSession(ctx context.Context, session Session, revision ScheduleRevision) error

	// DeleteSession removes the session with its day schedules, intervals and
	// registrations. Callers guard against deleting sessions with attendance.
	DeleteSession(ctx context.Context, id string) error

	ListDaySchedules(ctx context.Context, sessionID string) ([]DaySchedule, error)
	GetDaySchedule(ctx context.Context, id string) (DaySchedule, error)
}

// RegistrationRepository stores student registrations against day schedules.
type RegistrationRepository interface {
	// CreateRegistrations inserts every pair or none.
	CreateRegistrations(ctx context.Context, registrations []StudentRegistration) error
	// RegisterStudent runs the conflict check against the student's existing
	// registrations and inserts the batch in the same transaction.
	RegisterStudent(ctx context.Context, studentSchoolYearID string, registrations []StudentRegistration, check func(existing []RegisteredDay) error) error
	DeleteRegistration(ctx context.Context, studentSchoolYearID, dayScheduleID string) error

	ListStudentRegistrations(ctx context.Context, studentSchoolYearID string) ([]RegisteredDay, error)
	ListSessionRegistrations(ctx context.Context, sessionID string, weekday *time.Weekday) ([]RegisteredDay, error)
	CountRegistrationsForDaySchedules(ctx context.Context, dayScheduleIDs []string) (int, error)
}

// StudentRepository stores student school-year enrollment rows.
type StudentRepository interface {
	CreateStudentSchoolYear(ctx context.Context, student StudentSchoolYear) error
	GetStudentSchoolYear(ctx context.Context, id string) (StudentSchoolYear, error)
	ListStudentSchoolYears(ctx context.Context, organizationYearID string) ([]StudentSchoolYear, error)
}

// AttendanceRepository stores attendance records and their student rows.
type AttendanceRepository interface {
	// CreateAttendanceRecord inserts the record with all student rows or nothing.
	CreateAttendanceRecord(ctx context.Context, record AttendanceRecord) error
	GetAttendanceRecord(ctx context.Context, id string) (AttendanceRecord, error)
	ListAttendanceRecords(ctx context.Context, sessionID string) ([]AttendanceRecord, error)
	ListAttendanceDates(ctx context.Context, sessionID string) ([]schedule.Date, error)
	CountAttendanceRecords(ctx context.Context, sessionID string) (int, error)
	DeleteAttendanceRecord(ctx context.Context, id string) error
}

// UserRepository stores user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// AuthSessionRepository stores login token state.
type AuthSessionRepository interface {
	CreateAuthSession(ctx context.Context, session AuthSession) error
	GetAuthSessionByToken(ctx context.Context, token string) (AuthSession, error)
	RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error
}
