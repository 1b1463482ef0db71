package application

import (
	"time"

	"github.com/example/grant-tracker/internal/schedule"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID          string
	IsAdmin         bool
	OrganizationIDs []string
}

// AllowsOrganization reports whether the principal may act on resources of
// the given organization.
func (p Principal) AllowsOrganization(organizationID string) bool {
	if p.IsAdmin {
		return true
	}
	for _, id := range p.OrganizationIDs {
		if id == organizationID {
			return true
		}
	}
	return false
}

// IntervalInput captures one caller provided time interval.
type IntervalInput struct {
	Start schedule.TimeOfDay
	End   schedule.TimeOfDay
}

// DayScheduleInput captures one weekday of a proposed weekly schedule.
type DayScheduleInput struct {
	Weekday   time.Weekday
	Intervals []IntervalInput
}

// SessionInput captures caller provided session fields.
type SessionInput struct {
	Name             string
	FirstSessionDate schedule.Date
	LastSessionDate  schedule.Date
	Recurring        bool
	Days             []DayScheduleInput
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	Principal          Principal
	OrganizationYearID string
	Input              SessionInput
}

// UpdateSessionParams wraps the data required to update a session.
type UpdateSessionParams struct {
	Principal Principal
	SessionID string
	Input     SessionInput
}

// IntervalView is one persisted time interval.
type IntervalView struct {
	ID    string
	Start schedule.TimeOfDay
	End   schedule.TimeOfDay
}

// DayScheduleView is one persisted weekday of a session's schedule.
type DayScheduleView struct {
	ID        string
	Weekday   time.Weekday
	Intervals []IntervalView
}

// SessionView is a session as exposed by the application services.
type SessionView struct {
	ID                 string
	OrganizationYearID string
	Name               string
	FirstSessionDate   schedule.Date
	LastSessionDate    schedule.Date
	Recurring          bool
	Days               []DayScheduleView
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RegisterParams wraps the data required to register a student on session days.
type RegisterParams struct {
	Principal           Principal
	SessionID           string
	StudentSchoolYearID string
	DayScheduleIDs      []string
}

// CopyRegistrationsParams wraps the data required to copy selected students
// of a session's roster into another session. An empty student list copies
// the whole roster.
type CopyRegistrationsParams struct {
	Principal            Principal
	FromSessionID        string
	ToSessionID          string
	StudentSchoolYearIDs []string
}

// CopyResult reports the outcome for one student of a roster copy.
type CopyResult struct {
	StudentSchoolYearID string
	StudentName         string
	Copied              bool
	Conflicts           []string
}

// RegistrationView is one registration row joined with student and schedule data.
type RegistrationView struct {
	StudentSchoolYearID string
	StudentName         string
	DayScheduleID       string
	Weekday             time.Weekday
	Intervals           []IntervalView
}

// StudentAttendanceInput captures one student's presence on an instance date.
type StudentAttendanceInput struct {
	StudentSchoolYearID string
	TimesPresent        int
}

// AttendanceInput captures a caller provided attendance record.
type AttendanceInput struct {
	InstanceDate schedule.Date
	Students     []StudentAttendanceInput
}

// SubmitAttendanceParams wraps the data required to record attendance.
type SubmitAttendanceParams struct {
	Principal Principal
	SessionID string
	Input     AttendanceInput
}

// EditAttendanceParams wraps the data required to replace an attendance record.
type EditAttendanceParams struct {
	Principal Principal
	RecordID  string
	Input     AttendanceInput
}

// AttendanceView is an attendance record as exposed by the services.
type AttendanceView struct {
	ID           string
	SessionID    string
	InstanceDate schedule.Date
	Students     []StudentAttendanceView
}

// StudentAttendanceView is one student row of an attendance record.
type StudentAttendanceView struct {
	StudentSchoolYearID string
	TimesPresent        int
}

// MissingAttendanceView flags one expected session instance without a record.
type MissingAttendanceView struct {
	SessionID    string
	SessionName  string
	InstanceDate schedule.Date
}

// BlackoutInput captures a caller provided blackout date.
type BlackoutInput struct {
	Date schedule.Date
}

// BlackoutView is a blackout date as exposed by the services.
type BlackoutView struct {
	ID   string
	Date schedule.Date
}

// User represents an account exposed by the application services.
type User struct {
	ID              string
	Email           string
	DisplayName     string
	IsAdmin         bool
	OrganizationIDs []string
}

// AuthSession represents an issued login token.
type AuthSession struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session AuthSession
}
