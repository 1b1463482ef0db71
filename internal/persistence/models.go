package persistence

import (
	"time"

	"github.com/example/grant-tracker/internal/schedule"
)

// Organization represents a grant-holding organization.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationYear scopes sessions and students to one school year of an
// organization, e.g. "2023-2024".
type OrganizationYear struct {
	ID             string
	OrganizationID string
	Label          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Session represents a program session running between two calendar dates.
type Session struct {
	ID                 string
	OrganizationYearID string
	Name               string
	FirstSessionDate   schedule.Date
	LastSessionDate    schedule.Date
	Recurring          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DaySchedule represents one weekday of a session's weekly schedule together
// with its time intervals.
type DaySchedule struct {
	ID        string
	SessionID string
	Weekday   time.Weekday
	Intervals []TimeSchedule
}

// TimeSchedule is a single start/end interval belonging to a day schedule.
type TimeSchedule struct {
	ID            string
	DayScheduleID string
	StartTime     schedule.TimeOfDay
	EndTime       schedule.TimeOfDay
}

// DayScheduleUpdate carries an in-place revision of one day schedule.
type DayScheduleUpdate struct {
	DayScheduleID string
	Weekday       time.Weekday
	Intervals     []TimeSchedule
}

// ScheduleRevision describes the persistent effect of editing a session's
// weekly schedule. Removals cascade to the removed days' registrations unless
// MoveRegistrationsTo names a surviving day schedule, in which case every
// registration of a removed day is re-pointed there instead.
type ScheduleRevision struct {
	Add                 []DaySchedule
	Update              []DayScheduleUpdate
	Remove              []string
	MoveRegistrationsTo string
}

// StudentSchoolYear represents one student enrolled for one organization year.
type StudentSchoolYear struct {
	ID                 string
	OrganizationYearID string
	FirstName          string
	LastName           string
	MatricNumber       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// StudentRegistration links a student school year to a session day schedule.
type StudentRegistration struct {
	StudentSchoolYearID string
	DayScheduleID       string
	CreatedAt           time.Time
}

// RegisteredDay is the read model used by conflict checks: one existing
// registration joined with its day schedule, intervals and student name.
type RegisteredDay struct {
	StudentSchoolYearID string
	StudentFirstName    string
	StudentLastName     string
	SessionID           string
	SessionName         string
	DayScheduleID       string
	Weekday             time.Weekday
	Intervals           []TimeSchedule
}

// AttendanceRecord represents one taken session instance with its per-student
// detail rows.
type AttendanceRecord struct {
	ID           string
	SessionID    string
	InstanceDate schedule.Date
	Students     []StudentAttendance
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StudentAttendance is the per-student detail row of an attendance record.
type StudentAttendance struct {
	AttendanceRecordID  string
	StudentSchoolYearID string
	TimesPresent        int
}

// BlackoutDate suppresses expected session instances across an organization.
type BlackoutDate struct {
	ID             string
	OrganizationID string
	Date           schedule.Date
}

// SessionBlackoutDate suppresses expected instances for a single session.
type SessionBlackoutDate struct {
	ID        string
	SessionID string
	Date      schedule.Date
}

// User represents a coordinator or administrator account.
type User struct {
	ID              string
	Email           string
	DisplayName     string
	PasswordHash    string
	IsAdmin         bool
	OrganizationIDs []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AuthSession represents an opaque login token persisted for a user.
type AuthSession struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
