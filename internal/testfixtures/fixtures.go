package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/grant-tracker/internal/application"
	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/schedule"
)

var (
	userCounter         uint64
	organizationCounter uint64
	yearCounter         uint64
	studentCounter      uint64
	sessionCounter      uint64
	attendanceCounter   uint64
	blackoutCounter     uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user account that can be
// materialised for application or persistence tests.
type UserFixture struct {
	ID              string
	Email           string
	DisplayName     string
	PasswordHash    string
	IsAdmin         bool
	OrganizationIDs []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		IsAdmin:      false,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserAdmin sets the admin flag on the generated fixture.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = isAdmin
	}
}

// WithUserOrganizations scopes the fixture to the given organizations.
func WithUserOrganizations(organizationIDs ...string) UserOption {
	return func(f *UserFixture) {
		f.OrganizationIDs = organizationIDs
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{
		UserID:          f.ID,
		IsAdmin:         f.IsAdmin,
		OrganizationIDs: f.OrganizationIDs,
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:              f.ID,
		Email:           f.Email,
		DisplayName:     f.DisplayName,
		PasswordHash:    f.PasswordHash,
		IsAdmin:         f.IsAdmin,
		OrganizationIDs: f.OrganizationIDs,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// ------------------------ Organization fixtures --------------------------

// OrganizationFixture represents a deterministic grant-holding organization.
type OrganizationFixture struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationOption configures the generated organization fixture.
type OrganizationOption func(*OrganizationFixture)

// NewOrganizationFixture returns a deterministic organization fixture.
func NewOrganizationFixture(opts ...OrganizationOption) OrganizationFixture {
	idx := atomic.AddUint64(&organizationCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := OrganizationFixture{
		ID:        fmt.Sprintf("org-%03d", idx),
		Name:      fmt.Sprintf("Organization %03d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOrganizationID overrides the generated organization ID.
func WithOrganizationID(id string) OrganizationOption {
	return func(f *OrganizationFixture) {
		f.ID = id
	}
}

// WithOrganizationName overrides the generated organization name.
func WithOrganizationName(name string) OrganizationOption {
	return func(f *OrganizationFixture) {
		f.Name = name
	}
}

// Persistence returns the fixture as a persistence.Organization value.
func (f OrganizationFixture) Persistence() persistence.Organization {
	return persistence.Organization{
		ID:        f.ID,
		Name:      f.Name,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// OrganizationYearFixture represents one school year of an organization.
type OrganizationYearFixture struct {
	ID             string
	OrganizationID string
	Label          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrganizationYearOption configures the generated year fixture.
type OrganizationYearOption func(*OrganizationYearFixture)

// NewOrganizationYearFixture returns a deterministic organization year fixture.
func NewOrganizationYearFixture(organizationID string, opts ...OrganizationYearOption) OrganizationYearFixture {
	idx := atomic.AddUint64(&yearCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := OrganizationYearFixture{
		ID:             fmt.Sprintf("year-%03d", idx),
		OrganizationID: organizationID,
		Label:          "2023-2024",
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOrganizationYearID overrides the generated year ID.
func WithOrganizationYearID(id string) OrganizationYearOption {
	return func(f *OrganizationYearFixture) {
		f.ID = id
	}
}

// WithOrganizationYearLabel overrides the generated label.
func WithOrganizationYearLabel(label string) OrganizationYearOption {
	return func(f *OrganizationYearFixture) {
		f.Label = label
	}
}

// Persistence returns the fixture as a persistence.OrganizationYear value.
func (f OrganizationYearFixture) Persistence() persistence.OrganizationYear {
	return persistence.OrganizationYear{
		ID:             f.ID,
		OrganizationID: f.OrganizationID,
		Label:          f.Label,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// --------------------------- Student fixtures ----------------------------

// StudentFixture represents a deterministic student enrollment row.
type StudentFixture struct {
	ID                 string
	OrganizationYearID string
	FirstName          string
	LastName           string
	MatricNumber       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// StudentOption configures the generated student fixture.
type StudentOption func(*StudentFixture)

// NewStudentFixture returns a deterministic student fixture.
func NewStudentFixture(organizationYearID string, opts ...StudentOption) StudentFixture {
	idx := atomic.AddUint64(&studentCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := StudentFixture{
		ID:                 fmt.Sprintf("student-%03d", idx),
		OrganizationYearID: organizationYearID,
		FirstName:          fmt.Sprintf("First%03d", idx),
		LastName:           fmt.Sprintf("Last%03d", idx),
		MatricNumber:       fmt.Sprintf("M-%03d", idx),
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithStudentID overrides the generated student ID.
func WithStudentID(id string) StudentOption {
	return func(f *StudentFixture) {
		f.ID = id
	}
}

// WithStudentName overrides the generated first and last name.
func WithStudentName(first, last string) StudentOption {
	return func(f *StudentFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// WithStudentMatricNumber overrides the generated matric number.
func WithStudentMatricNumber(matric string) StudentOption {
	return func(f *StudentFixture) {
		f.MatricNumber = matric
	}
}

// Persistence returns the fixture as a persistence.StudentSchoolYear value.
func (f StudentFixture) Persistence() persistence.StudentSchoolYear {
	return persistence.StudentSchoolYear{
		ID:                 f.ID,
		OrganizationYearID: f.OrganizationYearID,
		FirstName:          f.FirstName,
		LastName:           f.LastName,
		MatricNumber:       f.MatricNumber,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// --------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic program session together with its
// weekly day schedules.
type SessionFixture struct {
	ID                 string
	OrganizationYearID string
	Name               string
	FirstSessionDate   schedule.Date
	LastSessionDate    schedule.Date
	Recurring          bool
	Days               []persistence.DaySchedule
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture spanning the first
// half of 2024 with a single Monday afternoon slot.
func NewSessionFixture(organizationYearID string, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	id := fmt.Sprintf("session-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := SessionFixture{
		ID:                 id,
		OrganizationYearID: organizationYearID,
		Name:               fmt.Sprintf("Session %03d", idx),
		FirstSessionDate:   schedule.Date{Year: 2024, Month: time.January, Day: 1},
		LastSessionDate:    schedule.Date{Year: 2024, Month: time.May, Day: 31},
		Recurring:          true,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	fixture.Days = []persistence.DaySchedule{
		DayScheduleFixture(id+"-mon", id, time.Monday, [2]int{15, 16}),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the generated session ID and re-points the generated
// day schedules at it.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
		for i := range f.Days {
			f.Days[i].SessionID = id
		}
	}
}

// WithSessionName overrides the generated session name.
func WithSessionName(name string) SessionOption {
	return func(f *SessionFixture) {
		f.Name = name
	}
}

// WithSessionWindow overrides the first and last session dates.
func WithSessionWindow(first, last schedule.Date) SessionOption {
	return func(f *SessionFixture) {
		f.FirstSessionDate = first
		f.LastSessionDate = last
	}
}

// WithSessionRecurring sets the recurring flag.
func WithSessionRecurring(recurring bool) SessionOption {
	return func(f *SessionFixture) {
		f.Recurring = recurring
	}
}

// WithSessionDays replaces the generated day schedules.
func WithSessionDays(days ...persistence.DaySchedule) SessionOption {
	return func(f *SessionFixture) {
		f.Days = days
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:                 f.ID,
		OrganizationYearID: f.OrganizationYearID,
		Name:               f.Name,
		FirstSessionDate:   f.FirstSessionDate,
		LastSessionDate:    f.LastSessionDate,
		Recurring:          f.Recurring,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// DayScheduleFixture builds a persistence.DaySchedule with hour-granularity
// intervals, expressed as [startHour, endHour) pairs.
func DayScheduleFixture(id, sessionID string, weekday time.Weekday, hours ...[2]int) persistence.DaySchedule {
	day := persistence.DaySchedule{
		ID:        id,
		SessionID: sessionID,
		Weekday:   weekday,
	}
	for i, pair := range hours {
		day.Intervals = append(day.Intervals, persistence.TimeSchedule{
			ID:            fmt.Sprintf("%s-%d", id, i+1),
			DayScheduleID: id,
			StartTime:     schedule.TimeOfDay(pair[0] * 60),
			EndTime:       schedule.TimeOfDay(pair[1] * 60),
		})
	}
	return day
}

// -------------------------- Attendance fixtures --------------------------

// AttendanceFixture represents a deterministic attendance record.
type AttendanceFixture struct {
	ID           string
	SessionID    string
	InstanceDate schedule.Date
	Students     []persistence.StudentAttendance
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AttendanceOption configures the generated attendance fixture.
type AttendanceOption func(*AttendanceFixture)

// NewAttendanceFixture returns a deterministic attendance fixture.
func NewAttendanceFixture(sessionID string, instanceDate schedule.Date, opts ...AttendanceOption) AttendanceFixture {
	idx := atomic.AddUint64(&attendanceCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := AttendanceFixture{
		ID:           fmt.Sprintf("attendance-%03d", idx),
		SessionID:    sessionID,
		InstanceDate: instanceDate,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAttendanceID overrides the generated record ID.
func WithAttendanceID(id string) AttendanceOption {
	return func(f *AttendanceFixture) {
		f.ID = id
	}
}

// WithAttendanceStudent appends one student detail row.
func WithAttendanceStudent(studentSchoolYearID string, timesPresent int) AttendanceOption {
	return func(f *AttendanceFixture) {
		f.Students = append(f.Students, persistence.StudentAttendance{
			StudentSchoolYearID: studentSchoolYearID,
			TimesPresent:        timesPresent,
		})
	}
}

// Persistence returns the fixture as a persistence.AttendanceRecord value.
func (f AttendanceFixture) Persistence() persistence.AttendanceRecord {
	students := make([]persistence.StudentAttendance, len(f.Students))
	for i, student := range f.Students {
		student.AttendanceRecordID = f.ID
		students[i] = student
	}
	return persistence.AttendanceRecord{
		ID:           f.ID,
		SessionID:    f.SessionID,
		InstanceDate: f.InstanceDate,
		Students:     students,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// --------------------------- Blackout fixtures ---------------------------

// BlackoutDateFixture returns a deterministic organization blackout date.
func BlackoutDateFixture(organizationID string, date schedule.Date) persistence.BlackoutDate {
	idx := atomic.AddUint64(&blackoutCounter, 1)
	return persistence.BlackoutDate{
		ID:             fmt.Sprintf("blackout-%03d", idx),
		OrganizationID: organizationID,
		Date:           date,
	}
}

// SessionBlackoutDateFixture returns a deterministic session blackout date.
func SessionBlackoutDateFixture(sessionID string, date schedule.Date) persistence.SessionBlackoutDate {
	idx := atomic.AddUint64(&blackoutCounter, 1)
	return persistence.SessionBlackoutDate{
		ID:        fmt.Sprintf("blackout-%03d", idx),
		SessionID: sessionID,
		Date:      date,
	}
}
