package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/schedule"
)

// AttendanceStore captures the persistence interactions for attendance records.
type AttendanceStore interface {
	CreateAttendanceRecord(ctx context.Context, record persistence.AttendanceRecord) error
	GetAttendanceRecord(ctx context.Context, id string) (persistence.AttendanceRecord, error)
	ListAttendanceRecords(ctx context.Context, sessionID string) ([]persistence.AttendanceRecord, error)
	ListAttendanceDates(ctx context.Context, sessionID string) ([]schedule.Date, error)
	DeleteAttendanceRecord(ctx context.Context, id string) error
}

// BlackoutReader resolves organization and session level blackout dates.
type BlackoutReader interface {
	ListBlackoutDates(ctx context.Context, organizationID string) ([]persistence.BlackoutDate, error)
	ListSessionBlackoutDates(ctx context.Context, sessionID string) ([]persistence.SessionBlackoutDate, error)
}

// SessionCatalog exposes the session lookups attendance operations need.
type SessionCatalog interface {
	GetSession(ctx context.Context, id string) (persistence.Session, error)
	ListSessions(ctx context.Context, organizationYearID string) ([]persistence.Session, error)
	ListDaySchedules(ctx context.Context, sessionID string) ([]persistence.DaySchedule, error)
}

// AttendanceService records attendance against session instance dates and
// scans for dates whose records were never entered.
type AttendanceService struct {
	attendance AttendanceStore
	sessions   SessionCatalog
	years      OrganizationYearStore
	blackouts  BlackoutReader

	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAttendanceService wires dependencies for attendance operations.
func NewAttendanceService(attendance AttendanceStore, sessions SessionCatalog, years OrganizationYearStore, blackouts BlackoutReader, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		attendance:  attendance,
		sessions:    sessions,
		years:       years,
		blackouts:   blackouts,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

// OpenDates lists the dates on the given weekday within the session's window
// that have neither an attendance record nor a blackout.
func (s *AttendanceService) OpenDates(ctx context.Context, principal Principal, sessionID string, weekday time.Weekday) ([]schedule.Date, error) {
	session, year, err := s.authorizeSession(ctx, principal, sessionID)
	if err != nil {
		return nil, err
	}

	days, err := s.sessions.ListDaySchedules(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !weekdayScheduled(days, weekday) {
		vErr := &ValidationError{}
		vErr.add("weekday", fmt.Sprintf("the session does not meet on %s", weekday))
		return nil, vErr
	}

	attendanceDates, err := s.attendance.ListAttendanceDates(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	blackouts, err := s.combinedBlackouts(ctx, year.OrganizationID, sessionID)
	if err != nil {
		return nil, err
	}

	return schedule.OpenDates(weekday, session.FirstSessionDate, session.LastSessionDate, attendanceDates, blackouts), nil
}

// MissingAttendance scans every session of an organization year and reports
// past instance dates that have no attendance record and no blackout.
func (s *AttendanceService) MissingAttendance(ctx context.Context, principal Principal, organizationYearID string) ([]MissingAttendanceView, error) {
	year, err := s.years.GetOrganizationYear(ctx, organizationYearID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !principal.AllowsOrganization(year.OrganizationID) {
		return nil, ErrUnauthorized
	}

	sessions, err := s.sessions.ListSessions(ctx, organizationYearID)
	if err != nil {
		return nil, err
	}
	orgBlackouts, err := s.blackouts.ListBlackoutDates(ctx, year.OrganizationID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(sessions))
	windows := make([]schedule.SessionWindow, 0, len(sessions))
	for _, session := range sessions {
		names[session.ID] = session.Name

		days, err := s.sessions.ListDaySchedules(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		weekdays := make([]time.Weekday, 0, len(days))
		for _, day := range days {
			if len(day.Intervals) > 0 {
				weekdays = append(weekdays, day.Weekday)
			}
		}
		if len(weekdays) == 0 {
			continue
		}

		attendanceDates, err := s.attendance.ListAttendanceDates(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		sessionBlackouts, err := s.blackouts.ListSessionBlackoutDates(ctx, session.ID)
		if err != nil {
			return nil, err
		}

		windows = append(windows, schedule.SessionWindow{
			SessionID:       session.ID,
			FirstSession:    session.FirstSessionDate,
			LastSession:     session.LastSessionDate,
			Weekdays:        weekdays,
			AttendanceDates: attendanceDates,
			BlackoutDates:   blackoutDatesOf(sessionBlackouts),
		})
	}

	today := schedule.DateOf(s.now())
	missing := schedule.MissingAttendance(windows, orgBlackoutDatesOf(orgBlackouts), today)

	views := make([]MissingAttendanceView, 0, len(missing))
	for _, record := range missing {
		views = append(views, MissingAttendanceView{
			SessionID:    record.SessionID,
			SessionName:  names[record.SessionID],
			InstanceDate: record.InstanceDate,
		})
	}
	return views, nil
}

// SubmitAttendance records attendance for one session instance date. A second
// record for the same date is rejected with a ConflictError.
func (s *AttendanceService) SubmitAttendance(ctx context.Context, params SubmitAttendanceParams) (AttendanceView, error) {
	logger := s.loggerWith(ctx, "SubmitAttendance",
		"session_id", params.SessionID,
		"instance_date", params.Input.InstanceDate.String(),
	)

	session, year, err := s.authorizeSession(ctx, params.Principal, params.SessionID)
	if err != nil {
		return AttendanceView{}, err
	}
	if err := s.validateAttendanceInput(ctx, session, year, params.Input); err != nil {
		return AttendanceView{}, err
	}

	record := s.newRecord(params.SessionID, params.Input)
	if err := s.attendance.CreateAttendanceRecord(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return AttendanceView{}, &ConflictError{Messages: []string{
				fmt.Sprintf("attendance has already been recorded for %s", params.Input.InstanceDate),
			}}
		}
		logger.ErrorContext(ctx, "failed to create attendance record", "error", err)
		return AttendanceView{}, err
	}

	logger.InfoContext(ctx, "attendance recorded", "students", len(record.Students))
	return attendanceView(record), nil
}

// GetAttendance returns one attendance record with its student rows.
func (s *AttendanceService) GetAttendance(ctx context.Context, principal Principal, recordID string) (AttendanceView, error) {
	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return AttendanceView{}, err
	}
	if _, _, err := s.authorizeSession(ctx, principal, record.SessionID); err != nil {
		return AttendanceView{}, err
	}
	return attendanceView(record), nil
}

// ListAttendance returns a session's attendance records in instance date order.
func (s *AttendanceService) ListAttendance(ctx context.Context, principal Principal, sessionID string) ([]AttendanceView, error) {
	if _, _, err := s.authorizeSession(ctx, principal, sessionID); err != nil {
		return nil, err
	}
	records, err := s.attendance.ListAttendanceRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	views := make([]AttendanceView, 0, len(records))
	for _, record := range records {
		views = append(views, attendanceView(record))
	}
	return views, nil
}

// EditAttendance replaces an attendance record. The original is removed and a
// replacement written; if the replacement cannot be written the original is
// restored so no record is lost.
func (s *AttendanceService) EditAttendance(ctx context.Context, params EditAttendanceParams) (AttendanceView, error) {
	logger := s.loggerWith(ctx, "EditAttendance", "record_id", params.RecordID)

	original, err := s.loadRecord(ctx, params.RecordID)
	if err != nil {
		return AttendanceView{}, err
	}
	session, year, err := s.authorizeSession(ctx, params.Principal, original.SessionID)
	if err != nil {
		return AttendanceView{}, err
	}
	if err := s.validateAttendanceInput(ctx, session, year, params.Input); err != nil {
		return AttendanceView{}, err
	}

	if err := s.attendance.DeleteAttendanceRecord(ctx, original.ID); err != nil {
		return AttendanceView{}, err
	}

	replacement := s.newRecord(original.SessionID, params.Input)
	replacement.ID = original.ID
	replacement.CreatedAt = original.CreatedAt
	if err := s.attendance.CreateAttendanceRecord(ctx, replacement); err != nil {
		if restoreErr := s.attendance.CreateAttendanceRecord(ctx, original); restoreErr != nil {
			logger.ErrorContext(ctx, "failed to restore attendance record after edit failure",
				"error", restoreErr)
			return AttendanceView{}, fmt.Errorf("replace attendance record: %w (restore failed: %v)", err, restoreErr)
		}
		if errors.Is(err, persistence.ErrDuplicate) {
			return AttendanceView{}, &ConflictError{Messages: []string{
				fmt.Sprintf("attendance has already been recorded for %s", params.Input.InstanceDate),
			}}
		}
		return AttendanceView{}, err
	}

	logger.InfoContext(ctx, "attendance replaced",
		"instance_date", params.Input.InstanceDate.String(),
		"students", len(replacement.Students),
	)
	return attendanceView(replacement), nil
}

// DeleteAttendance removes one attendance record with its student rows.
func (s *AttendanceService) DeleteAttendance(ctx context.Context, principal Principal, recordID string) error {
	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if _, _, err := s.authorizeSession(ctx, principal, record.SessionID); err != nil {
		return err
	}
	if err := s.attendance.DeleteAttendanceRecord(ctx, recordID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.loggerWith(ctx, "DeleteAttendance", "record_id", recordID).InfoContext(ctx, "attendance deleted")
	return nil
}

func (s *AttendanceService) authorizeSession(ctx context.Context, principal Principal, sessionID string) (persistence.Session, persistence.OrganizationYear, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Session{}, persistence.OrganizationYear{}, ErrNotFound
		}
		return persistence.Session{}, persistence.OrganizationYear{}, err
	}
	year, err := s.years.GetOrganizationYear(ctx, session.OrganizationYearID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Session{}, persistence.OrganizationYear{}, ErrNotFound
		}
		return persistence.Session{}, persistence.OrganizationYear{}, err
	}
	if !principal.AllowsOrganization(year.OrganizationID) {
		return persistence.Session{}, persistence.OrganizationYear{}, ErrUnauthorized
	}
	return session, year, nil
}

func (s *AttendanceService) loadRecord(ctx context.Context, recordID string) (persistence.AttendanceRecord, error) {
	record, err := s.attendance.GetAttendanceRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.AttendanceRecord{}, ErrNotFound
		}
		return persistence.AttendanceRecord{}, err
	}
	return record, nil
}

func (s *AttendanceService) validateAttendanceInput(ctx context.Context, session persistence.Session, year persistence.OrganizationYear, input AttendanceInput) error {
	vErr := &ValidationError{}

	date := input.InstanceDate
	switch {
	case date.IsZero():
		vErr.add("instanceDate", "instance date is required")
	case date.Before(session.FirstSessionDate) || date.After(session.LastSessionDate):
		vErr.add("instanceDate", fmt.Sprintf("instance date must fall between %s and %s", session.FirstSessionDate, session.LastSessionDate))
	}

	if len(input.Students) == 0 {
		vErr.add("students", "at least one student is required")
	}
	for i, student := range input.Students {
		if student.StudentSchoolYearID == "" {
			vErr.add(fmt.Sprintf("students[%d].studentSchoolYearId", i), "student is required")
		}
		if student.TimesPresent < 1 {
			vErr.add(fmt.Sprintf("students[%d].timesPresent", i), "times present must be at least 1")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}

	days, err := s.sessions.ListDaySchedules(ctx, session.ID)
	if err != nil {
		return err
	}
	if !weekdayScheduled(days, date.Weekday()) {
		vErr.add("instanceDate", fmt.Sprintf("the session does not meet on %s", date.Weekday()))
		return vErr
	}

	blackouts, err := s.combinedBlackouts(ctx, year.OrganizationID, session.ID)
	if err != nil {
		return err
	}
	for _, blackout := range blackouts {
		if blackout == date {
			vErr.add("instanceDate", fmt.Sprintf("%s is a blackout date", date))
			return vErr
		}
	}
	return nil
}

func (s *AttendanceService) combinedBlackouts(ctx context.Context, organizationID, sessionID string) ([]schedule.Date, error) {
	orgBlackouts, err := s.blackouts.ListBlackoutDates(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	sessionBlackouts, err := s.blackouts.ListSessionBlackoutDates(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	combined := orgBlackoutDatesOf(orgBlackouts)
	return append(combined, blackoutDatesOf(sessionBlackouts)...), nil
}

func (s *AttendanceService) newRecord(sessionID string, input AttendanceInput) persistence.AttendanceRecord {
	now := s.now().UTC()
	record := persistence.AttendanceRecord{
		ID:           s.idGenerator(),
		SessionID:    sessionID,
		InstanceDate: input.InstanceDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, student := range input.Students {
		record.Students = append(record.Students, persistence.StudentAttendance{
			AttendanceRecordID:  record.ID,
			StudentSchoolYearID: student.StudentSchoolYearID,
			TimesPresent:        student.TimesPresent,
		})
	}
	return record
}

func weekdayScheduled(days []persistence.DaySchedule, weekday time.Weekday) bool {
	for _, day := range days {
		if day.Weekday == weekday && len(day.Intervals) > 0 {
			return true
		}
	}
	return false
}

func attendanceView(record persistence.AttendanceRecord) AttendanceView {
	view := AttendanceView{
		ID:           record.ID,
		SessionID:    record.SessionID,
		InstanceDate: record.InstanceDate,
	}
	for _, student := range record.Students {
		view.Students = append(view.Students, StudentAttendanceView{
			StudentSchoolYearID: student.StudentSchoolYearID,
			TimesPresent:        student.TimesPresent,
		})
	}
	return view
}

func orgBlackoutDatesOf(blackouts []persistence.BlackoutDate) []schedule.Date {
	dates := make([]schedule.Date, 0, len(blackouts))
	for _, blackout := range blackouts {
		dates = append(dates, blackout.Date)
	}
	return dates
}

func blackoutDatesOf(blackouts []persistence.SessionBlackoutDate) []schedule.Date {
	dates := make([]schedule.Date, 0, len(blackouts))
	for _, blackout := range blackouts {
		dates = append(dates, blackout.Date)
	}
	return dates
}
