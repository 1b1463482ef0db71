package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/registrar"
	"github.com/example/grant-tracker/internal/schedule"
)

// RegistrationStore captures the persistence interactions for registrations.
// RegisterStudent must read the student's existing registrations and insert
// the batch under one transaction so the conflict check cannot be bypassed by
// a concurrent submission.
type RegistrationStore interface {
	RegisterStudent(ctx context.Context, studentSchoolYearID string, registrations []persistence.StudentRegistration, check func(existing []persistence.RegisteredDay) error) error
	DeleteRegistration(ctx context.Context, studentSchoolYearID, dayScheduleID string) error
	ListSessionRegistrations(ctx context.Context, sessionID string, weekday *time.Weekday) ([]persistence.RegisteredDay, error)
}

// StudentStore resolves student enrollment rows.
type StudentStore interface {
	GetStudentSchoolYear(ctx context.Context, id string) (persistence.StudentSchoolYear, error)
}

// ScheduleReader exposes the session schedule lookups the registrar needs.
type ScheduleReader interface {
	GetSession(ctx context.Context, id string) (persistence.Session, error)
	ListDaySchedules(ctx context.Context, sessionID string) ([]persistence.DaySchedule, error)
	GetDaySchedule(ctx context.Context, id string) (persistence.DaySchedule, error)
}

// RegistrationService registers students onto session day schedules, refusing
// any batch that collides with a student's existing weekly commitments.
type RegistrationService struct {
	registrations RegistrationStore
	students      StudentStore
	sessions      ScheduleReader
	years         OrganizationYearStore
	logger        *slog.Logger
}

// NewRegistrationService wires dependencies for registration operations.
func NewRegistrationService(registrations RegistrationStore, students StudentStore, sessions ScheduleReader, years OrganizationYearStore, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{
		registrations: registrations,
		students:      students,
		sessions:      sessions,
		years:         years,
		logger:        defaultLogger(logger),
	}
}

func (s *RegistrationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RegistrationService", operation, attrs...)
}

// Register places a student on the named day schedules of a session. The
// whole batch succeeds or nothing is written: any conflict with an existing
// registration returns a ConflictError carrying every message.
func (s *RegistrationService) Register(ctx context.Context, params RegisterParams) error {
	if s == nil || s.registrations == nil || s.sessions == nil {
		return fmt.Errorf("RegistrationService not configured")
	}

	logger := s.loggerWith(ctx, "Register",
		"session_id", params.SessionID,
		"student_school_year_id", params.StudentSchoolYearID,
	)

	session, days, err := s.loadSessionSchedule(ctx, params.Principal, params.SessionID)
	if err != nil {
		return err
	}

	student, err := s.loadStudent(ctx, params.StudentSchoolYearID)
	if err != nil {
		return err
	}
	if student.OrganizationYearID != session.OrganizationYearID {
		vErr := &ValidationError{}
		vErr.add("studentSchoolYearId", "student is not enrolled in the session's organization year")
		return vErr
	}

	proposed, vErr := resolveProposedDays(days, params.DayScheduleIDs)
	if vErr.HasErrors() {
		return vErr
	}

	pairs := registrationPairs(student.ID, proposed)
	err = s.registrations.RegisterStudent(ctx, student.ID, pairs, conflictCheck(student, proposed))
	if err != nil {
		var cErr *ConflictError
		if errors.As(err, &cErr) {
			logger.InfoContext(ctx, "registration rejected", "conflicts", len(cErr.Messages))
			return cErr
		}
		logger.ErrorContext(ctx, "failed to create registrations", "error", err)
		return err
	}

	logger.InfoContext(ctx, "student registered", "days", len(pairs))
	return nil
}

// ListRegistrations returns a session's registrations, optionally narrowed to
// one weekday.
func (s *RegistrationService) ListRegistrations(ctx context.Context, principal Principal, sessionID string, weekday *time.Weekday) ([]RegistrationView, error) {
	if _, _, err := s.loadSessionSchedule(ctx, principal, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.registrations.ListSessionRegistrations(ctx, sessionID, weekday)
	if err != nil {
		return nil, err
	}

	views := make([]RegistrationView, 0, len(rows))
	for _, row := range rows {
		views = append(views, registrationView(row))
	}
	return views, nil
}

// Unregister removes one student/day-schedule pair.
func (s *RegistrationService) Unregister(ctx context.Context, principal Principal, studentSchoolYearID, dayScheduleID string) error {
	if s == nil || s.registrations == nil {
		return fmt.Errorf("RegistrationService not configured")
	}

	day, err := s.sessions.GetDaySchedule(ctx, dayScheduleID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if _, _, err := s.loadSessionSchedule(ctx, principal, day.SessionID); err != nil {
		return err
	}

	if err := s.registrations.DeleteRegistration(ctx, studentSchoolYearID, dayScheduleID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.loggerWith(ctx, "Unregister",
		"student_school_year_id", studentSchoolYearID,
		"day_schedule_id", dayScheduleID,
	).InfoContext(ctx, "registration removed")
	return nil
}

// CopyRegistrations re-registers students of one session onto all active days
// of another. Params may name a subset of the source roster; an empty list
// copies everyone. Each student is all-or-nothing; students whose weekly
// commitments collide with the destination schedule are skipped and reported.
func (s *RegistrationService) CopyRegistrations(ctx context.Context, params CopyRegistrationsParams) ([]CopyResult, error) {
	if s == nil || s.registrations == nil || s.sessions == nil {
		return nil, fmt.Errorf("RegistrationService not configured")
	}

	logger := s.loggerWith(ctx, "CopyRegistrations",
		"from_session_id", params.FromSessionID,
		"to_session_id", params.ToSessionID,
	)

	if _, _, err := s.loadSessionSchedule(ctx, params.Principal, params.FromSessionID); err != nil {
		return nil, err
	}
	_, destinationDays, err := s.loadSessionSchedule(ctx, params.Principal, params.ToSessionID)
	if err != nil {
		return nil, err
	}
	if len(destinationDays) == 0 {
		vErr := &ValidationError{}
		vErr.add("toSessionId", "destination session has no scheduled days")
		return nil, vErr
	}

	destinationIDs := make([]string, 0, len(destinationDays))
	for _, day := range destinationDays {
		destinationIDs = append(destinationIDs, day.ID)
	}

	sourceRows, err := s.registrations.ListSessionRegistrations(ctx, params.FromSessionID, nil)
	if err != nil {
		return nil, err
	}

	var requested map[string]bool
	if len(params.StudentSchoolYearIDs) > 0 {
		requested = make(map[string]bool, len(params.StudentSchoolYearIDs))
		for _, id := range params.StudentSchoolYearIDs {
			requested[id] = true
		}
		onRoster := make(map[string]bool, len(sourceRows))
		for _, row := range sourceRows {
			onRoster[row.StudentSchoolYearID] = true
		}
		for _, id := range params.StudentSchoolYearIDs {
			if !onRoster[id] {
				vErr := &ValidationError{}
				vErr.add("studentSchoolYearIds", "student is not registered on the source session")
				return nil, vErr
			}
		}
	}

	var results []CopyResult
	seen := make(map[string]bool)
	for _, row := range sourceRows {
		if seen[row.StudentSchoolYearID] {
			continue
		}
		seen[row.StudentSchoolYearID] = true
		if requested != nil && !requested[row.StudentSchoolYearID] {
			continue
		}

		result := CopyResult{
			StudentSchoolYearID: row.StudentSchoolYearID,
			StudentName:         row.StudentFirstName + " " + row.StudentLastName,
		}

		student, err := s.loadStudent(ctx, row.StudentSchoolYearID)
		if err != nil {
			return nil, err
		}

		proposed, vErr := resolveProposedDays(destinationDays, destinationIDs)
		if vErr.HasErrors() {
			return nil, vErr
		}

		pairs := registrationPairs(student.ID, proposed)
		err = s.registrations.RegisterStudent(ctx, student.ID, pairs, conflictCheck(student, proposed))
		if err != nil {
			var cErr *ConflictError
			if errors.As(err, &cErr) {
				result.Conflicts = cErr.Messages
				results = append(results, result)
				continue
			}
			logger.ErrorContext(ctx, "failed to copy registrations",
				"student_school_year_id", student.ID, "error", err)
			return nil, err
		}

		result.Copied = true
		results = append(results, result)
	}

	logger.InfoContext(ctx, "registrations copied", "students", len(results))
	return results, nil
}

func (s *RegistrationService) loadSessionSchedule(ctx context.Context, principal Principal, sessionID string) (persistence.Session, []persistence.DaySchedule, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Session{}, nil, ErrNotFound
		}
		return persistence.Session{}, nil, err
	}

	if s.years != nil {
		year, err := s.years.GetOrganizationYear(ctx, session.OrganizationYearID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return persistence.Session{}, nil, ErrNotFound
			}
			return persistence.Session{}, nil, err
		}
		if !principal.AllowsOrganization(year.OrganizationID) {
			return persistence.Session{}, nil, ErrUnauthorized
		}
	}

	days, err := s.sessions.ListDaySchedules(ctx, sessionID)
	if err != nil {
		return persistence.Session{}, nil, err
	}
	return session, days, nil
}

func (s *RegistrationService) loadStudent(ctx context.Context, studentSchoolYearID string) (persistence.StudentSchoolYear, error) {
	if s.students == nil {
		return persistence.StudentSchoolYear{}, fmt.Errorf("student store not configured")
	}
	student, err := s.students.GetStudentSchoolYear(ctx, studentSchoolYearID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.StudentSchoolYear{}, ErrNotFound
		}
		return persistence.StudentSchoolYear{}, err
	}
	return student, nil
}

// conflictCheck builds the in-transaction validation the store runs before
// inserting: the proposed days against the student's registrations as read in
// the same transaction.
func conflictCheck(student persistence.StudentSchoolYear, proposed []registrar.ProposedDay) func(existing []persistence.RegisteredDay) error {
	name := student.FirstName + " " + student.LastName
	return func(rows []persistence.RegisteredDay) error {
		existing := make([]registrar.Registration, 0, len(rows))
		for _, row := range rows {
			existing = append(existing, registrar.Registration{
				StudentSchoolYearID: row.StudentSchoolYearID,
				StudentName:         name,
				Weekday:             row.Weekday,
				Intervals:           toTimeIntervals(row.Intervals),
			})
		}
		if conflicts := registrar.ResolveConflicts(existing, proposed); len(conflicts) > 0 {
			return &ConflictError{Messages: conflicts}
		}
		return nil
	}
}

func registrationPairs(studentSchoolYearID string, proposed []registrar.ProposedDay) []persistence.StudentRegistration {
	pairs := make([]persistence.StudentRegistration, 0, len(proposed))
	for _, day := range proposed {
		pairs = append(pairs, persistence.StudentRegistration{
			StudentSchoolYearID: studentSchoolYearID,
			DayScheduleID:       day.DayScheduleID,
		})
	}
	return pairs
}

// resolveProposedDays maps requested day schedule IDs onto the session's
// stored days, rejecting IDs the session does not own.
func resolveProposedDays(days []persistence.DaySchedule, dayScheduleIDs []string) ([]registrar.ProposedDay, *ValidationError) {
	vErr := &ValidationError{}
	if len(dayScheduleIDs) == 0 {
		vErr.add("dayScheduleIds", "at least one day schedule is required")
		return nil, vErr
	}

	byID := make(map[string]persistence.DaySchedule, len(days))
	for _, day := range days {
		byID[day.ID] = day
	}

	proposed := make([]registrar.ProposedDay, 0, len(dayScheduleIDs))
	for _, id := range dayScheduleIDs {
		day, ok := byID[id]
		if !ok {
			vErr.add("dayScheduleIds", "day schedule does not belong to the session")
			return nil, vErr
		}
		proposed = append(proposed, registrar.ProposedDay{
			DayScheduleID: day.ID,
			Weekday:       day.Weekday,
			Intervals:     toTimeIntervals(day.Intervals),
		})
	}
	return proposed, vErr
}

func registrationView(row persistence.RegisteredDay) RegistrationView {
	view := RegistrationView{
		StudentSchoolYearID: row.StudentSchoolYearID,
		StudentName:         row.StudentFirstName + " " + row.StudentLastName,
		DayScheduleID:       row.DayScheduleID,
		Weekday:             row.Weekday,
	}
	for _, interval := range row.Intervals {
		view.Intervals = append(view.Intervals, IntervalView{
			ID:    interval.ID,
			Start: interval.StartTime,
			End:   interval.EndTime,
		})
	}
	return view
}

func toTimeIntervals(intervals []persistence.TimeSchedule) []schedule.TimeInterval {
	out := make([]schedule.TimeInterval, 0, len(intervals))
	for _, interval := range intervals {
		out = append(out, schedule.TimeInterval{Start: interval.StartTime, End: interval.EndTime})
	}
	return out
}
