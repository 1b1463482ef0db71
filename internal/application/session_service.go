package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/schedule"
)

// SessionStore captures the persistence interactions needed by the session service.
type SessionStore interface {
	CreateSession(ctx context.Context, session persistence.Session, days []persistence.DaySchedule) error
	GetSession(ctx context.Context, id string) (persistence.Session, error)
	ListSessions(ctx context.Context, organizationYearID string) ([]persistence.Session, error)
	UpdateSession(ctx context.Context, session persistence.Session, revision persistence.ScheduleRevision) error
	DeleteSession(ctx context.Context, id string) error
	ListDaySchedules(ctx context.Context, sessionID string) ([]persistence.DaySchedule, error)
}

// OrganizationYearStore resolves organization years for scope checks.
type OrganizationYearStore interface {
	GetOrganizationYear(ctx context.Context, id string) (persistence.OrganizationYear, error)
}

// RegistrationCounter counts registrations still attached to day schedules.
type RegistrationCounter interface {
	CountRegistrationsForDaySchedules(ctx context.Context, dayScheduleIDs []string) (int, error)
}

// AttendanceCounter counts attendance records held by a session.
type AttendanceCounter interface {
	CountAttendanceRecords(ctx context.Context, sessionID string) (int, error)
}

// SessionService orchestrates validation, authorization and persistence for
// program sessions and their weekly schedules.
type SessionService struct {
	sessions      SessionStore
	years         OrganizationYearStore
	registrations RegistrationCounter
	attendance    AttendanceCounter
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(sessions SessionStore, years OrganizationYearStore, registrations RegistrationCounter, attendance AttendanceCounter, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:      sessions,
		years:         years,
		registrations: registrations,
		attendance:    attendance,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession validates the input and persists a session with its schedule.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (SessionView, error) {
	if s == nil || s.sessions == nil {
		return SessionView{}, fmt.Errorf("SessionService not configured")
	}

	logger := s.loggerWith(ctx, "CreateSession", "organization_year_id", params.OrganizationYearID)

	if err := s.authorizeYear(ctx, params.Principal, params.OrganizationYearID); err != nil {
		return SessionView{}, err
	}

	vErr := &ValidationError{}
	validateSessionInput(params.Input, vErr)
	if vErr.HasErrors() {
		return SessionView{}, vErr
	}

	session := persistence.Session{
		ID:                 s.idGenerator(),
		OrganizationYearID: params.OrganizationYearID,
		Name:               strings.TrimSpace(params.Input.Name),
		FirstSessionDate:   params.Input.FirstSessionDate,
		LastSessionDate:    params.Input.LastSessionDate,
		Recurring:          params.Input.Recurring,
	}

	days := make([]persistence.DaySchedule, 0, len(params.Input.Days))
	for _, dayInput := range activeDayInputs(params.Input) {
		days = append(days, s.newDaySchedule(session.ID, dayInput))
	}

	if err := s.sessions.CreateSession(ctx, session, days); err != nil {
		logger.ErrorContext(ctx, "failed to create session", "error", err)
		return SessionView{}, err
	}

	logger.InfoContext(ctx, "session created", "session_id", session.ID)
	return s.sessionView(ctx, session)
}

// GetSession returns one session with its weekly schedule.
func (s *SessionService) GetSession(ctx context.Context, principal Principal, sessionID string) (SessionView, error) {
	session, err := s.loadAuthorized(ctx, principal, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return s.sessionView(ctx, session)
}

// ListSessions returns the sessions of an organization year.
func (s *SessionService) ListSessions(ctx context.Context, principal Principal, organizationYearID string) ([]SessionView, error) {
	if err := s.authorizeYear(ctx, principal, organizationYearID); err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListSessions(ctx, organizationYearID)
	if err != nil {
		return nil, err
	}

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		view, err := s.sessionView(ctx, session)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// UpdateSession reconciles the submitted weekly schedule against the stored
// one. Weekdays present in both keep their day-schedule identity so existing
// registrations survive; removed weekdays that still hold registrations
// reject the edit, except when a recurring session collapses to a
// non-recurring one, which re-points every registration onto the single
// remaining day.
func (s *SessionService) UpdateSession(ctx context.Context, params UpdateSessionParams) (SessionView, error) {
	if s == nil || s.sessions == nil {
		return SessionView{}, fmt.Errorf("SessionService not configured")
	}

	logger := s.loggerWith(ctx, "UpdateSession", "session_id", params.SessionID)

	current, err := s.loadAuthorized(ctx, params.Principal, params.SessionID)
	if err != nil {
		return SessionView{}, err
	}

	vErr := &ValidationError{}
	validateSessionInput(params.Input, vErr)
	if vErr.HasErrors() {
		return SessionView{}, vErr
	}

	storedDays, err := s.sessions.ListDaySchedules(ctx, params.SessionID)
	if err != nil {
		return SessionView{}, err
	}

	proposed := schedule.NewWeek()
	for _, dayInput := range activeDayInputs(params.Input) {
		proposed.SetSlot(schedule.DaySlot{
			Weekday:   dayInput.Weekday,
			Recurs:    true,
			Intervals: toIntervals(dayInput.Intervals),
		})
	}

	diff := schedule.ReconcileWeek(toScheduleDays(storedDays), proposed)

	updated := current
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.FirstSessionDate = params.Input.FirstSessionDate
	updated.LastSessionDate = params.Input.LastSessionDate
	updated.Recurring = params.Input.Recurring

	if diff.Unchanged && sessionFieldsEqual(current, updated) {
		logger.InfoContext(ctx, "session unchanged, skipping write")
		return s.sessionView(ctx, current)
	}

	collapsing := current.Recurring && !params.Input.Recurring

	revision := persistence.ScheduleRevision{}
	addedByWeekday := make(map[time.Weekday]string)
	for _, slot := range diff.Add {
		day := s.newDaySchedule(current.ID, DayScheduleInput{
			Weekday:   slot.Weekday,
			Intervals: toIntervalInputs(slot.Intervals),
		})
		addedByWeekday[slot.Weekday] = day.ID
		revision.Add = append(revision.Add, day)
	}
	for _, update := range diff.Update {
		revision.Update = append(revision.Update, persistence.DayScheduleUpdate{
			DayScheduleID: update.DayScheduleID,
			Weekday:       update.Weekday,
			Intervals:     s.newTimeSchedules(update.DayScheduleID, update.Intervals),
		})
	}
	for _, removed := range diff.Remove {
		revision.Remove = append(revision.Remove, removed.ID)
	}

	if collapsing {
		revision.MoveRegistrationsTo = s.collapseTarget(diff, addedByWeekday)
		if revision.MoveRegistrationsTo == "" && len(revision.Remove) > 0 {
			vErr.add("schedule", "a non-recurring session needs one day with scheduled times")
			return SessionView{}, vErr
		}
	} else if s.registrations != nil {
		for _, removed := range diff.Remove {
			count, err := s.registrations.CountRegistrationsForDaySchedules(ctx, []string{removed.ID})
			if err != nil {
				return SessionView{}, err
			}
			if count > 0 {
				vErr.add(
					"days."+strings.ToLower(removed.Weekday.String()),
					fmt.Sprintf("cannot remove %s: %d students are still registered on that day", removed.Weekday, count),
				)
			}
		}
		if vErr.HasErrors() {
			return SessionView{}, vErr
		}
	}

	if err := s.sessions.UpdateSession(ctx, updated, revision); err != nil {
		logger.ErrorContext(ctx, "failed to update session", "error", err)
		return SessionView{}, err
	}

	logger.InfoContext(ctx, "session updated",
		"added", len(revision.Add),
		"updated", len(revision.Update),
		"removed", len(revision.Remove),
	)
	return s.sessionView(ctx, updated)
}

// DeleteSession removes a session that has no recorded attendance.
func (s *SessionService) DeleteSession(ctx context.Context, principal Principal, sessionID string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("SessionService not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSession", "session_id", sessionID)

	if _, err := s.loadAuthorized(ctx, principal, sessionID); err != nil {
		return err
	}

	if s.attendance != nil {
		count, err := s.attendance.CountAttendanceRecords(ctx, sessionID)
		if err != nil {
			return err
		}
		if count > 0 {
			vErr := &ValidationError{}
			vErr.add("session", "cannot delete a session with recorded attendance")
			return vErr
		}
	}

	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "failed to delete session", "error", err)
		return err
	}

	logger.InfoContext(ctx, "session deleted")
	return nil
}

// collapseTarget picks the day schedule every registration lands on when a
// recurring session becomes non-recurring.
func (s *SessionService) collapseTarget(diff schedule.WeekDiff, addedByWeekday map[time.Weekday]string) string {
	if len(diff.Update) > 0 {
		return diff.Update[0].DayScheduleID
	}
	for _, slot := range diff.Add {
		if id, ok := addedByWeekday[slot.Weekday]; ok {
			return id
		}
	}
	return ""
}

func (s *SessionService) loadAuthorized(ctx context.Context, principal Principal, sessionID string) (persistence.Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Session{}, ErrNotFound
		}
		return persistence.Session{}, err
	}
	if err := s.authorizeYear(ctx, principal, session.OrganizationYearID); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

func (s *SessionService) authorizeYear(ctx context.Context, principal Principal, organizationYearID string) error {
	if s.years == nil {
		return nil
	}
	year, err := s.years.GetOrganizationYear(ctx, organizationYearID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !principal.AllowsOrganization(year.OrganizationID) {
		return ErrUnauthorized
	}
	return nil
}

func (s *SessionService) newDaySchedule(sessionID string, input DayScheduleInput) persistence.DaySchedule {
	day := persistence.DaySchedule{
		ID:        s.idGenerator(),
		SessionID: sessionID,
		Weekday:   input.Weekday,
	}
	for _, interval := range input.Intervals {
		day.Intervals = append(day.Intervals, persistence.TimeSchedule{
			ID:            s.idGenerator(),
			DayScheduleID: day.ID,
			StartTime:     interval.Start,
			EndTime:       interval.End,
		})
	}
	return day
}

func (s *SessionService) newTimeSchedules(dayScheduleID string, intervals []schedule.TimeInterval) []persistence.TimeSchedule {
	out := make([]persistence.TimeSchedule, 0, len(intervals))
	for _, interval := range intervals {
		out = append(out, persistence.TimeSchedule{
			ID:            s.idGenerator(),
			DayScheduleID: dayScheduleID,
			StartTime:     interval.Start,
			EndTime:       interval.End,
		})
	}
	return out
}

func (s *SessionService) sessionView(ctx context.Context, session persistence.Session) (SessionView, error) {
	days, err := s.sessions.ListDaySchedules(ctx, session.ID)
	if err != nil {
		return SessionView{}, err
	}

	view := SessionView{
		ID:                 session.ID,
		OrganizationYearID: session.OrganizationYearID,
		Name:               session.Name,
		FirstSessionDate:   session.FirstSessionDate,
		LastSessionDate:    session.LastSessionDate,
		Recurring:          session.Recurring,
		CreatedAt:          session.CreatedAt,
		UpdatedAt:          session.UpdatedAt,
	}
	for _, day := range days {
		dayView := DayScheduleView{ID: day.ID, Weekday: day.Weekday}
		for _, interval := range day.Intervals {
			dayView.Intervals = append(dayView.Intervals, IntervalView{
				ID:    interval.ID,
				Start: interval.StartTime,
				End:   interval.EndTime,
			})
		}
		if len(dayView.Intervals) == 0 {
			// Rows predating interval capture surface the placeholder
			// instead of an empty day.
			for _, interval := range schedule.EnsureIntervals(nil) {
				dayView.Intervals = append(dayView.Intervals, IntervalView{
					Start: interval.Start,
					End:   interval.End,
				})
			}
		}
		view.Days = append(view.Days, dayView)
	}
	return view, nil
}

func validateSessionInput(input SessionInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.FirstSessionDate.IsZero() {
		vErr.add("firstSessionDate", "first session date is required")
	}
	if input.LastSessionDate.IsZero() {
		vErr.add("lastSessionDate", "last session date is required")
	}
	if !input.FirstSessionDate.IsZero() && !input.LastSessionDate.IsZero() &&
		input.LastSessionDate.Before(input.FirstSessionDate) {
		vErr.add("lastSessionDate", "last session date must not precede the first session date")
	}

	seen := make(map[time.Weekday]bool)
	for _, day := range input.Days {
		if day.Weekday < time.Sunday || day.Weekday > time.Saturday {
			vErr.add("days", "invalid weekday")
			continue
		}
		if seen[day.Weekday] {
			vErr.add("days."+strings.ToLower(day.Weekday.String()), "weekday listed twice")
			continue
		}
		seen[day.Weekday] = true

		for _, interval := range day.Intervals {
			if interval.End < interval.Start {
				vErr.add(
					"days."+strings.ToLower(day.Weekday.String()),
					"end time must not precede start time",
				)
				break
			}
		}
	}

	active := activeDayInputs(input)
	if len(active) == 0 {
		vErr.add("days", "at least one day with scheduled times is required")
	}
	if !input.Recurring {
		if len(active) != 1 {
			vErr.add("days", "a non-recurring session has exactly one scheduled day")
		} else if !input.FirstSessionDate.IsZero() &&
			!schedule.IsNonRecurringSlotFor(input.FirstSessionDate, schedule.DaySlot{Weekday: active[0].Weekday}) {
			vErr.add("days", "a non-recurring session's day must fall on the first session date")
		}
	}
}

// activeDayInputs filters out weekday entries without intervals; a slot with
// no times is an unchecked day on the schedule form, not a schedule entry.
func activeDayInputs(input SessionInput) []DayScheduleInput {
	var active []DayScheduleInput
	for _, day := range input.Days {
		if len(day.Intervals) > 0 {
			active = append(active, day)
		}
	}
	return active
}

func sessionFieldsEqual(a, b persistence.Session) bool {
	return a.Name == b.Name &&
		a.FirstSessionDate == b.FirstSessionDate &&
		a.LastSessionDate == b.LastSessionDate &&
		a.Recurring == b.Recurring
}

func toIntervals(inputs []IntervalInput) []schedule.TimeInterval {
	out := make([]schedule.TimeInterval, 0, len(inputs))
	for _, input := range inputs {
		out = append(out, schedule.TimeInterval{Start: input.Start, End: input.End})
	}
	return out
}

func toIntervalInputs(intervals []schedule.TimeInterval) []IntervalInput {
	out := make([]IntervalInput, 0, len(intervals))
	for _, interval := range intervals {
		out = append(out, IntervalInput{Start: interval.Start, End: interval.End})
	}
	return out
}

func toScheduleDays(days []persistence.DaySchedule) []schedule.DaySchedule {
	out := make([]schedule.DaySchedule, 0, len(days))
	for _, day := range days {
		converted := schedule.DaySchedule{ID: day.ID, Weekday: day.Weekday}
		for _, interval := range day.Intervals {
			converted.Intervals = append(converted.Intervals, schedule.TimeInterval{
				Start: interval.StartTime,
				End:   interval.EndTime,
			})
		}
		out = append(out, converted)
	}
	return out
}
