package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/schedule"
)

func sequentialIDs(prefix string) func() string {
	next := 0
	return func() string {
		next++
		return fmt.Sprintf("%s-%d", prefix, next)
	}
}

func adminPrincipal() Principal {
	return Principal{UserID: "admin", IsAdmin: true}
}

func scopedPrincipal(organizationIDs ...string) Principal {
	return Principal{UserID: "staff", OrganizationIDs: organizationIDs}
}

func mondayWindowInput(name string, days ...DayScheduleInput) SessionInput {
	return SessionInput{
		Name:             name,
		FirstSessionDate: schedule.NewDate(2024, time.January, 1),
		LastSessionDate:  schedule.NewDate(2024, time.May, 31),
		Recurring:        true,
		Days:             days,
	}
}

func dayInput(weekday time.Weekday, startHour, endHour int) DayScheduleInput {
	return DayScheduleInput{
		Weekday: weekday,
		Intervals: []IntervalInput{{
			Start: schedule.NewTimeOfDay(startHour, 0),
			End:   schedule.NewTimeOfDay(endHour, 0),
		}},
	}
}

func TestSessionService_CreateSession(t *testing.T) {
	t.Parallel()

	t.Run("persists session with active days", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		svc := NewSessionService(store, years, nil, nil, sequentialIDs("id"), nil, nil)

		input := mondayWindowInput("Robotics Club",
			dayInput(time.Monday, 15, 16),
			DayScheduleInput{Weekday: time.Tuesday},
			dayInput(time.Wednesday, 15, 16),
		)

		view, err := svc.CreateSession(context.Background(), CreateSessionParams{
			Principal:          scopedPrincipal("org-1"),
			OrganizationYearID: "year-1",
			Input:              input,
		})
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		if len(view.Days) != 2 {
			t.Fatalf("expected two active days, got %d", len(view.Days))
		}
		stored := store.days[view.ID]
		if len(stored) != 2 {
			t.Fatalf("expected two persisted day schedules, got %d", len(stored))
		}
		for _, day := range stored {
			if day.Weekday == time.Tuesday {
				t.Fatalf("expected day without intervals to be dropped")
			}
		}
	})

	t.Run("rejects principals outside the organization", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		svc := NewSessionService(store, years, nil, nil, sequentialIDs("id"), nil, nil)

		_, err := svc.CreateSession(context.Background(), CreateSessionParams{
			Principal:          scopedPrincipal("org-2"),
			OrganizationYearID: "year-1",
			Input:              mondayWindowInput("Robotics Club", dayInput(time.Monday, 15, 16)),
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects invalid input field by field", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		svc := NewSessionService(store, years, nil, nil, sequentialIDs("id"), nil, nil)

		input := SessionInput{
			Name:             "  ",
			FirstSessionDate: schedule.NewDate(2024, time.May, 31),
			LastSessionDate:  schedule.NewDate(2024, time.January, 1),
			Recurring:        true,
			Days: []DayScheduleInput{{
				Weekday: time.Monday,
				Intervals: []IntervalInput{{
					Start: schedule.NewTimeOfDay(16, 0),
					End:   schedule.NewTimeOfDay(15, 0),
				}},
			}},
		}

		_, err := svc.CreateSession(context.Background(), CreateSessionParams{
			Principal:          adminPrincipal(),
			OrganizationYearID: "year-1",
			Input:              input,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "lastSessionDate", "days.monday"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected field error for %q, got %#v", field, vErr.FieldErrors)
			}
		}
		if len(store.sessions) != 0 {
			t.Fatalf("expected nothing persisted on validation failure")
		}
	})

	t.Run("pins a non-recurring session to its first date weekday", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		svc := NewSessionService(store, years, nil, nil, sequentialIDs("id"), nil, nil)

		input := mondayWindowInput("Field Trip", dayInput(time.Wednesday, 9, 14))
		input.Recurring = false

		_, err := svc.CreateSession(context.Background(), CreateSessionParams{
			Principal:          adminPrincipal(),
			OrganizationYearID: "year-1",
			Input:              input,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["days"]; !ok {
			t.Fatalf("expected days field error, got %#v", vErr.FieldErrors)
		}
	})
}

func TestSessionService_UpdateSession(t *testing.T) {
	t.Parallel()

	seed := func(store *sessionStoreStub) persistence.Session {
		session := persistence.Session{
			ID:                 "session-1",
			OrganizationYearID: "year-1",
			Name:               "Robotics Club",
			FirstSessionDate:   schedule.NewDate(2024, time.January, 1),
			LastSessionDate:    schedule.NewDate(2024, time.May, 31),
			Recurring:          true,
		}
		store.sessions[session.ID] = session
		store.days[session.ID] = []persistence.DaySchedule{
			{
				ID: "day-mon", SessionID: session.ID, Weekday: time.Monday,
				Intervals: []persistence.TimeSchedule{{
					ID: "ts-1", DayScheduleID: "day-mon",
					StartTime: schedule.NewTimeOfDay(15, 0), EndTime: schedule.NewTimeOfDay(16, 0),
				}},
			},
			{
				ID: "day-wed", SessionID: session.ID, Weekday: time.Wednesday,
				Intervals: []persistence.TimeSchedule{{
					ID: "ts-2", DayScheduleID: "day-wed",
					StartTime: schedule.NewTimeOfDay(15, 0), EndTime: schedule.NewTimeOfDay(16, 0),
				}},
			},
		}
		return session
	}

	t.Run("skips the write when nothing changed", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		seed(store)
		svc := NewSessionService(store, years, nil, nil, sequentialIDs("id"), nil, nil)

		input := mondayWindowInput("Robotics Club",
			dayInput(time.Monday, 15, 16),
			dayInput(time.Wednesday, 15, 16),
		)

		if _, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			Principal: adminPrincipal(),
			SessionID: "session-1",
			Input:     input,
		}); err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}

		if len(store.updateCalls) != 0 {
			t.Fatalf("expected no write for an unchanged schedule, got %d", len(store.updateCalls))
		}
	})

	t.Run("adds, updates and removes weekdays in one revision", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		seed(store)
		counter := &registrationCounterStub{}
		svc := NewSessionService(store, years, counter, nil, sequentialIDs("id"), nil, nil)

		input := mondayWindowInput("Robotics Club",
			dayInput(time.Monday, 16, 17),
			dayInput(time.Friday, 15, 16),
		)

		if _, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			Principal: adminPrincipal(),
			SessionID: "session-1",
			Input:     input,
		}); err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}

		if len(store.updateCalls) != 1 {
			t.Fatalf("expected one update call, got %d", len(store.updateCalls))
		}
		revision := store.updateCalls[0].revision
		if len(revision.Add) != 1 || revision.Add[0].Weekday != time.Friday {
			t.Fatalf("expected Friday added, got %#v", revision.Add)
		}
		if len(revision.Update) != 1 || revision.Update[0].DayScheduleID != "day-mon" {
			t.Fatalf("expected Monday updated in place, got %#v", revision.Update)
		}
		if len(revision.Remove) != 1 || revision.Remove[0] != "day-wed" {
			t.Fatalf("expected Wednesday removed, got %#v", revision.Remove)
		}
		if revision.MoveRegistrationsTo != "" {
			t.Fatalf("expected no registration move for a recurring edit")
		}
	})

	t.Run("rejects removing a weekday with registrations", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		seed(store)
		counter := &registrationCounterStub{counts: map[string]int{"day-wed": 3}}
		svc := NewSessionService(store, years, counter, nil, sequentialIDs("id"), nil, nil)

		input := mondayWindowInput("Robotics Club", dayInput(time.Monday, 15, 16))

		_, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			Principal: adminPrincipal(),
			SessionID: "session-1",
			Input:     input,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if msg, ok := vErr.FieldErrors["days.wednesday"]; !ok || msg != "cannot remove Wednesday: 3 students are still registered on that day" {
			t.Fatalf("unexpected field errors: %#v", vErr.FieldErrors)
		}
		if len(store.updateCalls) != 0 {
			t.Fatalf("expected nothing persisted when the edit is rejected")
		}
	})

	t.Run("collapsing to non-recurring moves registrations to the surviving day", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		seed(store)
		counter := &registrationCounterStub{counts: map[string]int{"day-wed": 3}}
		svc := NewSessionService(store, years, counter, nil, sequentialIDs("id"), nil, nil)

		input := mondayWindowInput("Robotics Club", dayInput(time.Monday, 15, 16))
		input.Recurring = false

		if _, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			Principal: adminPrincipal(),
			SessionID: "session-1",
			Input:     input,
		}); err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}

		if len(store.updateCalls) != 1 {
			t.Fatalf("expected one update call, got %d", len(store.updateCalls))
		}
		revision := store.updateCalls[0].revision
		if revision.MoveRegistrationsTo != "day-mon" {
			t.Fatalf("expected registrations moved to day-mon, got %q", revision.MoveRegistrationsTo)
		}
		if len(revision.Remove) != 1 || revision.Remove[0] != "day-wed" {
			t.Fatalf("expected Wednesday removed, got %#v", revision.Remove)
		}
	})
}

func TestSessionService_GetSession(t *testing.T) {
	t.Parallel()

	t.Run("interval-less days surface the midnight placeholder", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		store.sessions["session-1"] = persistence.Session{
			ID: "session-1", OrganizationYearID: "year-1", Name: "Legacy Club",
		}
		store.days["session-1"] = []persistence.DaySchedule{
			{ID: "day-mon", SessionID: "session-1", Weekday: time.Monday},
		}
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		svc := NewSessionService(store, years, nil, nil, sequentialIDs("id"), nil, nil)

		view, err := svc.GetSession(context.Background(), adminPrincipal(), "session-1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}

		if len(view.Days) != 1 || len(view.Days[0].Intervals) != 1 {
			t.Fatalf("expected one day with one placeholder interval, got %#v", view.Days)
		}
		interval := view.Days[0].Intervals[0]
		if interval.Start != schedule.Midnight || interval.End != schedule.Midnight {
			t.Fatalf("expected midnight to midnight placeholder, got %v-%v", interval.Start, interval.End)
		}
	})
}

func TestSessionService_DeleteSession(t *testing.T) {
	t.Parallel()

	t.Run("refuses sessions with recorded attendance", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		store.sessions["session-1"] = persistence.Session{ID: "session-1", OrganizationYearID: "year-1"}
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		attendance := &attendanceCounterStub{counts: map[string]int{"session-1": 4}}
		svc := NewSessionService(store, years, nil, attendance, sequentialIDs("id"), nil, nil)

		err := svc.DeleteSession(context.Background(), adminPrincipal(), "session-1")

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(store.deleted) != 0 {
			t.Fatalf("expected no delete, got %#v", store.deleted)
		}
	})

	t.Run("deletes sessions without attendance", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		store.sessions["session-1"] = persistence.Session{ID: "session-1", OrganizationYearID: "year-1"}
		years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
		attendance := &attendanceCounterStub{}
		svc := NewSessionService(store, years, nil, attendance, sequentialIDs("id"), nil, nil)

		if err := svc.DeleteSession(context.Background(), adminPrincipal(), "session-1"); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		if len(store.deleted) != 1 || store.deleted[0] != "session-1" {
			t.Fatalf("expected session-1 deleted, got %#v", store.deleted)
		}
	})

	t.Run("maps unknown sessions to not found", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		svc := NewSessionService(store, newYearStoreStub(), nil, nil, sequentialIDs("id"), nil, nil)

		if err := svc.DeleteSession(context.Background(), adminPrincipal(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

// sessionStoreStub provides an in-memory SessionStore for service tests. It
// also satisfies the schedule lookup interfaces of the other services.
type sessionStoreStub struct {
	sessions map[string]persistence.Session
	days     map[string][]persistence.DaySchedule

	createErr error
	updateErr error

	updateCalls []sessionUpdateCall
	deleted     []string
}

type sessionUpdateCall struct {
	session  persistence.Session
	revision persistence.ScheduleRevision
}

func newSessionStoreStub() *sessionStoreStub {
	return &sessionStoreStub{
		sessions: make(map[string]persistence.Session),
		days:     make(map[string][]persistence.DaySchedule),
	}
}

func (s *sessionStoreStub) CreateSession(ctx context.Context, session persistence.Session, days []persistence.DaySchedule) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.sessions[session.ID] = session
	s.days[session.ID] = days
	return nil
}

func (s *sessionStoreStub) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionStoreStub) ListSessions(ctx context.Context, organizationYearID string) ([]persistence.Session, error) {
	var sessions []persistence.Session
	for _, session := range s.sessions {
		if session.OrganizationYearID == organizationYearID {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (s *sessionStoreStub) UpdateSession(ctx context.Context, session persistence.Session, revision persistence.ScheduleRevision) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.sessions[session.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.updateCalls = append(s.updateCalls, sessionUpdateCall{session: session, revision: revision})
	s.sessions[session.ID] = session

	kept := make([]persistence.DaySchedule, 0, len(s.days[session.ID]))
	removed := make(map[string]bool, len(revision.Remove))
	for _, id := range revision.Remove {
		removed[id] = true
	}
	updates := make(map[string]persistence.DayScheduleUpdate, len(revision.Update))
	for _, update := range revision.Update {
		updates[update.DayScheduleID] = update
	}
	for _, day := range s.days[session.ID] {
		if removed[day.ID] {
			continue
		}
		if update, ok := updates[day.ID]; ok {
			day.Weekday = update.Weekday
			day.Intervals = update.Intervals
		}
		kept = append(kept, day)
	}
	s.days[session.ID] = append(kept, revision.Add...)
	return nil
}

func (s *sessionStoreStub) DeleteSession(ctx context.Context, id string) error {
	if _, ok := s.sessions[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.days, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *sessionStoreStub) ListDaySchedules(ctx context.Context, sessionID string) ([]persistence.DaySchedule, error) {
	return s.days[sessionID], nil
}

func (s *sessionStoreStub) GetDaySchedule(ctx context.Context, id string) (persistence.DaySchedule, error) {
	for _, days := range s.days {
		for _, day := range days {
			if day.ID == id {
				return day, nil
			}
		}
	}
	return persistence.DaySchedule{}, persistence.ErrNotFound
}

// yearStoreStub resolves organization years for scope checks in tests.
type yearStoreStub struct {
	years map[string]persistence.OrganizationYear
}

func newYearStoreStub(years ...persistence.OrganizationYear) *yearStoreStub {
	stub := &yearStoreStub{years: make(map[string]persistence.OrganizationYear)}
	for _, year := range years {
		stub.years[year.ID] = year
	}
	return stub
}

func (s *yearStoreStub) GetOrganizationYear(ctx context.Context, id string) (persistence.OrganizationYear, error) {
	year, ok := s.years[id]
	if !ok {
		return persistence.OrganizationYear{}, persistence.ErrNotFound
	}
	return year, nil
}

type registrationCounterStub struct {
	counts map[string]int
	err    error
}

func (s *registrationCounterStub) CountRegistrationsForDaySchedules(ctx context.Context, dayScheduleIDs []string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	total := 0
	for _, id := range dayScheduleIDs {
		total += s.counts[id]
	}
	return total, nil
}

type attendanceCounterStub struct {
	counts map[string]int
	err    error
}

func (s *attendanceCounterStub) CountAttendanceRecords(ctx context.Context, sessionID string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[sessionID], nil
}
