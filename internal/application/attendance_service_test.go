package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/schedule"
)

func seedAttendanceSession(store *sessionStoreStub) {
	store.sessions["session-1"] = persistence.Session{
		ID:                 "session-1",
		OrganizationYearID: "year-1",
		Name:               "Robotics Club",
		FirstSessionDate:   schedule.NewDate(2024, time.January, 1),
		LastSessionDate:    schedule.NewDate(2024, time.January, 29),
		Recurring:          true,
	}
	store.days["session-1"] = []persistence.DaySchedule{{
		ID: "day-mon", SessionID: "session-1", Weekday: time.Monday,
		Intervals: []persistence.TimeSchedule{{
			ID: "ts-1", DayScheduleID: "day-mon",
			StartTime: schedule.NewTimeOfDay(15, 0), EndTime: schedule.NewTimeOfDay(16, 0),
		}},
	}}
}

func newAttendanceService(store *sessionStoreStub, attendance *attendanceStoreStub, blackouts *blackoutReaderStub, now time.Time) *AttendanceService {
	years := newYearStoreStub(persistence.OrganizationYear{ID: "year-1", OrganizationID: "org-1"})
	return NewAttendanceService(attendance, store, years, blackouts, sequentialIDs("rec"), func() time.Time { return now }, nil)
}

func TestAttendanceService_OpenDates(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub()
	seedAttendanceSession(store)
	attendance := newAttendanceStoreStub()
	attendance.seed(persistence.AttendanceRecord{
		ID: "existing", SessionID: "session-1",
		InstanceDate: schedule.NewDate(2024, time.January, 8),
	})
	blackouts := &blackoutReaderStub{
		organization: map[string][]schedule.Date{"org-1": {schedule.NewDate(2024, time.January, 15)}},
	}
	svc := newAttendanceService(store, attendance, blackouts, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

	t.Run("subtracts attendance and blackout dates", func(t *testing.T) {
		t.Parallel()

		dates, err := svc.OpenDates(context.Background(), adminPrincipal(), "session-1", time.Monday)
		if err != nil {
			t.Fatalf("OpenDates failed: %v", err)
		}

		want := []schedule.Date{
			schedule.NewDate(2024, time.January, 1),
			schedule.NewDate(2024, time.January, 22),
			schedule.NewDate(2024, time.January, 29),
		}
		if len(dates) != len(want) {
			t.Fatalf("expected %d dates, got %#v", len(want), dates)
		}
		for i, date := range want {
			if dates[i] != date {
				t.Fatalf("expected %s at position %d, got %s", date, i, dates[i])
			}
		}
	})

	t.Run("rejects weekdays the session does not meet on", func(t *testing.T) {
		t.Parallel()

		_, err := svc.OpenDates(context.Background(), adminPrincipal(), "session-1", time.Thursday)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestAttendanceService_MissingAttendance(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub()
	seedAttendanceSession(store)
	attendance := newAttendanceStoreStub()
	blackouts := &blackoutReaderStub{}
	svc := newAttendanceService(store, attendance, blackouts, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC))

	missing, err := svc.MissingAttendance(context.Background(), adminPrincipal(), "year-1")
	if err != nil {
		t.Fatalf("MissingAttendance failed: %v", err)
	}

	want := []schedule.Date{
		schedule.NewDate(2024, time.January, 1),
		schedule.NewDate(2024, time.January, 8),
	}
	if len(missing) != len(want) {
		t.Fatalf("expected %d missing dates, got %#v", len(want), missing)
	}
	yesterday := schedule.NewDate(2024, time.January, 9)
	for i, view := range missing {
		if view.InstanceDate != want[i] {
			t.Fatalf("expected %s at position %d, got %s", want[i], i, view.InstanceDate)
		}
		if view.SessionName != "Robotics Club" {
			t.Fatalf("expected session name resolved, got %q", view.SessionName)
		}
		if view.InstanceDate.After(yesterday) {
			t.Fatalf("missing scan emitted a date newer than yesterday: %s", view.InstanceDate)
		}
	}
}

func TestAttendanceService_SubmitAttendance(t *testing.T) {
	t.Parallel()

	submit := func(attendance *attendanceStoreStub, blackouts *blackoutReaderStub, input AttendanceInput) (AttendanceView, error) {
		store := newSessionStoreStub()
		seedAttendanceSession(store)
		svc := newAttendanceService(store, attendance, blackouts, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
		return svc.SubmitAttendance(context.Background(), SubmitAttendanceParams{
			Principal: adminPrincipal(),
			SessionID: "session-1",
			Input:     input,
		})
	}

	validInput := func() AttendanceInput {
		return AttendanceInput{
			InstanceDate: schedule.NewDate(2024, time.January, 8),
			Students: []StudentAttendanceInput{
				{StudentSchoolYearID: "student-1", TimesPresent: 1},
				{StudentSchoolYearID: "student-2", TimesPresent: 2},
			},
		}
	}

	t.Run("records attendance with student rows", func(t *testing.T) {
		t.Parallel()

		attendance := newAttendanceStoreStub()
		view, err := submit(attendance, &blackoutReaderStub{}, validInput())
		if err != nil {
			t.Fatalf("SubmitAttendance failed: %v", err)
		}
		if len(view.Students) != 2 {
			t.Fatalf("expected two student rows, got %#v", view.Students)
		}
		if len(attendance.records) != 1 {
			t.Fatalf("expected one persisted record, got %d", len(attendance.records))
		}
	})

	t.Run("rejects a second record for the same date", func(t *testing.T) {
		t.Parallel()

		attendance := newAttendanceStoreStub()
		attendance.seed(persistence.AttendanceRecord{
			ID: "existing", SessionID: "session-1",
			InstanceDate: schedule.NewDate(2024, time.January, 8),
		})

		_, err := submit(attendance, &blackoutReaderStub{}, validInput())

		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if len(attendance.records) != 1 {
			t.Fatalf("expected only the seeded record to remain")
		}
	})

	t.Run("rejects dates outside the session window", func(t *testing.T) {
		t.Parallel()

		input := validInput()
		input.InstanceDate = schedule.NewDate(2024, time.February, 5)

		_, err := submit(newAttendanceStoreStub(), &blackoutReaderStub{}, input)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["instanceDate"]; !ok {
			t.Fatalf("expected instanceDate error, got %#v", vErr.FieldErrors)
		}
	})

	t.Run("rejects weekdays the session does not meet on", func(t *testing.T) {
		t.Parallel()

		input := validInput()
		input.InstanceDate = schedule.NewDate(2024, time.January, 9)

		_, err := submit(newAttendanceStoreStub(), &blackoutReaderStub{}, input)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects blackout dates", func(t *testing.T) {
		t.Parallel()

		blackouts := &blackoutReaderStub{
			session: map[string][]schedule.Date{"session-1": {schedule.NewDate(2024, time.January, 8)}},
		}

		_, err := submit(newAttendanceStoreStub(), blackouts, validInput())

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects non-positive presence counts", func(t *testing.T) {
		t.Parallel()

		input := validInput()
		input.Students[0].TimesPresent = 0

		_, err := submit(newAttendanceStoreStub(), &blackoutReaderStub{}, input)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestAttendanceService_EditAttendance(t *testing.T) {
	t.Parallel()

	original := persistence.AttendanceRecord{
		ID: "rec-orig", SessionID: "session-1",
		InstanceDate: schedule.NewDate(2024, time.January, 8),
		Students: []persistence.StudentAttendance{{
			AttendanceRecordID: "rec-orig", StudentSchoolYearID: "student-1", TimesPresent: 1,
		}},
	}

	t.Run("replaces the record under the same identity", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		seedAttendanceSession(store)
		attendance := newAttendanceStoreStub()
		attendance.seed(original)
		svc := newAttendanceService(store, attendance, &blackoutReaderStub{}, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

		view, err := svc.EditAttendance(context.Background(), EditAttendanceParams{
			Principal: adminPrincipal(),
			RecordID:  "rec-orig",
			Input: AttendanceInput{
				InstanceDate: schedule.NewDate(2024, time.January, 15),
				Students:     []StudentAttendanceInput{{StudentSchoolYearID: "student-1", TimesPresent: 2}},
			},
		})
		if err != nil {
			t.Fatalf("EditAttendance failed: %v", err)
		}

		if view.ID != "rec-orig" {
			t.Fatalf("expected record identity preserved, got %q", view.ID)
		}
		stored := attendance.records["rec-orig"]
		if stored.InstanceDate != schedule.NewDate(2024, time.January, 15) {
			t.Fatalf("expected replacement persisted, got %#v", stored)
		}
		if stored.Students[0].TimesPresent != 2 {
			t.Fatalf("expected replaced student rows, got %#v", stored.Students)
		}
	})

	t.Run("restores the original when the replacement write fails", func(t *testing.T) {
		t.Parallel()

		store := newSessionStoreStub()
		seedAttendanceSession(store)
		attendance := newAttendanceStoreStub()
		attendance.seed(original)
		attendance.createErrs = []error{errors.New("disk full")}
		svc := newAttendanceService(store, attendance, &blackoutReaderStub{}, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

		_, err := svc.EditAttendance(context.Background(), EditAttendanceParams{
			Principal: adminPrincipal(),
			RecordID:  "rec-orig",
			Input: AttendanceInput{
				InstanceDate: schedule.NewDate(2024, time.January, 15),
				Students:     []StudentAttendanceInput{{StudentSchoolYearID: "student-1", TimesPresent: 2}},
			},
		})
		if err == nil {
			t.Fatalf("expected edit to fail")
		}

		stored, ok := attendance.records["rec-orig"]
		if !ok {
			t.Fatalf("expected original record restored")
		}
		if stored.InstanceDate != original.InstanceDate || stored.Students[0].TimesPresent != 1 {
			t.Fatalf("expected original content restored, got %#v", stored)
		}
	})
}

func TestAttendanceService_DeleteAttendance(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub()
	seedAttendanceSession(store)
	attendance := newAttendanceStoreStub()
	attendance.seed(persistence.AttendanceRecord{
		ID: "rec-1", SessionID: "session-1",
		InstanceDate: schedule.NewDate(2024, time.January, 8),
	})
	svc := newAttendanceService(store, attendance, &blackoutReaderStub{}, time.Now())

	if err := svc.DeleteAttendance(context.Background(), adminPrincipal(), "rec-1"); err != nil {
		t.Fatalf("DeleteAttendance failed: %v", err)
	}
	if len(attendance.records) != 0 {
		t.Fatalf("expected record removed, got %#v", attendance.records)
	}

	if err := svc.DeleteAttendance(context.Background(), adminPrincipal(), "rec-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// attendanceStoreStub provides an in-memory AttendanceStore for tests.
type attendanceStoreStub struct {
	records map[string]persistence.AttendanceRecord

	// createErrs is consumed one error per CreateAttendanceRecord call; a nil
	// entry or an exhausted queue means the write succeeds.
	createErrs []error
}

func newAttendanceStoreStub() *attendanceStoreStub {
	return &attendanceStoreStub{records: make(map[string]persistence.AttendanceRecord)}
}

func (s *attendanceStoreStub) seed(record persistence.AttendanceRecord) {
	s.records[record.ID] = record
}

func (s *attendanceStoreStub) CreateAttendanceRecord(ctx context.Context, record persistence.AttendanceRecord) error {
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range s.records {
		if existing.SessionID == record.SessionID && existing.InstanceDate == record.InstanceDate {
			return persistence.ErrDuplicate
		}
	}
	s.records[record.ID] = record
	return nil
}

func (s *attendanceStoreStub) GetAttendanceRecord(ctx context.Context, id string) (persistence.AttendanceRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return persistence.AttendanceRecord{}, persistence.ErrNotFound
	}
	return record, nil
}

func (s *attendanceStoreStub) ListAttendanceRecords(ctx context.Context, sessionID string) ([]persistence.AttendanceRecord, error) {
	var records []persistence.AttendanceRecord
	for _, record := range s.records {
		if record.SessionID == sessionID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *attendanceStoreStub) ListAttendanceDates(ctx context.Context, sessionID string) ([]schedule.Date, error) {
	var dates []schedule.Date
	for _, record := range s.records {
		if record.SessionID == sessionID {
			dates = append(dates, record.InstanceDate)
		}
	}
	return dates, nil
}

func (s *attendanceStoreStub) DeleteAttendanceRecord(ctx context.Context, id string) error {
	if _, ok := s.records[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// blackoutReaderStub resolves blackout dates from fixed maps.
type blackoutReaderStub struct {
	organization map[string][]schedule.Date
	session      map[string][]schedule.Date
}

func (s *blackoutReaderStub) ListBlackoutDates(ctx context.Context, organizationID string) ([]persistence.BlackoutDate, error) {
	var blackouts []persistence.BlackoutDate
	for _, date := range s.organization[organizationID] {
		blackouts = append(blackouts, persistence.BlackoutDate{OrganizationID: organizationID, Date: date})
	}
	return blackouts, nil
}

func (s *blackoutReaderStub) ListSessionBlackoutDates(ctx context.Context, sessionID string) ([]persistence.SessionBlackoutDate, error) {
	var blackouts []persistence.SessionBlackoutDate
	for _, date := range s.session[sessionID] {
		blackouts = append(blackouts, persistence.SessionBlackoutDate{SessionID: sessionID, Date: date})
	}
	return blackouts, nil
}
