package testfixtures

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/grant-tracker/internal/application"
)

// Submitting one student into two sessions that share a weekly slot from
// parallel requests must commit exactly one registration: the conflict check
// and the insert run in the same transaction, so the losing request sees the
// winner's rows.
func TestConcurrentOverlappingRegistrations(t *testing.T) {
	t.Parallel()

	harness := NewSQLiteHarness(t)
	ctx := context.Background()

	organization := NewOrganizationFixture()
	if err := harness.Organizations.CreateOrganization(ctx, organization.Persistence()); err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	year := NewOrganizationYearFixture(organization.ID)
	if err := harness.Organizations.CreateOrganizationYear(ctx, year.Persistence()); err != nil {
		t.Fatalf("CreateOrganizationYear: %v", err)
	}
	student := NewStudentFixture(year.ID)
	if err := harness.Students.CreateStudentSchoolYear(ctx, student.Persistence()); err != nil {
		t.Fatalf("CreateStudentSchoolYear: %v", err)
	}

	sessionIDs := []string{"race-a", "race-b"}
	for _, id := range sessionIDs {
		fixture := NewSessionFixture(year.ID,
			WithSessionID(id),
			WithSessionDays(DayScheduleFixture(id+"-tue", id, time.Tuesday, [2]int{9, 10})),
		)
		if err := harness.Sessions.CreateSession(ctx, fixture.Persistence(), fixture.Days); err != nil {
			t.Fatalf("CreateSession %s: %v", id, err)
		}
	}

	svc := NewServiceFactory().NewRegistrationService(RegistrationServiceDeps{
		Registrations: harness.Registrations,
		Students:      harness.Students,
		Sessions:      harness.Sessions,
		Years:         harness.Organizations,
	})
	principal := NewUserFixture(WithUserAdmin(true)).Principal()

	errs := make([]error, len(sessionIDs))
	var wg sync.WaitGroup
	for i, sessionID := range sessionIDs {
		wg.Add(1)
		go func(i int, sessionID string) {
			defer wg.Done()
			errs[i] = svc.Register(ctx, application.RegisterParams{
				Principal:           principal,
				SessionID:           sessionID,
				StudentSchoolYearID: student.ID,
				DayScheduleIDs:      []string{sessionID + "-tue"},
			})
		}(i, sessionID)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		var cErr *application.ConflictError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &cErr):
			conflicted++
		default:
			t.Fatalf("unexpected registration error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Fatalf("got %d successes and %d conflicts, want exactly one of each", succeeded, conflicted)
	}

	rows, err := harness.Registrations.ListStudentRegistrations(ctx, student.ID)
	if err != nil {
		t.Fatalf("ListStudentRegistrations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("both overlapping registrations persisted: %+v", rows)
	}
}
