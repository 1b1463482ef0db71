package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/schedule"
)

func newOrganizationStoreStub() *organizationStoreStub {
	return &organizationStoreStub{
		organizations: map[string]persistence.Organization{
			"org-1": {ID: "org-1", Name: "Eastside Programs"},
			"org-2": {ID: "org-2", Name: "Westside Programs"},
		},
		years: map[string]persistence.OrganizationYear{
			"year-1": {ID: "year-1", OrganizationID: "org-1", Label: "2023-2024"},
		},
		blackouts:        make(map[string]persistence.BlackoutDate),
		sessionBlackouts: make(map[string]persistence.SessionBlackoutDate),
	}
}

func TestOrganizationService_ListOrganizations(t *testing.T) {
	t.Parallel()

	store := newOrganizationStoreStub()
	svc := NewOrganizationService(store, nil, nil, sequentialIDs("id"), nil, nil)

	t.Run("admins see every organization", func(t *testing.T) {
		t.Parallel()

		views, err := svc.ListOrganizations(context.Background(), adminPrincipal())
		if err != nil {
			t.Fatalf("ListOrganizations failed: %v", err)
		}
		if len(views) != 2 {
			t.Fatalf("expected two organizations, got %d", len(views))
		}
	})

	t.Run("staff see only their own organizations", func(t *testing.T) {
		t.Parallel()

		views, err := svc.ListOrganizations(context.Background(), scopedPrincipal("org-2"))
		if err != nil {
			t.Fatalf("ListOrganizations failed: %v", err)
		}
		if len(views) != 1 || views[0].ID != "org-2" {
			t.Fatalf("expected only org-2, got %#v", views)
		}
	})
}

func TestOrganizationService_EnrollStudent(t *testing.T) {
	t.Parallel()

	t.Run("enrolls a student with trimmed fields", func(t *testing.T) {
		t.Parallel()

		store := newOrganizationStoreStub()
		roster := &studentRosterStub{}
		svc := NewOrganizationService(store, roster, nil, sequentialIDs("student"), nil, nil)

		view, err := svc.EnrollStudent(context.Background(), scopedPrincipal("org-1"), "year-1", StudentInput{
			FirstName:    " Maria ",
			LastName:     " Lopez ",
			MatricNumber: " M-100 ",
		})
		if err != nil {
			t.Fatalf("EnrollStudent failed: %v", err)
		}
		if view.FirstName != "Maria" || view.LastName != "Lopez" || view.MatricNumber != "M-100" {
			t.Fatalf("expected trimmed fields, got %#v", view)
		}
		if len(roster.created) != 1 {
			t.Fatalf("expected one persisted student, got %d", len(roster.created))
		}
	})

	t.Run("rejects duplicate matric numbers", func(t *testing.T) {
		t.Parallel()

		store := newOrganizationStoreStub()
		roster := &studentRosterStub{createErr: persistence.ErrDuplicate}
		svc := NewOrganizationService(store, roster, nil, sequentialIDs("student"), nil, nil)

		_, err := svc.EnrollStudent(context.Background(), adminPrincipal(), "year-1", StudentInput{
			FirstName: "Maria", LastName: "Lopez", MatricNumber: "M-100",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["matricNumber"]; !ok {
			t.Fatalf("expected matricNumber error, got %#v", vErr.FieldErrors)
		}
	})

	t.Run("rejects principals outside the organization", func(t *testing.T) {
		t.Parallel()

		store := newOrganizationStoreStub()
		svc := NewOrganizationService(store, &studentRosterStub{}, nil, sequentialIDs("student"), nil, nil)

		_, err := svc.EnrollStudent(context.Background(), scopedPrincipal("org-2"), "year-1", StudentInput{
			FirstName: "Maria", LastName: "Lopez", MatricNumber: "M-100",
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestOrganizationService_BlackoutDates(t *testing.T) {
	t.Parallel()

	t.Run("adds and lists organization blackouts", func(t *testing.T) {
		t.Parallel()

		store := newOrganizationStoreStub()
		svc := NewOrganizationService(store, nil, nil, sequentialIDs("blackout"), nil, nil)

		added, err := svc.AddBlackoutDate(context.Background(), scopedPrincipal("org-1"), "org-1", BlackoutInput{
			Date: schedule.NewDate(2024, time.January, 15),
		})
		if err != nil {
			t.Fatalf("AddBlackoutDate failed: %v", err)
		}

		views, err := svc.ListBlackoutDates(context.Background(), scopedPrincipal("org-1"), "org-1")
		if err != nil {
			t.Fatalf("ListBlackoutDates failed: %v", err)
		}
		if len(views) != 1 || views[0].ID != added.ID {
			t.Fatalf("expected the added blackout, got %#v", views)
		}

		if err := svc.RemoveBlackoutDate(context.Background(), scopedPrincipal("org-1"), "org-1", added.ID); err != nil {
			t.Fatalf("RemoveBlackoutDate failed: %v", err)
		}
		if err := svc.RemoveBlackoutDate(context.Background(), scopedPrincipal("org-1"), "org-1", added.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("requires a date", func(t *testing.T) {
		t.Parallel()

		store := newOrganizationStoreStub()
		svc := NewOrganizationService(store, nil, nil, sequentialIDs("blackout"), nil, nil)

		_, err := svc.AddBlackoutDate(context.Background(), adminPrincipal(), "org-1", BlackoutInput{})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("manages session level blackouts through the owning organization", func(t *testing.T) {
		t.Parallel()

		store := newOrganizationStoreStub()
		sessions := newSessionStoreStub()
		sessions.sessions["session-1"] = persistence.Session{ID: "session-1", OrganizationYearID: "year-1"}
		svc := NewOrganizationService(store, nil, sessions, sequentialIDs("blackout"), nil, nil)

		added, err := svc.AddSessionBlackoutDate(context.Background(), scopedPrincipal("org-1"), "session-1", BlackoutInput{
			Date: schedule.NewDate(2024, time.February, 19),
		})
		if err != nil {
			t.Fatalf("AddSessionBlackoutDate failed: %v", err)
		}

		views, err := svc.ListSessionBlackoutDates(context.Background(), scopedPrincipal("org-1"), "session-1")
		if err != nil {
			t.Fatalf("ListSessionBlackoutDates failed: %v", err)
		}
		if len(views) != 1 || views[0].ID != added.ID {
			t.Fatalf("expected the added blackout, got %#v", views)
		}

		if _, err := svc.AddSessionBlackoutDate(context.Background(), scopedPrincipal("org-2"), "session-1", BlackoutInput{
			Date: schedule.NewDate(2024, time.February, 26),
		}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

// organizationStoreStub provides an in-memory OrganizationStore for tests.
type organizationStoreStub struct {
	organizations    map[string]persistence.Organization
	years            map[string]persistence.OrganizationYear
	blackouts        map[string]persistence.BlackoutDate
	sessionBlackouts map[string]persistence.SessionBlackoutDate
}

func (s *organizationStoreStub) GetOrganization(ctx context.Context, id string) (persistence.Organization, error) {
	organization, ok := s.organizations[id]
	if !ok {
		return persistence.Organization{}, persistence.ErrNotFound
	}
	return organization, nil
}

func (s *organizationStoreStub) ListOrganizations(ctx context.Context) ([]persistence.Organization, error) {
	organizations := make([]persistence.Organization, 0, len(s.organizations))
	for _, id := range []string{"org-1", "org-2"} {
		if organization, ok := s.organizations[id]; ok {
			organizations = append(organizations, organization)
		}
	}
	return organizations, nil
}

func (s *organizationStoreStub) GetOrganizationYear(ctx context.Context, id string) (persistence.OrganizationYear, error) {
	year, ok := s.years[id]
	if !ok {
		return persistence.OrganizationYear{}, persistence.ErrNotFound
	}
	return year, nil
}

func (s *organizationStoreStub) ListOrganizationYears(ctx context.Context, organizationID string) ([]persistence.OrganizationYear, error) {
	var years []persistence.OrganizationYear
	for _, year := range s.years {
		if year.OrganizationID == organizationID {
			years = append(years, year)
		}
	}
	return years, nil
}

func (s *organizationStoreStub) CreateBlackoutDate(ctx context.Context, blackout persistence.BlackoutDate) error {
	for _, existing := range s.blackouts {
		if existing.OrganizationID == blackout.OrganizationID && existing.Date == blackout.Date {
			return persistence.ErrDuplicate
		}
	}
	s.blackouts[blackout.ID] = blackout
	return nil
}

func (s *organizationStoreStub) ListBlackoutDates(ctx context.Context, organizationID string) ([]persistence.BlackoutDate, error) {
	var blackouts []persistence.BlackoutDate
	for _, blackout := range s.blackouts {
		if blackout.OrganizationID == organizationID {
			blackouts = append(blackouts, blackout)
		}
	}
	return blackouts, nil
}

func (s *organizationStoreStub) DeleteBlackoutDate(ctx context.Context, id string) error {
	if _, ok := s.blackouts[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.blackouts, id)
	return nil
}

func (s *organizationStoreStub) CreateSessionBlackoutDate(ctx context.Context, blackout persistence.SessionBlackoutDate) error {
	for _, existing := range s.sessionBlackouts {
		if existing.SessionID == blackout.SessionID && existing.Date == blackout.Date {
			return persistence.ErrDuplicate
		}
	}
	s.sessionBlackouts[blackout.ID] = blackout
	return nil
}

func (s *organizationStoreStub) ListSessionBlackoutDates(ctx context.Context, sessionID string) ([]persistence.SessionBlackoutDate, error) {
	var blackouts []persistence.SessionBlackoutDate
	for _, blackout := range s.sessionBlackouts {
		if blackout.SessionID == sessionID {
			blackouts = append(blackouts, blackout)
		}
	}
	return blackouts, nil
}

func (s *organizationStoreStub) DeleteSessionBlackoutDate(ctx context.Context, id string) error {
	if _, ok := s.sessionBlackouts[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.sessionBlackouts, id)
	return nil
}

// studentRosterStub records created students for tests.
type studentRosterStub struct {
	created   []persistence.StudentSchoolYear
	createErr error
}

func (s *studentRosterStub) CreateStudentSchoolYear(ctx context.Context, student persistence.StudentSchoolYear) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, student)
	return nil
}

func (s *studentRosterStub) ListStudentSchoolYears(ctx context.Context, organizationYearID string) ([]persistence.StudentSchoolYear, error) {
	var students []persistence.StudentSchoolYear
	for _, student := range s.created {
		if student.OrganizationYearID == organizationYearID {
			students = append(students, student)
		}
	}
	return students, nil
}
