package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
)

// OrganizationStore captures the persistence interactions for organizations,
// their years, blackout dates and student rosters.
type OrganizationStore interface {
	GetOrganization(ctx context.Context, id string) (persistence.Organization, error)
	ListOrganizations(ctx context.Context) ([]persistence.Organization, error)
	GetOrganizationYear(ctx context.Context, id string) (persistence.OrganizationYear, error)
	ListOrganizationYears(ctx context.Context, organizationID string) ([]persistence.OrganizationYear, error)

	CreateBlackoutDate(ctx context.Context, blackout persistence.BlackoutDate) error
	ListBlackoutDates(ctx context.Context, organizationID string) ([]persistence.BlackoutDate, error)
	DeleteBlackoutDate(ctx context.Context, id string) error

	CreateSessionBlackoutDate(ctx context.Context, blackout persistence.SessionBlackoutDate) error
	ListSessionBlackoutDates(ctx context.Context, sessionID string) ([]persistence.SessionBlackoutDate, error)
	DeleteSessionBlackoutDate(ctx context.Context, id string) error
}

// StudentRosterStore captures the persistence interactions for student
// school-year enrollment rows.
type StudentRosterStore interface {
	CreateStudentSchoolYear(ctx context.Context, student persistence.StudentSchoolYear) error
	ListStudentSchoolYears(ctx context.Context, organizationYearID string) ([]persistence.StudentSchoolYear, error)
}

// StudentInput captures caller provided student enrollment fields.
type StudentInput struct {
	FirstName    string
	LastName     string
	MatricNumber string
}

// StudentView is a student enrollment row as exposed by the services.
type StudentView struct {
	ID           string
	FirstName    string
	LastName     string
	MatricNumber string
}

// OrganizationView is an organization as exposed by the services.
type OrganizationView struct {
	ID   string
	Name string
}

// OrganizationYearView is an organization year as exposed by the services.
type OrganizationYearView struct {
	ID             string
	OrganizationID string
	Label          string
}

// OrganizationService manages organizations, years, blackout dates and
// student rosters within the acting principal's scope.
type OrganizationService struct {
	organizations OrganizationStore
	students      StudentRosterStore
	sessions      SessionCatalog

	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewOrganizationService wires dependencies for organization operations.
func NewOrganizationService(organizations OrganizationStore, students StudentRosterStore, sessions SessionCatalog, idGenerator func() string, now func() time.Time, logger *slog.Logger) *OrganizationService {
	if now == nil {
		now = time.Now
	}
	return &OrganizationService{
		organizations: organizations,
		students:      students,
		sessions:      sessions,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *OrganizationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "OrganizationService", operation, attrs...)
}

// ListOrganizations returns every organization the principal may act on.
func (s *OrganizationService) ListOrganizations(ctx context.Context, principal Principal) ([]OrganizationView, error) {
	organizations, err := s.organizations.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]OrganizationView, 0, len(organizations))
	for _, organization := range organizations {
		if !principal.AllowsOrganization(organization.ID) {
			continue
		}
		views = append(views, OrganizationView{ID: organization.ID, Name: organization.Name})
	}
	return views, nil
}

// ListOrganizationYears returns an organization's years, newest label first.
func (s *OrganizationService) ListOrganizationYears(ctx context.Context, principal Principal, organizationID string) ([]OrganizationYearView, error) {
	if _, err := s.authorizeOrganization(ctx, principal, organizationID); err != nil {
		return nil, err
	}

	years, err := s.organizations.ListOrganizationYears(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	views := make([]OrganizationYearView, 0, len(years))
	for _, year := range years {
		views = append(views, OrganizationYearView{
			ID:             year.ID,
			OrganizationID: year.OrganizationID,
			Label:          year.Label,
		})
	}
	return views, nil
}

// ListStudents returns an organization year's student roster ordered by name.
func (s *OrganizationService) ListStudents(ctx context.Context, principal Principal, organizationYearID string) ([]StudentView, error) {
	if _, err := s.authorizeYear(ctx, principal, organizationYearID); err != nil {
		return nil, err
	}

	students, err := s.students.ListStudentSchoolYears(ctx, organizationYearID)
	if err != nil {
		return nil, err
	}

	views := make([]StudentView, 0, len(students))
	for _, student := range students {
		views = append(views, studentView(student))
	}
	return views, nil
}

// EnrollStudent adds a student to an organization year's roster.
func (s *OrganizationService) EnrollStudent(ctx context.Context, principal Principal, organizationYearID string, input StudentInput) (StudentView, error) {
	if _, err := s.authorizeYear(ctx, principal, organizationYearID); err != nil {
		return StudentView{}, err
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.FirstName) == "" {
		vErr.add("firstName", "first name is required")
	}
	if strings.TrimSpace(input.LastName) == "" {
		vErr.add("lastName", "last name is required")
	}
	if strings.TrimSpace(input.MatricNumber) == "" {
		vErr.add("matricNumber", "matric number is required")
	}
	if vErr.HasErrors() {
		return StudentView{}, vErr
	}

	now := s.now().UTC()
	student := persistence.StudentSchoolYear{
		ID:                 s.idGenerator(),
		OrganizationYearID: organizationYearID,
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		MatricNumber:       strings.TrimSpace(input.MatricNumber),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.students.CreateStudentSchoolYear(ctx, student); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			vErr.add("matricNumber", "a student with this matric number is already enrolled")
			return StudentView{}, vErr
		}
		return StudentView{}, err
	}

	s.loggerWith(ctx, "EnrollStudent",
		"organization_year_id", organizationYearID,
		"student_school_year_id", student.ID,
	).InfoContext(ctx, "student enrolled")
	return studentView(student), nil
}

// ListBlackoutDates returns an organization's blackout dates in date order.
func (s *OrganizationService) ListBlackoutDates(ctx context.Context, principal Principal, organizationID string) ([]BlackoutView, error) {
	if _, err := s.authorizeOrganization(ctx, principal, organizationID); err != nil {
		return nil, err
	}

	blackouts, err := s.organizations.ListBlackoutDates(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	views := make([]BlackoutView, 0, len(blackouts))
	for _, blackout := range blackouts {
		views = append(views, BlackoutView{ID: blackout.ID, Date: blackout.Date})
	}
	return views, nil
}

// AddBlackoutDate records an organization wide blackout date.
func (s *OrganizationService) AddBlackoutDate(ctx context.Context, principal Principal, organizationID string, input BlackoutInput) (BlackoutView, error) {
	if _, err := s.authorizeOrganization(ctx, principal, organizationID); err != nil {
		return BlackoutView{}, err
	}
	if input.Date.IsZero() {
		vErr := &ValidationError{}
		vErr.add("date", "date is required")
		return BlackoutView{}, vErr
	}

	blackout := persistence.BlackoutDate{
		ID:             s.idGenerator(),
		OrganizationID: organizationID,
		Date:           input.Date,
	}
	if err := s.organizations.CreateBlackoutDate(ctx, blackout); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			vErr := &ValidationError{}
			vErr.add("date", fmt.Sprintf("%s is already a blackout date", input.Date))
			return BlackoutView{}, vErr
		}
		return BlackoutView{}, err
	}

	s.loggerWith(ctx, "AddBlackoutDate",
		"organization_id", organizationID,
		"date", input.Date.String(),
	).InfoContext(ctx, "blackout date added")
	return BlackoutView{ID: blackout.ID, Date: blackout.Date}, nil
}

// RemoveBlackoutDate deletes an organization wide blackout date.
func (s *OrganizationService) RemoveBlackoutDate(ctx context.Context, principal Principal, organizationID, blackoutID string) error {
	if _, err := s.authorizeOrganization(ctx, principal, organizationID); err != nil {
		return err
	}
	if err := s.organizations.DeleteBlackoutDate(ctx, blackoutID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ListSessionBlackoutDates returns a session's blackout dates in date order.
func (s *OrganizationService) ListSessionBlackoutDates(ctx context.Context, principal Principal, sessionID string) ([]BlackoutView, error) {
	if err := s.authorizeSessionOrg(ctx, principal, sessionID); err != nil {
		return nil, err
	}

	blackouts, err := s.organizations.ListSessionBlackoutDates(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	views := make([]BlackoutView, 0, len(blackouts))
	for _, blackout := range blackouts {
		views = append(views, BlackoutView{ID: blackout.ID, Date: blackout.Date})
	}
	return views, nil
}

// AddSessionBlackoutDate records a blackout date for one session.
func (s *OrganizationService) AddSessionBlackoutDate(ctx context.Context, principal Principal, sessionID string, input BlackoutInput) (BlackoutView, error) {
	if err := s.authorizeSessionOrg(ctx, principal, sessionID); err != nil {
		return BlackoutView{}, err
	}
	if input.Date.IsZero() {
		vErr := &ValidationError{}
		vErr.add("date", "date is required")
		return BlackoutView{}, vErr
	}

	blackout := persistence.SessionBlackoutDate{
		ID:        s.idGenerator(),
		SessionID: sessionID,
		Date:      input.Date,
	}
	if err := s.organizations.CreateSessionBlackoutDate(ctx, blackout); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			vErr := &ValidationError{}
			vErr.add("date", fmt.Sprintf("%s is already a blackout date", input.Date))
			return BlackoutView{}, vErr
		}
		return BlackoutView{}, err
	}
	return BlackoutView{ID: blackout.ID, Date: blackout.Date}, nil
}

// RemoveSessionBlackoutDate deletes a session blackout date.
func (s *OrganizationService) RemoveSessionBlackoutDate(ctx context.Context, principal Principal, sessionID, blackoutID string) error {
	if err := s.authorizeSessionOrg(ctx, principal, sessionID); err != nil {
		return err
	}
	if err := s.organizations.DeleteSessionBlackoutDate(ctx, blackoutID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *OrganizationService) authorizeOrganization(ctx context.Context, principal Principal, organizationID string) (persistence.Organization, error) {
	organization, err := s.organizations.GetOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Organization{}, ErrNotFound
		}
		return persistence.Organization{}, err
	}
	if !principal.AllowsOrganization(organization.ID) {
		return persistence.Organization{}, ErrUnauthorized
	}
	return organization, nil
}

func (s *OrganizationService) authorizeYear(ctx context.Context, principal Principal, organizationYearID string) (persistence.OrganizationYear, error) {
	year, err := s.organizations.GetOrganizationYear(ctx, organizationYearID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.OrganizationYear{}, ErrNotFound
		}
		return persistence.OrganizationYear{}, err
	}
	if !principal.AllowsOrganization(year.OrganizationID) {
		return persistence.OrganizationYear{}, ErrUnauthorized
	}
	return year, nil
}

func (s *OrganizationService) authorizeSessionOrg(ctx context.Context, principal Principal, sessionID string) error {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	_, err = s.authorizeYear(ctx, principal, session.OrganizationYearID)
	return err
}

func studentView(student persistence.StudentSchoolYear) StudentView {
	return StudentView{
		ID:           student.ID,
		FirstName:    student.FirstName,
		LastName:     student.LastName,
		MatricNumber: student.MatricNumber,
	}
}
