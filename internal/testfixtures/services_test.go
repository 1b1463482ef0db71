package testfixtures

import (
	"context"
	"testing"

	"github.com/example/grant-tracker/internal/application"
	"github.com/example/grant-tracker/internal/persistence"
)

type capturingUserWriter struct {
	created persistence.User
}

func (c *capturingUserWriter) CreateUser(ctx context.Context, user persistence.User) error {
	c.created = user
	return nil
}

func (c *capturingUserWriter) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	return persistence.User{}, persistence.ErrNotFound
}

func TestServiceFactoryNewUserService(t *testing.T) {
	factory := NewServiceFactory()
	writer := &capturingUserWriter{}

	svc := factory.NewUserService(UserServiceDeps{
		Users:  writer,
		Hasher: func(password string) (string, error) { return "hashed:" + password, nil },
	})

	user, err := svc.CreateUser(context.Background(), application.CreateUserParams{
		Principal:   application.Principal{UserID: "admin", IsAdmin: true},
		Email:       "coordinator@example.com",
		DisplayName: "Coordinator",
		Password:    "longenough",
		IsAdmin:     true,
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	if user.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", user.ID)
	}
	if writer.created.ID != user.ID {
		t.Fatalf("repository received unexpected ID: %q", writer.created.ID)
	}
	if writer.created.PasswordHash != "hashed:longenough" {
		t.Fatalf("unexpected stored hash %q", writer.created.PasswordHash)
	}
	if !writer.created.CreatedAt.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), writer.created.CreatedAt)
	}
}

func TestFixturesProduceConsistentGraph(t *testing.T) {
	organization := NewOrganizationFixture(WithOrganizationName("Northside Youth Center"))
	year := NewOrganizationYearFixture(organization.ID)
	student := NewStudentFixture(year.ID, WithStudentName("Maria", "Lopez"))
	session := NewSessionFixture(year.ID)

	if year.OrganizationID != organization.ID {
		t.Fatalf("year not linked to organization: %q", year.OrganizationID)
	}
	if student.Persistence().OrganizationYearID != year.ID {
		t.Fatalf("student not linked to year: %q", student.OrganizationYearID)
	}
	if session.Persistence().OrganizationYearID != year.ID {
		t.Fatalf("session not linked to year: %q", session.OrganizationYearID)
	}
	if len(session.Days) != 1 || len(session.Days[0].Intervals) != 1 {
		t.Fatalf("expected default Monday slot, got %+v", session.Days)
	}
	if session.Days[0].SessionID != session.ID {
		t.Fatalf("day schedule not linked to session: %q", session.Days[0].SessionID)
	}

	record := NewAttendanceFixture(session.ID, session.FirstSessionDate, WithAttendanceStudent(student.ID, 1)).Persistence()
	if len(record.Students) != 1 || record.Students[0].AttendanceRecordID != record.ID {
		t.Fatalf("student rows not linked to record: %+v", record.Students)
	}
}
