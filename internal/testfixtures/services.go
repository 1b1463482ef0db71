package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/grant-tracker/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) idFunc(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) nowFunc(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

// SessionServiceDeps captures dependencies for constructing a session service.
type SessionServiceDeps struct {
	Sessions      application.SessionStore
	Years         application.OrganizationYearStore
	Registrations application.RegistrationCounter
	Attendance    application.AttendanceCounter
	IDGenerator   func() string
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewSessionService builds a session service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewSessionService(deps SessionServiceDeps) *application.SessionService {
	return application.NewSessionService(
		deps.Sessions,
		deps.Years,
		deps.Registrations,
		deps.Attendance,
		f.idFunc(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// RegistrationServiceDeps captures dependencies for constructing a
// registration service.
type RegistrationServiceDeps struct {
	Registrations application.RegistrationStore
	Students      application.StudentStore
	Sessions      application.ScheduleReader
	Years         application.OrganizationYearStore
	Logger        *slog.Logger
}

// NewRegistrationService builds a registration service.
func (f *ServiceFactory) NewRegistrationService(deps RegistrationServiceDeps) *application.RegistrationService {
	return application.NewRegistrationService(
		deps.Registrations,
		deps.Students,
		deps.Sessions,
		deps.Years,
		deps.Logger,
	)
}

// AttendanceServiceDeps captures dependencies for constructing an attendance
// service.
type AttendanceServiceDeps struct {
	Attendance  application.AttendanceStore
	Sessions    application.SessionCatalog
	Years       application.OrganizationYearStore
	Blackouts   application.BlackoutReader
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewAttendanceService builds an attendance service.
func (f *ServiceFactory) NewAttendanceService(deps AttendanceServiceDeps) *application.AttendanceService {
	return application.NewAttendanceService(
		deps.Attendance,
		deps.Sessions,
		deps.Years,
		deps.Blackouts,
		f.idFunc(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// OrganizationServiceDeps captures dependencies for constructing an
// organization service.
type OrganizationServiceDeps struct {
	Organizations application.OrganizationStore
	Students      application.StudentRosterStore
	Sessions      application.SessionCatalog
	IDGenerator   func() string
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewOrganizationService builds an organization service.
func (f *ServiceFactory) NewOrganizationService(deps OrganizationServiceDeps) *application.OrganizationService {
	return application.NewOrganizationService(
		deps.Organizations,
		deps.Students,
		deps.Sessions,
		f.idFunc(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users       application.UserWriter
	Hasher      application.PasswordHasher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewUserService builds a user service using the supplied dependencies.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	return application.NewUserService(
		deps.Users,
		deps.Hasher,
		f.idFunc(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Users          application.UserStore
	Sessions       application.AuthSessionStore
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	return application.NewAuthService(
		deps.Users,
		deps.Sessions,
		deps.PasswordVerify,
		f.idFunc(deps.TokenGenerator),
		f.nowFunc(deps.Now),
		deps.SessionTTL,
		deps.Logger,
	)
}
