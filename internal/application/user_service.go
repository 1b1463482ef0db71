package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
)

// UserWriter captures the persistence operations needed to provision accounts.
type UserWriter interface {
	CreateUser(ctx context.Context, user persistence.User) error
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
}

// CreateUserParams wraps the data required to provision an account.
type CreateUserParams struct {
	Principal       Principal
	Email           string
	DisplayName     string
	Password        string
	IsAdmin         bool
	OrganizationIDs []string
}

// PasswordHasher produces a stored hash for a plaintext password.
type PasswordHasher func(password string) (string, error)

// UserService provisions user accounts for administrators.
type UserService struct {
	users        UserWriter
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserWriter, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:        users,
		hashPassword: hashPassword,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// CreateUser validates input, hashes the password and persists a new account.
// Only administrators may provision accounts.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("UserService not configured")
	}
	if !params.Principal.IsAdmin {
		return User{}, ErrUnauthorized
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	displayName := strings.TrimSpace(params.DisplayName)

	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is not a valid address")
	}
	if displayName == "" {
		vErr.add("displayName", "display name is required")
	}
	if len(params.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if !params.IsAdmin && len(params.OrganizationIDs) == 0 {
		vErr.add("organizationIds", "a non-admin account needs at least one organization")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := s.hashPassword(params.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := persistence.User{
		ID:              s.idGenerator(),
		Email:           email,
		DisplayName:     displayName,
		PasswordHash:    hash,
		IsAdmin:         params.IsAdmin,
		OrganizationIDs: append([]string(nil), params.OrganizationIDs...),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			vErr.add("email", "an account with this email already exists")
			return User{}, vErr
		}
		return User{}, err
	}

	serviceLogger(ctx, s.logger, "UserService", "CreateUser",
		"user_id", user.ID,
	).InfoContext(ctx, "user created", "is_admin", user.IsAdmin)
	return userView(user), nil
}

// EnsureUser creates the account when no account with the email exists yet.
// Used at startup to bootstrap the initial administrator.
func (s *UserService) EnsureUser(ctx context.Context, params CreateUserParams) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("UserService not configured")
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return userView(existing), nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return User{}, err
	}
	return s.CreateUser(ctx, params)
}
