package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
)

// AuthSessionRepository implements persistence.AuthSessionRepository using SQLite.
type AuthSessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAuthSessionRepository creates a new SQLite auth session repository.
func NewAuthSessionRepository(pool *ConnectionPool) *AuthSessionRepository {
	return &AuthSessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateAuthSession stores a new login token for a user.
func (r *AuthSessionRepository) CreateAuthSession(ctx context.Context, session persistence.AuthSession) error {
	if session.ID == "" || session.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	if strings.TrimSpace(session.Token) == "" {
		return persistence.ErrConstraintViolation
	}

	session.CreatedAt = time.Now().UTC()

	var revokedAt sql.NullString
	if session.RevokedAt != nil {
		revokedAt.String = session.RevokedAt.Format(time.RFC3339)
		revokedAt.Valid = true
	}

	query := `
		INSERT INTO auth_sessions (id, user_id, token, expires_at, created_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.ExpiresAt.Format(time.RFC3339),
		session.CreatedAt.Format(time.RFC3339),
		revokedAt,
	)
	return r.mapper.MapError(err)
}

// GetAuthSessionByToken retrieves a login session by its token value.
func (r *AuthSessionRepository) GetAuthSessionByToken(ctx context.Context, token string) (persistence.AuthSession, error) {
	normalized := strings.TrimSpace(token)
	if normalized == "" {
		return persistence.AuthSession{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, user_id, token, expires_at, created_at, revoked_at
		FROM auth_sessions
		WHERE token = ?
	`

	var session persistence.AuthSession
	var expiresStr, createdStr string
	var revokedAt sql.NullString

	err := r.helper.QueryRow(ctx, query, normalized).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&expiresStr,
		&createdStr,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.AuthSession{}, persistence.ErrNotFound
		}
		return persistence.AuthSession{}, r.mapper.MapError(err)
	}

	if session.ExpiresAt, err = time.Parse(time.RFC3339, expiresStr); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if revokedAt.Valid {
		parsed, err := time.Parse(time.RFC3339, revokedAt.String)
		if err != nil {
			return persistence.AuthSession{}, fmt.Errorf("failed to parse revoked_at: %w", err)
		}
		session.RevokedAt = &parsed
	}
	return session, nil
}

// RevokeAuthSession marks a login session revoked.
func (r *AuthSessionRepository) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) error {
	normalized := strings.TrimSpace(token)
	if normalized == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx,
		`UPDATE auth_sessions SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL`,
		revokedAt.UTC().Format(time.RFC3339), normalized)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteExpiredAuthSessions removes sessions that expired before the reference time.
func (r *AuthSessionRepository) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error {
	_, err := r.helper.Exec(ctx,
		`DELETE FROM auth_sessions WHERE expires_at < ?`,
		reference.UTC().Format(time.RFC3339))
	return r.mapper.MapError(err)
}
