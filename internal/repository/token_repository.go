package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/genlink/genlink-api/internal/models"
)

// TokenRepository persists refresh tokens.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create stores a refresh token.
func (r *TokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	const query = `INSERT INTO refresh_tokens (id, volunteer_email, token, expires_at, created_at, revoked, ip_address, user_agent)
		VALUES (:id, :volunteer_email, :token, :expires_at, :created_at, :revoked, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// Find fetches a refresh token by its opaque value.
func (r *TokenRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, volunteer_email, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
		FROM refresh_tokens WHERE token = $1`
	var stored models.RefreshToken
	if err := r.db.GetContext(ctx, &stored, query, token); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Revoke marks a single token revoked.
func (r *TokenRepository) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllFor revokes every outstanding token for a volunteer.
func (r *TokenRepository) RevokeAllFor(ctx context.Context, email string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE volunteer_email = $1 AND NOT revoked`
	if _, err := r.db.ExecContext(ctx, query, email, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
