// file: repository/token_repository.go

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/db"
	"github.com/mgmassand/life-curriculum-assistant/logger"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/sirupsen/logrus"
)

// ITokenRepository is the refresh token ledger.
type ITokenRepository interface {
	Create(ctx context.Context, q db.DBTX, token *model.RefreshToken) error
	FindActive(ctx context.Context, q db.DBTX, tokenHash string, now time.Time) (*model.RefreshToken, error)
	Revoke(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) error
	RevokeAllForUser(ctx context.Context, q db.DBTX, userID uuid.UUID, at time.Time) (int64, error)
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct{}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository() *TokenRepository {
	return &TokenRepository{}
}

// Create inserts a new refresh token record into the ledger.
func (r *TokenRepository) Create(ctx context.Context, q db.DBTX, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"token_id":   token.ID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := q.ExecContext(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt); err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindActive returns the non-revoked, unexpired record for tokenHash and locks
// the row until the surrounding transaction ends. Missing, revoked and expired
// records all yield ErrNotFound.
func (r *TokenRepository) FindActive(ctx context.Context, q db.DBTX, tokenHash string, now time.Time) (*model.RefreshToken, error) {
	query := `SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
		FOR UPDATE`

	var (
		token     model.RefreshToken
		revokedAt sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, tokenHash, now).
		Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &revokedAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).Error("Failed to execute find active refresh token query")
		return nil, fmt.Errorf("find active refresh token: %w", err)
	}
	token.ExpiresAt = token.ExpiresAt.UTC()
	token.CreatedAt = token.CreatedAt.UTC()
	token.RevokedAt = nullTimePtr(revokedAt)
	return &token, nil
}

// Revoke marks a record revoked. Revoking an already revoked record is a no-op.
func (r *TokenRepository) Revoke(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) error {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to revoke a refresh token")

	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	if _, err := q.ExecContext(ctx, query, id, at); err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh token query")
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every outstanding refresh token of a user and
// reports how many were still active.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, q db.DBTX, userID uuid.UUID, at time.Time) (int64, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to revoke all refresh tokens for a user")

	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	res, err := q.ExecContext(ctx, query, userID, at)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke all refresh tokens query")
		return 0, fmt.Errorf("revoke refresh tokens for user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens for user: %w", err)
	}
	log.WithField("revoked", n).Info("Refresh tokens revoked")
	return n, nil
}
