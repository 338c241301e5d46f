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

// IOneTimeTokenRepository stores single-use email verification and password reset tokens.
type IOneTimeTokenRepository interface {
	Create(ctx context.Context, q db.DBTX, token *model.OneTimeToken) error
	FindValid(ctx context.Context, q db.DBTX, tokenHash string, now time.Time) (*model.OneTimeToken, error)
	MarkUsed(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) error
}

// OneTimeTokenRepository serves one token table, chosen by kind.
type OneTimeTokenRepository struct {
	kind  model.OneTimeTokenKind
	table string
}

func NewOneTimeTokenRepository(kind model.OneTimeTokenKind) *OneTimeTokenRepository {
	table := "email_verification_tokens"
	if kind == model.PasswordResetToken {
		table = "password_reset_tokens"
	}
	return &OneTimeTokenRepository{kind: kind, table: table}
}

func (r *OneTimeTokenRepository) Create(ctx context.Context, q db.DBTX, token *model.OneTimeToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":  token.UserID,
		"token_id": token.ID,
		"kind":     r.kind,
	})
	log.Info("Executing query to create a one-time token")

	token.Kind = r.kind
	query := `INSERT INTO ` + r.table + ` (id, user_id, token_hash, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := q.ExecContext(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt); err != nil {
		log.WithError(err).Error("Failed to execute create one-time token query")
		return fmt.Errorf("create %s token: %w", r.kind, err)
	}
	return nil
}

// FindValid returns the unused, unexpired token for tokenHash, locking the row.
// Missing, used and expired tokens are indistinguishable: all yield ErrNotFound.
func (r *OneTimeTokenRepository) FindValid(ctx context.Context, q db.DBTX, tokenHash string, now time.Time) (*model.OneTimeToken, error) {
	query := `SELECT id, user_id, token_hash, expires_at, used_at, created_at FROM ` + r.table + `
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		FOR UPDATE`

	var (
		token  = model.OneTimeToken{Kind: r.kind}
		usedAt sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, tokenHash, now).
		Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &usedAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("kind", r.kind).Error("Failed to execute find one-time token query")
		return nil, fmt.Errorf("find %s token: %w", r.kind, err)
	}
	token.UsedAt = nullTimePtr(usedAt)
	return &token, nil
}

// MarkUsed consumes the token. It reports ErrNotFound when the token was
// already consumed.
func (r *OneTimeTokenRepository) MarkUsed(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) error {
	log := logger.Log.WithFields(logrus.Fields{"token_id": id, "kind": r.kind})
	log.Info("Executing query to consume a one-time token")

	query := `UPDATE ` + r.table + ` SET used_at = $2 WHERE id = $1 AND used_at IS NULL`
	res, err := q.ExecContext(ctx, query, id, at)
	if err != nil {
		log.WithError(err).Error("Failed to execute consume one-time token query")
		return fmt.Errorf("mark %s token used: %w", r.kind, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
