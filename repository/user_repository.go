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

// IUserRepository defines the contract for user database operations.
type IUserRepository interface {
	Create(ctx context.Context, q db.DBTX, user *model.User) error
	GetByEmail(ctx context.Context, q db.DBTX, email string) (*model.User, error)
	GetByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*model.User, error)
	UpdateLastLogin(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, q db.DBTX, id uuid.UUID, hashedPassword string) error
	MarkEmailVerified(ctx context.Context, q db.DBTX, id uuid.UUID) error
}

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

const userColumns = `id, family_id, email, hashed_password, full_name, role, is_active, email_verified, created_at, last_login`

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		user      model.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&user.ID, &user.FamilyID, &user.Email, &user.HashedPassword, &user.FullName,
		&user.Role, &user.IsActive, &user.EmailVerified, &user.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.LastLogin = nullTimePtr(lastLogin)
	return &user, nil
}

// Create inserts a new user. A duplicate email yields ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, q db.DBTX, user *model.User) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"family_id": user.FamilyID,
	})
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (id, family_id, email, hashed_password, full_name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING is_active, email_verified, created_at`
	err := q.QueryRowContext(ctx, query, user.ID, user.FamilyID, user.Email, user.HashedPassword, user.FullName, user.Role).
		Scan(&user.IsActive, &user.EmailVerified, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Info("User email already exists")
			return ErrDuplicateEmail
		}
		log.WithError(err).Error("Failed to execute create user query")
		return fmt.Errorf("create user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, q db.DBTX, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(q.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).Error("Failed to execute get user by email query")
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to execute get user by id query")
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) error {
	return r.exec(ctx, q, id, "update last login", `UPDATE users SET last_login = $2 WHERE id = $1`, at)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, q db.DBTX, id uuid.UUID, hashedPassword string) error {
	return r.exec(ctx, q, id, "update password", `UPDATE users SET hashed_password = $2 WHERE id = $1`, hashedPassword)
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, q db.DBTX, id uuid.UUID) error {
	return r.exec(ctx, q, id, "mark email verified", `UPDATE users SET email_verified = TRUE WHERE id = $1`)
}

func (r *UserRepository) exec(ctx context.Context, q db.DBTX, id uuid.UUID, op, query string, args ...any) error {
	log := logger.Log.WithFields(logrus.Fields{"user_id": id, "operation": op})
	log.Info("Executing user update query")

	res, err := q.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		log.WithError(err).Error("Failed to execute user update query")
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
