package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneTimeTokenRepository_TableSelection(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	cases := []struct {
		kind  model.OneTimeTokenKind
		table string
	}{
		{model.EmailVerificationToken, "email_verification_tokens"},
		{model.PasswordResetToken, "password_reset_tokens"},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			conn, mock := newMock(t)
			token := &model.OneTimeToken{ID: uuid.New(), UserID: uuid.New(), TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}

			mock.ExpectExec(`INSERT INTO ` + tc.table + ` `).
				WithArgs(token.ID, token.UserID, "h", token.ExpiresAt, token.CreatedAt).
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, NewOneTimeTokenRepository(tc.kind).Create(ctx, conn, token))
			assert.Equal(t, tc.kind, token.Kind)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOneTimeTokenRepository_FindValid(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	repo := NewOneTimeTokenRepository(model.PasswordResetToken)
	q := `(?s)SELECT .+ FROM password_reset_tokens\s+WHERE token_hash = \$1 AND used_at IS NULL AND expires_at > \$2`
	cols := []string{"id", "user_id", "token_hash", "expires_at", "used_at", "created_at"}

	t.Run("valid", func(t *testing.T) {
		conn, mock := newMock(t)
		id := uuid.New()
		mock.ExpectQuery(q).WithArgs("h", now).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(id.String(), uuid.NewString(), "h", now.Add(time.Hour), nil, now))

		token, err := repo.FindValid(ctx, conn, "h", now)
		require.NoError(t, err)
		assert.Equal(t, id, token.ID)
		assert.Equal(t, model.PasswordResetToken, token.Kind)
	})

	t.Run("used or expired", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(q).WithArgs("h", now).WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.FindValid(ctx, conn, "h", now)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestOneTimeTokenRepository_MarkUsed(t *testing.T) {
	ctx := context.Background()
	repo := NewOneTimeTokenRepository(model.EmailVerificationToken)
	id := uuid.New()
	at := time.Now().UTC()
	q := `UPDATE email_verification_tokens SET used_at = \$2 WHERE id = \$1 AND used_at IS NULL`

	conn, mock := newMock(t)
	mock.ExpectExec(q).WithArgs(id, at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(id, at).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.MarkUsed(ctx, conn, id, at))
	assert.ErrorIs(t, repo.MarkUsed(ctx, conn, id, at), ErrNotFound, "a used token stays used")
}
