package accounts_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"medimart/internal/domain/accounts"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountCols = []string{
	"id", "name", "email", "phone", "address", "shop_name",
	"role", "status", "password", "created_at", "updated_at",
}

func accountRow(mock pgxmock.PgxPoolIface, id int64, status accounts.Status) *pgxmock.Rows {
	now := time.Now()
	shop := "Green Pharmacy"
	return mock.NewRows(accountCols).AddRow(
		id, "Rahim", "rahim@example.com", "01711111111", "Dhaka", &shop,
		accounts.RoleShopOwner, status, []byte("hash"), now, now,
	)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestRepository_Create(t *testing.T) {
	t.Run("Should always insert a pending account", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		a := &accounts.Account{
			Name:    "Rahim",
			Email:   "rahim@example.com",
			Phone:   "01711111111",
			Address: "Dhaka",
			Role:    accounts.RoleShopOwner,
			Status:  accounts.StatusApproved,
		}
		require.NoError(t, a.Password.Set("secret123"))

		now := time.Now()
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Rahim", "rahim@example.com", "01711111111", "Dhaka", a.ShopName,
				accounts.RoleShopOwner, accounts.StatusPending, pgxmock.AnyArg()).
			WillReturnRows(mock.NewRows([]string{"id", "status", "created_at", "updated_at"}).
				AddRow(int64(11), accounts.StatusPending, now, now))

		err = repo.Create(context.Background(), a)
		assert.NoError(t, err)
		assert.Equal(t, int64(11), a.ID)
		assert.Equal(t, accounts.StatusPending, a.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should map unique violations to duplicate errors", func(t *testing.T) {
		cases := map[string]error{
			"users_email_key": accounts.ErrDuplicateEmail,
			"users_phone_key": accounts.ErrDuplicatePhone,
		}
		for constraint, want := range cases {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)

			repo := accounts.NewRepository(mock)
			mock.ExpectQuery("INSERT INTO users").
				WithArgs(anyArgs(8)...).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraint})

			err = repo.Create(context.Background(), &accounts.Account{Role: accounts.RoleSupplier})
			assert.ErrorIs(t, err, want)
			mock.Close()
		}
	})
}

func TestRepository_EnsureAdmin(t *testing.T) {
	t.Run("Should insert an approved admin under the lowercased email", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		a := &accounts.Account{Name: "Ops", Email: " Ops@Example.com ", Phone: "01700000000", Address: "Dhaka"}
		require.NoError(t, a.Password.Set("secret123"))

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM users WHERE lower\\(email\\) = \\$1 FOR UPDATE").
			WithArgs("ops@example.com").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Ops", "ops@example.com", "01700000000", "Dhaka", a.ShopName,
				accounts.RoleAdmin, accounts.StatusApproved, pgxmock.AnyArg()).
			WillReturnRows(mock.NewRows([]string{"id", "role", "status", "created_at", "updated_at"}).
				AddRow(int64(1), accounts.RoleAdmin, accounts.StatusApproved, now, now))
		mock.ExpectCommit()

		require.NoError(t, repo.EnsureAdmin(context.Background(), a))
		assert.Equal(t, int64(1), a.ID)
		assert.Equal(t, "ops@example.com", a.Email)
		assert.Equal(t, accounts.StatusApproved, a.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should promote an existing account and record the status change", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		a := &accounts.Account{Name: "Rahim", Email: "Rahim@Example.com"}
		require.NoError(t, a.Password.Set("secret123"))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM users WHERE lower\\(email\\) = \\$1 FOR UPDATE").
			WithArgs("rahim@example.com").
			WillReturnRows(accountRow(mock, 7, accounts.StatusSuspended))
		mock.ExpectQuery("UPDATE users SET role = \\$1, status = \\$2").
			WithArgs(accounts.RoleAdmin, accounts.StatusApproved, int64(7)).
			WillReturnRows(mock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
		mock.ExpectExec("INSERT INTO account_status_events (.+) VALUES \\(\\$1, \\$2, \\$3, NULL\\)").
			WithArgs(int64(7), accounts.StatusSuspended, accounts.StatusApproved).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.EnsureAdmin(context.Background(), a))
		assert.Equal(t, int64(7), a.ID)
		assert.Equal(t, accounts.RoleAdmin, a.Role)
		assert.Equal(t, accounts.StatusApproved, a.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should not record an event when already approved", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		a := &accounts.Account{Email: "rahim@example.com"}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM users WHERE lower\\(email\\) = \\$1 FOR UPDATE").
			WithArgs("rahim@example.com").
			WillReturnRows(accountRow(mock, 7, accounts.StatusApproved))
		mock.ExpectQuery("UPDATE users SET role = \\$1, status = \\$2").
			WithArgs(accounts.RoleAdmin, accounts.StatusApproved, int64(7)).
			WillReturnRows(mock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		require.NoError(t, repo.EnsureAdmin(context.Background(), a))
		assert.Equal(t, accounts.RoleAdmin, a.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetByID(t *testing.T) {
	t.Run("Should return the account", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
			WithArgs(int64(3)).
			WillReturnRows(accountRow(mock, 3, accounts.StatusApproved))

		a, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), a.ID)
		assert.Equal(t, accounts.StatusApproved, a.Status)
		assert.Equal(t, accounts.RoleShopOwner, a.Role)
		require.NotNil(t, a.ShopName)
		assert.Equal(t, "Green Pharmacy", *a.ShopName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should return ErrNotFound for missing rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
			WithArgs(int64(404)).
			WillReturnError(pgx.ErrNoRows)

		a, err := repo.GetByID(context.Background(), 404)
		assert.Nil(t, a)
		assert.ErrorIs(t, err, accounts.ErrNotFound)
	})
}

func TestRepository_ChangeStatus(t *testing.T) {
	t.Run("Should apply an allowed transition and record it", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		updatedAt := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(7)).
			WillReturnRows(accountRow(mock, 7, accounts.StatusPending))
		mock.ExpectQuery("UPDATE users SET status = \\$1").
			WithArgs(accounts.StatusApproved, int64(7)).
			WillReturnRows(mock.NewRows([]string{"updated_at"}).AddRow(updatedAt))
		mock.ExpectExec("INSERT INTO account_status_events").
			WithArgs(int64(7), accounts.StatusPending, accounts.StatusApproved, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		a, from, err := repo.ChangeStatus(context.Background(), 7, accounts.StatusApproved, 1)
		require.NoError(t, err)
		assert.Equal(t, accounts.StatusPending, from)
		assert.Equal(t, accounts.StatusApproved, a.Status)
		assert.Equal(t, updatedAt, a.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should reject a disallowed transition without writing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(7)).
			WillReturnRows(accountRow(mock, 7, accounts.StatusRejected))
		mock.ExpectRollback()

		a, _, err := repo.ChangeStatus(context.Background(), 7, accounts.StatusSuspended, 1)
		assert.Nil(t, a)
		assert.ErrorIs(t, err, accounts.ErrInvalidTransition)

		var te *accounts.TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, accounts.StatusRejected, te.From)
		assert.Equal(t, accounts.StatusSuspended, te.To)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should return ErrNotFound for unknown accounts", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(99)).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, _, err = repo.ChangeStatus(context.Background(), 99, accounts.StatusApproved, 1)
		assert.ErrorIs(t, err, accounts.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_List(t *testing.T) {
	t.Run("Should filter by status and return the total", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users WHERE \\(status = \\$1\\)").
			WithArgs(accounts.StatusPending).
			WillReturnRows(mock.NewRows([]string{"count"}).AddRow(2))
		rows := accountRow(mock, 1, accounts.StatusPending)
		now := time.Now()
		rows.AddRow(int64(2), "Karim", "karim@example.com", "01722222222", "Khulna", nil,
			accounts.RoleSupplier, accounts.StatusPending, []byte("hash"), now, now)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE \\(status = \\$1\\) ORDER BY created_at DESC, id DESC LIMIT 10 OFFSET 0").
			WithArgs(accounts.StatusPending).
			WillReturnRows(rows)

		list, total, err := repo.List(context.Background(), accounts.ListFilters{Status: accounts.StatusPending}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, list, 2)
		assert.Equal(t, "Karim", list[1].Name)
		assert.Nil(t, list[1].ShopName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_ListSearch(t *testing.T) {
	t.Run("Should match LIKE wildcards in the search text literally", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		pattern := `%50\%\_off%`
		args := []any{pattern, pattern, pattern, pattern}
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users WHERE \\(\\(name ILIKE \\$1 OR email ILIKE \\$2").
			WithArgs(args...).
			WillReturnRows(mock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT (.+) FROM users WHERE (.+) LIMIT 10 OFFSET 0").
			WithArgs(args...).
			WillReturnRows(mock.NewRows(accountCols))

		list, total, err := repo.List(context.Background(), accounts.ListFilters{Search: " 50%_off "}, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, list)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_StatusHistory(t *testing.T) {
	t.Run("Should return events newest first", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		admin := int64(1)
		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM account_status_events WHERE account_id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(mock.NewRows([]string{"id", "account_id", "from_status", "to_status", "changed_by", "created_at"}).
				AddRow(int64(2), int64(7), accounts.StatusApproved, accounts.StatusSuspended, &admin, now).
				AddRow(int64(1), int64(7), accounts.StatusPending, accounts.StatusApproved, &admin, now.Add(-time.Hour)))

		events, err := repo.StatusHistory(context.Background(), 7)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, accounts.StatusSuspended, events[0].ToStatus)
		assert.Equal(t, accounts.StatusPending, events[1].FromStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_RefreshToken(t *testing.T) {
	t.Run("Should compare against the stored hash", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := accounts.NewRepository(mock)

		mock.ExpectExec("UPDATE users SET refresh_token = \\$1 WHERE id = \\$2").
			WithArgs(pgxmock.AnyArg(), int64(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		require.NoError(t, repo.SaveRefreshToken(context.Background(), 5, "token-abc"))

		sum := sha256.Sum256([]byte("token-abc"))
		stored := hex.EncodeToString(sum[:])
		mock.ExpectQuery("SELECT refresh_token FROM users WHERE id = \\$1").
			WithArgs(int64(5)).
			WillReturnRows(mock.NewRows([]string{"refresh_token"}).AddRow(&stored))
		mock.ExpectQuery("SELECT refresh_token FROM users WHERE id = \\$1").
			WithArgs(int64(5)).
			WillReturnRows(mock.NewRows([]string{"refresh_token"}).AddRow(&stored))

		ok, err := repo.RefreshTokenMatches(context.Background(), 5, "token-abc")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.RefreshTokenMatches(context.Background(), 5, "stolen")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
