package accounts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"medimart/internal/infra/dbx"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, account *Account) error
	EnsureAdmin(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context, filters ListFilters, limit, offset int) ([]*Account, int, error)
	ChangeStatus(ctx context.Context, id int64, to Status, changedBy int64) (*Account, Status, error)
	StatusHistory(ctx context.Context, id int64) ([]StatusEvent, error)
	SaveRefreshToken(ctx context.Context, id int64, refreshToken string) error
	RefreshTokenMatches(ctx context.Context, id int64, refreshToken string) (bool, error)
	DeleteRefreshToken(ctx context.Context, id int64) error
}

type Repository struct {
	db dbx.TxBeginner
}

func NewRepository(db dbx.TxBeginner) Store {
	return &Repository{db: db}
}

var accountColumns = []string{
	"id", "name", "email", "phone", "address", "shop_name",
	"role", "status", "password", "created_at", "updated_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func scanAccount(row pgx.Row, a *Account) error {
	return row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.Phone,
		&a.Address,
		&a.ShopName,
		&a.Role,
		&a.Status,
		&a.Password.hash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
}

// Create inserts a new account. Registration always starts in PENDING no
// matter what the caller put on the struct.
func (r *Repository) Create(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO users (name, email, phone, address, shop_name, role, status, password)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, status, created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(
		ctx, query,
		account.Name, account.Email, account.Phone, account.Address, account.ShopName,
		account.Role, StatusPending, account.Password.hash,
	).Scan(&account.ID, &account.Status, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err, "users_email_key"):
			return ErrDuplicateEmail
		case dbx.IsUniqueViolation(err, "users_phone_key"):
			return ErrDuplicatePhone
		default:
			return fmt.Errorf("create account: %w", err)
		}
	}
	return nil
}

// EnsureAdmin creates an approved administrator, or promotes the existing
// account with the same email. Used by the seed command only. Promotion skips
// ValidateTransition, so a status change is recorded with no actor.
func (r *Repository) EnsureAdmin(ctx context.Context, account *Account) error {
	account.Email = NormalizeEmail(account.Email)

	return dbx.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		existing := &Account{}
		query := `SELECT ` + strings.Join(accountColumns, ", ") + ` FROM users WHERE lower(email) = $1 FOR UPDATE`
		err := scanAccount(tx.QueryRow(ctx, query, account.Email), existing)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			err = tx.QueryRow(ctx, `
				INSERT INTO users (name, email, phone, address, shop_name, role, status, password)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id, role, status, created_at, updated_at`,
				account.Name, account.Email, account.Phone, account.Address, account.ShopName,
				RoleAdmin, StatusApproved, account.Password.hash,
			).Scan(&account.ID, &account.Role, &account.Status, &account.CreatedAt, &account.UpdatedAt)
			if err != nil {
				return fmt.Errorf("ensure admin: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("lock account: %w", err)
		}

		err = tx.QueryRow(ctx,
			`UPDATE users SET role = $1, status = $2, updated_at = NOW() WHERE id = $3 RETURNING updated_at`,
			RoleAdmin, StatusApproved, existing.ID,
		).Scan(&existing.UpdatedAt)
		if err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}

		if existing.Status != StatusApproved {
			_, err = tx.Exec(ctx,
				`INSERT INTO account_status_events (account_id, from_status, to_status, changed_by) VALUES ($1, $2, $3, NULL)`,
				existing.ID, existing.Status, StatusApproved,
			)
			if err != nil {
				return fmt.Errorf("record status event: %w", err)
			}
		}

		existing.Role = RoleAdmin
		existing.Status = StatusApproved
		*account = *existing
		return nil
	})
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT ` + strings.Join(accountColumns, ", ") + ` FROM users WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	account := &Account{}
	if err := scanAccount(r.db.QueryRow(ctx, query, id), account); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT ` + strings.Join(accountColumns, ", ") + ` FROM users WHERE lower(email) = lower($1)`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	account := &Account{}
	if err := scanAccount(r.db.QueryRow(ctx, query, email), account); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return account, nil
}

func listConditions(f ListFilters) squirrel.And {
	conds := squirrel.And{}
	if f.Status != "" {
		conds = append(conds, squirrel.Eq{"status": f.Status})
	}
	if f.Role != "" {
		conds = append(conds, squirrel.Eq{"role": f.Role})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := dbx.ContainsPattern(s)
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"name": like},
			squirrel.ILike{"email": like},
			squirrel.ILike{"phone": like},
			squirrel.ILike{"shop_name": like},
		})
	}
	return conds
}

// List returns one page of accounts, newest first, and the total matching count.
func (r *Repository) List(ctx context.Context, filters ListFilters, limit, offset int) ([]*Account, int, error) {
	conds := listConditions(filters)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("users").Where(conds).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	query, args, err := psql.Select(accountColumns...).
		From("users").
		Where(conds).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*Account, 0, limit)
	for rows.Next() {
		a := &Account{}
		if err := scanAccount(rows, a); err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration: %w", err)
	}

	return accounts, total, nil
}

// ChangeStatus moves an account to status to. The row is locked for the
// duration of the check so concurrent changes validate against each other's
// result. It returns the updated account and the status it had before.
func (r *Repository) ChangeStatus(ctx context.Context, id int64, to Status, changedBy int64) (*Account, Status, error) {
	var (
		account *Account
		from    Status
	)

	err := dbx.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		a := &Account{}
		query := `SELECT ` + strings.Join(accountColumns, ", ") + ` FROM users WHERE id = $1 FOR UPDATE`
		if err := scanAccount(tx.QueryRow(ctx, query, id), a); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock account: %w", err)
		}

		if err := ValidateTransition(a.Status, to); err != nil {
			return err
		}

		from = a.Status
		err := tx.QueryRow(ctx,
			`UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
			to, id,
		).Scan(&a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		a.Status = to

		var actor *int64
		if changedBy > 0 {
			actor = &changedBy
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO account_status_events (account_id, from_status, to_status, changed_by) VALUES ($1, $2, $3, $4)`,
			id, from, to, actor,
		)
		if err != nil {
			return fmt.Errorf("record status event: %w", err)
		}

		account = a
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return account, from, nil
}

func (r *Repository) StatusHistory(ctx context.Context, id int64) ([]StatusEvent, error) {
	query := `
		SELECT id, account_id, from_status, to_status, changed_by, created_at
		FROM account_status_events
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`

	events := []StatusEvent{}
	if err := pgxscan.Select(ctx, r.db, &events, query, id); err != nil {
		return nil, fmt.Errorf("status history: %w", err)
	}
	return events, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *Repository) SaveRefreshToken(ctx context.Context, id int64, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE users SET refresh_token = $1 WHERE id = $2`, hashToken(refreshToken), id)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) RefreshTokenMatches(ctx context.Context, id int64, refreshToken string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var stored *string
	err := r.db.QueryRow(ctx, `SELECT refresh_token FROM users WHERE id = $1`, id).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("get refresh token: %w", err)
	}
	return stored != nil && *stored == hashToken(refreshToken), nil
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE users SET refresh_token = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
