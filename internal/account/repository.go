package account

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists account profiles.
type Repository interface {
	Create(ctx context.Context, a Account) error
	Get(ctx context.Context, id string) (Account, error)
	GetByOwner(ctx context.Context, ownerID string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	Update(ctx context.Context, a Account) error
	SetVerified(ctx context.Context, id string, verified bool) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, owner_id, first_name, middle_name, last_name, username, email, phone, country,
    date_of_birth, gender, address, city, account_number, account_type, transaction_limit::text,
    pin_hash, kyc_verified, created_at, last_login`

// Create inserts a new account row.
func (r *PostgresRepository) Create(ctx context.Context, a Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (id, owner_id, first_name, middle_name, last_name, username,
        email, phone, country, date_of_birth, gender, address, city, account_number, account_type,
        transaction_limit, pin_hash, kyc_verified, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16::numeric, $17, $18, $19)`,
		a.ID, a.OwnerID, a.FirstName, a.MiddleName, a.LastName, a.Username, a.Email, a.Phone, a.Country,
		a.DateOfBirth, a.Gender, a.Address, a.City, a.AccountNumber, a.AccountType,
		a.TransactionLimit.String(), a.PINHash, a.KYCVerified, a.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}

// Get fetches an account by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// GetByOwner fetches the account owned by a user.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1`, ownerID))
}

// List returns every account, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update writes the profile fields of a.
func (r *PostgresRepository) Update(ctx context.Context, a Account) error {
	return r.exec(ctx, `UPDATE accounts SET first_name = $2, middle_name = $3, last_name = $4, phone = $5,
        country = $6, date_of_birth = $7, gender = $8, address = $9, city = $10 WHERE id = $1`,
		a.ID, a.FirstName, a.MiddleName, a.LastName, a.Phone, a.Country, a.DateOfBirth, a.Gender, a.Address, a.City)
}

func (r *PostgresRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.exec(ctx, `UPDATE accounts SET kyc_verified = $2 WHERE id = $1`, id, verified)
}

func (r *PostgresRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET last_login = $2 WHERE id = $1`, id, at.UTC())
}

func (r *PostgresRepository) exec(ctx context.Context, sql string, args ...any) error {
	cmd, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a     Account
		limit string
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.FirstName, &a.MiddleName, &a.LastName, &a.Username, &a.Email,
		&a.Phone, &a.Country, &a.DateOfBirth, &a.Gender, &a.Address, &a.City, &a.AccountNumber,
		&a.AccountType, &limit, &a.PINHash, &a.KYCVerified, &a.CreatedAt, &a.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	if a.TransactionLimit, err = decimal.NewFromString(limit); err != nil {
		return Account{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
