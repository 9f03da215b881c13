package settings

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores settings documents as JSON by name.
type Repository interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, value []byte, updatedBy string) error
}

// PostgresRepository stores settings in the platform_settings table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, name string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRow(ctx, `SELECT value FROM platform_settings WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return value, err
}

func (r *PostgresRepository) Put(ctx context.Context, name string, value []byte, updatedBy string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO platform_settings (name, value, updated_at, updated_by)
        VALUES ($1, $2, NOW(), $3)
        ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW(), updated_by = EXCLUDED.updated_by`,
		name, value, updatedBy)
	return err
}

type memoryRepository struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryRepository builds an in-memory settings store.
func NewMemoryRepository() Repository {
	return &memoryRepository{values: make(map[string][]byte)}
}

func (r *memoryRepository) Get(_ context.Context, name string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (r *memoryRepository) Put(_ context.Context, name string, value []byte, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = append([]byte(nil), value...)
	return nil
}
