package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOption configures a PostgresRegistry.
type PostgresOption func(*PostgresRegistry)

// WithTableName sets the PostgreSQL table name. Default: "rollaball_issued_keys".
func WithTableName(name string) PostgresOption {
	return func(r *PostgresRegistry) {
		r.tableName = name
	}
}

// PostgresRegistry implements Registry using PostgreSQL.
type PostgresRegistry struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewPostgresRegistry creates a PostgreSQL-backed registry.
// It auto-creates the table and indexes on initialization.
func NewPostgresRegistry(ctx context.Context, pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresRegistry, error) {
	r := &PostgresRegistry{
		pool:      pool,
		tableName: defaultName,
	}
	for _, opt := range opts {
		opt(r)
	}
	if !validIdentifier.MatchString(r.tableName) {
		return nil, fmt.Errorf("invalid table name %q: must match [a-zA-Z_][a-zA-Z0-9_]*", r.tableName)
	}
	if r.pool == nil {
		return nil, errors.New("postgres registry: nil pool")
	}
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	return r, nil
}

func (r *PostgresRegistry) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id             TEXT PRIMARY KEY,
			product        TEXT NOT NULL,
			machine        TEXT NOT NULL,
			customer       TEXT NOT NULL DEFAULT '',
			activation_key TEXT NOT NULL,
			issued_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at     TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_%s_machine ON %s (machine);
		CREATE INDEX IF NOT EXISTS idx_%s_product_expires ON %s (product, expires_at);
	`, r.tableName, r.tableName, r.tableName, r.tableName, r.tableName)
	_, err := r.pool.Exec(ctx, query)
	return err
}

func (r *PostgresRegistry) Put(ctx context.Context, key IssuedKey) (*IssuedKey, error) {
	if key.IssuedAt.IsZero() {
		key.IssuedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, product, machine, customer, activation_key, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			product = EXCLUDED.product,
			machine = EXCLUDED.machine,
			customer = EXCLUDED.customer,
			activation_key = EXCLUDED.activation_key,
			expires_at = EXCLUDED.expires_at
		RETURNING issued_at
	`, r.tableName)

	err := r.pool.QueryRow(ctx, query,
		key.ID, key.Product, key.Machine, key.Customer, key.ActivationKey, key.IssuedAt, key.ExpiresAt,
	).Scan(&key.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("put issued key: %w", err)
	}
	return &key, nil
}

func (r *PostgresRegistry) Get(ctx context.Context, id string) (*IssuedKey, error) {
	query := fmt.Sprintf(`%s WHERE id = $1`, r.selectColumns())
	k, err := scanIssuedKey(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issued key: %w", err)
	}
	return k, nil
}

func (r *PostgresRegistry) ListByMachine(ctx context.Context, machine string) ([]IssuedKey, error) {
	query := fmt.Sprintf(`%s WHERE machine = $1 ORDER BY issued_at`, r.selectColumns())
	return r.list(ctx, query, machine)
}

func (r *PostgresRegistry) List(ctx context.Context, product string) ([]IssuedKey, error) {
	query := fmt.Sprintf(`%s WHERE product = $1 ORDER BY issued_at`, r.selectColumns())
	return r.list(ctx, query, product)
}

func (r *PostgresRegistry) list(ctx context.Context, query string, arg string) ([]IssuedKey, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list issued keys: %w", err)
	}
	defer rows.Close()

	var keys []IssuedKey
	for rows.Next() {
		k, err := scanIssuedKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issued key: %w", err)
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

func (r *PostgresRegistry) Count(ctx context.Context, product string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE product = $1`, r.tableName)
	var count int
	if err := r.pool.QueryRow(ctx, query, product).Scan(&count); err != nil {
		return 0, fmt.Errorf("count issued keys: %w", err)
	}
	return count, nil
}

func (r *PostgresRegistry) PruneExpired(ctx context.Context, product string, before time.Time) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE product = $1 AND expires_at IS NOT NULL AND expires_at < $2`, r.tableName)
	tag, err := r.pool.Exec(ctx, query, product, before)
	if err != nil {
		return 0, fmt.Errorf("prune issued keys: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRegistry) Close(_ context.Context) error {
	return nil // caller manages the pgxpool.Pool lifecycle
}

func (r *PostgresRegistry) selectColumns() string {
	return fmt.Sprintf(`SELECT id, product, machine, customer, activation_key, issued_at, expires_at FROM %s`, r.tableName)
}

func scanIssuedKey(row pgx.Row) (*IssuedKey, error) {
	var k IssuedKey
	if err := row.Scan(&k.ID, &k.Product, &k.Machine, &k.Customer, &k.ActivationKey, &k.IssuedAt, &k.ExpiresAt); err != nil {
		return nil, err
	}
	return &k, nil
}
