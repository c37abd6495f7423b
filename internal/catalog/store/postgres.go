// Package store contains the two persistence backends for the catalog. Both
// satisfy the same contract: opaque string ids, uniform error kinds, and
// all-or-nothing batch inserts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"product-catalog/internal/catalog"
)

const healthCheckTimeout = 2 * time.Second

// Postgres persists products in a relational table with a BIGSERIAL id.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// parseID rejects anything that is not a decimal integer. Malformed ids are
// a caller mistake, not a store failure, and must never reach the database.
func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, catalog.ErrInvalidID
	}
	return n, nil
}

func formatID(n int64) string {
	return strconv.FormatInt(n, 10)
}

func (s *Postgres) List(ctx context.Context) ([]catalog.Product, error) {
	query := `
		SELECT id, name, price
		FROM products
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	list := make([]catalog.Product, 0)
	for rows.Next() {
		var id int64
		var p catalog.Product
		if err := rows.Scan(&id, &p.Name, &p.Price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.ID = formatID(id)
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return list, nil
}

func (s *Postgres) GetByID(ctx context.Context, id string) (catalog.Product, error) {
	n, err := parseID(id)
	if err != nil {
		return catalog.Product{}, err
	}

	query := `SELECT id, name, price FROM products WHERE id = $1`

	var got int64
	var p catalog.Product
	if err := s.db.QueryRowContext(ctx, query, n).Scan(&got, &p.Name, &p.Price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	p.ID = formatID(got)
	return p, nil
}

// InsertMany persists the whole batch inside a single transaction. A failure
// on any item rolls the transaction back, so a mid-batch error leaves zero
// rows rather than a partially-written batch.
func (s *Postgres) InsertMany(ctx context.Context, items []catalog.NewProduct) ([]catalog.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (name, price)
		VALUES ($1, $2)
		RETURNING id
	`

	created := make([]catalog.Product, 0, len(items))
	for _, item := range items {
		var id int64
		if err := tx.QueryRowContext(ctx, query, item.Name, item.Price).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert product %q: %w", item.Name, err)
		}
		created = append(created, catalog.Product{ID: formatID(id), Name: item.Name, Price: item.Price})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch insert: %w", err)
	}

	return created, nil
}

func (s *Postgres) UpdateByID(ctx context.Context, id string, fields catalog.NewProduct) (catalog.Product, error) {
	n, err := parseID(id)
	if err != nil {
		return catalog.Product{}, err
	}

	query := `
		UPDATE products
		SET name = $2, price = $3
		WHERE id = $1
		RETURNING id, name, price
	`

	var got int64
	var p catalog.Product
	if err := s.db.QueryRowContext(ctx, query, n, fields.Name, fields.Price).Scan(&got, &p.Name, &p.Price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	p.ID = formatID(got)
	return p, nil
}

func (s *Postgres) DeleteByID(ctx context.Context, id string) (catalog.Product, error) {
	n, err := parseID(id)
	if err != nil {
		return catalog.Product{}, err
	}

	query := `
		DELETE FROM products
		WHERE id = $1
		RETURNING id, name, price
	`

	var got int64
	var p catalog.Product
	if err := s.db.QueryRowContext(ctx, query, n).Scan(&got, &p.Name, &p.Price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("delete product %s: %w", id, err)
	}
	p.ID = formatID(got)
	return p, nil
}

// Reset empties the table and restarts the id sequence from 1. Safe to call
// on an already-empty table.
func (s *Postgres) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE products RESTART IDENTITY`); err != nil {
		return fmt.Errorf("reset products: %w", err)
	}
	return nil
}

func (s *Postgres) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrStoreUnavailable, err)
	}
	return nil
}
