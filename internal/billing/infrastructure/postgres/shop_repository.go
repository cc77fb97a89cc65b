package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	billing "shop-billing/internal/billing/domain"
)

const defaultShopsTable = "shops"

// ShopRepository is a Postgres implementation for the shop hierarchy.
type ShopRepository struct {
	pool  *Pool
	table string
}

// NewShopRepository constructs a repository.
func NewShopRepository(pool *Pool, opts ...ShopOption) *ShopRepository {
	repo := &ShopRepository{pool: pool, table: defaultShopsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ShopOption configures the repository.
type ShopOption func(*ShopRepository)

// WithShopTable overrides the default table name.
func WithShopTable(table string) ShopOption {
	return func(repo *ShopRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a shop by id.
func (r *ShopRepository) Get(ctx context.Context, id string) (*billing.Shop, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("shop repo: nil pool")
	}
	if id == "" {
		return nil, errors.New("shop repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, name, COALESCE(parent_id, ''), created_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var shop billing.Shop
	err := r.pool.withConn(ctx, func(conn DBTX) error {
		if err := scanShop(conn.QueryRow(ctx, query, id), &shop); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: shop %s", billing.ErrNotFound, id)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

// ListChildren loads the direct children of a shop in creation order.
func (r *ShopRepository) ListChildren(ctx context.Context, parentID string) ([]billing.Shop, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("shop repo: nil pool")
	}
	if parentID == "" {
		return nil, errors.New("shop repo: empty parent id")
	}

	query := fmt.Sprintf(`
SELECT id, name, COALESCE(parent_id, ''), created_at
FROM %s
WHERE parent_id = $1
ORDER BY created_at ASC, id ASC`, r.table)

	return r.list(ctx, query, parentID)
}

// List loads every shop in creation order.
func (r *ShopRepository) List(ctx context.Context) ([]billing.Shop, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("shop repo: nil pool")
	}

	query := fmt.Sprintf(`
SELECT id, name, COALESCE(parent_id, ''), created_at
FROM %s
ORDER BY created_at ASC, id ASC`, r.table)

	return r.list(ctx, query)
}

func (r *ShopRepository) list(ctx context.Context, query string, args ...any) ([]billing.Shop, error) {
	var result []billing.Shop
	err := r.pool.withConn(ctx, func(conn DBTX) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var shop billing.Shop
			if err := scanShop(rows, &shop); err != nil {
				return err
			}
			result = append(result, shop)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanShop(row pgx.Row, shop *billing.Shop) error {
	if err := row.Scan(&shop.ID, &shop.Name, &shop.ParentID, &shop.CreatedAt); err != nil {
		return err
	}
	shop.CreatedAt = shop.CreatedAt.UTC()
	return nil
}
