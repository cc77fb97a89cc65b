package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	billing "shop-billing/internal/billing/domain"
)

const defaultDevicesTable = "devices"

// DeviceRepository is a Postgres implementation for devices.
type DeviceRepository struct {
	pool  *Pool
	table string
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(pool *Pool, opts ...DeviceOption) *DeviceRepository {
	repo := &DeviceRepository{pool: pool, table: defaultDevicesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// DeviceOption configures the repository.
type DeviceOption func(*DeviceRepository)

// WithDeviceTable overrides the default table name.
func WithDeviceTable(table string) DeviceOption {
	return func(repo *DeviceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// ListByShop loads the devices owned by a shop in creation order.
func (r *DeviceRepository) ListByShop(ctx context.Context, shopID string) ([]billing.Device, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("device repo: nil pool")
	}
	if shopID == "" {
		return nil, errors.New("device repo: empty shop id")
	}

	query := fmt.Sprintf(`
SELECT id, shop_id, name, created_at
FROM %s
WHERE shop_id = $1
ORDER BY created_at ASC, id ASC`, r.table)

	var result []billing.Device
	err := r.pool.withConn(ctx, func(conn DBTX) error {
		rows, err := conn.Query(ctx, query, shopID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var device billing.Device
			if err := scanDevice(rows, &device); err != nil {
				return err
			}
			result = append(result, device)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanDevice(row pgx.Row, device *billing.Device) error {
	if err := row.Scan(&device.ID, &device.ShopID, &device.Name, &device.CreatedAt); err != nil {
		return err
	}
	device.CreatedAt = device.CreatedAt.UTC()
	return nil
}
