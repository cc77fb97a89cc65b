package billing

import (
	"context"
	"time"
)

// ShopRepository reads the shop hierarchy.
// Get returns ErrNotFound for unknown ids. Lists are ordered by creation.
type ShopRepository interface {
	Get(ctx context.Context, id string) (*Shop, error)
	ListChildren(ctx context.Context, parentID string) ([]Shop, error)
	List(ctx context.Context) ([]Shop, error)
}

// DeviceRepository reads devices. ListByShop is ordered by creation.
type DeviceRepository interface {
	ListByShop(ctx context.Context, shopID string) ([]Device, error)
}

// BillRepository reads pre-existing bill records.
// Get returns nil, nil when no record exists for the key.
type BillRepository interface {
	Get(ctx context.Context, key BillKey) (*Bill, error)
	ListBySubjects(ctx context.Context, subjectIDs []string, granularity Granularity, startInclusive, endExclusive time.Time) ([]Bill, error)
}
