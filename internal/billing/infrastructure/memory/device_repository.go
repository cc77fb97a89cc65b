package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	billing "shop-billing/internal/billing/domain"
)

// DeviceRepository is an in-memory device store for demo/testing.
type DeviceRepository struct {
	mu    sync.RWMutex
	data  map[string]billing.Device
	order map[string]int
	next  int
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{
		data:  make(map[string]billing.Device),
		order: make(map[string]int),
	}
}

// Save upserts a device.
func (r *DeviceRepository) Save(ctx context.Context, device billing.Device) error {
	_ = ctx
	if err := device.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.order[device.ID]; !ok {
		r.order[device.ID] = r.next
		r.next++
	}
	r.data[device.ID] = device
	return nil
}

// ListByShop loads the devices of a shop in creation order.
func (r *DeviceRepository) ListByShop(ctx context.Context, shopID string) ([]billing.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if shopID == "" {
		return nil, errors.New("memory device repo: empty shop id")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []billing.Device
	for _, device := range r.data {
		if device.ShopID == shopID {
			result = append(result, device)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return r.order[result[i].ID] < r.order[result[j].ID]
	})
	return result, nil
}
