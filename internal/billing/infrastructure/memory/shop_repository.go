package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	billing "shop-billing/internal/billing/domain"
)

// ShopRepository is an in-memory shop store for demo/testing.
type ShopRepository struct {
	mu    sync.RWMutex
	data  map[string]billing.Shop
	order map[string]int
	next  int
}

// NewShopRepository constructs a repository.
func NewShopRepository() *ShopRepository {
	return &ShopRepository{
		data:  make(map[string]billing.Shop),
		order: make(map[string]int),
	}
}

// Save upserts a shop. Re-saving keeps the first creation position.
func (r *ShopRepository) Save(ctx context.Context, shop billing.Shop) error {
	_ = ctx
	if err := shop.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.order[shop.ID]; !ok {
		r.order[shop.ID] = r.next
		r.next++
	}
	r.data[shop.ID] = shop
	return nil
}

// Get loads a shop by id.
func (r *ShopRepository) Get(ctx context.Context, id string) (*billing.Shop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.New("memory shop repo: empty id")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	shop, ok := r.data[id]
	if !ok {
		return nil, billing.ErrNotFound
	}
	return &shop, nil
}

// ListChildren returns the direct children of parentID in creation order.
func (r *ShopRepository) ListChildren(ctx context.Context, parentID string) ([]billing.Shop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if parentID == "" {
		return nil, errors.New("memory shop repo: empty parent id")
	}
	return r.collect(func(shop billing.Shop) bool { return shop.ParentID == parentID }), nil
}

// List returns every shop in creation order.
func (r *ShopRepository) List(ctx context.Context) ([]billing.Shop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.collect(func(billing.Shop) bool { return true }), nil
}

func (r *ShopRepository) collect(keep func(billing.Shop) bool) []billing.Shop {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]billing.Shop, 0, len(r.data))
	for _, shop := range r.data {
		if keep(shop) {
			result = append(result, shop)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return r.order[result[i].ID] < r.order[result[j].ID]
	})
	return result
}
