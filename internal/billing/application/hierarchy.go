package application

import (
	"context"
	"errors"
	"fmt"

	billing "shop-billing/internal/billing/domain"
)

const defaultMaxDepth = 64

// HierarchyResolver computes ancestor chains and subtrees over the shop forest.
// Every walk is bounded by maxDepth so corrupt parent links cannot hang a query.
type HierarchyResolver struct {
	shops    billing.ShopRepository
	maxDepth int
}

// HierarchyOption configures the resolver.
type HierarchyOption func(*HierarchyResolver)

// WithMaxDepth overrides the depth bound used for cycle detection.
func WithMaxDepth(depth int) HierarchyOption {
	return func(r *HierarchyResolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// NewHierarchyResolver constructs a HierarchyResolver.
func NewHierarchyResolver(shops billing.ShopRepository, opts ...HierarchyOption) (*HierarchyResolver, error) {
	if shops == nil {
		return nil, errors.New("hierarchy: nil shop repository")
	}
	r := &HierarchyResolver{shops: shops, maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Shop loads a single shop.
func (r *HierarchyResolver) Shop(ctx context.Context, id string) (*billing.Shop, error) {
	return r.shops.Get(ctx, id)
}

// Shops lists every shop in creation order.
func (r *HierarchyResolver) Shops(ctx context.Context) ([]billing.Shop, error) {
	return r.shops.List(ctx)
}

// AncestorsOf returns the chain from the immediate parent up to the root.
// A root shop yields an empty chain.
func (r *HierarchyResolver) AncestorsOf(ctx context.Context, id string) ([]billing.Shop, error) {
	shop, err := r.shops.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	visited := map[string]struct{}{shop.ID: {}}
	chain := make([]billing.Shop, 0)
	for parentID := shop.ParentID; parentID != ""; {
		if len(chain) >= r.maxDepth {
			return nil, fmt.Errorf("%w: shop %s exceeds depth %d", billing.ErrCycleDetected, id, r.maxDepth)
		}
		if _, seen := visited[parentID]; seen {
			return nil, fmt.Errorf("%w: shop %s revisited from %s", billing.ErrCycleDetected, parentID, id)
		}
		parent, err := r.shops.Get(ctx, parentID)
		if err != nil {
			if errors.Is(err, billing.ErrNotFound) {
				return nil, fmt.Errorf("dangling parent %s of %s: %w", parentID, id, err)
			}
			return nil, err
		}
		visited[parentID] = struct{}{}
		chain = append(chain, *parent)
		parentID = parent.ParentID
	}
	return chain, nil
}

// SubtreeOf returns the ids of rootID and all of its descendants.
// An empty rootID selects every shop.
func (r *HierarchyResolver) SubtreeOf(ctx context.Context, rootID string) ([]string, error) {
	shops, err := r.SubtreeShops(ctx, rootID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(shops))
	for i, shop := range shops {
		ids[i] = shop.ID
	}
	return ids, nil
}

// SubtreeShops is SubtreeOf returning the shop records.
// Order is breadth-first from the root with siblings in creation order;
// for the all-shops scope it is creation order.
func (r *HierarchyResolver) SubtreeShops(ctx context.Context, rootID string) ([]billing.Shop, error) {
	if rootID == "" {
		return r.shops.List(ctx)
	}

	root, err := r.shops.Get(ctx, rootID)
	if err != nil {
		return nil, err
	}

	visited := map[string]struct{}{root.ID: {}}
	result := []billing.Shop{*root}
	level := []billing.Shop{*root}
	for depth := 0; len(level) > 0; depth++ {
		if depth > r.maxDepth {
			return nil, fmt.Errorf("%w: subtree of %s exceeds depth %d", billing.ErrCycleDetected, rootID, r.maxDepth)
		}
		var next []billing.Shop
		for _, node := range level {
			children, err := r.shops.ListChildren(ctx, node.ID)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if _, seen := visited[child.ID]; seen {
					return nil, fmt.Errorf("%w: shop %s revisited under %s", billing.ErrCycleDetected, child.ID, node.ID)
				}
				visited[child.ID] = struct{}{}
				result = append(result, child)
				next = append(next, child)
			}
		}
		level = next
	}
	return result, nil
}
