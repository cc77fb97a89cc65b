package application

import (
	"context"
	"testing"
	"time"

	billing "shop-billing/internal/billing/domain"
	"shop-billing/internal/billing/infrastructure/memory"
)

var (
	jan1  = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	jan15 = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	jan31 = time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	feb1  = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	shops   *memory.ShopRepository
	devices *memory.DeviceRepository
	bills   *memory.BillRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		shops:   memory.NewShopRepository(),
		devices: memory.NewDeviceRepository(),
		bills:   memory.NewBillRepository(),
	}
}

// newChainFixture seeds A -> B -> C with B=100 and C=50 on 2024-01-01.
func newChainFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.shop(t, "A", "")
	f.shop(t, "B", "A")
	f.shop(t, "C", "B")
	f.bill(t, "B", billing.GranularityDay, jan1, 100, 2)
	f.bill(t, "C", billing.GranularityDay, jan1, 50, 1)
	return f
}

func (f *fixture) shop(t *testing.T, id, parentID string) {
	t.Helper()
	if err := f.shops.Save(context.Background(), billing.Shop{ID: id, Name: "Shop " + id, ParentID: parentID}); err != nil {
		t.Fatalf("save shop %s: %v", id, err)
	}
}

func (f *fixture) device(t *testing.T, id, shopID string) {
	t.Helper()
	if err := f.devices.Save(context.Background(), billing.Device{ID: id, ShopID: shopID, Name: "Device " + id}); err != nil {
		t.Fatalf("save device %s: %v", id, err)
	}
}

func (f *fixture) bill(t *testing.T, subjectID string, granularity billing.Granularity, period time.Time, amount billing.Amount, count int64) {
	t.Helper()
	err := f.bills.Save(context.Background(), billing.Bill{
		SubjectID:   subjectID,
		Granularity: granularity,
		PeriodStart: period,
		Amount:      amount,
		Count:       count,
	})
	if err != nil {
		t.Fatalf("save bill %s: %v", subjectID, err)
	}
}

func (f *fixture) resolver(t *testing.T, opts ...HierarchyOption) *HierarchyResolver {
	t.Helper()
	resolver, err := NewHierarchyResolver(f.shops, opts...)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func (f *fixture) aggregator(t *testing.T, opts ...AggregatorOption) *BillingAggregator {
	t.Helper()
	aggregator, err := NewBillingAggregator(f.resolver(t), f.devices, f.bills, opts...)
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	return aggregator
}

func (f *fixture) service(t *testing.T, opts ...AggregatorOption) *QueryService {
	t.Helper()
	aggregator := f.aggregator(t, opts...)
	service, err := NewQueryService(aggregator.resolver, aggregator)
	if err != nil {
		t.Fatalf("new query service: %v", err)
	}
	return service
}

func shopIDs(shops []billing.Shop) []string {
	ids := make([]string, len(shops))
	for i, shop := range shops {
		ids[i] = shop.ID
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
