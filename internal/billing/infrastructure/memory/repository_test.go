package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	billing "shop-billing/internal/billing/domain"
)

func TestShopRepositoryOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewShopRepository()
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, shop := range []billing.Shop{
		{ID: "late", ParentID: "root", CreatedAt: created.Add(time.Hour)},
		{ID: "root", CreatedAt: created},
		{ID: "early", ParentID: "root", CreatedAt: created.Add(time.Minute)},
		{ID: "tie", ParentID: "root", CreatedAt: created.Add(time.Minute)},
	} {
		if err := repo.Save(ctx, shop); err != nil {
			t.Fatalf("save %s: %v", shop.ID, err)
		}
	}

	children, err := repo.ListChildren(ctx, "root")
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	got := make([]string, len(children))
	for i, shop := range children {
		got[i] = shop.ID
	}
	want := []string{"early", "tie", "late"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: %v", got)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 || all[0].ID != "root" {
		t.Fatalf("unexpected list: %+v", all)
	}
}

func TestShopRepositoryGetMissing(t *testing.T) {
	repo := NewShopRepository()
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, billing.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestShopRepositoryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewShopRepository().List(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBillRepositoryUpsertKeepsOneRecordPerKey(t *testing.T) {
	ctx := context.Background()
	repo := NewBillRepository()
	day := time.Date(2024, time.January, 1, 15, 30, 0, 0, time.UTC)
	first := billing.Bill{SubjectID: "s1", Granularity: billing.GranularityDay, PeriodStart: day, Amount: 10, Count: 1}
	second := first
	second.Amount = 25
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	bills, err := repo.ListBySubjects(ctx, []string{"s1"}, billing.GranularityDay, start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bills) != 1 || bills[0].Amount != 25 {
		t.Fatalf("expected single upserted bill, got %+v", bills)
	}
	if !bills[0].PeriodStart.Equal(start) {
		t.Fatalf("period start not normalized: %s", bills[0].PeriodStart)
	}
}

func TestBillRepositoryGetAbsent(t *testing.T) {
	repo := NewBillRepository()
	bill, err := repo.Get(context.Background(), billing.BillKey{
		SubjectID:   "s1",
		Granularity: billing.GranularityMonth,
		PeriodStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if bill != nil {
		t.Fatalf("expected nil bill, got %+v", bill)
	}
}

func TestBillRepositoryRangeExcludesEnd(t *testing.T) {
	ctx := context.Background()
	repo := NewBillRepository()
	jan31 := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	feb1 := jan31.AddDate(0, 0, 1)
	for _, day := range []time.Time{jan31, feb1} {
		if err := repo.Save(ctx, billing.Bill{SubjectID: "s1", Granularity: billing.GranularityDay, PeriodStart: day, Amount: 1}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	bills, err := repo.ListBySubjects(ctx, []string{"s1"}, billing.GranularityDay, jan31.AddDate(0, 0, -30), feb1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bills) != 1 || !bills[0].PeriodStart.Equal(jan31) {
		t.Fatalf("unexpected bills: %+v", bills)
	}
}

func TestDeviceRepositoryListByShop(t *testing.T) {
	ctx := context.Background()
	repo := NewDeviceRepository()
	for _, device := range []billing.Device{
		{ID: "d1", ShopID: "s1"},
		{ID: "d2", ShopID: "s2"},
		{ID: "d3", ShopID: "s1"},
	} {
		if err := repo.Save(ctx, device); err != nil {
			t.Fatalf("save %s: %v", device.ID, err)
		}
	}
	devices, err := repo.ListByShop(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(devices) != 2 || devices[0].ID != "d1" || devices[1].ID != "d3" {
		t.Fatalf("unexpected devices: %+v", devices)
	}
	none, err := repo.ListByShop(ctx, "s9")
	if err != nil {
		t.Fatalf("list empty shop: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no devices, got %+v", none)
	}
}
