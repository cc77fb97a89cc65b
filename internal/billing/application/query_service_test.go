package application

import (
	"context"
	"errors"
	"testing"
	"time"

	billing "shop-billing/internal/billing/domain"
)

func TestQueryService_ChainScenario(t *testing.T) {
	f := newChainFixture(t)
	service := f.service(t)
	ctx := context.Background()

	chain, err := service.Ancestors(ctx, "C")
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if got := shopIDs(chain); !equalIDs(got, []string{"B", "A"}) {
		t.Fatalf("ancestors mismatch: %v", got)
	}

	bills, err := service.DailyBillsForSubtree(ctx, "A", "2024-01-01")
	if err != nil {
		t.Fatalf("daily subtree: %v", err)
	}
	if bills["A"].Amount != 0 || bills["B"].Amount != 100 || bills["C"].Amount != 50 || len(bills) != 3 {
		t.Fatalf("daily subtree mismatch: %+v", bills)
	}

	monthly, err := service.MonthlyBill(ctx, "B", "2024-01")
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if monthly.Amount != 100 {
		t.Fatalf("expected monthly 100, got %d", monthly.Amount)
	}

	daily, err := service.DailyBill(ctx, "C", "20240101")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if daily.Amount != 50 {
		t.Fatalf("expected daily 50, got %d", daily.Amount)
	}
}

func TestQueryService_AllScope(t *testing.T) {
	f := newChainFixture(t)
	service := f.service(t)

	for _, scope := range []string{"all", "ALL", ""} {
		bills, err := service.MonthlyBillsForSubtree(context.Background(), scope, "2024-01")
		if err != nil {
			t.Fatalf("scope %q: %v", scope, err)
		}
		if len(bills) != 3 || bills["B"].Amount != 100 {
			t.Fatalf("scope %q mismatch: %+v", scope, bills)
		}
	}
}

func TestQueryService_GetShop(t *testing.T) {
	f := newChainFixture(t)
	service := f.service(t)

	shop, err := service.GetShop(context.Background(), "B")
	if err != nil {
		t.Fatalf("get shop: %v", err)
	}
	if shop.ID != "B" || shop.ParentID != "A" {
		t.Fatalf("unexpected shop: %+v", shop)
	}

	shop, err = service.GetShop(context.Background(), "unknown")
	if !errors.Is(err, billing.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if shop != nil {
		t.Fatalf("unknown shop must not yield a placeholder, got %+v", shop)
	}

	shops, err := service.ListShops(context.Background())
	if err != nil {
		t.Fatalf("list shops: %v", err)
	}
	if !equalIDs(shopIDs(shops), []string{"A", "B", "C"}) {
		t.Fatalf("list mismatch: %v", shopIDs(shops))
	}
}

func TestQueryService_InvalidArgumentsNeverReachStores(t *testing.T) {
	f := newChainFixture(t)
	service := f.service(t)
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["bad id"] = service.GetShop(ctx, "../etc")
	_, checks["empty id"] = service.Ancestors(ctx, "")
	_, checks["bad date"] = service.DailyBill(ctx, "B", "2024-02-30")
	_, checks["bad month"] = service.MonthlyBill(ctx, "B", "2024-13")
	_, checks["bad subtree id"] = service.DailyBillsForSubtree(ctx, "A B", "2024-01-01")
	_, checks["bad subtree date"] = service.MonthlyBillsForSubtree(ctx, "A", "jan")
	_, checks["bad device date"] = service.DeviceDailyBills(ctx, "B", "01/01/2024")
	_, checks["inverted history"] = service.DailyBillHistory(ctx, "B", "2024-01-31", "2024-01-01")
	_, checks["bad granularity"] = service.BillReport(ctx, "A", "2024-01", "weekly")
	for name, err := range checks {
		if !errors.Is(err, billing.ErrInvalidArgument) {
			t.Fatalf("%s: expected ErrInvalidArgument, got %v", name, err)
		}
	}
}

func TestQueryService_DailyBillHistoryInclusive(t *testing.T) {
	f := newChainFixture(t)
	f.bill(t, "B", billing.GranularityDay, jan31, 5, 1)
	f.bill(t, "B", billing.GranularityDay, feb1, 7, 1)
	service := f.service(t)

	bills, err := service.DailyBillHistory(context.Background(), "B", "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(bills) != 2 || bills[1].Amount != 5 {
		t.Fatalf("expected jan1 and jan31 records, got %+v", bills)
	}
}

func TestQueryService_DailyBillHistoryOpenRange(t *testing.T) {
	f := newChainFixture(t)
	f.bill(t, "B", billing.GranularityDay, time.Date(1999, time.June, 3, 0, 0, 0, 0, time.UTC), 1, 1)
	f.bill(t, "B", billing.GranularityDay, feb1, 7, 1)
	service := f.service(t)

	bills, err := service.DailyBillHistory(context.Background(), "B", "", "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(bills) != 3 {
		t.Fatalf("expected whole history, got %+v", bills)
	}

	since, err := service.DailyBillHistory(context.Background(), "B", "2024-01-15", "")
	if err != nil {
		t.Fatalf("history since: %v", err)
	}
	if len(since) != 1 || !since[0].PeriodStart.Equal(feb1) {
		t.Fatalf("expected only feb1, got %+v", since)
	}

	until, err := service.DailyBillHistory(context.Background(), "B", "", "2024-01-01")
	if err != nil {
		t.Fatalf("history until: %v", err)
	}
	if len(until) != 2 {
		t.Fatalf("expected 1999 and jan1 records, got %+v", until)
	}
}

func TestQueryService_MonthlyBillHistory(t *testing.T) {
	f := newChainFixture(t)
	f.bill(t, "B", billing.GranularityDay, jan31, 5, 1)
	f.bill(t, "B", billing.GranularityDay, feb1, 7, 1)
	service := f.service(t)

	bills, err := service.MonthlyBillHistory(context.Background(), "B", "", "")
	if err != nil {
		t.Fatalf("monthly history: %v", err)
	}
	if len(bills) != 2 || bills[0].Amount != 105 || bills[1].Amount != 7 {
		t.Fatalf("unexpected monthly history: %+v", bills)
	}

	january, err := service.MonthlyBillHistory(context.Background(), "B", "2024-01", "2024-01")
	if err != nil {
		t.Fatalf("monthly history january: %v", err)
	}
	if len(january) != 1 || january[0].Amount != 105 {
		t.Fatalf("inclusive month range should hold january only, got %+v", january)
	}

	if _, err := service.MonthlyBillHistory(context.Background(), "B", "2024-02", "2024-01"); !errors.Is(err, billing.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestQueryService_BillReport(t *testing.T) {
	f := newChainFixture(t)
	service := f.service(t)

	report, err := service.BillReport(context.Background(), "B", "2024-01", "monthly")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Scope != "B" || report.Granularity != billing.GranularityMonth || !report.PeriodStart.Equal(jan1) {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if len(report.Lines) != 2 || report.Lines[0].Shop.ID != "B" || report.Lines[1].Shop.ID != "C" {
		t.Fatalf("unexpected report lines: %+v", report.Lines)
	}
	if report.Total.Amount != 150 || report.Total.Count != 3 {
		t.Fatalf("unexpected total: %+v", report.Total)
	}

	all, err := service.BillReport(context.Background(), "all", "2024-01-01", "daily")
	if err != nil {
		t.Fatalf("all report: %v", err)
	}
	if all.Scope != ScopeAll || len(all.Lines) != 3 {
		t.Fatalf("unexpected all report: %+v", all)
	}
}

func TestNewQueryService_NilDependencies(t *testing.T) {
	if _, err := NewQueryService(nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}
