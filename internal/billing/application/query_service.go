package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	billing "shop-billing/internal/billing/domain"
	"shop-billing/internal/observability/metrics"
)

// ScopeAll selects every shop in subtree queries.
const ScopeAll = "all"

// QueryService is the single entry point used by transports.
// It validates raw ids and dates before any store is touched.
type QueryService struct {
	resolver   *HierarchyResolver
	aggregator *BillingAggregator
}

// NewQueryService constructs a QueryService.
func NewQueryService(resolver *HierarchyResolver, aggregator *BillingAggregator) (*QueryService, error) {
	if resolver == nil {
		return nil, errors.New("query service: nil hierarchy resolver")
	}
	if aggregator == nil {
		return nil, errors.New("query service: nil billing aggregator")
	}
	return &QueryService{resolver: resolver, aggregator: aggregator}, nil
}

// ListShops returns every shop.
func (s *QueryService) ListShops(ctx context.Context) (shops []billing.Shop, err error) {
	defer observe("list_shops", time.Now(), &err)
	return s.resolver.Shops(ctx)
}

// GetShop returns one shop or ErrNotFound.
func (s *QueryService) GetShop(ctx context.Context, shopID string) (shop *billing.Shop, err error) {
	defer observe("get_shop", time.Now(), &err)
	if err := billing.ValidateID(shopID); err != nil {
		return nil, err
	}
	return s.resolver.Shop(ctx, shopID)
}

// Ancestors returns the shop's parent chain, nearest first.
func (s *QueryService) Ancestors(ctx context.Context, shopID string) (chain []billing.Shop, err error) {
	defer observe("ancestors", time.Now(), &err)
	if err := billing.ValidateID(shopID); err != nil {
		return nil, err
	}
	return s.resolver.AncestorsOf(ctx, shopID)
}

// SubShops returns the shops in a subtree scope, root first.
func (s *QueryService) SubShops(ctx context.Context, rootID string) (shops []billing.Shop, err error) {
	defer observe("sub_shops", time.Now(), &err)
	root, err := parseScope(rootID)
	if err != nil {
		return nil, err
	}
	return s.resolver.SubtreeShops(ctx, root)
}

// DailyBill returns a shop's bill for a calendar date.
func (s *QueryService) DailyBill(ctx context.Context, shopID, date string) (bill billing.Bill, err error) {
	defer observe("daily_bill", time.Now(), &err)
	return s.singleBill(ctx, shopID, date, billing.GranularityDay)
}

// MonthlyBill returns a shop's bill for a month.
func (s *QueryService) MonthlyBill(ctx context.Context, shopID, yearMonth string) (bill billing.Bill, err error) {
	defer observe("monthly_bill", time.Now(), &err)
	return s.singleBill(ctx, shopID, yearMonth, billing.GranularityMonth)
}

// DailyBillsForSubtree returns daily bills keyed by shop id for a subtree or "all".
func (s *QueryService) DailyBillsForSubtree(ctx context.Context, rootID, date string) (bills map[string]billing.Bill, err error) {
	defer observe("daily_bills_subtree", time.Now(), &err)
	return s.subtreeBills(ctx, rootID, date, billing.GranularityDay)
}

// MonthlyBillsForSubtree returns monthly bills keyed by shop id for a subtree or "all".
func (s *QueryService) MonthlyBillsForSubtree(ctx context.Context, rootID, yearMonth string) (bills map[string]billing.Bill, err error) {
	defer observe("monthly_bills_subtree", time.Now(), &err)
	return s.subtreeBills(ctx, rootID, yearMonth, billing.GranularityMonth)
}

// DeviceDailyBills returns daily bills keyed by device id for the shop's own devices.
func (s *QueryService) DeviceDailyBills(ctx context.Context, shopID, date string) (bills map[string]billing.Bill, err error) {
	defer observe("device_daily_bills", time.Now(), &err)
	if err := billing.ValidateID(shopID); err != nil {
		return nil, err
	}
	day, err := billing.ParseAccountingDate(date)
	if err != nil {
		return nil, err
	}
	return s.aggregator.DeviceBillsFor(ctx, shopID, day)
}

// DailyBillHistory returns a shop's stored daily bills from from to to, both inclusive.
// An empty from or to leaves that end of the range open.
func (s *QueryService) DailyBillHistory(ctx context.Context, shopID, from, to string) (bills []billing.Bill, err error) {
	defer observe("daily_bill_history", time.Now(), &err)
	if err := billing.ValidateID(shopID); err != nil {
		return nil, err
	}
	start, end, err := historyRange(billing.GranularityDay, from, to)
	if err != nil {
		return nil, err
	}
	return s.aggregator.DailyBillHistory(ctx, shopID, start, end)
}

// MonthlyBillHistory returns a shop's monthly bills from month from to month to, both inclusive.
// An empty from or to leaves that end of the range open.
func (s *QueryService) MonthlyBillHistory(ctx context.Context, shopID, from, to string) (bills []billing.Bill, err error) {
	defer observe("monthly_bill_history", time.Now(), &err)
	if err := billing.ValidateID(shopID); err != nil {
		return nil, err
	}
	start, end, err := historyRange(billing.GranularityMonth, from, to)
	if err != nil {
		return nil, err
	}
	return s.aggregator.MonthlyBillHistory(ctx, shopID, start, end)
}

// historyRange parses inclusive period bounds into [start, end).
func historyRange(granularity billing.Granularity, from, to string) (time.Time, time.Time, error) {
	start, end := billing.HistoryFloor, billing.HistoryCeiling
	if strings.TrimSpace(from) != "" {
		parsed, err := billing.ParsePeriod(granularity, from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if strings.TrimSpace(to) != "" {
		last, err := billing.ParsePeriod(granularity, to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if last.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to %s before from %s", billing.ErrInvalidArgument, to, from)
		}
		end, err = billing.PeriodEnd(granularity, last)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from %s after open range end", billing.ErrInvalidArgument, from)
	}
	return start, end, nil
}

// ReportLine is one shop's row in a bill report.
type ReportLine struct {
	Shop billing.Shop
	Bill billing.Bill
}

// BillReport is a subtree's bills for one period, in subtree order.
type BillReport struct {
	Scope       string
	Granularity billing.Granularity
	PeriodStart time.Time
	Lines       []ReportLine
	Total       billing.Bill
}

// BillReport builds an exportable report for a subtree scope.
func (s *QueryService) BillReport(ctx context.Context, rootID, period, granularity string) (report *BillReport, err error) {
	defer observe("bill_report", time.Now(), &err)
	root, err := parseScope(rootID)
	if err != nil {
		return nil, err
	}
	g, err := billing.ParseGranularity(granularity)
	if err != nil {
		return nil, err
	}
	start, err := billing.ParsePeriod(g, period)
	if err != nil {
		return nil, err
	}

	shops, err := s.resolver.SubtreeShops(ctx, root)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(shops))
	for i, shop := range shops {
		ids[i] = shop.ID
	}
	bills, err := s.aggregator.BillsForSubjects(ctx, ids, start, g)
	if err != nil {
		return nil, err
	}

	scope := root
	if scope == "" {
		scope = ScopeAll
	}
	report = &BillReport{
		Scope:       scope,
		Granularity: g,
		PeriodStart: start,
		Lines:       make([]ReportLine, 0, len(shops)),
		Total:       billing.ZeroBill(scope, g, start),
	}
	for _, shop := range shops {
		bill := bills[shop.ID]
		report.Lines = append(report.Lines, ReportLine{Shop: shop, Bill: bill})
		report.Total = report.Total.Add(bill)
	}
	return report, nil
}

func (s *QueryService) singleBill(ctx context.Context, shopID, period string, granularity billing.Granularity) (billing.Bill, error) {
	if err := billing.ValidateID(shopID); err != nil {
		return billing.Bill{}, err
	}
	start, err := billing.ParsePeriod(granularity, period)
	if err != nil {
		return billing.Bill{}, err
	}
	return s.aggregator.BillFor(ctx, shopID, start, granularity)
}

func (s *QueryService) subtreeBills(ctx context.Context, rootID, period string, granularity billing.Granularity) (map[string]billing.Bill, error) {
	root, err := parseScope(rootID)
	if err != nil {
		return nil, err
	}
	start, err := billing.ParsePeriod(granularity, period)
	if err != nil {
		return nil, err
	}
	bills, err := s.aggregator.BillsForSubtree(ctx, root, start, granularity)
	if err != nil {
		return nil, err
	}
	metrics.ObserveSubtreeSize(strings.ToLower(string(granularity)), len(bills))
	return bills, nil
}

// parseScope maps "all" and "" to the all-shops scope and validates anything else.
func parseScope(rootID string) (string, error) {
	if rootID == "" || strings.EqualFold(rootID, ScopeAll) {
		return "", nil
	}
	if err := billing.ValidateID(rootID); err != nil {
		return "", err
	}
	return rootID, nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveQuery(operation, billing.Code(*err), time.Since(start))
}
