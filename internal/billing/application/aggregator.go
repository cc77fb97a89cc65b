package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	billing "shop-billing/internal/billing/domain"
	"shop-billing/internal/observability/metrics"
)

// MonthlyPolicy decides where monthly totals come from.
// An aggregator commits to one policy for its lifetime; mixing would double-count.
type MonthlyPolicy string

const (
	// MonthlyDerived sums the daily bills of the month on read.
	MonthlyDerived MonthlyPolicy = "derived"
	// MonthlyStored reads precomputed month records.
	MonthlyStored MonthlyPolicy = "stored"
)

// ParseMonthlyPolicy validates a configured policy name. Empty means derived.
func ParseMonthlyPolicy(value string) (MonthlyPolicy, error) {
	switch MonthlyPolicy(value) {
	case "", MonthlyDerived:
		return MonthlyDerived, nil
	case MonthlyStored:
		return MonthlyStored, nil
	default:
		return "", fmt.Errorf("billing: unknown monthly policy %q", value)
	}
}

const (
	defaultBatchSize   = 500
	defaultParallelism = 4
)

// BillingAggregator answers single-shop, subtree and device bill queries.
type BillingAggregator struct {
	resolver    *HierarchyResolver
	devices     billing.DeviceRepository
	bills       billing.BillRepository
	policy      MonthlyPolicy
	batchSize   int
	parallelism int
	logger      *log.Logger
}

// AggregatorOption configures the aggregator.
type AggregatorOption func(*BillingAggregator)

// WithMonthlyPolicy selects the monthly aggregation policy.
func WithMonthlyPolicy(policy MonthlyPolicy) AggregatorOption {
	return func(a *BillingAggregator) {
		if policy != "" {
			a.policy = policy
		}
	}
}

// WithBatchSize caps the number of subject ids per store call.
func WithBatchSize(size int) AggregatorOption {
	return func(a *BillingAggregator) {
		if size > 0 {
			a.batchSize = size
		}
	}
}

// WithParallelism caps concurrent store calls per query.
func WithParallelism(n int) AggregatorOption {
	return func(a *BillingAggregator) {
		if n > 0 {
			a.parallelism = n
		}
	}
}

// WithLogger sets the logger used for data anomalies.
func WithLogger(logger *log.Logger) AggregatorOption {
	return func(a *BillingAggregator) {
		a.logger = logger
	}
}

// NewBillingAggregator constructs a BillingAggregator.
func NewBillingAggregator(resolver *HierarchyResolver, devices billing.DeviceRepository, bills billing.BillRepository, opts ...AggregatorOption) (*BillingAggregator, error) {
	if resolver == nil {
		return nil, errors.New("aggregator: nil hierarchy resolver")
	}
	if devices == nil {
		return nil, errors.New("aggregator: nil device repository")
	}
	if bills == nil {
		return nil, errors.New("aggregator: nil bill repository")
	}
	a := &BillingAggregator{
		resolver:    resolver,
		devices:     devices,
		bills:       bills,
		policy:      MonthlyDerived,
		batchSize:   defaultBatchSize,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(a)
	}
	if _, err := ParseMonthlyPolicy(string(a.policy)); err != nil {
		return nil, err
	}
	return a, nil
}

// Policy returns the monthly policy in effect.
func (a *BillingAggregator) Policy() MonthlyPolicy { return a.policy }

// BillFor returns the bill of one shop for the period containing date.
// A shop without a record gets a zero-valued bill; an unknown shop is ErrNotFound.
func (a *BillingAggregator) BillFor(ctx context.Context, shopID string, date time.Time, granularity billing.Granularity) (billing.Bill, error) {
	start, err := billing.PeriodStart(granularity, date)
	if err != nil {
		return billing.Bill{}, err
	}
	if _, err := a.resolver.Shop(ctx, shopID); err != nil {
		return billing.Bill{}, err
	}

	if a.storedGranularity(granularity) == granularity {
		bill, err := a.bills.Get(ctx, billing.BillKey{SubjectID: shopID, Granularity: granularity, PeriodStart: start})
		if err != nil {
			return billing.Bill{}, err
		}
		if bill == nil {
			return billing.ZeroBill(shopID, granularity, start), nil
		}
		return *bill, nil
	}

	totals, err := a.BillsForSubjects(ctx, []string{shopID}, start, granularity)
	if err != nil {
		return billing.Bill{}, err
	}
	return totals[shopID], nil
}

// BillsForSubtree returns a bill for rootID and every descendant, zero-valued
// where there was no activity. An empty rootID covers all shops.
func (a *BillingAggregator) BillsForSubtree(ctx context.Context, rootID string, date time.Time, granularity billing.Granularity) (map[string]billing.Bill, error) {
	ids, err := a.resolver.SubtreeOf(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return a.BillsForSubjects(ctx, ids, date, granularity)
}

// DeviceBillsFor returns the daily bills of the shop's own devices.
// Devices of descendant shops are not included.
func (a *BillingAggregator) DeviceBillsFor(ctx context.Context, shopID string, date time.Time) (map[string]billing.Bill, error) {
	if _, err := a.resolver.Shop(ctx, shopID); err != nil {
		return nil, err
	}
	devices, err := a.devices.ListByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(devices))
	for i, device := range devices {
		ids[i] = device.ID
	}
	return a.BillsForSubjects(ctx, ids, date, billing.GranularityDay)
}

// DailyBillHistory returns the stored daily bills of a shop in [from, to), oldest first.
func (a *BillingAggregator) DailyBillHistory(ctx context.Context, shopID string, from, to time.Time) ([]billing.Bill, error) {
	return a.billHistory(ctx, shopID, billing.GranularityDay, from, to)
}

// MonthlyBillHistory returns a shop's monthly bills for the months in [from, to), oldest first.
// Months without activity are omitted. Under MonthlyDerived each month is the
// sum of its daily records; under MonthlyStored the month records are read.
func (a *BillingAggregator) MonthlyBillHistory(ctx context.Context, shopID string, from, to time.Time) ([]billing.Bill, error) {
	return a.billHistory(ctx, shopID, billing.GranularityMonth, from, to)
}

func (a *BillingAggregator) billHistory(ctx context.Context, shopID string, granularity billing.Granularity, from, to time.Time) ([]billing.Bill, error) {
	start, err := billing.PeriodStart(granularity, from)
	if err != nil {
		return nil, err
	}
	end, err := billing.PeriodStart(granularity, to)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: range end %s not after start %s", billing.ErrInvalidArgument, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if _, err := a.resolver.Shop(ctx, shopID); err != nil {
		return nil, err
	}

	records, err := a.bills.ListBySubjects(ctx, []string{shopID}, a.storedGranularity(granularity), start, end)
	if err != nil {
		return nil, err
	}
	seen := make(map[time.Time]struct{}, len(records))
	byPeriod := make(map[time.Time]billing.Bill)
	for _, record := range records {
		if record.SubjectID != shopID {
			continue
		}
		recordStart := record.PeriodStart.UTC()
		if _, dup := seen[recordStart]; dup {
			a.logf("billing: duplicate bill ignored subject=%s period=%s", record.SubjectID, recordStart.Format(time.RFC3339))
			metrics.IncDuplicateBill()
			continue
		}
		seen[recordStart] = struct{}{}

		period, err := billing.PeriodStart(granularity, recordStart)
		if err != nil {
			return nil, err
		}
		total, ok := byPeriod[period]
		if !ok {
			total = billing.ZeroBill(shopID, granularity, period)
		}
		byPeriod[period] = total.Add(record)
	}

	result := make([]billing.Bill, 0, len(byPeriod))
	for _, bill := range byPeriod {
		result = append(result, bill)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PeriodStart.Before(result[j].PeriodStart) })
	return result, nil
}

// BillsForSubjects returns one bill per subject for the period containing date.
// Store calls are batched and run concurrently; any failure or cancellation
// discards the whole result.
func (a *BillingAggregator) BillsForSubjects(ctx context.Context, subjectIDs []string, date time.Time, granularity billing.Granularity) (map[string]billing.Bill, error) {
	start, err := billing.PeriodStart(granularity, date)
	if err != nil {
		return nil, err
	}
	end, err := billing.PeriodEnd(granularity, start)
	if err != nil {
		return nil, err
	}

	result := make(map[string]billing.Bill, len(subjectIDs))
	unique := make([]string, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		if _, ok := result[id]; ok {
			continue
		}
		result[id] = billing.ZeroBill(id, granularity, start)
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return result, nil
	}

	storeGranularity := a.storedGranularity(granularity)
	batches := splitBatches(unique, a.batchSize)
	fetched := make([][]billing.Bill, len(batches))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.parallelism)
	for i, batch := range batches {
		i, batch := i, batch
		group.Go(func() error {
			bills, err := a.bills.ListBySubjects(groupCtx, batch, storeGranularity, start, end)
			if err != nil {
				return err
			}
			fetched[i] = bills
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[billing.BillKey]struct{})
	for _, bills := range fetched {
		for _, bill := range bills {
			total, ok := result[bill.SubjectID]
			if !ok {
				continue
			}
			key := bill.Key()
			key.PeriodStart = key.PeriodStart.UTC()
			if _, dup := seen[key]; dup {
				a.logf("billing: duplicate bill ignored subject=%s period=%s", bill.SubjectID, bill.PeriodStart.Format(time.RFC3339))
				metrics.IncDuplicateBill()
				continue
			}
			seen[key] = struct{}{}
			result[bill.SubjectID] = total.Add(bill)
		}
	}
	return result, nil
}

// storedGranularity is the record granularity read to answer a query.
func (a *BillingAggregator) storedGranularity(granularity billing.Granularity) billing.Granularity {
	if granularity == billing.GranularityMonth && a.policy == MonthlyDerived {
		return billing.GranularityDay
	}
	return granularity
}

func (a *BillingAggregator) logf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}

func splitBatches(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
