package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	billing "shop-billing/internal/billing/domain"
)

// BillRepository is an in-memory bill store for demo/testing.
// Records are keyed by subject + granularity + time key, so a key holds at most one bill.
type BillRepository struct {
	mu   sync.RWMutex
	data map[string]billing.Bill
}

// NewBillRepository constructs a repository.
func NewBillRepository() *BillRepository {
	return &BillRepository{data: make(map[string]billing.Bill)}
}

// Save upserts a bill.
func (r *BillRepository) Save(ctx context.Context, bill billing.Bill) error {
	_ = ctx
	if err := bill.Validate(); err != nil {
		return err
	}
	start, err := billing.PeriodStart(bill.Granularity, bill.PeriodStart)
	if err != nil {
		return err
	}
	bill.PeriodStart = start
	key, err := storageKey(bill.Key())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = bill
	return nil
}

// Get loads the bill for key, or nil when none exists.
func (r *BillRepository) Get(ctx context.Context, key billing.BillKey) (*billing.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key.SubjectID == "" {
		return nil, errors.New("memory bill repo: empty subject id")
	}
	k, err := storageKey(key)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	bill, ok := r.data[k]
	if !ok {
		return nil, nil
	}
	return &bill, nil
}

// ListBySubjects returns the bills of the subjects within the period range.
func (r *BillRepository) ListBySubjects(ctx context.Context, subjectIDs []string, granularity billing.Granularity, startInclusive, endExclusive time.Time) ([]billing.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !granularity.IsValid() {
		return nil, billing.ErrInvalidGranularity
	}
	if startInclusive.IsZero() || endExclusive.IsZero() {
		return nil, billing.ErrInvalidPeriodStart
	}

	wanted := make(map[string]struct{}, len(subjectIDs))
	for _, id := range subjectIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []billing.Bill
	for _, bill := range r.data {
		if bill.Granularity != granularity {
			continue
		}
		if _, ok := wanted[bill.SubjectID]; !ok {
			continue
		}
		if bill.PeriodStart.Before(startInclusive) || !bill.PeriodStart.Before(endExclusive) {
			continue
		}
		result = append(result, bill)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PeriodStart.Equal(result[j].PeriodStart) {
			return result[i].PeriodStart.Before(result[j].PeriodStart)
		}
		return result[i].SubjectID < result[j].SubjectID
	})
	return result, nil
}

func storageKey(key billing.BillKey) (string, error) {
	timeKey, err := billing.NewTimeKey(key.Granularity, key.PeriodStart.UTC())
	if err != nil {
		return "", err
	}
	return key.SubjectID + "|" + string(key.Granularity) + "|" + timeKey.String(), nil
}
