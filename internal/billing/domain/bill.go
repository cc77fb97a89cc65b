package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Granularity is the time bucket of a bill.
type Granularity string

const (
	GranularityDay   Granularity = "DAY"
	GranularityMonth Granularity = "MONTH"
)

// IsValid reports whether the granularity is supported.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDay, GranularityMonth:
		return true
	default:
		return false
	}
}

// Amount is a monetary value in minor units (cents).
type Amount int64

// minorUnitExp is the exponent of the minor unit relative to the major unit.
const minorUnitExp = -2

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), minorUnitExp)
}

// String renders the amount with two fraction digits, e.g. "12.34".
func (a Amount) String() string {
	return a.Decimal().StringFixed(-minorUnitExp)
}

// BillKey identifies at most one bill record.
type BillKey struct {
	SubjectID   string
	Granularity Granularity
	PeriodStart time.Time
}

// Bill is the billing total of a shop or device over one period.
// A zero Amount and Count with a valid key means verified inactivity.
type Bill struct {
	SubjectID   string
	Granularity Granularity
	PeriodStart time.Time
	Amount      Amount
	Count       int64
}

// Key returns the unique key of the bill.
func (b Bill) Key() BillKey {
	return BillKey{SubjectID: b.SubjectID, Granularity: b.Granularity, PeriodStart: b.PeriodStart}
}

// IsZero reports whether the bill records no activity.
func (b Bill) IsZero() bool { return b.Amount == 0 && b.Count == 0 }

// Validate checks bill invariants.
func (b Bill) Validate() error {
	if b.SubjectID == "" {
		return ErrInvalidArgument
	}
	if !b.Granularity.IsValid() {
		return ErrInvalidGranularity
	}
	if b.PeriodStart.IsZero() {
		return ErrInvalidPeriodStart
	}
	if b.Count < 0 {
		return ErrNegativeCount
	}
	return nil
}

// ZeroBill returns the bill representing no activity for a subject and period.
func ZeroBill(subjectID string, granularity Granularity, periodStart time.Time) Bill {
	return Bill{SubjectID: subjectID, Granularity: granularity, PeriodStart: periodStart}
}

// Add folds another bill's totals into b.
func (b Bill) Add(other Bill) Bill {
	b.Amount += other.Amount
	b.Count += other.Count
	return b
}
