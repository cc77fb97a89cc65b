package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	billing "shop-billing/internal/billing/domain"
)

const defaultBillsTable = "bills"

// BillRepository is a Postgres implementation for bill records.
// The unique key is subject_id + time_type + time_key.
type BillRepository struct {
	pool  *Pool
	table string
}

// NewBillRepository constructs a repository.
func NewBillRepository(pool *Pool, opts ...BillOption) *BillRepository {
	repo := &BillRepository{pool: pool, table: defaultBillsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// BillOption configures the repository.
type BillOption func(*BillRepository)

// WithBillTable overrides the default table name.
func WithBillTable(table string) BillOption {
	return func(repo *BillRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a bill by key. It returns nil, nil when no record exists.
func (r *BillRepository) Get(ctx context.Context, key billing.BillKey) (*billing.Bill, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("bill repo: nil pool")
	}
	if key.SubjectID == "" {
		return nil, errors.New("bill repo: empty subject id")
	}
	timeKey, err := billing.NewTimeKey(key.Granularity, key.PeriodStart.UTC())
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT subject_id, time_type, period_start, amount, txn_count
FROM %s
WHERE subject_id = $1
	AND time_type = $2
	AND time_key = $3
LIMIT 1`, r.table)

	var (
		bill  billing.Bill
		found bool
	)
	err = r.pool.withConn(ctx, func(conn DBTX) error {
		row := conn.QueryRow(ctx, query, key.SubjectID, string(key.Granularity), timeKey.String())
		if err := scanBill(row, &bill); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &bill, nil
}

// ListBySubjects lists bills of the subjects whose period starts within the range.
func (r *BillRepository) ListBySubjects(ctx context.Context, subjectIDs []string, granularity billing.Granularity, startInclusive, endExclusive time.Time) ([]billing.Bill, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("bill repo: nil pool")
	}
	if !granularity.IsValid() {
		return nil, billing.ErrInvalidGranularity
	}
	if startInclusive.IsZero() || endExclusive.IsZero() {
		return nil, billing.ErrInvalidPeriodStart
	}
	if len(subjectIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT subject_id, time_type, period_start, amount, txn_count
FROM %s
WHERE subject_id = ANY($1)
	AND time_type = $2
	AND period_start >= $3
	AND period_start < $4
ORDER BY period_start ASC, subject_id ASC`, r.table)

	var result []billing.Bill
	err := r.pool.withConn(ctx, func(conn DBTX) error {
		rows, err := conn.Query(ctx, query, subjectIDs, string(granularity), startInclusive.UTC(), endExclusive.UTC())
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var bill billing.Bill
			if err := scanBill(rows, &bill); err != nil {
				return err
			}
			result = append(result, bill)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanBill(row pgx.Row, bill *billing.Bill) error {
	var (
		timeType string
		amount   int64
	)
	if err := row.Scan(&bill.SubjectID, &timeType, &bill.PeriodStart, &amount, &bill.Count); err != nil {
		return err
	}
	bill.Granularity = billing.Granularity(timeType)
	if !bill.Granularity.IsValid() {
		return fmt.Errorf("%w: bill %s has unknown time_type %q", billing.ErrStoreUnavailable, bill.SubjectID, timeType)
	}
	bill.PeriodStart = bill.PeriodStart.UTC()
	bill.Amount = billing.Amount(amount)
	return nil
}
