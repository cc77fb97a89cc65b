package billing

import (
	"errors"
	"testing"
	"time"
)

func TestAmountString(t *testing.T) {
	cases := map[Amount]string{0: "0.00", 5: "0.05", 10000: "100.00", 1234: "12.34", -250: "-2.50"}
	for amount, want := range cases {
		if got := amount.String(); got != want {
			t.Fatalf("amount %d: got=%s want=%s", int64(amount), got, want)
		}
	}
}

func TestBillValidate(t *testing.T) {
	day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	bill := Bill{SubjectID: "shop-1", Granularity: GranularityDay, PeriodStart: day, Amount: 100, Count: 1}
	if err := bill.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	bill.Count = -1
	if err := bill.Validate(); !errors.Is(err, ErrNegativeCount) {
		t.Fatalf("expected ErrNegativeCount, got %v", err)
	}
}

func TestZeroBillAdd(t *testing.T) {
	day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	total := ZeroBill("shop-1", GranularityMonth, day)
	if !total.IsZero() {
		t.Fatalf("expected zero bill")
	}
	total = total.Add(Bill{Amount: 100, Count: 2}).Add(Bill{Amount: 50, Count: 1})
	if total.Amount != 150 || total.Count != 3 {
		t.Fatalf("unexpected totals: amount=%d count=%d", total.Amount, total.Count)
	}
	if total.SubjectID != "shop-1" || total.Granularity != GranularityMonth {
		t.Fatalf("key fields must be preserved: %+v", total)
	}
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"A", "shop-001", "10023", "shop_1.b"} {
		if err := ValidateID(id); err != nil {
			t.Fatalf("id %q: %v", id, err)
		}
	}
	for _, id := range []string{"", "-shop", "shop 1", "shop/1", "all;drop"} {
		if err := ValidateID(id); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("id %q: expected ErrInvalidArgument, got %v", id, err)
		}
	}
}
