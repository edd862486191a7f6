package pricing

import (
	"testing"

	"github.com/google/uuid"
)

func TestSubtotalAndWeight(t *testing.T) {
	lines := []CartLine{
		{ProductID: uuid.New(), Qty: 2, UnitPrice: 1500, WeightGrams: 250},
		{ProductID: uuid.New(), Qty: 1, UnitPrice: 4000, WeightGrams: 1200},
		{ProductID: uuid.New(), Qty: 0, UnitPrice: 9999, WeightGrams: 9999},
	}
	if got := Subtotal(lines); got != 7000 {
		t.Fatalf("expected subtotal 7000, got %d", got)
	}
	if got := TotalWeight(lines); got != 1700 {
		t.Fatalf("expected weight 1700, got %d", got)
	}
}

func TestAssembleInvariant(t *testing.T) {
	delivery := DeliveryQuote{Label: "Standard", Amount: 900}
	charges := []ChargeLine{
		{Label: "Service", Kind: KindCharge, Calc: CalcPercent, RawValue: 1000, Applied: 1000},
		{Label: "Loyalty", Kind: KindDiscount, Calc: CalcAmount, RawValue: 300, Applied: 300},
	}
	discount := &Discount{Code: "SUMMER25", Applied: 2500}
	totals := Assemble(10_000, delivery, charges, discount)

	want := Money(10_000 + 900 + 1000 - 300 - 2500)
	if totals.Total != want {
		t.Fatalf("expected total %d, got %d", want, totals.Total)
	}

	// Re-derive the invariant from the breakdown itself.
	derived := totals.Subtotal + totals.Delivery.Amount
	for _, c := range totals.Charges {
		if c.Kind == KindDiscount {
			derived -= c.Applied
		} else {
			derived += c.Applied
		}
	}
	if totals.Discount != nil {
		derived -= totals.Discount.Applied
	}
	if derived != totals.Total {
		t.Fatalf("breakdown does not reproduce total: %d vs %d", derived, totals.Total)
	}
}

func TestAssembleClampsToZero(t *testing.T) {
	charges := []ChargeLine{{Label: "promo", Kind: KindDiscount, Calc: CalcAmount, RawValue: 5000, Applied: 5000}}
	totals := Assemble(1000, DeliveryQuote{Amount: 0}, charges, &Discount{Code: "ALL", Applied: 1000})
	if totals.Total != 0 {
		t.Fatalf("total must clamp to zero, got %d", totals.Total)
	}
}

func TestAssembleWithoutDiscount(t *testing.T) {
	totals := Assemble(4000, DeliveryQuote{Amount: 700}, nil, nil)
	if totals.Total != 4700 {
		t.Fatalf("expected 4700, got %d", totals.Total)
	}
	if totals.Discount != nil {
		t.Fatalf("expected nil discount")
	}
}

func TestPercentOfTruncates(t *testing.T) {
	cases := []struct {
		base Money
		bps  int32
		want Money
	}{
		// 2.5% of 101 is 2.525 minor units; the fraction is dropped.
		{101, 250, 2},
		{100, 1000, 10},
		{999, 3333, 332},
		{-100, 250, 0},
		{100, 0, 0},
	}
	for _, tc := range cases {
		if got := PercentOf(tc.base, tc.bps); got != tc.want {
			t.Fatalf("PercentOf(%d, %d) = %d, want %d", tc.base, tc.bps, got, tc.want)
		}
	}
}

func TestFormatMinor(t *testing.T) {
	cases := []struct {
		amount Money
		want   string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{1234, "$12.34"},
		{-250, "-$2.50"},
	}
	for _, tc := range cases {
		if got := FormatMinor(tc.amount, "$"); got != tc.want {
			t.Fatalf("FormatMinor(%d) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}
