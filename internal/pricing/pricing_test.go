package pricing

import (
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
)

func TestComputeSimpleTax(t *testing.T) {
	quote, err := Compute([]LineInput{
		{VariantID: uuid.New(), Qty: 2, UnitPriceCents: 10000, TaxRateBps: 500},
	}, nil, 0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if quote.SubtotalCents != 20000 {
		t.Fatalf("expected subtotal 20000, got %d", quote.SubtotalCents)
	}
	if quote.TaxCents != 1000 {
		t.Fatalf("expected tax 1000, got %d", quote.TaxCents)
	}
	if quote.TotalCents != 21000 {
		t.Fatalf("expected total 21000, got %d", quote.TotalCents)
	}
}

func TestComputePercentCoupon(t *testing.T) {
	// 10% off 300.00 with 5% tax on the discounted amount.
	quote, err := Compute([]LineInput{
		{VariantID: uuid.New(), Qty: 1, UnitPriceCents: 10000, TaxRateBps: 500},
		{VariantID: uuid.New(), Qty: 2, UnitPriceCents: 10000, TaxRateBps: 500},
	}, &Coupon{Code: "SAVE10", PercentOffBps: 1000}, 0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if quote.DiscountCents != 3000 {
		t.Fatalf("expected discount 3000, got %d", quote.DiscountCents)
	}
	if quote.TaxCents != 1350 {
		t.Fatalf("expected tax 1350, got %d", quote.TaxCents)
	}
	if quote.TotalCents != 28350 {
		t.Fatalf("expected total 28350, got %d", quote.TotalCents)
	}
}

func TestComputeFlatCouponCapped(t *testing.T) {
	quote, err := Compute([]LineInput{
		{VariantID: uuid.New(), Qty: 1, UnitPriceCents: 500},
	}, &Coupon{Code: "BIG", FlatOffCents: 10000}, 0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if quote.DiscountCents != 500 {
		t.Fatalf("flat discount should cap at subtotal, got %d", quote.DiscountCents)
	}
	if quote.TotalCents != 0 {
		t.Fatalf("expected zero total, got %d", quote.TotalCents)
	}
}

func TestComputeDeliveryFee(t *testing.T) {
	quote, err := Compute([]LineInput{
		{VariantID: uuid.New(), Qty: 1, UnitPriceCents: 10000},
	}, nil, 4900)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if quote.TotalCents != 14900 {
		t.Fatalf("expected total 14900, got %d", quote.TotalCents)
	}
}

func TestComputeDiscountAllocationSumsExactly(t *testing.T) {
	// Three odd-priced lines where proportional shares round; the
	// remainder lands on the last line so the sum is exact.
	lines := []LineInput{
		{VariantID: uuid.New(), Qty: 1, UnitPriceCents: 3333},
		{VariantID: uuid.New(), Qty: 1, UnitPriceCents: 3333},
		{VariantID: uuid.New(), Qty: 1, UnitPriceCents: 3334},
	}
	quote, err := Compute(lines, &Coupon{Code: "ODD", PercentOffBps: 1500}, 0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	var lineTotals int64
	for _, l := range quote.Lines {
		lineTotals += l.TotalCents
	}
	if lineTotals != quote.SubtotalCents-quote.DiscountCents+quote.TaxCents {
		t.Fatalf("line totals %d do not reconcile with quote %+v", lineTotals, quote)
	}
	if quote.TotalCents != quote.SubtotalCents-quote.DiscountCents+quote.TaxCents+quote.DeliveryFeeCents {
		t.Fatalf("total identity violated: %+v", quote)
	}
}

func TestComputeValidation(t *testing.T) {
	if _, err := Compute(nil, nil, 0); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for no lines")
	}
	if _, err := Compute([]LineInput{{Qty: 0, UnitPriceCents: 100}}, nil, 0); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for zero qty")
	}
	if _, err := Compute([]LineInput{{Qty: 1, UnitPriceCents: -1}}, nil, 0); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for negative price")
	}
	if _, err := Compute([]LineInput{{Qty: 1, UnitPriceCents: 100}}, &Coupon{PercentOffBps: 20000}, 0); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for >100%% coupon")
	}
	if _, err := Compute([]LineInput{{Qty: 1, UnitPriceCents: 100}}, &Coupon{PercentOffBps: 100, FlatOffCents: 100}, 0); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for mixed coupon")
	}
	if _, err := Compute([]LineInput{{Qty: 1, UnitPriceCents: 100}}, nil, -1); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for negative fee")
	}
}
