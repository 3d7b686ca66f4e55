package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
)

// LineInput is one order line priced from the frozen catalog values.
type LineInput struct {
	VariantID      uuid.UUID
	Qty            int
	UnitPriceCents int64
	TaxRateBps     int64
}

// Coupon is an optional discount. PercentOffBps and FlatOffCents are
// mutually exclusive.
type Coupon struct {
	Code          string
	PercentOffBps int64
	FlatOffCents  int64
}

// LineQuote is the priced form of one line. DiscountCents is this
// line's share of the order-level discount.
type LineQuote struct {
	VariantID      uuid.UUID
	Qty            int
	UnitPriceCents int64
	SubtotalCents  int64
	DiscountCents  int64
	TaxCents       int64
	TotalCents     int64
}

// Quote is the full price breakdown for an order.
type Quote struct {
	Lines            []LineQuote
	SubtotalCents    int64
	DiscountCents    int64
	TaxCents         int64
	DeliveryFeeCents int64
	TotalCents       int64
}

var tenThousand = decimal.NewFromInt(10000)

// Compute prices the order. Discounts are spread across lines in
// proportion to their subtotal and tax is charged on the discounted
// line amount, rounded half-up to whole cents per line. The grand
// total always equals subtotal - discount + tax + delivery fee.
func Compute(lines []LineInput, coupon *Coupon, deliveryFeeCents int64) (*Quote, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	if deliveryFeeCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee cannot be negative")
	}

	var subtotal int64
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line qty must be positive")
		}
		if line.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		if line.TaxRateBps < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate cannot be negative")
		}
		subtotal += int64(line.Qty) * line.UnitPriceCents
	}

	discount, err := discountFor(coupon, subtotal)
	if err != nil {
		return nil, err
	}

	quote := &Quote{
		Lines:            make([]LineQuote, 0, len(lines)),
		SubtotalCents:    subtotal,
		DiscountCents:    discount,
		DeliveryFeeCents: deliveryFeeCents,
	}

	subtotalDec := decimal.NewFromInt(subtotal)
	discountDec := decimal.NewFromInt(discount)
	var allocated int64

	for i, line := range lines {
		lineSubtotal := int64(line.Qty) * line.UnitPriceCents

		// The last line takes the remainder so the shares always sum
		// to the full discount.
		var lineDiscount int64
		if discount > 0 {
			if i == len(lines)-1 {
				lineDiscount = discount - allocated
			} else if subtotal > 0 {
				share := decimal.NewFromInt(lineSubtotal).
					Mul(discountDec).
					Div(subtotalDec).
					Round(0)
				lineDiscount = share.IntPart()
			}
			allocated += lineDiscount
		}

		taxable := decimal.NewFromInt(lineSubtotal - lineDiscount)
		tax := taxable.
			Mul(decimal.NewFromInt(line.TaxRateBps)).
			Div(tenThousand).
			Round(0).
			IntPart()

		quote.Lines = append(quote.Lines, LineQuote{
			VariantID:      line.VariantID,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			SubtotalCents:  lineSubtotal,
			DiscountCents:  lineDiscount,
			TaxCents:       tax,
			TotalCents:     lineSubtotal - lineDiscount + tax,
		})
		quote.TaxCents += tax
	}

	quote.TotalCents = quote.SubtotalCents - quote.DiscountCents + quote.TaxCents + quote.DeliveryFeeCents
	if quote.TotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total cannot be negative")
	}
	return quote, nil
}

func discountFor(coupon *Coupon, subtotalCents int64) (int64, error) {
	if coupon == nil {
		return 0, nil
	}
	if coupon.PercentOffBps != 0 && coupon.FlatOffCents != 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "coupon cannot mix percent and flat discounts")
	}
	if coupon.PercentOffBps < 0 || coupon.FlatOffCents < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "coupon discount cannot be negative")
	}
	if coupon.PercentOffBps > 10000 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "coupon percent cannot exceed 100%")
	}

	if coupon.PercentOffBps > 0 {
		discount := decimal.NewFromInt(subtotalCents).
			Mul(decimal.NewFromInt(coupon.PercentOffBps)).
			Div(tenThousand).
			Round(0).
			IntPart()
		return discount, nil
	}

	if coupon.FlatOffCents > subtotalCents {
		return subtotalCents, nil
	}
	return coupon.FlatOffCents, nil
}
