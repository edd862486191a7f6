package pricing

import "github.com/google/uuid"

// CartLine describes a line item used for totals calculation. Lines are
// supplied per call and never persisted by this package.
type CartLine struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	Qty         int32
	UnitPrice   Money
	WeightGrams int64
}

// Subtotal sums quantity times unit price across all lines. Lines with a
// non-positive quantity are ignored.
func Subtotal(lines []CartLine) Money {
	var subtotal Money
	for _, l := range lines {
		if l.Qty <= 0 || l.UnitPrice < 0 {
			continue
		}
		subtotal += Money(l.Qty) * l.UnitPrice
	}
	return subtotal
}

// TotalWeight sums quantity times unit weight across all lines.
func TotalWeight(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		if l.Qty <= 0 || l.WeightGrams < 0 {
			continue
		}
		total += int64(l.Qty) * l.WeightGrams
	}
	return total
}

// Discount is an accepted coupon reduction.
type Discount struct {
	Code    string `json:"code"`
	Applied Money  `json:"appliedAmount"`
}

// Totals is the immutable totals breakdown returned to the storefront and
// later frozen onto a placed order.
type Totals struct {
	Subtotal Money         `json:"subtotal"`
	Delivery DeliveryQuote `json:"delivery"`
	Charges  []ChargeLine  `json:"charges"`
	Discount *Discount     `json:"discount,omitempty"`
	Total    Money         `json:"total"`
}

// Assemble combines the pipeline outputs into the final breakdown. The total
// is subtotal plus delivery plus surcharges minus reductions and the coupon
// discount, clamped to zero.
func Assemble(subtotal Money, delivery DeliveryQuote, charges []ChargeLine, discount *Discount) Totals {
	total := subtotal + delivery.Amount
	for _, c := range charges {
		switch c.Kind {
		case KindDiscount:
			total -= c.Applied
		default:
			total += c.Applied
		}
	}
	if discount != nil {
		total -= discount.Applied
	}
	if total < 0 {
		total = 0
	}
	return Totals{
		Subtotal: subtotal,
		Delivery: delivery,
		Charges:  charges,
		Discount: discount,
		Total:    total,
	}
}
