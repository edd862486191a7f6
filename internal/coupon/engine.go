package coupon

import (
	"errors"
	"time"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

var (
	// ErrNotFound is returned when no active coupon matches the code.
	ErrNotFound = errors.New("coupon not found")
	// ErrOutOfWindow is returned when the coupon is used outside its validity window.
	ErrOutOfWindow = errors.New("coupon outside validity window")
	// ErrBelowMinimum indicates the order subtotal did not meet the coupon requirement.
	ErrBelowMinimum = errors.New("coupon minimum order amount not met")
)

// Rule captures the runtime constraints of a coupon. Percent values are held
// in basis points; validation of the raw admin payload happens at the store
// boundary, never here.
type Rule struct {
	Code           string
	Calc           pricing.CalcType
	Amount         pricing.Money
	PercentBps     int32
	MinOrderAmount *pricing.Money
	ValidFrom      *time.Time
	ValidTo        *time.Time
	IsActive       bool
}

// Validate ensures the rule can be applied at the provided instant and order
// subtotal. An inactive coupon is indistinguishable from a missing one.
func (r Rule) Validate(now time.Time, subtotal pricing.Money) error {
	if !r.IsActive {
		return ErrNotFound
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrOutOfWindow
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrOutOfWindow
	}
	if r.MinOrderAmount != nil && subtotal < *r.MinOrderAmount {
		return ErrBelowMinimum
	}
	return nil
}

// Compute determines the discount amount for the subtotal. The result never
// exceeds the subtotal and never goes negative.
func (r Rule) Compute(subtotal pricing.Money) pricing.Money {
	if subtotal <= 0 {
		return 0
	}
	discount := r.Amount
	if r.Calc == pricing.CalcPercent {
		discount = pricing.PercentOf(subtotal, r.PercentBps)
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}
