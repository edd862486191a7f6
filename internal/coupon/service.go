package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// Rejection reason codes surfaced to the storefront next to the coupon field.
const (
	ReasonNotFound     = "COUPON_NOT_FOUND"
	ReasonOutOfWindow  = "COUPON_OUT_OF_WINDOW"
	ReasonBelowMinimum = "COUPON_BELOW_MINIMUM"
)

// Rejection is a soft failure: the surrounding calculation still succeeds
// without the coupon and reports the reason alongside the totals.
type Rejection struct {
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Finder fetches the current coupon snapshot by code, case-insensitively.
// Implementations return ErrNotFound when no coupon matches.
type Finder interface {
	FindByCode(ctx context.Context, code string) (Rule, error)
}

// Service evaluates coupon codes against a subtotal at a point in time.
type Service struct {
	Store Finder
}

// Evaluate fetches and validates the coupon. A business rejection comes back
// as a non-nil Rejection with a nil error; the error return is reserved for
// upstream failures, which are fatal to the whole calculation.
func (s *Service) Evaluate(ctx context.Context, code string, subtotal pricing.Money, now time.Time) (*pricing.Discount, *Rejection, error) {
	if s == nil || s.Store == nil {
		return nil, nil, errors.New("coupon store not configured")
	}
	rule, err := s.Store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, reject(code, ErrNotFound), nil
		}
		return nil, nil, err
	}
	if err := rule.Validate(now, subtotal); err != nil {
		return nil, reject(code, err), nil
	}
	return &pricing.Discount{Code: rule.Code, Applied: rule.Compute(subtotal)}, nil, nil
}

func reject(code string, err error) *Rejection {
	r := &Rejection{Code: code, Message: err.Error()}
	switch {
	case errors.Is(err, ErrOutOfWindow):
		r.Reason = ReasonOutOfWindow
	case errors.Is(err, ErrBelowMinimum):
		r.Reason = ReasonBelowMinimum
	default:
		r.Reason = ReasonNotFound
	}
	return r
}
