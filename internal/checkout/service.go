package checkout

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/catalog"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/coupon"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/delivery"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/obs"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// LineResolver validates cart lines and attaches current prices and weights.
type LineResolver interface {
	Resolve(ctx context.Context, refs []catalog.LineRef) ([]pricing.CartLine, error)
}

// DeliveryReader fetches current delivery method snapshots.
type DeliveryReader interface {
	GetMethod(ctx context.Context, id uuid.UUID) (pricing.DeliveryMethod, error)
	ListActiveMethods(ctx context.Context) ([]pricing.DeliveryMethod, error)
}

// ChargeReader fetches the current active charge definitions.
type ChargeReader interface {
	ListActive(ctx context.Context) ([]pricing.ChargeDefinition, error)
}

// CouponEvaluator validates a coupon code against a subtotal at an instant.
type CouponEvaluator interface {
	Evaluate(ctx context.Context, code string, subtotal pricing.Money, now time.Time) (*pricing.Discount, *coupon.Rejection, error)
}

// Service orchestrates the pricing pipeline. Every call re-reads delivery
// methods, charges and coupons so concurrent operator edits follow
// last-read-wins per request; an order snapshot freezes the price later.
type Service struct {
	Catalog  LineResolver
	Delivery DeliveryReader
	Charges  ChargeReader
	Coupons  CouponEvaluator
	Now      func() time.Time
}

// Input carries one checkout calculation request.
type Input struct {
	Items      []catalog.LineRef `json:"items" validate:"required,min=1,dive"`
	DeliveryID uuid.UUID         `json:"deliveryId" validate:"required"`
	CouponCode string            `json:"couponCode"`
}

// Quote is the calculation result. CouponRejection is a soft failure: totals
// are valid without the discount and the reason travels alongside them.
type Quote struct {
	Totals           pricing.Totals    `json:"totals"`
	TotalWeightGrams int64             `json:"totalWeightGrams"`
	CouponRejection  *coupon.Rejection `json:"couponRejection,omitempty"`

	// Lines carries the resolved cart so order placement can snapshot
	// per-item prices without a second catalog pass.
	Lines []pricing.CartLine `json:"-"`
}

// Calculate runs the pipeline in one linear pass: resolve lines, compute
// subtotal and weight, resolve delivery, apply charges, validate the coupon
// and assemble the final non-negative total.
func (s *Service) Calculate(ctx context.Context, in Input) (Quote, error) {
	if s == nil || s.Catalog == nil || s.Delivery == nil || s.Charges == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	if len(in.Items) == 0 {
		return Quote{}, common.NewAppError("EMPTY_CART", "cart must contain at least one item", http.StatusBadRequest, nil)
	}
	if in.DeliveryID == uuid.Nil {
		return Quote{}, common.NewAppError("BAD_REQUEST", "deliveryId is required", http.StatusBadRequest, nil)
	}

	lines, err := s.Catalog.Resolve(ctx, in.Items)
	if err != nil {
		if errors.Is(err, catalog.ErrItemUnavailable) {
			return Quote{}, common.NewAppError("ITEM_UNAVAILABLE", err.Error(), http.StatusUnprocessableEntity, err)
		}
		return Quote{}, err
	}
	subtotal := pricing.Subtotal(lines)
	totalWeight := pricing.TotalWeight(lines)

	resolveStart := time.Now()
	method, err := s.Delivery.GetMethod(ctx, in.DeliveryID)
	if err != nil {
		observeDeliveryResolve(resolveStart, "error")
		if errors.Is(err, delivery.ErrMethodNotFound) {
			return Quote{}, common.NewAppError("DELIVERY_UNAVAILABLE", "delivery method not found", http.StatusUnprocessableEntity, err)
		}
		return Quote{}, err
	}
	deliveryQuote, err := pricing.ResolveDelivery(method, totalWeight)
	if err != nil {
		observeDeliveryResolve(resolveStart, "error")
		if errors.Is(err, pricing.ErrDeliveryUnavailable) {
			return Quote{}, common.NewAppError("DELIVERY_UNAVAILABLE", "delivery method unavailable", http.StatusUnprocessableEntity, err)
		}
		return Quote{}, err
	}
	observeDeliveryResolve(resolveStart, "ok")

	defs, err := s.Charges.ListActive(ctx)
	if err != nil {
		return Quote{}, err
	}
	charges := pricing.ApplyCharges(subtotal, defs)

	var discount *pricing.Discount
	var rejection *coupon.Rejection
	if in.CouponCode != "" && s.Coupons != nil {
		discount, rejection, err = s.Coupons.Evaluate(ctx, in.CouponCode, subtotal, s.now())
		if err != nil {
			return Quote{}, err
		}
	}

	return Quote{
		Totals:           pricing.Assemble(subtotal, deliveryQuote, charges, discount),
		TotalWeightGrams: totalWeight,
		CouponRejection:  rejection,
		Lines:            lines,
	}, nil
}

// DeliveryOption is one active method with its amount resolved for the cart,
// shown before a method is chosen.
type DeliveryOption struct {
	ID        uuid.UUID     `json:"id"`
	Label     string        `json:"label"`
	Amount    pricing.Money `json:"amount"`
	IsDefault bool          `json:"isDefault"`
}

// DeliveryOptions computes the cart's total weight and resolves every active
// method's charge for display.
func (s *Service) DeliveryOptions(ctx context.Context, items []catalog.LineRef) ([]DeliveryOption, error) {
	if len(items) == 0 {
		return nil, common.NewAppError("EMPTY_CART", "cart must contain at least one item", http.StatusBadRequest, nil)
	}
	lines, err := s.Catalog.Resolve(ctx, items)
	if err != nil {
		if errors.Is(err, catalog.ErrItemUnavailable) {
			return nil, common.NewAppError("ITEM_UNAVAILABLE", err.Error(), http.StatusUnprocessableEntity, err)
		}
		return nil, err
	}
	totalWeight := pricing.TotalWeight(lines)
	resolveStart := time.Now()
	methods, err := s.Delivery.ListActiveMethods(ctx)
	if err != nil {
		observeDeliveryResolve(resolveStart, "error")
		return nil, err
	}
	options := make([]DeliveryOption, 0, len(methods))
	for _, m := range methods {
		quote, err := pricing.ResolveDelivery(m, totalWeight)
		if err != nil {
			continue
		}
		options = append(options, DeliveryOption{ID: m.ID, Label: m.Label, Amount: quote.Amount, IsDefault: m.IsDefault})
	}
	observeDeliveryResolve(resolveStart, "ok")
	return options, nil
}

// observeDeliveryResolve records how long the delivery fetch and rate
// resolution took for one request.
func observeDeliveryResolve(start time.Time, result string) {
	if obs.DeliveryResolveLatency != nil {
		obs.DeliveryResolveLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
