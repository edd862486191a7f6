package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/catalog"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/checkout"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/events"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// StatusPlaced is the only initial status. Payment is collected on delivery,
// so there is no pending-payment state.
const StatusPlaced = "PLACED"

// Calculator re-runs the pricing pipeline at placement time so the stored
// snapshot reflects current configuration, never client-sent numbers.
type Calculator interface {
	Calculate(ctx context.Context, in checkout.Input) (checkout.Quote, error)
}

// Persister writes and reads order records.
type Persister interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id uuid.UUID) (Record, error)
}

// Service places orders and freezes their pricing breakdown.
type Service struct {
	Checkout Calculator
	Store    Persister
	Enqueue  *events.Enqueuer
	Currency string
	Logger   zerolog.Logger
}

// PlaceInput is one order placement request.
type PlaceInput struct {
	Items           []catalog.LineRef `json:"items" validate:"required,min=1,dive"`
	DeliveryID      uuid.UUID         `json:"deliveryId" validate:"required"`
	CouponCode      string            `json:"couponCode"`
	CustomerName    string            `json:"customerName" validate:"required,max=120"`
	CustomerEmail   string            `json:"customerEmail" validate:"required,email"`
	CustomerPhone   string            `json:"customerPhone" validate:"required,max=32"`
	ShippingAddress string            `json:"shippingAddress" validate:"required,max=500"`
}

// Place computes the totals and persists the order atomically. Unlike a
// quote, a rejected coupon is fatal here: the shopper must fix or drop the
// code before committing to a price.
func (s *Service) Place(ctx context.Context, in PlaceInput) (Record, error) {
	if s == nil || s.Checkout == nil || s.Store == nil {
		return Record{}, errors.New("order service not configured")
	}
	quote, err := s.Checkout.Calculate(ctx, checkout.Input{
		Items:      in.Items,
		DeliveryID: in.DeliveryID,
		CouponCode: in.CouponCode,
	})
	if err != nil {
		return Record{}, err
	}
	if quote.CouponRejection != nil {
		return Record{}, &common.AppError{
			Code:       "COUPON_REJECTED",
			Message:    quote.CouponRejection.Message,
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    quote.CouponRejection,
		}
	}

	items := make([]Item, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, Item{
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
			WeightGrams: line.WeightGrams,
			LineTotal:   pricing.Money(line.Qty) * line.UnitPrice,
		})
	}
	rec, err := s.Store.Create(ctx, Record{
		Status:           StatusPlaced,
		CustomerName:     in.CustomerName,
		CustomerEmail:    in.CustomerEmail,
		CustomerPhone:    in.CustomerPhone,
		ShippingAddress:  in.ShippingAddress,
		Currency:         s.Currency,
		Totals:           quote.Totals,
		TotalWeightGrams: quote.TotalWeightGrams,
		Items:            items,
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return Record{}, common.NewAppError("ITEM_UNAVAILABLE", err.Error(), http.StatusUnprocessableEntity, err)
		}
		return Record{}, err
	}

	s.Enqueue.EnqueueOrderConfirmation(ctx, events.OrderConfirmationPayload{
		OrderID:       rec.ID,
		CustomerName:  rec.CustomerName,
		CustomerEmail: rec.CustomerEmail,
		Total:         rec.Totals.Total,
		Currency:      rec.Currency,
		PlacedAt:      rec.PlacedAt,
	})
	s.Logger.Info().
		Str("order_id", rec.ID.String()).
		Int64("total", rec.Totals.Total).
		Str("event", events.TopicOrderCreated).
		Msg("order placed")
	return rec, nil
}

// Get loads one order by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	if s == nil || s.Store == nil {
		return Record{}, errors.New("order service not configured")
	}
	rec, err := s.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, common.NewAppError("NOT_FOUND", "order not found", http.StatusNotFound, err)
		}
		return Record{}, err
	}
	return rec, nil
}
