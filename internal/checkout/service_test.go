package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/catalog"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/coupon"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/delivery"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/obs"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

type fakeCatalog struct {
	lines []pricing.CartLine
	err   error
}

func (f fakeCatalog) Resolve(context.Context, []catalog.LineRef) ([]pricing.CartLine, error) {
	return f.lines, f.err
}

type fakeDelivery struct {
	methods map[uuid.UUID]pricing.DeliveryMethod
	err     error
}

func (f fakeDelivery) GetMethod(_ context.Context, id uuid.UUID) (pricing.DeliveryMethod, error) {
	if f.err != nil {
		return pricing.DeliveryMethod{}, f.err
	}
	m, ok := f.methods[id]
	if !ok {
		return pricing.DeliveryMethod{}, delivery.ErrMethodNotFound
	}
	return m, nil
}

func (f fakeDelivery) ListActiveMethods(context.Context) ([]pricing.DeliveryMethod, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]pricing.DeliveryMethod, 0, len(f.methods))
	for _, m := range f.methods {
		out = append(out, m)
	}
	return out, nil
}

type fakeCharges struct {
	defs []pricing.ChargeDefinition
	err  error
}

func (f fakeCharges) ListActive(context.Context) ([]pricing.ChargeDefinition, error) {
	return f.defs, f.err
}

type fakeCoupons struct {
	discount  *pricing.Discount
	rejection *coupon.Rejection
	err       error
	gotCode   string
	gotNow    time.Time
}

func (f *fakeCoupons) Evaluate(_ context.Context, code string, _ pricing.Money, now time.Time) (*pricing.Discount, *coupon.Rejection, error) {
	f.gotCode = code
	f.gotNow = now
	return f.discount, f.rejection, f.err
}

func standardMethod() pricing.DeliveryMethod {
	max := int64(2000)
	return pricing.DeliveryMethod{
		ID:             uuid.New(),
		Label:          "Standard",
		FallbackAmount: 700,
		IsActive:       true,
		IsDefault:      true,
		Rules: []pricing.WeightRule{{
			ID:                 uuid.New(),
			MinWeightGrams:     0,
			MaxWeightGrams:     &max,
			BaseWeightGrams:    1000,
			BaseCharge:         500,
			IncrementUnitGrams: 500,
			IncrementCharge:    200,
			Rounding:           pricing.RoundCeil,
			IsActive:           true,
		}},
	}
}

func newService(cat fakeCatalog, del fakeDelivery, ch fakeCharges, cp *fakeCoupons) *Service {
	svc := &Service{
		Catalog:  cat,
		Delivery: del,
		Charges:  ch,
		Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	if cp != nil {
		svc.Coupons = cp
	}
	return svc
}

func TestCalculateAssemblesBreakdown(t *testing.T) {
	method := standardMethod()
	cat := fakeCatalog{lines: []pricing.CartLine{
		{ProductID: uuid.New(), Qty: 2, UnitPrice: 2500, WeightGrams: 400},
		{ProductID: uuid.New(), Qty: 1, UnitPrice: 5000, WeightGrams: 1000},
	}}
	ch := fakeCharges{defs: []pricing.ChargeDefinition{
		{ID: uuid.New(), Label: "Handling", Kind: pricing.KindCharge, Calc: pricing.CalcAmount, Amount: 300, IsActive: true},
		{ID: uuid.New(), Label: "Member", Kind: pricing.KindDiscount, Calc: pricing.CalcPercent, PercentBps: 500, IsActive: true, SortOrder: 1},
	}}
	cp := &fakeCoupons{discount: &pricing.Discount{Code: "SUMMER25", Applied: 2500}}

	svc := newService(cat, fakeDelivery{methods: map[uuid.UUID]pricing.DeliveryMethod{method.ID: method}}, ch, cp)
	quote, err := svc.Calculate(context.Background(), Input{
		Items:      []catalog.LineRef{{ProductID: uuid.New(), Qty: 1}},
		DeliveryID: method.ID,
		CouponCode: "SUMMER25",
	})
	require.NoError(t, err)

	// Subtotal 10000, weight 1800g: base 500 plus two started 500g increments.
	require.Equal(t, pricing.Money(10_000), quote.Totals.Subtotal)
	require.Equal(t, int64(1800), quote.TotalWeightGrams)
	require.Equal(t, pricing.Money(900), quote.Totals.Delivery.Amount)
	require.Len(t, quote.Totals.Charges, 2)
	require.Equal(t, pricing.Money(300), quote.Totals.Charges[0].Applied)
	require.Equal(t, pricing.Money(500), quote.Totals.Charges[1].Applied)
	require.NotNil(t, quote.Totals.Discount)
	require.Equal(t, pricing.Money(10_000+900+300-500-2500), quote.Totals.Total)
	require.Nil(t, quote.CouponRejection)
	require.Equal(t, "SUMMER25", cp.gotCode)
	require.Equal(t, svc.Now(), cp.gotNow)
}

func TestCalculateEmptyCart(t *testing.T) {
	svc := newService(fakeCatalog{}, fakeDelivery{}, fakeCharges{}, nil)
	_, err := svc.Calculate(context.Background(), Input{DeliveryID: uuid.New()})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMPTY_CART", appErr.Code)
	require.Equal(t, 400, appErr.HTTPStatus)
}

func TestCalculateItemUnavailable(t *testing.T) {
	method := standardMethod()
	cat := fakeCatalog{err: fmtUnavailable("out of stock")}
	svc := newService(cat, fakeDelivery{methods: map[uuid.UUID]pricing.DeliveryMethod{method.ID: method}}, fakeCharges{}, nil)
	_, err := svc.Calculate(context.Background(), Input{
		Items:      []catalog.LineRef{{ProductID: uuid.New(), Qty: 1}},
		DeliveryID: method.ID,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "ITEM_UNAVAILABLE", appErr.Code)
	require.Equal(t, 422, appErr.HTTPStatus)
}

func TestCalculateDeliveryUnavailable(t *testing.T) {
	lines := fakeCatalog{lines: []pricing.CartLine{{ProductID: uuid.New(), Qty: 1, UnitPrice: 1000, WeightGrams: 100}}}

	t.Run("unknown method", func(t *testing.T) {
		svc := newService(lines, fakeDelivery{methods: map[uuid.UUID]pricing.DeliveryMethod{}}, fakeCharges{}, nil)
		_, err := svc.Calculate(context.Background(), Input{
			Items:      []catalog.LineRef{{ProductID: uuid.New(), Qty: 1}},
			DeliveryID: uuid.New(),
		})
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "DELIVERY_UNAVAILABLE", appErr.Code)
	})

	t.Run("inactive method", func(t *testing.T) {
		method := standardMethod()
		method.IsActive = false
		svc := newService(lines, fakeDelivery{methods: map[uuid.UUID]pricing.DeliveryMethod{method.ID: method}}, fakeCharges{}, nil)
		_, err := svc.Calculate(context.Background(), Input{
			Items:      []catalog.LineRef{{ProductID: uuid.New(), Qty: 1}},
			DeliveryID: method.ID,
		})
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "DELIVERY_UNAVAILABLE", appErr.Code)
		require.Equal(t, 422, appErr.HTTPStatus)
	})
}

func TestCalculateCouponRejectionIsSoft(t *testing.T) {
	method := standardMethod()
	cat := fakeCatalog{lines: []pricing.CartLine{{ProductID: uuid.New(), Qty: 1, UnitPrice: 4000, WeightGrams: 500}}}
	cp := &fakeCoupons{rejection: &coupon.Rejection{
		Code:   "SUMMER25",
		Reason: coupon.ReasonBelowMinimum,
	}}
	svc := newService(cat, fakeDelivery{methods: map[uuid.UUID]pricing.DeliveryMethod{method.ID: method}}, fakeCharges{}, cp)
	quote, err := svc.Calculate(context.Background(), Input{
		Items:      []catalog.LineRef{{ProductID: uuid.New(), Qty: 1}},
		DeliveryID: method.ID,
		CouponCode: "SUMMER25",
	})
	require.NoError(t, err)
	require.NotNil(t, quote.CouponRejection)
	require.Equal(t, coupon.ReasonBelowMinimum, quote.CouponRejection.Reason)
	require.Nil(t, quote.Totals.Discount)
	require.Equal(t, pricing.Money(4000+500), quote.Totals.Total)
}

func TestCalculateCouponStoreFailureIsFatal(t *testing.T) {
	method := standardMethod()
	cat := fakeCatalog{lines: []pricing.CartLine{{ProductID: uuid.New(), Qty: 1, UnitPrice: 4000, WeightGrams: 500}}}
	cp := &fakeCoupons{err: errors.New("connection reset")}
	svc := newService(cat, fakeDelivery{methods: map[uuid.UUID]pricing.DeliveryMethod{method.ID: method}}, fakeCharges{}, cp)
	_, err := svc.Calculate(context.Background(), Input{
		Items:      []catalog.LineRef{{ProductID: uuid.New(), Qty: 1}},
		DeliveryID: method.ID,
		CouponCode: "SUMMER25",
	})
	require.Error(t, err)
	require.False(t, common.IsAppError(err))
}

func TestCalculateRepeatable(t *testing.T) {
	method := standardMethod()
	cat := fakeCatalog{lines: []pricing.CartLine{{ProductID: uuid.New(), Qty: 3, UnitPrice: 1250, WeightGrams: 300}}}
	cp := &fakeCoupons{discount: &pricing.Discount{Code: "FLAT5", Applied: 500}}
	svc := newService(cat, fakeDelivery{methods: map[uuid.UUID]pricing.DeliveryMethod{method.ID: method}}, fakeCharges{}, cp)

	in := Input{
		Items:      []catalog.LineRef{{ProductID: uuid.New(), Qty: 3}},
		DeliveryID: method.ID,
		CouponCode: "FLAT5",
	}
	first, err := svc.Calculate(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.Calculate(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDeliveryOptionsSkipsUnavailable(t *testing.T) {
	active := standardMethod()
	inactive := standardMethod()
	inactive.IsActive = false
	cat := fakeCatalog{lines: []pricing.CartLine{{ProductID: uuid.New(), Qty: 1, UnitPrice: 1000, WeightGrams: 1500}}}
	svc := newService(cat, fakeDelivery{methods: map[uuid.UUID]pricing.DeliveryMethod{
		active.ID:   active,
		inactive.ID: inactive,
	}}, fakeCharges{}, nil)

	options, err := svc.DeliveryOptions(context.Background(), []catalog.LineRef{{ProductID: uuid.New(), Qty: 1}})
	require.NoError(t, err)
	require.Len(t, options, 1)
	require.Equal(t, active.ID, options[0].ID)
	// 1500g over a 1000g base is one started 500g increment.
	require.Equal(t, pricing.Money(700), options[0].Amount)
	require.True(t, options[0].IsDefault)
}

func TestCalculateObservesDeliveryResolution(t *testing.T) {
	obs.MustRegisterDomainMetrics("pnh_agro", prometheus.NewRegistry())

	method := standardMethod()
	cat := fakeCatalog{lines: []pricing.CartLine{{ProductID: uuid.New(), Qty: 1, UnitPrice: 1000, WeightGrams: 500}}}
	svc := newService(cat, fakeDelivery{methods: map[uuid.UUID]pricing.DeliveryMethod{method.ID: method}}, fakeCharges{}, nil)

	_, err := svc.Calculate(context.Background(), Input{
		Items:      []catalog.LineRef{{ProductID: uuid.New(), Qty: 1}},
		DeliveryID: method.ID,
	})
	require.NoError(t, err)

	_, err = svc.Calculate(context.Background(), Input{
		Items:      []catalog.LineRef{{ProductID: uuid.New(), Qty: 1}},
		DeliveryID: uuid.New(),
	})
	require.Error(t, err)

	// One child per observed result label.
	require.GreaterOrEqual(t, testutil.CollectAndCount(obs.DeliveryResolveLatency), 2)
}

func fmtUnavailable(msg string) error {
	return fmt.Errorf("%w: %s", catalog.ErrItemUnavailable, msg)
}
