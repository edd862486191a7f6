package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

type fakeProducts map[uuid.UUID]Product

func (f fakeProducts) GetProduct(_ context.Context, id uuid.UUID) (Product, bool, error) {
	p, ok := f[id]
	return p, ok, nil
}

func TestResolveAttachesCurrentPrices(t *testing.T) {
	apples := Product{ID: uuid.New(), Name: "Apples", UnitPrice: 350, WeightGrams: 1000, Stock: 50, IsActive: true}
	svc := &Service{Store: fakeProducts{apples.ID: apples}}

	lines, err := svc.Resolve(context.Background(), []LineRef{{ProductID: apples.ID, Qty: 3}})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, pricing.Money(350), lines[0].UnitPrice)
	require.Equal(t, int64(1000), lines[0].WeightGrams)
	require.Equal(t, int32(3), lines[0].Qty)
}

func TestResolveUnknownProduct(t *testing.T) {
	svc := &Service{Store: fakeProducts{}}
	_, err := svc.Resolve(context.Background(), []LineRef{{ProductID: uuid.New(), Qty: 1}})
	require.ErrorIs(t, err, ErrItemUnavailable)
}

func TestResolveInactiveOrOutOfStock(t *testing.T) {
	inactive := Product{ID: uuid.New(), Name: "Gone", UnitPrice: 100, Stock: 10, IsActive: false}
	low := Product{ID: uuid.New(), Name: "Scarce", UnitPrice: 100, Stock: 1, IsActive: true}
	svc := &Service{Store: fakeProducts{inactive.ID: inactive, low.ID: low}}

	_, err := svc.Resolve(context.Background(), []LineRef{{ProductID: inactive.ID, Qty: 1}})
	require.ErrorIs(t, err, ErrItemUnavailable)

	_, err = svc.Resolve(context.Background(), []LineRef{{ProductID: low.ID, Qty: 2}})
	require.ErrorIs(t, err, ErrItemUnavailable)
}

func TestResolveRejectsNonPositiveQuantity(t *testing.T) {
	svc := &Service{Store: fakeProducts{}}
	_, err := svc.Resolve(context.Background(), []LineRef{{ProductID: uuid.New(), Qty: 0}})
	require.ErrorIs(t, err, ErrItemUnavailable)
	require.True(t, errors.Is(err, ErrItemUnavailable))
}
