package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// ErrItemUnavailable is returned when a cart line references a product that
// is missing, inactive or out of stock. Fatal to the current calculation.
var ErrItemUnavailable = errors.New("item unavailable")

// Product is the current catalog snapshot of a sellable item.
type Product struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	UnitPrice   pricing.Money `json:"unitPrice"`
	WeightGrams int64         `json:"weightGrams"`
	Stock       int32         `json:"stock"`
	IsActive    bool          `json:"isActive"`
}

// LineRef identifies one requested cart line by product.
type LineRef struct {
	ProductID uuid.UUID  `json:"productId"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Qty       int32      `json:"quantity"`
}

// ProductReader fetches current product snapshots by id.
type ProductReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, bool, error)
}

// Service resolves requested cart lines against current catalog prices and
// availability. It is the authoritative price source; client-sent prices are
// never trusted.
type Service struct {
	Store ProductReader
	Cache *Cache
}

// Resolve validates every line and attaches the current unit price and unit
// weight. Any unresolvable line fails the whole resolution with
// ErrItemUnavailable.
func (s *Service) Resolve(ctx context.Context, refs []LineRef) ([]pricing.CartLine, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog store not configured")
	}
	lines := make([]pricing.CartLine, 0, len(refs))
	for _, ref := range refs {
		if ref.Qty <= 0 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrItemUnavailable)
		}
		product, err := s.product(ctx, ref.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive || product.Stock < ref.Qty {
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, product.Name)
		}
		lines = append(lines, pricing.CartLine{
			ProductID:   product.ID,
			VariantID:   ref.VariantID,
			Qty:         ref.Qty,
			UnitPrice:   product.UnitPrice,
			WeightGrams: product.WeightGrams,
		})
	}
	return lines, nil
}

func (s *Service) product(ctx context.Context, id uuid.UUID) (Product, error) {
	key := cacheKey(id)
	var cached Product
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	product, found, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !found {
		return Product{}, fmt.Errorf("%w: product %s", ErrItemUnavailable, id)
	}
	_ = s.Cache.SetJSON(ctx, key, product)
	return product, nil
}

func cacheKey(id uuid.UUID) string {
	return "catalog:product:" + id.String()
}
