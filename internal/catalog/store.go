package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides postgres-backed product snapshot reads.
type Store struct {
	Pool *pgxpool.Pool
}

// GetProduct fetches the current snapshot of one product.
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (Product, bool, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, name, unit_price, weight_grams, stock, is_active
		FROM products WHERE id = $1`, id)
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.UnitPrice, &p.WeightGrams, &p.Stock, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, false, nil
		}
		return Product{}, false, err
	}
	return p, true, nil
}
