package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// ErrNotFound is returned when no order matches the requested id.
var ErrNotFound = errors.New("order not found")

// ErrInsufficientStock is returned when an item's stock cannot cover the
// ordered quantity at commit time.
var ErrInsufficientStock = errors.New("insufficient stock")

// Item is one persisted order line with its price frozen at placement.
type Item struct {
	ProductID   uuid.UUID     `json:"productId"`
	VariantID   *uuid.UUID    `json:"variantId,omitempty"`
	Name        string        `json:"name"`
	Qty         int32         `json:"quantity"`
	UnitPrice   pricing.Money `json:"unitPrice"`
	WeightGrams int64         `json:"weightGrams"`
	LineTotal   pricing.Money `json:"lineTotal"`
}

// Record is a placed order with its immutable pricing snapshot. Later edits
// to delivery rules, charges or coupons never touch it.
type Record struct {
	ID               uuid.UUID      `json:"id"`
	Status           string         `json:"status"`
	CustomerName     string         `json:"customerName"`
	CustomerEmail    string         `json:"customerEmail"`
	CustomerPhone    string         `json:"customerPhone"`
	ShippingAddress  string         `json:"shippingAddress"`
	Currency         string         `json:"currency"`
	Totals           pricing.Totals `json:"totals"`
	TotalWeightGrams int64          `json:"totalWeightGrams"`
	Items            []Item         `json:"items"`
	PlacedAt         time.Time      `json:"placedAt"`
}

// Store persists orders. Creation snapshots the full pricing breakdown and
// decrements stock in the same transaction.
type Store struct {
	Pool *pgxpool.Pool
}

// Create inserts the order, its items and the stock decrements atomically.
func (s *Store) Create(ctx context.Context, rec Record) (Record, error) {
	if s == nil || s.Pool == nil {
		return Record{}, errors.New("order store not configured")
	}
	charges, err := json.Marshal(rec.Totals.Charges)
	if err != nil {
		return Record{}, fmt.Errorf("encode charge snapshot: %w", err)
	}
	var couponCode *string
	var couponApplied *int64
	if rec.Totals.Discount != nil {
		couponCode = &rec.Totals.Discount.Code
		applied := int64(rec.Totals.Discount.Applied)
		couponApplied = &applied
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Record{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (
			status, customer_name, customer_email, customer_phone, shipping_address,
			currency, delivery_method_id, delivery_label,
			pricing_subtotal, pricing_delivery, pricing_charges,
			pricing_coupon_code, pricing_coupon_applied, pricing_total,
			total_weight_grams
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id, placed_at`,
		rec.Status, rec.CustomerName, rec.CustomerEmail, rec.CustomerPhone, rec.ShippingAddress,
		rec.Currency, rec.Totals.Delivery.MethodID, rec.Totals.Delivery.Label,
		rec.Totals.Subtotal, rec.Totals.Delivery.Amount, charges,
		couponCode, couponApplied, rec.Totals.Total,
		rec.TotalWeightGrams,
	)
	if err := row.Scan(&rec.ID, &rec.PlacedAt); err != nil {
		return Record{}, err
	}

	for i, item := range rec.Items {
		tag, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now()
			 WHERE id = $1 AND stock >= $2`,
			item.ProductID, item.Qty)
		if err != nil {
			return Record{}, err
		}
		if tag.RowsAffected() == 0 {
			return Record{}, fmt.Errorf("%w: product %s", ErrInsufficientStock, item.ProductID)
		}
		var name string
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, variant_id, name, qty, unit_price, weight_grams, line_total)
			SELECT $1, p.id, $3, p.name, $4, $5, $6, $7 FROM products p WHERE p.id = $2
			RETURNING name`,
			rec.ID, item.ProductID, item.VariantID, item.Qty, item.UnitPrice, item.WeightGrams, item.LineTotal,
		).Scan(&name)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Record{}, fmt.Errorf("%w: product %s", ErrInsufficientStock, item.ProductID)
			}
			return Record{}, err
		}
		rec.Items[i].Name = name
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get loads an order with its items and pricing snapshot.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	if s == nil || s.Pool == nil {
		return Record{}, errors.New("order store not configured")
	}
	var rec Record
	var charges []byte
	var couponCode *string
	var couponApplied *int64
	err := s.Pool.QueryRow(ctx, `
		SELECT id, status, customer_name, customer_email, customer_phone, shipping_address,
		       currency, delivery_method_id, delivery_label,
		       pricing_subtotal, pricing_delivery, pricing_charges,
		       pricing_coupon_code, pricing_coupon_applied, pricing_total,
		       total_weight_grams, placed_at
		FROM orders WHERE id = $1`, id).Scan(
		&rec.ID, &rec.Status, &rec.CustomerName, &rec.CustomerEmail, &rec.CustomerPhone, &rec.ShippingAddress,
		&rec.Currency, &rec.Totals.Delivery.MethodID, &rec.Totals.Delivery.Label,
		&rec.Totals.Subtotal, &rec.Totals.Delivery.Amount, &charges,
		&couponCode, &couponApplied, &rec.Totals.Total,
		&rec.TotalWeightGrams, &rec.PlacedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	if len(charges) > 0 {
		if err := json.Unmarshal(charges, &rec.Totals.Charges); err != nil {
			return Record{}, fmt.Errorf("decode charge snapshot: %w", err)
		}
	}
	if couponCode != nil && couponApplied != nil {
		rec.Totals.Discount = &pricing.Discount{Code: *couponCode, Applied: pricing.Money(*couponApplied)}
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, variant_id, name, qty, unit_price, weight_grams, line_total
		FROM order_items WHERE order_id = $1 ORDER BY name`, id)
	if err != nil {
		return Record{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ProductID, &item.VariantID, &item.Name, &item.Qty, &item.UnitPrice, &item.WeightGrams, &item.LineTotal); err != nil {
			return Record{}, err
		}
		rec.Items = append(rec.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
