package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// Record is the persisted form of a coupon as managed by the admin console.
type Record struct {
	ID             uuid.UUID        `json:"id"`
	Code           string           `json:"code"`
	Calc           pricing.CalcType `json:"calcType"`
	Amount         pricing.Money    `json:"amount"`
	PercentBps     int32            `json:"percentBps"`
	MinOrderAmount *pricing.Money   `json:"minOrderAmount,omitempty"`
	ValidFrom      *time.Time       `json:"validFrom,omitempty"`
	ValidTo        *time.Time       `json:"validTo,omitempty"`
	IsActive       bool             `json:"isActive"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Rule converts the record into its calculation form.
func (rec Record) Rule() Rule {
	return Rule{
		Code:           rec.Code,
		Calc:           rec.Calc,
		Amount:         rec.Amount,
		PercentBps:     rec.PercentBps,
		MinOrderAmount: rec.MinOrderAmount,
		ValidFrom:      rec.ValidFrom,
		ValidTo:        rec.ValidTo,
		IsActive:       rec.IsActive,
	}
}

// Store provides postgres-backed coupon persistence.
type Store struct {
	Pool *pgxpool.Pool
}

const couponColumns = `id, code, calc_type, amount, percent_bps, min_order_amount, valid_from, valid_to, is_active, created_at, updated_at`

// FindByCode fetches the current coupon snapshot matching the code,
// case-insensitively. Returns ErrNotFound when no row matches.
func (s *Store) FindByCode(ctx context.Context, code string) (Rule, error) {
	rec, err := s.findRecord(ctx, code)
	if err != nil {
		return Rule{}, err
	}
	return rec.Rule(), nil
}

func (s *Store) findRecord(ctx context.Context, code string) (Record, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE lower(code) = lower($1)`, code)
	rec, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// List returns one page of coupons ordered by code for the admin console.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Record, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count reports the total number of coupons for pagination metadata.
func (s *Store) Count(ctx context.Context) (int, error) {
	var total int
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM coupons`).Scan(&total)
	return total, err
}

// Create inserts a new coupon. Unique violations on the code bubble up as
// *pgconn.PgError for the handler to translate into a conflict response.
func (s *Store) Create(ctx context.Context, rec Record) (Record, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO coupons (id, code, calc_type, amount, percent_bps, min_order_amount, valid_from, valid_to, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+couponColumns,
		rec.ID, rec.Code, rec.Calc, rec.Amount, rec.PercentBps, rec.MinOrderAmount, rec.ValidFrom, rec.ValidTo, rec.IsActive)
	return scanCoupon(row)
}

// Update mutates an existing coupon identified by code.
func (s *Store) Update(ctx context.Context, code string, rec Record) (Record, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE coupons
		SET calc_type = $2, amount = $3, percent_bps = $4, min_order_amount = $5,
		    valid_from = $6, valid_to = $7, is_active = $8, updated_at = now()
		WHERE lower(code) = lower($1)
		RETURNING `+couponColumns,
		code, rec.Calc, rec.Amount, rec.PercentBps, rec.MinOrderAmount, rec.ValidFrom, rec.ValidTo, rec.IsActive)
	out, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return out, nil
}

// Delete removes a coupon by code.
func (s *Store) Delete(ctx context.Context, code string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM coupons WHERE lower(code) = lower($1)`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCoupon(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.Code, &rec.Calc, &rec.Amount, &rec.PercentBps,
		&rec.MinOrderAmount, &rec.ValidFrom, &rec.ValidTo, &rec.IsActive,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}
