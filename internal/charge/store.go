package charge

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// ErrNotFound is returned when no charge definition matches the id.
var ErrNotFound = errors.New("charge definition not found")

// Store provides postgres-backed persistence for extra charge definitions.
type Store struct {
	Pool *pgxpool.Pool
}

const chargeColumns = `id, label, kind, calc_type, amount, percent_bps, is_active, sort_order`

// ListActive returns the active definitions ordered by sort order, the
// snapshot the pricing pipeline reads fresh on every call.
func (s *Store) ListActive(ctx context.Context) ([]pricing.ChargeDefinition, error) {
	return s.list(ctx, `SELECT `+chargeColumns+` FROM extra_charges WHERE is_active ORDER BY sort_order, label`)
}

// List returns every definition for the admin console.
func (s *Store) List(ctx context.Context) ([]pricing.ChargeDefinition, error) {
	return s.list(ctx, `SELECT `+chargeColumns+` FROM extra_charges ORDER BY sort_order, label`)
}

func (s *Store) list(ctx context.Context, query string) ([]pricing.ChargeDefinition, error) {
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []pricing.ChargeDefinition
	for rows.Next() {
		def, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// Create inserts a charge definition.
func (s *Store) Create(ctx context.Context, def pricing.ChargeDefinition) (pricing.ChargeDefinition, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO extra_charges (id, label, kind, calc_type, amount, percent_bps, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+chargeColumns,
		def.ID, def.Label, def.Kind, def.Calc, def.Amount, def.PercentBps, def.IsActive, def.SortOrder)
	return scanCharge(row)
}

// Update mutates a charge definition.
func (s *Store) Update(ctx context.Context, def pricing.ChargeDefinition) (pricing.ChargeDefinition, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE extra_charges
		SET label = $2, kind = $3, calc_type = $4, amount = $5, percent_bps = $6,
		    is_active = $7, sort_order = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+chargeColumns,
		def.ID, def.Label, def.Kind, def.Calc, def.Amount, def.PercentBps, def.IsActive, def.SortOrder)
	out, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.ChargeDefinition{}, ErrNotFound
		}
		return pricing.ChargeDefinition{}, err
	}
	return out, nil
}

// Delete removes a charge definition.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM extra_charges WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderItem pairs a definition id with its new position.
type ReorderItem struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	SortOrder int32     `json:"sortOrder" validate:"gte=0"`
}

// Reorder persists a new definition ordering in a single batched update.
func (s *Store) Reorder(ctx context.Context, items []ReorderItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(items))
	orders := make([]int32, len(items))
	for i, item := range items {
		ids[i] = item.ID
		orders[i] = item.SortOrder
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE extra_charges AS c
		SET sort_order = v.sort_order, updated_at = now()
		FROM (SELECT unnest($1::uuid[]) AS id, unnest($2::int[]) AS sort_order) AS v
		WHERE c.id = v.id`,
		ids, orders)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCharge(row pgx.Row) (pricing.ChargeDefinition, error) {
	var def pricing.ChargeDefinition
	err := row.Scan(&def.ID, &def.Label, &def.Kind, &def.Calc, &def.Amount, &def.PercentBps, &def.IsActive, &def.SortOrder)
	return def, err
}
