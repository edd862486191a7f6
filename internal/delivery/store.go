package delivery

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

var (
	// ErrMethodNotFound is returned when no delivery method matches the id.
	ErrMethodNotFound = errors.New("delivery method not found")
	// ErrRuleNotFound is returned when no weight rule matches the id.
	ErrRuleNotFound = errors.New("weight rule not found")
	// ErrRuleOverlap is returned when an active rule's weight band would
	// overlap another active rule of the same method. Ranges are validated at
	// write time so resolution order stays well defined.
	ErrRuleOverlap = errors.New("weight rule range overlaps an existing active rule")
)

// Store provides postgres-backed delivery method and weight rule persistence.
type Store struct {
	Pool *pgxpool.Pool
}

const methodColumns = `id, label, fallback_amount, is_default, is_active`
const ruleColumns = `id, method_id, min_weight_grams, max_weight_grams, base_weight_grams, base_charge, increment_unit_grams, increment_charge, rounding_mode, is_active, sort_order`

// GetMethod fetches a delivery method with its weight rules ordered by sort
// order. Inactive methods are returned as-is; the rate resolver decides
// whether they are usable.
func (s *Store) GetMethod(ctx context.Context, id uuid.UUID) (pricing.DeliveryMethod, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+methodColumns+` FROM delivery_methods WHERE id = $1`, id)
	method, err := scanMethod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.DeliveryMethod{}, ErrMethodNotFound
		}
		return pricing.DeliveryMethod{}, err
	}
	method.Rules, err = s.rulesForMethod(ctx, method.ID)
	if err != nil {
		return pricing.DeliveryMethod{}, err
	}
	return method, nil
}

// ListActiveMethods returns all active methods with their rules, default
// method first, for the storefront delivery-options view.
func (s *Store) ListActiveMethods(ctx context.Context) ([]pricing.DeliveryMethod, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+methodColumns+` FROM delivery_methods WHERE is_active ORDER BY is_default DESC, label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var methods []pricing.DeliveryMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range methods {
		methods[i].Rules, err = s.rulesForMethod(ctx, methods[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return methods, nil
}

// ListMethods returns every method, active or not, with rules attached.
func (s *Store) ListMethods(ctx context.Context) ([]pricing.DeliveryMethod, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+methodColumns+` FROM delivery_methods ORDER BY is_default DESC, label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var methods []pricing.DeliveryMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range methods {
		methods[i].Rules, err = s.rulesForMethod(ctx, methods[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return methods, nil
}

func (s *Store) rulesForMethod(ctx context.Context, methodID uuid.UUID) ([]pricing.WeightRule, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM delivery_weight_rules WHERE method_id = $1 ORDER BY sort_order, min_weight_grams`, methodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []pricing.WeightRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// CreateMethod inserts a delivery method.
func (s *Store) CreateMethod(ctx context.Context, method pricing.DeliveryMethod) (pricing.DeliveryMethod, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO delivery_methods (id, label, fallback_amount, is_default, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+methodColumns,
		method.ID, method.Label, method.FallbackAmount, method.IsDefault, method.IsActive)
	return scanMethod(row)
}

// UpdateMethod mutates an existing delivery method.
func (s *Store) UpdateMethod(ctx context.Context, method pricing.DeliveryMethod) (pricing.DeliveryMethod, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE delivery_methods
		SET label = $2, fallback_amount = $3, is_default = $4, is_active = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+methodColumns,
		method.ID, method.Label, method.FallbackAmount, method.IsDefault, method.IsActive)
	out, err := scanMethod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.DeliveryMethod{}, ErrMethodNotFound
		}
		return pricing.DeliveryMethod{}, err
	}
	return out, nil
}

// DeleteMethod removes a method and, via FK cascade, its rules.
func (s *Store) DeleteMethod(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM delivery_methods WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMethodNotFound
	}
	return nil
}

// CreateRule inserts a weight rule after checking its band against the
// method's existing active rules.
func (s *Store) CreateRule(ctx context.Context, methodID uuid.UUID, rule pricing.WeightRule) (pricing.WeightRule, error) {
	existing, err := s.rulesForMethod(ctx, methodID)
	if err != nil {
		return pricing.WeightRule{}, err
	}
	if conflictsWithActive(existing, rule) {
		return pricing.WeightRule{}, ErrRuleOverlap
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO delivery_weight_rules
			(id, method_id, min_weight_grams, max_weight_grams, base_weight_grams, base_charge,
			 increment_unit_grams, increment_charge, rounding_mode, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+ruleColumns,
		rule.ID, methodID, rule.MinWeightGrams, rule.MaxWeightGrams, rule.BaseWeightGrams,
		rule.BaseCharge, rule.IncrementUnitGrams, rule.IncrementCharge, rule.Rounding,
		rule.IsActive, rule.SortOrder)
	return scanRule(row)
}

// UpdateRule mutates a weight rule under the same overlap validation.
func (s *Store) UpdateRule(ctx context.Context, methodID uuid.UUID, rule pricing.WeightRule) (pricing.WeightRule, error) {
	existing, err := s.rulesForMethod(ctx, methodID)
	if err != nil {
		return pricing.WeightRule{}, err
	}
	if conflictsWithActive(existing, rule) {
		return pricing.WeightRule{}, ErrRuleOverlap
	}
	row := s.Pool.QueryRow(ctx, `
		UPDATE delivery_weight_rules
		SET min_weight_grams = $3, max_weight_grams = $4, base_weight_grams = $5, base_charge = $6,
		    increment_unit_grams = $7, increment_charge = $8, rounding_mode = $9, is_active = $10,
		    sort_order = $11, updated_at = now()
		WHERE id = $1 AND method_id = $2
		RETURNING `+ruleColumns,
		rule.ID, methodID, rule.MinWeightGrams, rule.MaxWeightGrams, rule.BaseWeightGrams,
		rule.BaseCharge, rule.IncrementUnitGrams, rule.IncrementCharge, rule.Rounding,
		rule.IsActive, rule.SortOrder)
	out, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.WeightRule{}, ErrRuleNotFound
		}
		return pricing.WeightRule{}, err
	}
	return out, nil
}

// DeleteRule removes a weight rule.
func (s *Store) DeleteRule(ctx context.Context, methodID, ruleID uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx,
		`DELETE FROM delivery_weight_rules WHERE id = $1 AND method_id = $2`, ruleID, methodID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// ReorderItem pairs a rule id with its new position.
type ReorderItem struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	SortOrder int32     `json:"sortOrder" validate:"gte=0"`
}

// ReorderRules persists a new rule ordering as a single batched update keyed
// by id and new sort index, instead of one write per row.
func (s *Store) ReorderRules(ctx context.Context, methodID uuid.UUID, items []ReorderItem) error {
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
		UPDATE delivery_weight_rules AS r
		SET sort_order = v.sort_order, updated_at = now()
		FROM (SELECT unnest($2::uuid[]) AS id, unnest($3::int[]) AS sort_order) AS v
		WHERE r.id = v.id AND r.method_id = $1`,
		methodID, ids, orders)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func scanMethod(row pgx.Row) (pricing.DeliveryMethod, error) {
	var m pricing.DeliveryMethod
	err := row.Scan(&m.ID, &m.Label, &m.FallbackAmount, &m.IsDefault, &m.IsActive)
	return m, err
}

func scanRule(row pgx.Row) (pricing.WeightRule, error) {
	var r pricing.WeightRule
	var methodID uuid.UUID
	err := row.Scan(
		&r.ID, &methodID, &r.MinWeightGrams, &r.MaxWeightGrams, &r.BaseWeightGrams,
		&r.BaseCharge, &r.IncrementUnitGrams, &r.IncrementCharge, &r.Rounding,
		&r.IsActive, &r.SortOrder,
	)
	return r, err
}
