package pricing

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// ErrDeliveryUnavailable is returned when the chosen delivery method cannot
// quote the cart. The caller must re-select a method; there is no retry.
var ErrDeliveryUnavailable = errors.New("delivery method unavailable")

// RoundingMode controls how partial weight increments are charged.
type RoundingMode string

const (
	// RoundCeil charges any started increment in full.
	RoundCeil RoundingMode = "ceil"
	// RoundFloor charges only completed increments.
	RoundFloor RoundingMode = "floor"
	// RoundNearest charges the nearest whole increment, half rounding up.
	RoundNearest RoundingMode = "round"
)

// Valid reports whether the rounding mode is one of the known variants.
func (m RoundingMode) Valid() bool {
	return m == RoundCeil || m == RoundFloor || m == RoundNearest
}

// WeightRule is a delivery pricing band keyed by total shipping weight.
type WeightRule struct {
	ID                 uuid.UUID
	MinWeightGrams     int64
	MaxWeightGrams     *int64
	BaseWeightGrams    int64
	BaseCharge         Money
	IncrementUnitGrams int64
	IncrementCharge    Money
	Rounding           RoundingMode
	IsActive           bool
	SortOrder          int32
}

// Matches reports whether the rule's weight band contains the given weight.
func (r WeightRule) Matches(totalWeightGrams int64) bool {
	if totalWeightGrams < r.MinWeightGrams {
		return false
	}
	if r.MaxWeightGrams != nil && totalWeightGrams > *r.MaxWeightGrams {
		return false
	}
	return true
}

// DeliveryMethod is an operator-configured shipping option with its ordered
// weight rules. Rules are expected non-overlapping; the first match by
// ascending sort order wins.
type DeliveryMethod struct {
	ID             uuid.UUID
	Label          string
	FallbackAmount Money
	IsDefault      bool
	IsActive       bool
	Rules          []WeightRule
}

// DeliveryQuote is the resolved delivery charge for a cart.
type DeliveryQuote struct {
	MethodID uuid.UUID `json:"id"`
	Label    string    `json:"label"`
	Amount   Money     `json:"amount"`
}

// ResolveDelivery computes the delivery charge for the given total cart
// weight. An inactive method is fatal; a weight matching no active rule falls
// back to the method's flat fallback amount.
func ResolveDelivery(method DeliveryMethod, totalWeightGrams int64) (DeliveryQuote, error) {
	if !method.IsActive {
		return DeliveryQuote{}, ErrDeliveryUnavailable
	}
	quote := DeliveryQuote{MethodID: method.ID, Label: method.Label, Amount: method.FallbackAmount}
	rule, ok := matchRule(method.Rules, totalWeightGrams)
	if !ok {
		if quote.Amount < 0 {
			quote.Amount = 0
		}
		return quote, nil
	}
	quote.Amount = ruleCharge(rule, totalWeightGrams)
	return quote, nil
}

func matchRule(rules []WeightRule, totalWeightGrams int64) (WeightRule, bool) {
	ordered := make([]WeightRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })
	for _, r := range ordered {
		if r.Matches(totalWeightGrams) {
			return r, true
		}
	}
	return WeightRule{}, false
}

func ruleCharge(rule WeightRule, totalWeightGrams int64) Money {
	excess := totalWeightGrams - rule.BaseWeightGrams
	if excess < 0 {
		excess = 0
	}
	var increments int64
	if rule.IncrementUnitGrams > 0 && excess > 0 {
		increments = roundIncrements(excess, rule.IncrementUnitGrams, rule.Rounding)
	}
	amount := rule.BaseCharge + Money(increments)*rule.IncrementCharge
	if amount < 0 {
		amount = 0
	}
	return amount
}

// roundIncrements divides excess by unit under the rule's rounding mode using
// exact integer arithmetic. Half increments round up under RoundNearest.
func roundIncrements(excess, unit int64, mode RoundingMode) int64 {
	switch mode {
	case RoundFloor:
		return excess / unit
	case RoundNearest:
		return (2*excess + unit) / (2 * unit)
	default:
		return (excess + unit - 1) / unit
	}
}
