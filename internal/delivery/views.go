package delivery

import (
	"github.com/google/uuid"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// MethodView is the JSON shape for a delivery method with its rules.
type MethodView struct {
	ID             uuid.UUID     `json:"id"`
	Label          string        `json:"label"`
	FallbackAmount pricing.Money `json:"fallbackAmount"`
	IsDefault      bool          `json:"isDefault"`
	IsActive       bool          `json:"isActive"`
	Rules          []RuleView    `json:"rules"`
}

// RuleView is the JSON shape for a weight rule.
type RuleView struct {
	ID                 uuid.UUID     `json:"id"`
	MinWeightGrams     int64         `json:"minWeightGrams"`
	MaxWeightGrams     *int64        `json:"maxWeightGrams,omitempty"`
	BaseWeightGrams    int64         `json:"baseWeightGrams"`
	BaseCharge         pricing.Money `json:"baseCharge"`
	IncrementUnitGrams int64         `json:"incrementUnitGrams"`
	IncrementCharge    pricing.Money `json:"incrementCharge"`
	RoundingMode       string        `json:"roundingMode"`
	IsActive           bool          `json:"isActive"`
	SortOrder          int32         `json:"sortOrder"`
}

func toMethodView(m pricing.DeliveryMethod) MethodView {
	view := MethodView{
		ID:             m.ID,
		Label:          m.Label,
		FallbackAmount: m.FallbackAmount,
		IsDefault:      m.IsDefault,
		IsActive:       m.IsActive,
		Rules:          make([]RuleView, 0, len(m.Rules)),
	}
	for _, r := range m.Rules {
		view.Rules = append(view.Rules, toRuleView(r))
	}
	return view
}

func toRuleView(r pricing.WeightRule) RuleView {
	return RuleView{
		ID:                 r.ID,
		MinWeightGrams:     r.MinWeightGrams,
		MaxWeightGrams:     r.MaxWeightGrams,
		BaseWeightGrams:    r.BaseWeightGrams,
		BaseCharge:         r.BaseCharge,
		IncrementUnitGrams: r.IncrementUnitGrams,
		IncrementCharge:    r.IncrementCharge,
		RoundingMode:       string(r.Rounding),
		IsActive:           r.IsActive,
		SortOrder:          r.SortOrder,
	}
}

func toMethodViews(methods []pricing.DeliveryMethod) []MethodView {
	views := make([]MethodView, 0, len(methods))
	for _, m := range methods {
		views = append(views, toMethodView(m))
	}
	return views
}
