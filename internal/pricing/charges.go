package pricing

import (
	"sort"

	"github.com/google/uuid"
)

// ChargeKind classifies an extra charge definition as a surcharge or a reduction.
type ChargeKind string

const (
	// KindCharge adds the applied amount to the order total.
	KindCharge ChargeKind = "charge"
	// KindDiscount subtracts the applied amount from the order total.
	KindDiscount ChargeKind = "discount"
)

// Valid reports whether the kind is one of the known variants.
func (k ChargeKind) Valid() bool {
	return k == KindCharge || k == KindDiscount
}

// ChargeDefinition is an operator-configured, always-on surcharge or reduction
// applied to every order's subtotal, e.g. a handling fee or a tax.
type ChargeDefinition struct {
	ID         uuid.UUID
	Label      string
	Kind       ChargeKind
	Calc       CalcType
	Amount     Money
	PercentBps int32
	IsActive   bool
	SortOrder  int32
}

// ChargeLine is one applied entry of the itemised charge breakdown. RawValue
// carries the configured amount in minor units for fixed charges and basis
// points for percentage charges.
type ChargeLine struct {
	ID       uuid.UUID  `json:"id"`
	Label    string     `json:"label"`
	Kind     ChargeKind `json:"kind"`
	Calc     CalcType   `json:"calcType"`
	RawValue int64      `json:"rawValue"`
	Applied  Money      `json:"appliedAmount"`
}

// ApplyCharges computes the itemised breakdown for the active definitions in
// ascending sort order. Every charge is applied independently against the
// original subtotal so the breakdown stays order-independent; charges never
// compound on one another. Malformed or inactive definitions are skipped,
// never rejected.
func ApplyCharges(subtotal Money, defs []ChargeDefinition) []ChargeLine {
	ordered := make([]ChargeDefinition, 0, len(defs))
	for _, d := range defs {
		if !d.IsActive || !d.Kind.Valid() || !d.Calc.Valid() {
			continue
		}
		ordered = append(ordered, d)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })

	lines := make([]ChargeLine, 0, len(ordered))
	for _, d := range ordered {
		line := ChargeLine{ID: d.ID, Label: d.Label, Kind: d.Kind, Calc: d.Calc}
		switch d.Calc {
		case CalcAmount:
			if d.Amount < 0 {
				continue
			}
			line.RawValue = d.Amount
			line.Applied = d.Amount
		case CalcPercent:
			if d.PercentBps < 0 || d.PercentBps > 10_000 {
				continue
			}
			line.RawValue = int64(d.PercentBps)
			line.Applied = PercentOf(subtotal, d.PercentBps)
		}
		lines = append(lines, line)
	}
	return lines
}
