package delivery

import "github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"

// conflictsWithActive reports whether the candidate rule's weight band would
// overlap any other active rule of the same method. Inactive rules never
// conflict; neither does the candidate when it is inactive itself.
func conflictsWithActive(existing []pricing.WeightRule, candidate pricing.WeightRule) bool {
	if !candidate.IsActive {
		return false
	}
	for _, r := range existing {
		if !r.IsActive || r.ID == candidate.ID {
			continue
		}
		if bandsOverlap(r, candidate) {
			return true
		}
	}
	return false
}

// bandsOverlap treats a nil max weight as unbounded above. Bands are closed
// ranges: [min, max] inclusive on both ends.
func bandsOverlap(a, b pricing.WeightRule) bool {
	if a.MaxWeightGrams != nil && *a.MaxWeightGrams < b.MinWeightGrams {
		return false
	}
	if b.MaxWeightGrams != nil && *b.MaxWeightGrams < a.MinWeightGrams {
		return false
	}
	return true
}

// validateRuleBounds enforces the structural invariants of a weight rule:
// non-negative weights and charges, and max strictly above min when set.
func validateRuleBounds(rule pricing.WeightRule) error {
	switch {
	case rule.MinWeightGrams < 0:
		return errInvalid("minWeightGrams must not be negative")
	case rule.MaxWeightGrams != nil && *rule.MaxWeightGrams <= rule.MinWeightGrams:
		return errInvalid("maxWeightGrams must exceed minWeightGrams")
	case rule.BaseWeightGrams < 0:
		return errInvalid("baseWeightGrams must not be negative")
	case rule.BaseCharge < 0:
		return errInvalid("baseCharge must not be negative")
	case rule.IncrementUnitGrams < 0:
		return errInvalid("incrementUnitGrams must not be negative")
	case rule.IncrementCharge < 0:
		return errInvalid("incrementCharge must not be negative")
	case !rule.Rounding.Valid():
		return errInvalid("roundingMode must be ceil, floor or round")
	}
	return nil
}

type errInvalid string

func (e errInvalid) Error() string { return string(e) }
