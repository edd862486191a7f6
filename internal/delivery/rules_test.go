package delivery

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

func bounded(min, max int64) pricing.WeightRule {
	return pricing.WeightRule{ID: uuid.New(), MinWeightGrams: min, MaxWeightGrams: &max, Rounding: pricing.RoundCeil, IsActive: true}
}

func unbounded(min int64) pricing.WeightRule {
	return pricing.WeightRule{ID: uuid.New(), MinWeightGrams: min, Rounding: pricing.RoundCeil, IsActive: true}
}

func TestConflictsWithActive(t *testing.T) {
	existing := []pricing.WeightRule{bounded(0, 1000), bounded(1001, 5000)}

	cases := []struct {
		name      string
		candidate pricing.WeightRule
		want      bool
	}{
		{"adjacent band above", unbounded(5001), false},
		{"contained in first band", bounded(200, 800), true},
		{"straddles both bands", bounded(900, 1200), true},
		{"unbounded overlapping tail", unbounded(4000), true},
		{"touching inclusive boundary", bounded(1000, 1001), true},
		{"inactive candidate never conflicts", func() pricing.WeightRule {
			r := bounded(0, 10_000)
			r.IsActive = false
			return r
		}(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := conflictsWithActive(existing, tc.candidate); got != tc.want {
				t.Fatalf("conflictsWithActive = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConflictsIgnoresInactiveExisting(t *testing.T) {
	inactive := bounded(0, 10_000)
	inactive.IsActive = false
	if conflictsWithActive([]pricing.WeightRule{inactive}, bounded(0, 500)) {
		t.Fatal("inactive existing rule must not conflict")
	}
}

func TestConflictsSkipsSelfOnUpdate(t *testing.T) {
	rule := bounded(0, 1000)
	if conflictsWithActive([]pricing.WeightRule{rule}, rule) {
		t.Fatal("a rule must not conflict with its own stored row")
	}
}

func TestValidateRuleBounds(t *testing.T) {
	good := bounded(100, 2000)
	good.BaseCharge = 500
	if err := validateRuleBounds(good); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	maxBelowMin := bounded(2000, 1000)
	if err := validateRuleBounds(maxBelowMin); err == nil {
		t.Fatal("max below min must be rejected")
	}

	maxEqualsMin := bounded(1000, 1000)
	if err := validateRuleBounds(maxEqualsMin); err == nil {
		t.Fatal("max equal to min must be rejected")
	}

	badMode := unbounded(0)
	badMode.Rounding = "banker"
	if err := validateRuleBounds(badMode); err == nil {
		t.Fatal("unknown rounding mode must be rejected")
	}

	negativeCharge := unbounded(0)
	negativeCharge.BaseCharge = -1
	if err := validateRuleBounds(negativeCharge); err == nil {
		t.Fatal("negative base charge must be rejected")
	}
}
