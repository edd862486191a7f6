package pricing

import (
	"fmt"
	"strings"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// CalcType distinguishes how a configured value is turned into an amount.
type CalcType string

const (
	// CalcPercent applies the value as a percentage of the order subtotal.
	CalcPercent CalcType = "percent"
	// CalcAmount applies the value as a fixed amount in minor units.
	CalcAmount CalcType = "amount"
)

// Valid reports whether the calc type is one of the known variants.
func (c CalcType) Valid() bool {
	return c == CalcPercent || c == CalcAmount
}

// ParseCalcType normalises user input into a CalcType.
func ParseCalcType(value string) (CalcType, error) {
	c := CalcType(strings.ToLower(strings.TrimSpace(value)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown calc type %q", value)
	}
	return c, nil
}

// PercentOf computes bps/10000 of the base amount in exact integer math.
func PercentOf(base Money, bps int32) Money {
	if base <= 0 || bps <= 0 {
		return 0
	}
	return base * Money(bps) / 10_000
}

// FormatMinor renders a minor-unit amount with two decimal places and the
// configured currency symbol. Formatting is a presentation concern; all
// computation stays in minor units.
func FormatMinor(amount Money, symbol string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, symbol, amount/100, amount%100)
}
