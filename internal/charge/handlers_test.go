package charge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

func float(v float64) *float64 { return &v }
func amount(v int64) *int64    { return &v }

func TestBuildDefinitionPercentConvertsToBps(t *testing.T) {
	def, err := buildDefinition(chargePayload{Label: "VAT", Kind: "charge", CalcType: "percent", Percent: float(7.5)})
	require.NoError(t, err)
	require.Equal(t, pricing.CalcPercent, def.Calc)
	require.Equal(t, int32(750), def.PercentBps)
	require.True(t, def.IsActive)
}

func TestBuildDefinitionAmount(t *testing.T) {
	def, err := buildDefinition(chargePayload{Label: "Handling", Kind: "discount", CalcType: "amount", Amount: amount(300)})
	require.NoError(t, err)
	require.Equal(t, pricing.KindDiscount, def.Kind)
	require.Equal(t, pricing.Money(300), def.Amount)
}

func TestBuildDefinitionMissingValue(t *testing.T) {
	_, err := buildDefinition(chargePayload{Label: "VAT", Kind: "charge", CalcType: "percent"})
	require.Error(t, err)

	_, err = buildDefinition(chargePayload{Label: "Fee", Kind: "charge", CalcType: "amount"})
	require.Error(t, err)
}

func TestBuildDefinitionRejectsUnknownVariants(t *testing.T) {
	_, err := buildDefinition(chargePayload{Label: "X", Kind: "fee", CalcType: "amount", Amount: amount(1)})
	require.Error(t, err)

	_, err = buildDefinition(chargePayload{Label: "X", Kind: "charge", CalcType: "ratio", Amount: amount(1)})
	require.Error(t, err)
}
