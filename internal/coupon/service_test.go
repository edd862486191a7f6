package coupon

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

type fakeFinder struct {
	rules map[string]Rule
	err   error
}

func (f fakeFinder) FindByCode(_ context.Context, code string) (Rule, error) {
	if f.err != nil {
		return Rule{}, f.err
	}
	for _, r := range f.rules {
		if strings.EqualFold(r.Code, code) {
			return r, nil
		}
	}
	return Rule{}, ErrNotFound
}

func TestEvaluateAccepted(t *testing.T) {
	svc := &Service{Store: fakeFinder{rules: map[string]Rule{"SUMMER25": summer25()}}}
	discount, rejection, err := svc.Evaluate(context.Background(), "summer25", 10_000, time.Now())
	require.NoError(t, err)
	require.Nil(t, rejection)
	require.NotNil(t, discount)
	require.Equal(t, pricing.Money(2500), discount.Applied)
	require.Equal(t, "SUMMER25", discount.Code)
}

func TestEvaluateSoftRejections(t *testing.T) {
	expired := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &Service{Store: fakeFinder{rules: map[string]Rule{
		"SUMMER25": summer25(),
		"OLD":      {Code: "OLD", Calc: pricing.CalcAmount, Amount: 100, IsActive: true, ValidTo: &expired},
	}}}

	cases := []struct {
		name     string
		code     string
		subtotal pricing.Money
		reason   string
	}{
		{"unknown code", "NOPE", 10_000, ReasonNotFound},
		{"below minimum", "SUMMER25", 4000, ReasonBelowMinimum},
		{"expired", "OLD", 10_000, ReasonOutOfWindow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			discount, rejection, err := svc.Evaluate(context.Background(), tc.code, tc.subtotal, time.Now())
			require.NoError(t, err, "soft rejections must not fail the evaluation")
			require.Nil(t, discount)
			require.NotNil(t, rejection)
			require.Equal(t, tc.reason, rejection.Reason)
		})
	}
}

func TestEvaluateStoreFailureIsFatal(t *testing.T) {
	svc := &Service{Store: fakeFinder{err: errors.New("connection refused")}}
	_, rejection, err := svc.Evaluate(context.Background(), "SUMMER25", 10_000, time.Now())
	require.Error(t, err)
	require.Nil(t, rejection)
}
