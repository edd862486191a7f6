package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/catalog"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/obs"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// Handler wires the checkout pipeline to HTTP.
type Handler struct {
	Svc            *Service
	Validate       *validator.Validate
	CurrencyCode   string
	CurrencySymbol string
}

// Quote computes a totals breakdown for the current cart without side
// effects. A rejected coupon does not fail the request.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	quote, err := h.Svc.Calculate(r.Context(), in)
	if err != nil {
		if obs.QuoteTotal != nil {
			obs.QuoteTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, err)
		return
	}
	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues("ok").Inc()
	}
	if quote.CouponRejection != nil && obs.CouponRejectionTotal != nil {
		obs.CouponRejectionTotal.WithLabelValues(quote.CouponRejection.Reason).Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":            h.present(quote.Totals),
		"couponRejection": quote.CouponRejection,
	})
}

// DeliveryOptions resolves every active delivery method's charge for the
// cart so the storefront can render options before one is chosen.
func (h *Handler) DeliveryOptions(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload struct {
		Items []catalog.LineRef `json:"items" validate:"required,min=1,dive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	options, err := h.Svc.DeliveryOptions(r.Context(), payload.Items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": options})
}

// TotalsView decorates the breakdown with presentation-only formatting. The
// currency symbol comes from configuration, never a process-wide default.
type TotalsView struct {
	pricing.Totals
	Currency     string `json:"currency"`
	TotalDisplay string `json:"totalDisplay"`
}

func (h *Handler) present(totals pricing.Totals) TotalsView {
	return TotalsView{
		Totals:       totals,
		Currency:     h.CurrencyCode,
		TotalDisplay: pricing.FormatMinor(totals.Total, h.CurrencySymbol),
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "pricing data temporarily unavailable", nil)
}
