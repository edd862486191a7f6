package coupon

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// Handler exposes administrative coupon management endpoints.
type Handler struct {
	Store    *Store
	Validate *validator.Validate
}

type couponPayload struct {
	Code           string     `json:"code" validate:"required,max=64"`
	CalcType       string     `json:"calcType" validate:"required,oneof=percent amount"`
	Amount         *int64     `json:"amount" validate:"omitempty,gte=0"`
	Percent        *float64   `json:"percent" validate:"omitempty,gte=0,lte=100"`
	MinOrderAmount *int64     `json:"minOrderAmount" validate:"omitempty,gte=0"`
	ValidFrom      *time.Time `json:"validFrom"`
	ValidTo        *time.Time `json:"validTo"`
	IsActive       *bool      `json:"isActive"`
}

// Create inserts a new coupon.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	rec, ok := h.decode(w, r, "")
	if !ok {
		return
	}
	rec.ID = uuid.New()
	created, err := h.Store.Create(r.Context(), rec)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Update mutates an existing coupon identified by code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	rec, ok := h.decode(w, r, code)
	if !ok {
		return
	}
	updated, err := h.Store.Update(r.Context(), code, rec)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Delete removes a coupon by code.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if err := h.Store.Delete(r.Context(), code); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"code": code}})
}

// List returns one page of coupons.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	records, err := h.Store.List(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	total, err := h.Store.Count(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       records,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// decode parses, validates and converts the admin payload into a Record.
// Percent values become basis points here, at the store boundary, so the
// calculation engine only ever sees validated bps.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, code string) (Record, bool) {
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Record{}, false
	}
	if code != "" {
		payload.Code = code
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return Record{}, false
		}
	}
	rec, err := buildRecord(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return Record{}, false
	}
	return rec, true
}

func buildRecord(payload couponPayload) (Record, error) {
	calc, err := pricing.ParseCalcType(payload.CalcType)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Code:     strings.TrimSpace(payload.Code),
		Calc:     calc,
		IsActive: true,
	}
	if payload.IsActive != nil {
		rec.IsActive = *payload.IsActive
	}
	switch calc {
	case pricing.CalcAmount:
		if payload.Amount == nil {
			return Record{}, errors.New("amount is required for amount coupons")
		}
		rec.Amount = *payload.Amount
	case pricing.CalcPercent:
		if payload.Percent == nil {
			return Record{}, errors.New("percent is required for percent coupons")
		}
		rec.PercentBps = int32(math.Round(*payload.Percent * 100))
	}
	if payload.MinOrderAmount != nil {
		min := pricing.Money(*payload.MinOrderAmount)
		rec.MinOrderAmount = &min
	}
	if payload.ValidFrom != nil && payload.ValidTo != nil && payload.ValidTo.Before(*payload.ValidFrom) {
		return Record{}, errors.New("validTo must not precede validFrom")
	}
	rec.ValidFrom = payload.ValidFrom
	rec.ValidTo = payload.ValidTo
	return rec, nil
}
