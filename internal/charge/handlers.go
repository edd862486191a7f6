package charge

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// Handler exposes administrative charge definition endpoints.
type Handler struct {
	Store    *Store
	Validate *validator.Validate
}

type chargePayload struct {
	Label     string   `json:"label" validate:"required,max=120"`
	Kind      string   `json:"kind" validate:"required,oneof=charge discount"`
	CalcType  string   `json:"calcType" validate:"required,oneof=percent amount"`
	Amount    *int64   `json:"amount" validate:"omitempty,gte=0"`
	Percent   *float64 `json:"percent" validate:"omitempty,gte=0,lte=100"`
	IsActive  *bool    `json:"isActive"`
	SortOrder int32    `json:"sortOrder" validate:"gte=0"`
}

// List returns every charge definition.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Store.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list charges", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toViews(defs)})
}

// Create inserts a charge definition.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	def, ok := h.decode(w, r)
	if !ok {
		return
	}
	def.ID = uuid.New()
	created, err := h.Store.Create(r.Context(), def)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create charge", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toView(created)})
}

// Update mutates a charge definition identified by id.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return
	}
	def, ok := h.decode(w, r)
	if !ok {
		return
	}
	def.ID = id
	updated, err := h.Store.Update(r.Context(), def)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "charge not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update charge", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toView(updated)})
}

// Delete removes a charge definition.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "charge not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete charge", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"id": id.String()}})
}

// Reorder persists a drag-reordered definition list in one batched write.
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Items []ReorderItem `json:"items" validate:"required,min=1,dive"`
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
	if err := h.Store.Reorder(r.Context(), payload.Items); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no matching charges", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to reorder charges", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int{"updated": len(payload.Items)}})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (pricing.ChargeDefinition, bool) {
	var payload chargePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return pricing.ChargeDefinition{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return pricing.ChargeDefinition{}, false
		}
	}
	def, err := buildDefinition(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return pricing.ChargeDefinition{}, false
	}
	return def, true
}

// buildDefinition converts the loosely typed admin payload into the tagged
// calculation form, validating once at the store boundary.
func buildDefinition(payload chargePayload) (pricing.ChargeDefinition, error) {
	calc, err := pricing.ParseCalcType(payload.CalcType)
	if err != nil {
		return pricing.ChargeDefinition{}, err
	}
	kind := pricing.ChargeKind(strings.ToLower(strings.TrimSpace(payload.Kind)))
	if !kind.Valid() {
		return pricing.ChargeDefinition{}, errors.New("kind must be charge or discount")
	}
	def := pricing.ChargeDefinition{
		Label:     payload.Label,
		Kind:      kind,
		Calc:      calc,
		IsActive:  true,
		SortOrder: payload.SortOrder,
	}
	if payload.IsActive != nil {
		def.IsActive = *payload.IsActive
	}
	switch calc {
	case pricing.CalcAmount:
		if payload.Amount == nil {
			return pricing.ChargeDefinition{}, errors.New("amount is required for amount charges")
		}
		def.Amount = *payload.Amount
	case pricing.CalcPercent:
		if payload.Percent == nil {
			return pricing.ChargeDefinition{}, errors.New("percent is required for percent charges")
		}
		def.PercentBps = int32(math.Round(*payload.Percent * 100))
	}
	return def, nil
}

// View is the JSON shape for a charge definition.
type View struct {
	ID        uuid.UUID          `json:"id"`
	Label     string             `json:"label"`
	Kind      pricing.ChargeKind `json:"kind"`
	CalcType  pricing.CalcType   `json:"calcType"`
	Amount    pricing.Money      `json:"amount"`
	Percent   float64            `json:"percent"`
	IsActive  bool               `json:"isActive"`
	SortOrder int32              `json:"sortOrder"`
}

func toView(def pricing.ChargeDefinition) View {
	return View{
		ID:        def.ID,
		Label:     def.Label,
		Kind:      def.Kind,
		CalcType:  def.Calc,
		Amount:    def.Amount,
		Percent:   float64(def.PercentBps) / 100,
		IsActive:  def.IsActive,
		SortOrder: def.SortOrder,
	}
}

func toViews(defs []pricing.ChargeDefinition) []View {
	views := make([]View, 0, len(defs))
	for _, def := range defs {
		views = append(views, toView(def))
	}
	return views
}
