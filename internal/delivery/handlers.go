package delivery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// Handler exposes administrative delivery method and weight rule endpoints.
type Handler struct {
	Store    *Store
	Validate *validator.Validate
}

type methodPayload struct {
	Label          string `json:"label" validate:"required,max=120"`
	FallbackAmount int64  `json:"fallbackAmount" validate:"gte=0"`
	IsDefault      bool   `json:"isDefault"`
	IsActive       *bool  `json:"isActive"`
}

type rulePayload struct {
	MinWeightGrams     int64  `json:"minWeightGrams" validate:"gte=0"`
	MaxWeightGrams     *int64 `json:"maxWeightGrams"`
	BaseWeightGrams    int64  `json:"baseWeightGrams" validate:"gte=0"`
	BaseCharge         int64  `json:"baseCharge" validate:"gte=0"`
	IncrementUnitGrams int64  `json:"incrementUnitGrams" validate:"gte=0"`
	IncrementCharge    int64  `json:"incrementCharge" validate:"gte=0"`
	RoundingMode       string `json:"roundingMode" validate:"required,oneof=ceil floor round"`
	IsActive           *bool  `json:"isActive"`
	SortOrder          int32  `json:"sortOrder" validate:"gte=0"`
}

// ListMethods returns every delivery method, including inactive ones, for the
// admin console.
func (h *Handler) ListMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.Store.ListMethods(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list delivery methods", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toMethodViews(methods)})
}

// CreateMethod inserts a delivery method.
func (h *Handler) CreateMethod(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload[methodPayload](h.Validate, w, r)
	if !ok {
		return
	}
	method := methodFromPayload(payload)
	method.ID = uuid.New()
	created, err := h.Store.CreateMethod(r.Context(), method)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create delivery method", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toMethodView(created)})
}

// UpdateMethod mutates a delivery method.
func (h *Handler) UpdateMethod(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	payload, ok := decodePayload[methodPayload](h.Validate, w, r)
	if !ok {
		return
	}
	method := methodFromPayload(payload)
	method.ID = id
	updated, err := h.Store.UpdateMethod(r.Context(), method)
	if err != nil {
		h.writeStoreError(w, err, "failed to update delivery method")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toMethodView(updated)})
}

// DeleteMethod removes a delivery method and its rules.
func (h *Handler) DeleteMethod(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteMethod(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to delete delivery method")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"id": id.String()}})
}

// CreateRule adds a weight rule to a method.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	methodID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	payload, ok := decodePayload[rulePayload](h.Validate, w, r)
	if !ok {
		return
	}
	rule := ruleFromPayload(payload)
	rule.ID = uuid.New()
	if err := validateRuleBounds(rule); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	created, err := h.Store.CreateRule(r.Context(), methodID, rule)
	if err != nil {
		h.writeStoreError(w, err, "failed to create weight rule")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toRuleView(created)})
}

// UpdateRule mutates a weight rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	methodID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	ruleID, ok := pathUUID(w, r, "ruleID")
	if !ok {
		return
	}
	payload, ok := decodePayload[rulePayload](h.Validate, w, r)
	if !ok {
		return
	}
	rule := ruleFromPayload(payload)
	rule.ID = ruleID
	if err := validateRuleBounds(rule); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	updated, err := h.Store.UpdateRule(r.Context(), methodID, rule)
	if err != nil {
		h.writeStoreError(w, err, "failed to update weight rule")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toRuleView(updated)})
}

// DeleteRule removes a weight rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	methodID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	ruleID, ok := pathUUID(w, r, "ruleID")
	if !ok {
		return
	}
	if err := h.Store.DeleteRule(r.Context(), methodID, ruleID); err != nil {
		h.writeStoreError(w, err, "failed to delete weight rule")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"id": ruleID.String()}})
}

// ReorderRules persists a drag-reordered rule list in one batched write.
func (h *Handler) ReorderRules(w http.ResponseWriter, r *http.Request) {
	methodID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
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
	if err := h.Store.ReorderRules(r.Context(), methodID, payload.Items); err != nil {
		h.writeStoreError(w, err, "failed to reorder weight rules")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int{"updated": len(payload.Items)}})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrMethodNotFound), errors.Is(err, ErrRuleNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrRuleOverlap):
		common.JSONError(w, http.StatusUnprocessableEntity, "RULE_OVERLAP", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}

func decodePayload[T any](validate *validator.Validate, w http.ResponseWriter, r *http.Request) (T, bool) {
	var payload T
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return payload, false
	}
	if validate != nil {
		if err := validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return payload, false
		}
	}
	return payload, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func methodFromPayload(payload methodPayload) pricing.DeliveryMethod {
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	return pricing.DeliveryMethod{
		Label:          payload.Label,
		FallbackAmount: payload.FallbackAmount,
		IsDefault:      payload.IsDefault,
		IsActive:       active,
	}
}

func ruleFromPayload(payload rulePayload) pricing.WeightRule {
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	return pricing.WeightRule{
		MinWeightGrams:     payload.MinWeightGrams,
		MaxWeightGrams:     payload.MaxWeightGrams,
		BaseWeightGrams:    payload.BaseWeightGrams,
		BaseCharge:         payload.BaseCharge,
		IncrementUnitGrams: payload.IncrementUnitGrams,
		IncrementCharge:    payload.IncrementCharge,
		Rounding:           pricing.RoundingMode(payload.RoundingMode),
		IsActive:           active,
		SortOrder:          payload.SortOrder,
	}
}
