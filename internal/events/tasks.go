package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/obs"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

// TaskOrderConfirmation is the asynq task type for order confirmation
// notifications processed by the worker binary.
const TaskOrderConfirmation = "order:confirmation"

// OrderConfirmationPayload is the task body for an order confirmation.
type OrderConfirmationPayload struct {
	OrderID       uuid.UUID     `json:"orderId"`
	CustomerName  string        `json:"customerName"`
	CustomerEmail string        `json:"customerEmail"`
	Total         pricing.Money `json:"total"`
	Currency      string        `json:"currency"`
	PlacedAt      time.Time     `json:"placedAt"`
}

// NewOrderConfirmationTask builds the asynq task for a freshly placed order.
func NewOrderConfirmationTask(payload OrderConfirmationPayload) (*asynq.Task, error) {
	if payload.OrderID == uuid.Nil {
		return nil, errors.New("events: order id is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("events: encode payload: %w", err)
	}
	return asynq.NewTask(TaskOrderConfirmation, body, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// Enqueuer wraps the asynq client. A nil client disables enqueueing so order
// placement still succeeds when the task broker is not configured.
type Enqueuer struct {
	Client *asynq.Client
	Logger zerolog.Logger
}

// EnqueueOrderConfirmation schedules the confirmation notification. Failures
// are logged and swallowed; a lost notification never fails the order.
func (e *Enqueuer) EnqueueOrderConfirmation(ctx context.Context, payload OrderConfirmationPayload) {
	if e == nil || e.Client == nil {
		return
	}
	task, err := NewOrderConfirmationTask(payload)
	if err != nil {
		e.Logger.Error().Err(err).Str("order_id", payload.OrderID.String()).Msg("build order confirmation task")
		return
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if err != nil {
		e.Logger.Error().Err(err).Str("order_id", payload.OrderID.String()).Msg("enqueue order confirmation")
		return
	}
	if obs.OrderConfirmationTasks != nil {
		obs.OrderConfirmationTasks.Inc()
	}
	e.Logger.Debug().Str("task_id", info.ID).Str("order_id", payload.OrderID.String()).Msg("order confirmation enqueued")
}
