package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewOrderConfirmationTask(t *testing.T) {
	payload := OrderConfirmationPayload{
		OrderID:       uuid.New(),
		CustomerName:  "Ava",
		CustomerEmail: "ava@example.com",
		Total:         12_345,
		Currency:      "USD",
		PlacedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	task, err := NewOrderConfirmationTask(payload)
	require.NoError(t, err)
	require.Equal(t, TaskOrderConfirmation, task.Type())

	var decoded OrderConfirmationPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, payload, decoded)
}

func TestNewOrderConfirmationTaskRequiresOrderID(t *testing.T) {
	_, err := NewOrderConfirmationTask(OrderConfirmationPayload{})
	require.Error(t, err)
}
