package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/config"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/events"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/obs"
	"github.com/mdfasadik-dev/pnh-agro-api/internal/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	taskRedis, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse task broker url")
	}

	srv := asynq.NewServer(taskRedis, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 5),
		Queues:      map[string]int{"default": 1},
	})

	mailer := common.NopEmailSender{}
	handler := confirmationHandler{
		Mailer:         mailer,
		CurrencySymbol: cfg.CurrencySymbol,
		Logger:         logger,
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(events.TaskOrderConfirmation, handler.Handle)

	go func() {
		sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-sigCtx.Done()
		srv.Shutdown()
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
	logger.Info().Msg("worker stopped")
}

type confirmationHandler struct {
	Mailer         common.EmailSender
	CurrencySymbol string
	Logger         zerolog.Logger
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	return common.AtoiDefault(strings.TrimSpace(os.Getenv(key)), fallback)
}

// Handle renders and sends the order confirmation email.
func (h confirmationHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload events.OrderConfirmationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode confirmation payload: %w", err)
	}
	display := pricing.FormatMinor(payload.Total, h.CurrencySymbol)
	subject := fmt.Sprintf("Order %s confirmed", payload.OrderID)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your order <strong>%s</strong> has been placed. Total due on delivery: <strong>%s %s</strong>.</p>",
		payload.CustomerName, payload.OrderID, display, payload.Currency,
	)
	if err := h.Mailer.Send(payload.CustomerEmail, subject, body); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	h.Logger.Info().Str("order_id", payload.OrderID.String()).Str("total", display).Msg("confirmation sent")
	return nil
}
