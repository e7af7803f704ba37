package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/rumor-bot/internal/delivery"
	"github.com/Proton-105/rumor-bot/internal/jobs"
	"github.com/Proton-105/rumor-bot/pkg/logger"
)

// DeliverReplyHandler sends queued replies. A failed send is retried by asynq
// from the first message of the batch.
type DeliverReplyHandler struct {
	deliverer delivery.Deliverer
	log       *slog.Logger
}

func NewDeliverReplyHandler(deliverer delivery.Deliverer, log *slog.Logger) *DeliverReplyHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DeliverReplyHandler{deliverer: deliverer, log: log}
}

func (h *DeliverReplyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.DeliverReplyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "reply delivery: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, payload.CorrelationID)
	}

	if err := h.deliverer.Deliver(ctx, payload.ChatID, payload.Messages); err != nil {
		return err
	}

	h.log.DebugContext(ctx, "reply delivery: sent",
		slog.Int64("chat_id", payload.ChatID),
		slog.Int("messages", len(payload.Messages)),
		slog.String("correlation_id", payload.CorrelationID),
	)
	return nil
}
