package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/rumor-bot/internal/delivery"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/pkg/logger"
	"github.com/Proton-105/rumor-bot/pkg/metrics"
)

// Manager describes the minimal queue operations needed by the application.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type manager struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		client: asynq.NewClient(redisOpt),
		log:    log,
	}
}

func (m *manager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return m.client.EnqueueContext(ctx, task, opts...)
}

func (m *manager) Close() error {
	return m.client.Close()
}

// QueueDeliverer hands replies to the worker instead of sending them in the update handler.
type QueueDeliverer struct {
	manager  Manager
	maxRetry int
	log      *slog.Logger
}

var _ delivery.Deliverer = (*QueueDeliverer)(nil)

func NewQueueDeliverer(manager Manager, maxRetry int, log *slog.Logger) *QueueDeliverer {
	if log == nil {
		log = slog.Default()
	}

	return &QueueDeliverer{manager: manager, maxRetry: maxRetry, log: log}
}

func (q *QueueDeliverer) Deliver(ctx context.Context, chatID int64, messages []reply.Message) error {
	if len(messages) == 0 {
		return nil
	}

	task, err := NewDeliverReplyTask(DeliverReplyPayload{
		ChatID:        chatID,
		Messages:      messages,
		CorrelationID: logger.CorrelationIDFromContext(ctx),
	}, q.maxRetry)
	if err != nil {
		return fmt.Errorf("build delivery task: %w", err)
	}

	info, err := q.manager.Enqueue(ctx, task)
	if err != nil {
		metrics.RecordDelivery(delivery.ModeQueue, "error")
		return fmt.Errorf("enqueue delivery: %w", err)
	}

	metrics.RecordDelivery(delivery.ModeQueue, "enqueued")
	q.log.DebugContext(ctx, "reply delivery enqueued",
		slog.Int64("chat_id", chatID),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
	)
	return nil
}
