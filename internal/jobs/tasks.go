package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/rumor-bot/internal/reply"
)

const TaskTypeDeliverReply = "reply:deliver"

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// DefaultQueues gives reply delivery priority over anything else on the worker.
var DefaultQueues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
}

// DeliverReplyPayload is one turn's replies for one chat.
type DeliverReplyPayload struct {
	ChatID        int64           `json:"chat_id"`
	Messages      []reply.Message `json:"messages"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

func NewDeliverReplyTask(payload DeliverReplyPayload, maxRetry int) (*asynq.Task, error) {
	if payload.ChatID == 0 {
		return nil, errors.New("chat id is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeDeliverReply, data, asynq.Queue(QueueCritical), asynq.MaxRetry(maxRetry)), nil
}
