package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/pkg/metrics"
)

// Metrics times every update and counts it by event kind and outcome. Failed
// updates are labeled with their error code.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) (err error) {
		started := time.Now()
		defer func() {
			metrics.RecordUpdate(handlers.EventKind(c), updateStatus(err), time.Since(started))
		}()
		return next(c)
	}
}

func updateStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return "error:" + apperrors.CodeOf(err)
}
