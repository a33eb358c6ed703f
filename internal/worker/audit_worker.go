package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/opx-exchange/auth-service/internal/events"
)

// StartAuditWorker subscribes an audit logger to authentication events.
// The audit trail is the one place where token failure detail may be
// recorded; HTTP responses stay coarse.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	audit := logger.Named("audit")

	handler := func(_ context.Context, event events.Event) error {
		fields := []zap.Field{
			zap.String("event", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Time("occurred_at", event.OccurredAt),
		}
		for k, v := range event.Metadata {
			fields = append(fields, zap.String(k, v))
		}
		audit.Info("auth event", fields...)
		return nil
	}

	dispatcher.Subscribe(events.EventUserRegistered, handler)
	dispatcher.Subscribe(events.EventUserLogin, handler)
	dispatcher.Subscribe(events.EventSessionRevoked, handler)
}
