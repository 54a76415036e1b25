package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers fire-and-forget user notifications. Implementations must
// never block the calling request path on delivery and must swallow delivery
// failures (logging them is enough).
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message string)
}

// LogNotifier writes notifications to the application log. It is the default
// emitter and the fallback when no broker is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, userID uuid.UUID, message string) {
	n.log.Info("user notification",
		zap.String("user_id", userID.String()),
		zap.String("message", message),
	)
}
