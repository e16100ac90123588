// Package notify delivers account lifecycle notifications.
//
// UserService emits a "user created" event synchronously after the user
// row is committed. Which Notifier receives it is decided at startup:
// Mailer when SMTP is configured, LogNotifier otherwise.
package notify

import (
	"context"
	"log/slog"

	"github.com/sakif/learnpath/internal/model"
)

// Notifier receives account events.
type Notifier interface {
	UserCreated(ctx context.Context, user *model.User) error
}

// LogNotifier records events in the log instead of sending anything.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) UserCreated(_ context.Context, user *model.User) error {
	n.logger.Info("welcome notification skipped (no SMTP configured)",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)
	return nil
}
