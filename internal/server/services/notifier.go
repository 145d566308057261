package services

import (
	"context"

	"github.com/antong314/dayly/internal/logging"
)

// Notifier is told when a group receives its first photo of a day. A push
// gateway implements this in production; the default just logs.
type Notifier interface {
	FirstContentOfDay(ctx context.Context, groupID, senderID, day string, recipientIDs []string)
}

// LogNotifier writes notification events to the log instead of delivering
// them anywhere.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) FirstContentOfDay(ctx context.Context, groupID, senderID, day string, recipientIDs []string) {
	n.log.Info(ctx, "first photo of day",
		"group_id", groupID, "sender_id", senderID, "day", day, "recipients", len(recipientIDs))
}
