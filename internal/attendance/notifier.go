package attendance

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Delivery summarizes the direct reminders of one notification round.
type Delivery struct {
	Delivered int
	Failures  []*DeliveryError
}

// Notifier posts the channel summary and the direct reminders.
type Notifier struct {
	messenger Messenger
	texts     Texts
	logger    *zap.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(messenger Messenger, texts Texts, logger *zap.Logger) *Notifier {
	return &Notifier{
		messenger: messenger,
		texts:     texts,
		logger:    logger,
	}
}

// Notify posts exactly one channel message. With no absentees it is a
// confirmation; otherwise it mentions every absentee and a direct reminder is
// attempted for each of them. A failed reminder is logged and does not stop
// the remaining ones. A failed channel message aborts before any reminder.
func (n *Notifier) Notify(ctx context.Context, channelID uint64, window Window, absentees []Member) (Delivery, error) {
	var delivery Delivery

	if len(absentees) == 0 {
		if err := n.messenger.Send(ctx, channelID, n.texts.AllPresent(window)); err != nil {
			return delivery, fmt.Errorf("failed to send confirmation: %w", err)
		}

		n.logger.Info("Everyone reported", zap.Uint64("channel_id", channelID))

		return delivery, nil
	}

	if err := n.messenger.Send(ctx, channelID, n.texts.AbsentSummary(absentees)); err != nil {
		return delivery, fmt.Errorf("failed to send absentee summary: %w", err)
	}

	reminder := n.texts.DirectReminder(window)
	for _, member := range absentees {
		if err := n.messenger.SendDirect(ctx, member.ID, reminder); err != nil {
			failure := &DeliveryError{Member: member, Err: err}
			delivery.Failures = append(delivery.Failures, failure)

			n.logger.Warn("Could not send direct reminder",
				zap.Uint64("user_id", member.ID),
				zap.String("display_name", member.DisplayName),
				zap.Error(err))

			continue
		}

		delivery.Delivered++
	}

	n.logger.Info("Absentees notified",
		zap.Uint64("channel_id", channelID),
		zap.Int("absentees", len(absentees)),
		zap.Int("delivered", delivery.Delivered),
		zap.Int("failed", len(delivery.Failures)))

	return delivery, nil
}
