package notification

import (
	"context"

	"github.com/oshokin/echopulse/internal/domain/contact"
	"github.com/oshokin/echopulse/internal/logger"
)

// LogSender only logs notifications. It is used when no delivery transport is configured.
type LogSender struct{}

// Send logs the message that would have been delivered.
func (LogSender) Send(ctx context.Context, c *contact.Contact, ac AlertContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Notification (log only)",
		"alert_id", ac.AlertID,
		"contact_id", c.ID,
		"phone", NormalizePhone(c.Phone),
		"message", FormatMessage(c, ac),
	)

	return nil
}
