// Package notify dispatches automation notifications to a chat
// platform. Falls back to logging when no messenger is configured.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Messenger abstracts a chat platform. Implementations handle
// platform-specific API calls.
type Messenger interface {
	// SendNotification posts a text message to a channel or recipient.
	SendNotification(ctx context.Context, recipient, text string) error

	// Platform returns the messenger platform identifier (e.g. "slack").
	Platform() string
}

// Notifier sends automation notifications through a configured
// messenger.
type Notifier struct {
	messenger Messenger // nil when no platform is configured
	recipient string
}

// New creates a Notifier. messenger may be nil; notifications are then
// logged instead of delivered.
func New(messenger Messenger, recipient string) *Notifier {
	return &Notifier{messenger: messenger, recipient: recipient}
}

// Notify delivers a message via the configured messenger, or logs it
// when none is configured.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if n.messenger == nil {
		log.Info().Str("message", message).Msg("notification (no messenger configured)")
		return nil
	}

	if err := n.messenger.SendNotification(ctx, n.recipient, message); err != nil {
		return fmt.Errorf("notify.Notifier.Notify: %s: %w", n.messenger.Platform(), err)
	}

	return nil
}
