package slack

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/tempohq/tempo/internal/notify"
)

// SlackAPI abstracts the subset of the Slack client used by Messenger.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// Messenger implements notify.Messenger for Slack.
type Messenger struct {
	api SlackAPI
}

// Compile-time interface check.
var _ notify.Messenger = (*Messenger)(nil)

// NewMessenger creates a Messenger with the given API client.
func NewMessenger(api SlackAPI) *Messenger {
	return &Messenger{api: api}
}

// SendNotification posts a text message to a Slack channel or user.
func (m *Messenger) SendNotification(_ context.Context, recipient, text string) error {
	_, _, err := m.api.PostMessage(recipient, slacklib.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack.Messenger.SendNotification: %w", err)
	}

	return nil
}

// Platform returns the messenger platform identifier.
func (m *Messenger) Platform() string {
	return "slack"
}
