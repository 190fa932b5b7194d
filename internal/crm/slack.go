package crm

import (
	"context"
	"fmt"
	"strings"

	"shoplocal-backend/internal/models"

	"github.com/slack-go/slack"
)

// Compile-time check to ensure SlackNotifier implements Notifier
var _ Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts a human-readable transcript summary to a Slack channel.
// It is a secondary delivery channel: the CRM webhook remains the hand-off of
// record, and a Slack failure never counts as CRM delivery failure.
type SlackNotifier struct {
	client    *slack.Client
	channelID string
}

// NewSlackNotifier creates a Slack notifier for the given bot token and
// channel.
func NewSlackNotifier(botToken, channelID string) *SlackNotifier {
	return &SlackNotifier{
		client:    slack.New(botToken),
		channelID: channelID,
	}
}

// Deliver posts the formatted transcript to the configured channel.
func (n *SlackNotifier) Deliver(ctx context.Context, user *models.User, transcript []models.Message) error {
	if n.channelID == "" {
		return fmt.Errorf("%w: slack channel is not set", ErrNotConfigured)
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionText(formatTranscript(user, transcript), false),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to post transcript to Slack channel %s: %v", ErrDelivery, n.channelID, err)
	}

	return nil
}

// formatTranscript renders the participant identity and the ordered turns.
func formatTranscript(user *models.User, transcript []models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chat session with %s (%s)\n", user.Name, user.Email)
	for _, msg := range transcript {
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.Timestamp.Format("15:04:05"), msg.Role, msg.Content)
	}
	return b.String()
}
