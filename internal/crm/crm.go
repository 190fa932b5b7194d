// Package crm formats finalized conversation transcripts and delivers them to
// external destinations. The webhook channel is the CRM hand-off proper; any
// other registered channel receives a best-effort copy.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shoplocal-backend/internal/models"
)

var (
	// ErrNotConfigured is returned when no delivery destination is configured.
	// Absence of configuration fails delivery explicitly, never silently.
	ErrNotConfigured = errors.New("crm destination not configured")

	// ErrDelivery is returned when the destination is unreachable or rejects
	// the payload.
	ErrDelivery = errors.New("crm delivery failed")
)

// Notifier delivers one finalized transcript. Implementations must propagate
// failures so the caller can leave the delivered flag unset and retry later.
type Notifier interface {
	Deliver(ctx context.Context, user *models.User, transcript []models.Message) error
}

// --- Webhook payload, shaped for the CRM's contact + conversation intake ---

type contactPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type messagePayload struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type conversationPayload struct {
	Messages      []messagePayload `json:"messages"`
	Summary       string           `json:"summary"`
	StartedAt     string           `json:"startedAt,omitempty"`
	LastMessageAt string           `json:"lastMessageAt,omitempty"`
}

type webhookPayload struct {
	Contact      contactPayload      `json:"contact"`
	Conversation conversationPayload `json:"conversation"`
}

// Compile-time check to ensure WebhookNotifier implements Notifier
var _ Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts finalized transcripts to the CRM webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier. An empty URL is allowed at
// construction; Deliver reports ErrNotConfigured when it is used.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client}
}

// Deliver formats the transcript and posts it to the webhook. The delivered
// flag must only be set by the caller after this returns nil.
func (n *WebhookNotifier) Deliver(ctx context.Context, user *models.User, transcript []models.Message) error {
	if n.url == "" {
		return fmt.Errorf("%w: CRM_WEBHOOK_URL is not set", ErrNotConfigured)
	}

	body, err := json.Marshal(buildWebhookPayload(user, transcript))
	if err != nil {
		return fmt.Errorf("failed to marshal CRM payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build CRM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: webhook returned status %d", ErrDelivery, resp.StatusCode)
	}

	return nil
}

func buildWebhookPayload(user *models.User, transcript []models.Message) webhookPayload {
	firstName, lastName := splitName(user.Name)

	messages := make([]messagePayload, 0, len(transcript))
	for _, msg := range transcript {
		messages = append(messages, messagePayload{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp.Format(time.RFC3339),
		})
	}

	conv := conversationPayload{
		Messages: messages,
		Summary:  fmt.Sprintf("Chat session with %s", user.Name),
	}
	if len(messages) > 0 {
		conv.StartedAt = messages[0].Timestamp
		conv.LastMessageAt = messages[len(messages)-1].Timestamp
	}

	return webhookPayload{
		Contact: contactPayload{
			FirstName: firstName,
			LastName:  lastName,
			Email:     user.Email,
		},
		Conversation: conv,
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
