// ABOUTME: Webhook notifier delivering rendered digests to a chat channel
// ABOUTME: Posts Discord-compatible JSON payloads, nothing else

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/farescout/farescout/models"
)

// Notifier delivers a rendered message verbatim to its channel.
type Notifier interface {
	Send(ctx context.Context, content string) error
}

// WebhookNotifier posts messages to a Discord-compatible webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Send posts the content as {"content": ...}. Any non-2xx response is an error.
func (n *WebhookNotifier) Send(ctx context.Context, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, models.TruncateBody(body))
	}
	return nil
}
