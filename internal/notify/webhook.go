package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

// WebhookNotifier POSTs critica alerts to an external endpoint. It sits on
// the best-effort side of the alerting boundary: a failed delivery is
// logged and forgotten.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewWebhookNotifier creates the notifier. An empty url disables it.
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(1)

	return &WebhookNotifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

// Enabled reports whether a webhook endpoint is configured.
func (n *WebhookNotifier) Enabled() bool {
	return n.url != ""
}

// Notify delivers one alert event.
func (n *WebhookNotifier) Notify(ctx context.Context, event models.AlertEvent) error {
	if !n.Enabled() {
		return nil
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to deliver alert webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}

	return nil
}
