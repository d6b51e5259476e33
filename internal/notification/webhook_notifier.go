package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/talentloop/talentsync/internal/config"
	"github.com/talentloop/talentsync/internal/models"
)

// WebhookNotifier POSTs each notification as JSON to a configured URL.
// Delivery is best effort; a non-2xx response is reported as an error and
// logged by the service, never retried.
type WebhookNotifier struct {
	enabled bool
	url     string
	client  *http.Client
	logger  zerolog.Logger
}

func NewWebhookNotifier(cfg config.WebhookConfig, logger zerolog.Logger) *WebhookNotifier {
	url := strings.TrimSpace(cfg.URL)
	return &WebhookNotifier{
		enabled: cfg.Enabled && url != "",
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With().Str("notifier", "webhook").Logger(),
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, notif models.Notification) error {
	if !n.enabled {
		return nil
	}

	payload, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Info().
		Str("notification_id", notif.ID).
		Str("event_type", string(notif.EventType)).
		Msg("webhook notification delivered")
	return nil
}

func (n *WebhookNotifier) String() string {
	if !n.enabled {
		return "WebhookNotifier(disabled)"
	}
	return fmt.Sprintf("WebhookNotifier(url=%s)", n.url)
}
