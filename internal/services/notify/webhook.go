package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
)

// Webhook delivers a structured JSON payload to a configured endpoint.
type Webhook struct {
	cfg    *models.WebhookConfig
	client HTTPClient
	logger zerolog.Logger
}

// NewWebhook creates the webhook channel.
func NewWebhook(cfg *models.WebhookConfig, client HTTPClient, logger zerolog.Logger) *Webhook {
	return &Webhook{cfg: cfg, client: client, logger: logger}
}

// Name returns the channel name.
func (w *Webhook) Name() string { return "webhook" }

// Enabled reports whether the channel is configured.
func (w *Webhook) Enabled() bool { return w.cfg != nil }

// webhookPayload is the wire format posted to the endpoint.
type webhookPayload struct {
	Title     string `json:"title"`
	Status    string `json:"status"`
	Color     string `json:"color"`
	Body      string `json:"body"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"timestamp"`
}

// statusColor maps a status onto the color tag carried in the payload.
func statusColor(status models.NotifyStatus) string {
	switch status {
	case models.NotifySuccess:
		return "green"
	case models.NotifyWarning:
		return "yellow"
	case models.NotifyFailure:
		return "red"
	default:
		return "purple"
	}
}

// Send posts the message as JSON.
func (w *Webhook) Send(ctx context.Context, msg models.NotifyMessage) error {
	payload := webhookPayload{
		Title:     msg.Title,
		Status:    msg.Status.String(),
		Color:     statusColor(msg.Status),
		Body:      msg.Body,
		Hostname:  msg.Hostname,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
