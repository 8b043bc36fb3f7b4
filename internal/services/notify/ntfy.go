package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
)

// Ntfy pushes messages to an ntfy pub-sub topic.
type Ntfy struct {
	cfg    *models.NtfyConfig
	client HTTPClient
	logger zerolog.Logger
}

// NewNtfy creates the ntfy channel.
func NewNtfy(cfg *models.NtfyConfig, client HTTPClient, logger zerolog.Logger) *Ntfy {
	return &Ntfy{cfg: cfg, client: client, logger: logger}
}

// Name returns the channel name.
func (n *Ntfy) Name() string { return "ntfy" }

// Enabled reports whether the channel is configured.
func (n *Ntfy) Enabled() bool { return n.cfg != nil }

// ntfyTag maps a status onto the emoji shortcode shown by ntfy clients.
func ntfyTag(status models.NotifyStatus) string {
	switch status {
	case models.NotifySuccess:
		return "white_check_mark"
	case models.NotifyWarning:
		return "warning"
	case models.NotifyFailure:
		return "x"
	default:
		return "boom"
	}
}

// Send publishes the message to the configured topic.
func (n *Ntfy) Send(ctx context.Context, msg models.NotifyMessage) error {
	url := strings.TrimSuffix(n.cfg.URL, "/") + "/" + n.cfg.Topic

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("building ntfy request: %w", err)
	}
	req.Header.Set("Title", msg.Title)
	req.Header.Set("Priority", n.cfg.Priority)
	req.Header.Set("Tags", ntfyTag(msg.Status))
	if n.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending ntfy request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	return nil
}
