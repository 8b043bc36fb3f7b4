// Package notify formats run outcomes and delivers them to the configured
// channels.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
)

// Notifier is one delivery channel.
type Notifier interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, msg models.NotifyMessage) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher fans a message out to every enabled channel. Delivery failures
// are logged and never surface to the run outcome.
type Dispatcher struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewDispatcher wires up the channels present in the configuration.
func NewDispatcher(cfg models.NotifyConfig, logger zerolog.Logger) *Dispatcher {
	client := &http.Client{Timeout: 30 * time.Second}

	var notifiers []Notifier
	if cfg.Ntfy != nil {
		notifiers = append(notifiers, NewNtfy(cfg.Ntfy, client, logger))
	}
	if cfg.Webhook != nil {
		notifiers = append(notifiers, NewWebhook(cfg.Webhook, &http.Client{Timeout: cfg.Webhook.Timeout}, logger))
	}

	return &Dispatcher{notifiers: notifiers, logger: logger}
}

// NewDispatcherWithNotifiers creates a dispatcher over explicit channels (for testing).
func NewDispatcherWithNotifiers(logger zerolog.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, logger: logger}
}

// Send delivers msg to every enabled channel.
func (d *Dispatcher) Send(ctx context.Context, msg models.NotifyMessage) []models.NotifyResult {
	var results []models.NotifyResult

	for _, n := range d.notifiers {
		if !n.Enabled() {
			continue
		}
		res := models.NotifyResult{Channel: n.Name()}
		if err := n.Send(ctx, msg); err != nil {
			res.Error = err
			d.logger.Error().Err(err).Str("channel", n.Name()).Msg("notification delivery failed")
		} else {
			res.Sent = true
			d.logger.Info().Str("channel", n.Name()).Msg("notification sent")
		}
		results = append(results, res)
	}

	return results
}

// statusOf maps a run classification onto a notification status.
func statusOf(c models.Classification) models.NotifyStatus {
	switch c {
	case models.ClassSuccess:
		return models.NotifySuccess
	case models.ClassWarning:
		return models.NotifyWarning
	default:
		return models.NotifyFailure
	}
}

// BuildReportMessage renders a BackupReport into a channel-independent message.
func BuildReportMessage(report *models.BackupReport) models.NotifyMessage {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	overall := report.Overall()
	msg := models.NotifyMessage{
		Status:   statusOf(overall),
		Title:    fmt.Sprintf("Backup %s on %s", overall, hostname),
		Hostname: hostname,
		Started:  report.Started,
		Duration: report.Duration,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Started: %s\n", report.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Duration: %s\n", report.Duration.Round(time.Second))

	if failed := report.Failed(); len(failed) > 0 {
		fmt.Fprintf(&b, "Failed targets: %s\n", strings.Join(failed, ", "))
	}
	if ok := report.Succeeded(); len(ok) > 0 {
		fmt.Fprintf(&b, "Completed targets: %s\n", strings.Join(ok, ", "))
	}

	if report.Stats.Known {
		fmt.Fprintf(&b, "Transferred: %s\n", formatBytes(report.Stats.BytesTransferred))
		fmt.Fprintf(&b, "Files created/updated/deleted: %d/%d/%d\n",
			report.Stats.FilesCreated, report.Stats.FilesUpdated, report.Stats.FilesDeleted)
	}
	if report.StatsIncomplete {
		b.WriteString("Transfer statistics could not be fully parsed\n")
	}

	msg.Body = b.String()
	return msg
}

// BuildCrashMessage renders an abnormal termination, distinguishable from a
// clean failure.
func BuildCrashMessage(cause any) models.NotifyMessage {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return models.NotifyMessage{
		Status:   models.NotifyCrashed,
		Title:    fmt.Sprintf("Backup crashed on %s", hostname),
		Hostname: hostname,
		Body:     fmt.Sprintf("The backup run terminated abnormally: %v", cause),
	}
}

// formatBytes formats bytes into human-readable form.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
