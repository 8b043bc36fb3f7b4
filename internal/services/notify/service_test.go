package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient captures requests and returns a canned response.
type mockHTTPClient struct {
	doFunc   func(req *http.Request) (*http.Response, error)
	requests []*http.Request
	bodies   []string
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		m.bodies = append(m.bodies, string(body))
	} else {
		m.bodies = append(m.bodies, "")
	}
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}, nil
}

type mockNotifier struct {
	name    string
	enabled bool
	sendErr error
	sent    []models.NotifyMessage
}

func (m *mockNotifier) Name() string  { return m.name }
func (m *mockNotifier) Enabled() bool { return m.enabled }
func (m *mockNotifier) Send(ctx context.Context, msg models.NotifyMessage) error {
	m.sent = append(m.sent, msg)
	return m.sendErr
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestDispatcher_FanOut(t *testing.T) {
	a := &mockNotifier{name: "a", enabled: true}
	b := &mockNotifier{name: "b", enabled: true}
	off := &mockNotifier{name: "off", enabled: false}

	d := NewDispatcherWithNotifiers(testLogger(), a, b, off)
	results := d.Send(context.Background(), models.NotifyMessage{Title: "t"})

	require.Len(t, results, 2)
	assert.True(t, results[0].Sent)
	assert.True(t, results[1].Sent)
	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
	assert.Empty(t, off.sent)
}

func TestDispatcher_FailureDoesNotAbort(t *testing.T) {
	failing := &mockNotifier{name: "bad", enabled: true, sendErr: errors.New("boom")}
	ok := &mockNotifier{name: "good", enabled: true}

	d := NewDispatcherWithNotifiers(testLogger(), failing, ok)
	results := d.Send(context.Background(), models.NotifyMessage{})

	require.Len(t, results, 2)
	assert.False(t, results[0].Sent)
	assert.Error(t, results[0].Error)
	assert.True(t, results[1].Sent)
}

func TestNtfy_Send(t *testing.T) {
	client := &mockHTTPClient{}
	n := NewNtfy(&models.NtfyConfig{
		URL:      "https://ntfy.example.org/",
		Topic:    "backups",
		Token:    "tk_secret",
		Priority: "high",
	}, client, testLogger())

	err := n.Send(context.Background(), models.NotifyMessage{
		Status: models.NotifyWarning,
		Title:  "Backup warning on host",
		Body:   "2 targets completed with warnings",
	})

	require.NoError(t, err)
	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "https://ntfy.example.org/backups", req.URL.String())
	assert.Equal(t, "Backup warning on host", req.Header.Get("Title"))
	assert.Equal(t, "high", req.Header.Get("Priority"))
	assert.Equal(t, "warning", req.Header.Get("Tags"))
	assert.Equal(t, "Bearer tk_secret", req.Header.Get("Authorization"))
	assert.Equal(t, "2 targets completed with warnings", client.bodies[0])
}

func TestNtfy_ServerError(t *testing.T) {
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusForbidden, Body: io.NopCloser(strings.NewReader(""))}, nil
		},
	}
	n := NewNtfy(&models.NtfyConfig{URL: "https://ntfy.example.org", Topic: "backups"}, client, testLogger())

	err := n.Send(context.Background(), models.NotifyMessage{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestWebhook_Send(t *testing.T) {
	client := &mockHTTPClient{}
	w := NewWebhook(&models.WebhookConfig{URL: "https://hooks.example.org/backup"}, client, testLogger())

	err := w.Send(context.Background(), models.NotifyMessage{
		Status:   models.NotifyCrashed,
		Title:    "Backup crashed on host",
		Body:     "panic: nil pointer",
		Hostname: "host",
	})

	require.NoError(t, err)
	require.Len(t, client.bodies, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(client.bodies[0]), &payload))
	assert.Equal(t, "crashed", payload["status"])
	assert.Equal(t, "purple", payload["color"])
	assert.Equal(t, "Backup crashed on host", payload["title"])
	assert.Equal(t, "application/json", client.requests[0].Header.Get("Content-Type"))
}

func TestBuildReportMessage(t *testing.T) {
	report := &models.BackupReport{
		Started:  time.Date(2025, 8, 26, 3, 0, 0, 0, time.UTC),
		Duration: 90 * time.Second,
	}
	report.Append(models.RunResult{Target: "www", Class: models.ClassSuccess,
		Stats: models.TransferStats{Known: true, BytesTransferred: 2048, FilesCreated: 3}})
	report.Append(models.RunResult{Target: "home", ExitCode: 12, Class: models.ClassFailure})

	msg := BuildReportMessage(report)

	assert.Equal(t, models.NotifyFailure, msg.Status)
	assert.Contains(t, msg.Title, "failure")
	assert.Contains(t, msg.Body, "Failed targets: home")
	assert.Contains(t, msg.Body, "Completed targets: www")
	assert.Contains(t, msg.Body, "2.0 KiB")
	assert.Contains(t, msg.Body, "statistics could not be fully parsed")
}

func TestBuildReportMessage_WarningStatus(t *testing.T) {
	report := &models.BackupReport{}
	report.Append(models.RunResult{Target: "a", ExitCode: 24, Class: models.ClassWarning,
		Stats: models.TransferStats{Known: true}})

	msg := BuildReportMessage(report)

	assert.Equal(t, models.NotifyWarning, msg.Status)
}

func TestBuildCrashMessage(t *testing.T) {
	msg := BuildCrashMessage("runtime error: index out of range")

	assert.Equal(t, models.NotifyCrashed, msg.Status)
	assert.Contains(t, msg.Title, "crashed")
	assert.Contains(t, msg.Body, "index out of range")
}
