// Package wol wakes the backup host before a run.
package wol

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"gorsync-backup/internal/models"

	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, cfg models.WOLConfig) error
}

// PacketSender wraps the wol library for mocking.
type PacketSender interface {
	Wake(broadcastIP string, mac net.HardwareAddr) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// defaultSender sends real magic packets via mdlayher/wol.
type defaultSender struct{}

func (defaultSender) Wake(broadcastIP string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return fmt.Errorf("creating WOL client: %w", err)
	}
	defer func() { _ = client.Close() }()

	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return fmt.Errorf("invalid broadcast IP: %s", broadcastIP)
	}
	return client.Wake(ip.String()+":9", mac)
}

// Impl implements the WOL Service interface.
type Impl struct {
	sender     PacketSender
	httpClient HTTPClient
	logger     zerolog.Logger
}

// New creates a new WOL service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		sender:     defaultSender{},
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// NewWithClients creates a new WOL service with custom clients (for testing).
func NewWithClients(logger zerolog.Logger, sender PacketSender, httpClient HTTPClient) *Impl {
	return &Impl{sender: sender, httpClient: httpClient, logger: logger}
}

// Wake sends a magic packet and, when a poll URL is configured, waits for
// the host to answer before returning.
func (s *Impl) Wake(ctx context.Context, cfg models.WOLConfig) error {
	mac, err := net.ParseMAC(cfg.MACAddress)
	if err != nil {
		return fmt.Errorf("invalid MAC address %q: %w", cfg.MACAddress, err)
	}

	s.logger.Info().
		Str("mac", cfg.MACAddress).
		Str("broadcast", cfg.BroadcastIP).
		Msg("sending WOL packet")

	if err := s.sender.Wake(cfg.BroadcastIP, mac); err != nil {
		return fmt.Errorf("sending WOL packet: %w", err)
	}

	if cfg.PollURL == "" {
		return nil
	}

	s.logger.Info().
		Str("url", cfg.PollURL).
		Dur("timeout", cfg.Timeout).
		Msg("waiting for backup host")

	deadline := time.Now().Add(cfg.Timeout)
	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for host at %s", cfg.PollURL)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.PollURL, nil)
		if err != nil {
			return fmt.Errorf("building poll request: %w", err)
		}
		resp, err := s.httpClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			s.logger.Info().Msg("backup host is up")
			return nil
		}
		s.logger.Debug().Err(err).Msg("host not ready yet")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.PollInterval):
		}
	}
}
