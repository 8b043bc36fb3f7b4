// Package remote runs commands on the backup host over SSH.
package remote

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Service defines the interface for remote-side operations.
type Service interface {
	Probe(ctx context.Context, cfg models.RemoteConfig) error
	ListDirs(ctx context.Context, cfg models.RemoteConfig, path string) ([]string, error)
	RemoveDir(ctx context.Context, cfg models.RemoteConfig, path string) error
}

// Client wraps ssh.Client for mocking.
type Client interface {
	NewSession() (Session, error)
	Close() error
}

// Session wraps ssh.Session for mocking.
type Session interface {
	CombinedOutput(cmd string) ([]byte, error)
	Close() error
}

// ClientFactory creates SSH clients.
type ClientFactory interface {
	NewClient(network, addr string, config *ssh.ClientConfig) (Client, error)
}

// DefaultClientFactory dials real SSH connections.
type DefaultClientFactory struct{}

// NewClient creates a new SSH client.
func (f *DefaultClientFactory) NewClient(network, addr string, config *ssh.ClientConfig) (Client, error) {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, err
	}
	return &realClient{client: client}, nil
}

type realClient struct {
	client *ssh.Client
}

func (c *realClient) NewSession() (Session, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &realSession{session: session}, nil
}

func (c *realClient) Close() error {
	return c.client.Close()
}

type realSession struct {
	session *ssh.Session
}

func (s *realSession) CombinedOutput(cmd string) ([]byte, error) {
	return s.session.CombinedOutput(cmd)
}

func (s *realSession) Close() error {
	return s.session.Close()
}

// Impl implements the remote Service interface.
type Impl struct {
	clientFactory ClientFactory
	logger        zerolog.Logger
}

// New creates a new remote service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		clientFactory: &DefaultClientFactory{},
		logger:        logger,
	}
}

// NewWithClientFactory creates a new remote service with a custom client factory (for testing).
func NewWithClientFactory(logger zerolog.Logger, factory ClientFactory) *Impl {
	return &Impl{
		clientFactory: factory,
		logger:        logger,
	}
}

func buildClientConfig(cfg models.RemoteConfig) (*ssh.ClientConfig, error) {
	if cfg.KeyPath == "" {
		return nil, fmt.Errorf("remote.key_path is required for remote commands")
	}
	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // trusted LAN backup host
		Timeout:         30 * time.Second,
	}, nil
}

// runCommand opens a session and executes one command, honoring ctx for
// the connection phase.
func (s *Impl) runCommand(ctx context.Context, cfg models.RemoteConfig, cmd string) ([]byte, error) {
	sshConfig, err := buildClientConfig(cfg)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	type dialResult struct {
		client Client
		err    error
	}
	dialChan := make(chan dialResult, 1)
	go func() {
		client, err := s.clientFactory.NewClient("tcp", addr, sshConfig)
		dialChan <- dialResult{client, err}
	}()

	var client Client
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-dialChan:
		if res.err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, res.err)
		}
		client = res.client
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	s.logger.Debug().Str("command", cmd).Msg("executing remote command")
	return session.CombinedOutput(cmd)
}

// Probe verifies SSH connectivity by running a trivial command.
func (s *Impl) Probe(ctx context.Context, cfg models.RemoteConfig) error {
	if _, err := s.runCommand(ctx, cfg, "true"); err != nil {
		return fmt.Errorf("remote endpoint unreachable: %w", err)
	}
	return nil
}

// ListDirs lists the immediate subdirectory names of a remote path.
func (s *Impl) ListDirs(ctx context.Context, cfg models.RemoteConfig, path string) ([]string, error) {
	output, err := s.runCommand(ctx, cfg, "ls -1p "+shellQuote(path))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	var dirs []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, "/") {
			dirs = append(dirs, strings.TrimSuffix(line, "/"))
		}
	}
	return dirs, nil
}

// RemoveDir removes an empty remote directory. rmdir refuses non-empty
// directories, so a prune that raced with new writes fails safe.
func (s *Impl) RemoveDir(ctx context.Context, cfg models.RemoteConfig, path string) error {
	if _, err := s.runCommand(ctx, cfg, "rmdir "+shellQuote(path)); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// shellQuote wraps a path in single quotes for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
