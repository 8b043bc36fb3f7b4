// Package config provides configuration file parsing and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Defaults applied when the corresponding keys are absent.
const (
	DefaultPort          = 22
	DefaultTimeout       = 5 * time.Minute
	DefaultLogSizeMB     = 20
	DefaultLogAgeDays    = 30
	DefaultLockFile      = "/var/lock/gorsync-backup.lock"
	DefaultMinFreeMB     = 200
	DefaultRetentionDays = 30
)

// knownKeys is the closed set of recognized configuration keys. Anything
// outside this set is rejected or warned about depending on strict_keys.
var knownKeys = map[string]bool{
	"remote.host":                true,
	"remote.port":                true,
	"remote.user":                true,
	"remote.key_path":            true,
	"remote.root":                true,
	"backup.targets":             true,
	"backup.exclude":             true,
	"backup.rsync_options":       true,
	"backup.bwlimit_kbps":        true,
	"backup.timeout":             true,
	"backup.checksum":            true,
	"log.path":                   true,
	"log.max_size_mb":            true,
	"log.max_age_days":           true,
	"recycle_bin.enabled":        true,
	"recycle_bin.dir":            true,
	"recycle_bin.retention_days": true,
	"notify.ntfy.url":            true,
	"notify.ntfy.topic":          true,
	"notify.ntfy.token":          true,
	"notify.ntfy.priority":       true,
	"notify.webhook.url":         true,
	"notify.webhook.timeout":     true,
	"wol.mac_address":            true,
	"wol.broadcast_ip":           true,
	"wol.poll_url":               true,
	"wol.timeout":                true,
	"wol.poll_interval":          true,
	"lock_file":                  true,
	"min_free_mb":                true,
	"strict_keys":                true,
}

// Parser handles configuration file parsing.
type Parser struct {
	v      *viper.Viper
	logger zerolog.Logger
}

// NewParser creates a new configuration parser.
func NewParser(logger zerolog.Logger) *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v, logger: logger}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	cfg.StrictKeys = true
	if p.v.IsSet("strict_keys") {
		cfg.StrictKeys = p.v.GetBool("strict_keys")
	}

	if err := p.checkUnknownKeys(cfg.StrictKeys); err != nil {
		return nil, err
	}

	// Remote endpoint (required).
	cfg.Remote = models.RemoteConfig{
		Host:    p.v.GetString("remote.host"),
		Port:    p.v.GetInt("remote.port"),
		User:    p.v.GetString("remote.user"),
		KeyPath: p.expandEnv(p.v.GetString("remote.key_path")),
		Root:    p.v.GetString("remote.root"),
	}

	if cfg.Remote.Host == "" {
		return nil, fmt.Errorf("remote.host is required")
	}
	if cfg.Remote.Root == "" {
		return nil, fmt.Errorf("remote.root is required")
	}
	if !strings.HasSuffix(cfg.Remote.Root, "/") {
		return nil, fmt.Errorf("remote.root must end with a path separator")
	}
	if cfg.Remote.Port == 0 {
		cfg.Remote.Port = DefaultPort
	}

	// Backup settings (required).
	cfg.Backup = models.BackupSettings{
		Exclude:      p.v.GetStringSlice("backup.exclude"),
		RsyncOptions: p.v.GetStringSlice("backup.rsync_options"),
		BWLimitKBps:  p.v.GetInt("backup.bwlimit_kbps"),
		Timeout:      p.v.GetDuration("backup.timeout"),
		Checksum:     p.v.GetBool("backup.checksum"),
	}
	if cfg.Backup.Timeout == 0 {
		cfg.Backup.Timeout = DefaultTimeout
	}

	sources := p.v.GetStringSlice("backup.targets")
	if len(sources) == 0 {
		return nil, fmt.Errorf("backup.targets is required")
	}
	for _, src := range sources {
		target := models.BackupTarget{Source: src}
		if !strings.Contains(src, models.Anchor) {
			return nil, fmt.Errorf("backup target %q is missing the %q anchor marker", src, models.Anchor)
		}
		if !strings.HasSuffix(src, "/") {
			return nil, fmt.Errorf("backup target %q must end with a path separator", src)
		}
		cfg.Backup.Targets = append(cfg.Backup.Targets, target)
	}

	// Log settings (required path, defaulted rotation policy).
	cfg.Log = models.LogConfig{
		Path:       p.v.GetString("log.path"),
		MaxSizeMB:  p.v.GetInt("log.max_size_mb"),
		MaxAgeDays: p.v.GetInt("log.max_age_days"),
	}
	if cfg.Log.Path == "" {
		return nil, fmt.Errorf("log.path is required")
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = DefaultLogSizeMB
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = DefaultLogAgeDays
	}

	// Recycle bin (optional, fields required together when enabled).
	if p.v.GetBool("recycle_bin.enabled") {
		cfg.Recycle = &models.RecycleBinConfig{
			Dir:           p.v.GetString("recycle_bin.dir"),
			RetentionDays: p.v.GetInt("recycle_bin.retention_days"),
		}
		if err := validateRecycleDir(cfg.Recycle.Dir); err != nil {
			return nil, err
		}
		if cfg.Recycle.RetentionDays == 0 {
			cfg.Recycle.RetentionDays = DefaultRetentionDays
		}
	}

	// Notification channels (optional, independently toggled).
	if p.v.IsSet("notify.ntfy") {
		cfg.Notify.Ntfy = &models.NtfyConfig{
			URL:      p.v.GetString("notify.ntfy.url"),
			Topic:    p.v.GetString("notify.ntfy.topic"),
			Token:    p.expandEnv(p.v.GetString("notify.ntfy.token")),
			Priority: p.v.GetString("notify.ntfy.priority"),
		}
		if cfg.Notify.Ntfy.URL == "" {
			return nil, fmt.Errorf("notify.ntfy.url is required when ntfy is configured")
		}
		if cfg.Notify.Ntfy.Topic == "" {
			return nil, fmt.Errorf("notify.ntfy.topic is required when ntfy is configured")
		}
		if cfg.Notify.Ntfy.Priority == "" {
			cfg.Notify.Ntfy.Priority = "default"
		}
	}

	if p.v.IsSet("notify.webhook") {
		cfg.Notify.Webhook = &models.WebhookConfig{
			URL:     p.expandEnv(p.v.GetString("notify.webhook.url")),
			Timeout: p.v.GetDuration("notify.webhook.timeout"),
		}
		if cfg.Notify.Webhook.URL == "" {
			return nil, fmt.Errorf("notify.webhook.url is required when webhook is configured")
		}
		if cfg.Notify.Webhook.Timeout == 0 {
			cfg.Notify.Webhook.Timeout = 30 * time.Second
		}
	}

	// Wake-on-LAN (optional).
	if p.v.IsSet("wol") {
		cfg.WOL = &models.WOLConfig{
			MACAddress:   p.v.GetString("wol.mac_address"),
			BroadcastIP:  p.v.GetString("wol.broadcast_ip"),
			PollURL:      p.v.GetString("wol.poll_url"),
			Timeout:      p.v.GetDuration("wol.timeout"),
			PollInterval: p.v.GetDuration("wol.poll_interval"),
		}
		if cfg.WOL.MACAddress == "" {
			return nil, fmt.Errorf("wol.mac_address is required when wol is configured")
		}
		if cfg.WOL.BroadcastIP == "" {
			cfg.WOL.BroadcastIP = "255.255.255.255"
		}
		if cfg.WOL.Timeout == 0 {
			cfg.WOL.Timeout = 5 * time.Minute
		}
		if cfg.WOL.PollInterval == 0 {
			cfg.WOL.PollInterval = 10 * time.Second
		}
	}

	cfg.LockFile = p.v.GetString("lock_file")
	if cfg.LockFile == "" {
		cfg.LockFile = DefaultLockFile
	}

	cfg.MinFreeMB = p.v.GetInt64("min_free_mb")
	if cfg.MinFreeMB == 0 {
		cfg.MinFreeMB = DefaultMinFreeMB
	}

	return cfg, nil
}

// checkUnknownKeys compares the keys present in the source against the
// allowlist. Values are never evaluated, only assigned, so a stray key is
// the sole injection surface left to close.
func (p *Parser) checkUnknownKeys(strict bool) error {
	for _, key := range p.v.AllKeys() {
		if knownKeys[key] {
			continue
		}
		if strict {
			return fmt.Errorf("unknown configuration key %q", key)
		}
		p.logger.Warn().Str("key", key).Msg("ignoring unknown configuration key")
	}
	return nil
}

// validateRecycleDir enforces that the recycle bin directory stays inside
// the remote root: relative, no parent traversal, trailing separator.
func validateRecycleDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("recycle_bin.dir is required when the recycle bin is enabled")
	}
	if strings.HasPrefix(dir, "/") {
		return fmt.Errorf("recycle_bin.dir must be relative to the remote root")
	}
	if !strings.HasSuffix(dir, "/") {
		return fmt.Errorf("recycle_bin.dir must end with a path separator")
	}
	for _, part := range strings.Split(strings.TrimSuffix(dir, "/"), "/") {
		if part == ".." {
			return fmt.Errorf("recycle_bin.dir must not contain parent-directory segments")
		}
	}
	return nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}
