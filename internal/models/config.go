// Package models contains the data structures used throughout gorsync-backup.
package models

import "time"

// Config holds the complete, immutable configuration for one run.
type Config struct {
	Remote     RemoteConfig
	Backup     BackupSettings
	Log        LogConfig
	Recycle    *RecycleBinConfig // nil if not configured
	Notify     NotifyConfig
	WOL        *WOLConfig // nil if not configured
	LockFile   string
	MinFreeMB  int64
	StrictKeys bool
}

// RemoteConfig describes the rsync/SSH destination endpoint.
type RemoteConfig struct {
	Host    string
	Port    int
	User    string
	KeyPath string
	Root    string // remote base directory, must end with "/"
}

// Addr returns the user@host form used in rsync destination specs.
func (r RemoteConfig) Addr() string {
	if r.User == "" {
		return r.Host
	}
	return r.User + "@" + r.Host
}

// BackupSettings holds the per-run transfer settings.
type BackupSettings struct {
	Targets      []BackupTarget
	Exclude      []string // glob patterns, order preserved
	RsyncOptions []string // extra options passed through verbatim
	BWLimitKBps  int      // 0 = unlimited
	Timeout      time.Duration
	Checksum     bool // integrity check compares content, not size/time
}

// LogConfig holds the persistent log location and rotation policy.
type LogConfig struct {
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
}

// RecycleBinConfig holds the remote recycle bin settings. Dir is relative
// to the remote root and may not be absolute or traverse upward.
type RecycleBinConfig struct {
	Dir           string
	RetentionDays int
}

// NotifyConfig groups the optional notification channels.
type NotifyConfig struct {
	Ntfy    *NtfyConfig    // nil if not configured
	Webhook *WebhookConfig // nil if not configured
}

// NtfyConfig holds settings for the ntfy pub-sub channel.
type NtfyConfig struct {
	URL      string
	Topic    string
	Token    string
	Priority string
}

// WebhookConfig holds settings for the generic webhook channel.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// WOLConfig holds Wake-on-LAN settings for waking the backup host.
type WOLConfig struct {
	MACAddress   string
	BroadcastIP  string
	PollURL      string        // polled until the host answers
	Timeout      time.Duration // max time to wait for the host
	PollInterval time.Duration
}
