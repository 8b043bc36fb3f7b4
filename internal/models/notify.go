package models

import "time"

// NotifyStatus classifies a notification. Crashed is distinct from a clean
// failure so operators can tell an abnormal termination apart from a run
// that completed with failed targets.
type NotifyStatus int

const (
	NotifySuccess NotifyStatus = iota
	NotifyWarning
	NotifyFailure
	NotifyCrashed
)

// String implements fmt.Stringer.
func (s NotifyStatus) String() string {
	switch s {
	case NotifySuccess:
		return "success"
	case NotifyWarning:
		return "warning"
	case NotifyFailure:
		return "failure"
	default:
		return "crashed"
	}
}

// NotifyMessage is the channel-independent content of a notification.
type NotifyMessage struct {
	Status   NotifyStatus
	Title    string
	Body     string
	Hostname string
	Started  time.Time
	Duration time.Duration
}

// NotifyResult holds the outcome of one delivery attempt.
type NotifyResult struct {
	Channel string
	Sent    bool
	Error   error
}
