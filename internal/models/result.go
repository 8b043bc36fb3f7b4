package models

import "time"

// Classification is the outcome category of a transfer or a whole run.
type Classification int

const (
	ClassSuccess Classification = iota
	ClassWarning
	ClassFailure
)

// String implements fmt.Stringer.
func (c Classification) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassWarning:
		return "warning"
	default:
		return "failure"
	}
}

// rsync exit codes that count as warnings rather than failures.
const (
	RsyncExitPartial  = 23 // some files/attrs could not be transferred
	RsyncExitVanished = 24 // source files vanished mid-transfer
)

// ClassifyExitCode maps a raw rsync exit code onto a run classification.
// Codes 23 and 24 are treated uniformly as warnings.
func ClassifyExitCode(code int) Classification {
	switch code {
	case 0:
		return ClassSuccess
	case RsyncExitPartial, RsyncExitVanished:
		return ClassWarning
	default:
		return ClassFailure
	}
}

// TransferStats holds the counters extracted from rsync output. Known is
// false when the output contained no recognizable counters; this is distinct
// from all-zero stats, which mean "nothing changed".
type TransferStats struct {
	Known            bool
	BytesTransferred int64
	FilesCreated     int64
	FilesUpdated     int64
	FilesDeleted     int64
}

// Add merges other into s. Unknown stats contribute nothing but leave s
// marked incomplete via the return value.
func (s *TransferStats) Add(other TransferStats) (complete bool) {
	if !other.Known {
		return false
	}
	s.Known = true
	s.BytesTransferred += other.BytesTransferred
	s.FilesCreated += other.FilesCreated
	s.FilesUpdated += other.FilesUpdated
	s.FilesDeleted += other.FilesDeleted
	return true
}

// RunResult is the per-target outcome of one transfer.
type RunResult struct {
	Target   string
	ExitCode int
	Class    Classification
	Stats    TransferStats
	Err      error
}

// BackupReport aggregates the results of one full backup pass.
type BackupReport struct {
	Started         time.Time
	Duration        time.Duration
	Results         []RunResult
	Stats           TransferStats
	StatsIncomplete bool
}

// Append records a per-target result and folds its stats into the totals.
func (r *BackupReport) Append(res RunResult) {
	r.Results = append(r.Results, res)
	if !r.Stats.Add(res.Stats) {
		r.StatsIncomplete = true
	}
}

// Overall is failure if any target failed, warning if any target warned
// but none failed, success otherwise.
func (r *BackupReport) Overall() Classification {
	overall := ClassSuccess
	for _, res := range r.Results {
		switch res.Class {
		case ClassFailure:
			return ClassFailure
		case ClassWarning:
			overall = ClassWarning
		}
	}
	return overall
}

// Succeeded returns the names of targets that completed cleanly or with
// warnings.
func (r *BackupReport) Succeeded() []string {
	var names []string
	for _, res := range r.Results {
		if res.Class != ClassFailure {
			names = append(names, res.Target)
		}
	}
	return names
}

// Failed returns the names of targets that failed hard.
func (r *BackupReport) Failed() []string {
	var names []string
	for _, res := range r.Results {
		if res.Class == ClassFailure {
			names = append(names, res.Target)
		}
	}
	return names
}

// ExitCode maps the aggregate classification onto the process exit code.
func (r *BackupReport) ExitCode() int {
	switch r.Overall() {
	case ClassSuccess:
		return ExitSuccess
	case ClassWarning:
		return ExitWarning
	default:
		return ExitFailure
	}
}
