// Package restore implements the interactive restore workflow as an explicit
// state machine decoupled from terminal I/O.
package restore

import (
	"fmt"
	"strings"

	"gorsync-backup/internal/models"
)

// State is a position in the restore workflow.
type State int

const (
	StateSelectSource State = iota
	StateSelectScope
	StateSelectDestination
	StateDryRunPreview
	StateConfirm
	StateExecute
	StateDone
	StateAborted
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateSelectSource:
		return "select-source"
	case StateSelectScope:
		return "select-scope"
	case StateSelectDestination:
		return "select-destination"
	case StateDryRunPreview:
		return "dry-run-preview"
	case StateConfirm:
		return "confirm"
	case StateExecute:
		return "execute"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "failed"
	}
}

// Event is an operator input or an operation outcome fed into the machine.
type Event interface{ isEvent() }

// LiveSourceChosen selects a configured backup target as the restore source.
type LiveSourceChosen struct {
	Target models.BackupTarget
}

// RecycleSourceChosen selects a path inside a dated recycle bin snapshot.
// Exists reflects the zero-length listing probe; when false the machine
// stays in source selection.
type RecycleSourceChosen struct {
	Snapshot string
	Path     string
	Exists   bool
}

// ScopeChosen narrows a live-target restore. An empty SubPath means the
// whole directory.
type ScopeChosen struct {
	SubPath string
}

// DestinationChosen fixes the local destination. An empty Path keeps the
// default original location.
type DestinationChosen struct {
	Path string
}

// PreviewFinished reports the mandatory dry-run outcome.
type PreviewFinished struct {
	OK bool
}

// Answered carries the operator's confirmation text. Anything other than an
// exact "yes" or "no" leaves the machine in the confirm state.
type Answered struct {
	Text string
}

// ExecuteFinished reports the real transfer outcome.
type ExecuteFinished struct {
	OK bool
}

func (LiveSourceChosen) isEvent()    {}
func (RecycleSourceChosen) isEvent() {}
func (ScopeChosen) isEvent()         {}
func (DestinationChosen) isEvent()   {}
func (PreviewFinished) isEvent()     {}
func (Answered) isEvent()            {}
func (ExecuteFinished) isEvent()     {}

// Selection accumulates the operator's choices as the machine advances.
type Selection struct {
	FromRecycle bool
	Snapshot    string // dated snapshot folder name
	SubPath     string // relative path within the source
	Target      models.BackupTarget
	Destination string // empty until chosen; may equal the default
}

// Machine is the restore workflow state machine. It performs no I/O; the
// terminal loop and the transfer calls live in the Controller.
type Machine struct {
	state     State
	selection Selection
}

// NewMachine starts at source selection.
func NewMachine() *Machine {
	return &Machine{state: StateSelectSource}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Selection returns the choices made so far.
func (m *Machine) Selection() Selection { return m.selection }

// Terminal reports whether the machine reached a final state.
func (m *Machine) Terminal() bool {
	return m.state == StateDone || m.state == StateAborted || m.state == StateFailed
}

// Apply feeds one event into the machine and advances it. An event that is
// invalid for the current state is an error and leaves the state unchanged.
//
//nolint:gocyclo // a transition table is inherently a big switch
func (m *Machine) Apply(ev Event) error {
	switch e := ev.(type) {
	case LiveSourceChosen:
		if m.state != StateSelectSource {
			return m.invalid(ev)
		}
		m.selection = Selection{Target: e.Target}
		m.state = StateSelectScope

	case RecycleSourceChosen:
		if m.state != StateSelectSource {
			return m.invalid(ev)
		}
		if !e.Exists {
			// NotFound: stay in source selection.
			return nil
		}
		m.selection = Selection{FromRecycle: true, Snapshot: e.Snapshot, SubPath: e.Path}
		m.state = StateSelectDestination

	case ScopeChosen:
		if m.state != StateSelectScope {
			return m.invalid(ev)
		}
		m.selection.SubPath = e.SubPath
		m.state = StateSelectDestination

	case DestinationChosen:
		if m.state != StateSelectDestination {
			return m.invalid(ev)
		}
		m.selection.Destination = e.Path
		m.state = StateDryRunPreview

	case PreviewFinished:
		if m.state != StateDryRunPreview {
			return m.invalid(ev)
		}
		if e.OK {
			m.state = StateConfirm
		} else {
			m.state = StateFailed
		}

	case Answered:
		if m.state != StateConfirm {
			return m.invalid(ev)
		}
		switch strings.ToLower(strings.TrimSpace(e.Text)) {
		case "yes":
			m.state = StateExecute
		case "no":
			m.state = StateAborted
		default:
			// Re-prompt: no transition.
		}

	case ExecuteFinished:
		if m.state != StateExecute {
			return m.invalid(ev)
		}
		if e.OK {
			m.state = StateDone
		} else {
			m.state = StateFailed
		}

	default:
		return fmt.Errorf("unknown event %T", ev)
	}

	return nil
}

func (m *Machine) invalid(ev Event) error {
	return fmt.Errorf("event %T not valid in state %s", ev, m.state)
}
