package playback

import (
	"fmt"
	"time"
)

// Phase is the coarse state of a playback session.
type Phase int

// Playback phases.
const (
	PhaseIdle Phase = iota
	PhasePreparing
	PhasePlaying
	PhaseError
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePreparing:
		return "preparing"
	case PhasePlaying:
		return "playing"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the observable projection of a controller or a source.
type State struct {
	// Phase is the current phase.
	Phase Phase
	// Description names what is playing, set in PhasePlaying.
	Description string
	// Cause is the failure, set in PhaseError.
	Cause error
	// Session identifies the realize call the state belongs to.
	Session string
	// Fallback is true when the local tone replaced a failed stream.
	Fallback bool
	// At is when the state was entered.
	At time.Time
}

// Idle returns an idle state.
func Idle() State {
	return State{Phase: PhaseIdle}
}

// Preparing returns a preparing state.
func Preparing() State {
	return State{Phase: PhasePreparing}
}

// Playing returns a playing state with the description.
func Playing(description string) State {
	return State{Phase: PhasePlaying, Description: description}
}

// Failed returns an error state with the cause.
func Failed(cause error) State {
	return State{Phase: PhaseError, Cause: cause}
}

// String renders the state for logs and the CLI.
func (s State) String() string {
	switch s.Phase {
	case PhasePlaying:
		if s.Fallback {
			return fmt.Sprintf("playing %s (fallback)", s.Description)
		}

		return "playing " + s.Description
	case PhaseError:
		return fmt.Sprintf("error: %v", s.Cause)
	default:
		return s.Phase.String()
	}
}

// CauseString returns the failure text, or an empty string.
func (s State) CauseString() string {
	if s.Cause == nil {
		return ""
	}

	return s.Cause.Error()
}
