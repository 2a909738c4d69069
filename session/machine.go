package session

import (
	"fmt"

	"github.com/judgegodwins/bubble-royale/pointer"
	"github.com/judgegodwins/bubble-royale/room"
)

type State int

const (
	StateIdle State = iota
	StateHostWaiting
	StateJoinPending
	StatePlaying
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHostWaiting:
		return "host_waiting"
	case StateJoinPending:
		return "join_pending"
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Mode int

const (
	ModeSolo Mode = iota
	ModeMulti
)

func (m Mode) String() string {
	switch m {
	case ModeSolo:
		return "solo"
	case ModeMulti:
		return "multi"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func ParseMode(v string) (Mode, error) {
	switch v {
	case "solo", "":
		return ModeSolo, nil
	case "multi":
		return ModeMulti, nil
	}
	return ModeSolo, fmt.Errorf("unknown game mode %q", v)
}

// Machine is the whole of a session's protocol state.
type Machine struct {
	State State
	Role  room.Role
	Mode  Mode
}

// Event is anything that can move a Machine.
type Event interface {
	event()
}

type (
	// Hosted: the room document was created and is being watched.
	Hosted struct{}
	// JoinRequested: a join attempt is in flight.
	JoinRequested struct{}
	// Joined: the guest subtree and status=playing were written.
	Joined struct{}
	// JoinFailed: the room was missing or full, or the store failed.
	JoinFailed struct{}
	// Started: a solo match was started locally.
	Started struct{ Mode Mode }
	// RemoteUpdate carries one snapshot from the room subscription.
	RemoteUpdate struct{ Room room.Room }
	// PointerMoved is one pointer sample, possibly carrying an activation.
	PointerMoved struct{ Frame pointer.Frame }
	// FrameTick is one simulation frame.
	FrameTick struct{}
	// Left: the local player quit.
	Left struct{ NotifyPeer bool }
)

func (Hosted) event()        {}
func (JoinRequested) event() {}
func (Joined) event()        {}
func (JoinFailed) event()    {}
func (Started) event()       {}
func (RemoteUpdate) event()  {}
func (PointerMoved) event()  {}
func (FrameTick) event()     {}
func (Left) event()          {}

// Effect is the side effect the session must run after a transition.
type Effect int

const (
	EffectNone Effect = iota
	// EffectStartGame resets score and field and starts frame scheduling.
	EffectStartGame
	// EffectStep runs one GameLoop frame.
	EffectStep
	// EffectPointer feeds the pointer sample to the GameLoop and the replicator.
	EffectPointer
	// EffectObserve republishes the opponent subtree of a snapshot.
	EffectObserve
	// EffectRelease stops frames and the subscription, settles the match.
	EffectRelease
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectStartGame:
		return "start_game"
	case EffectStep:
		return "step"
	case EffectPointer:
		return "pointer"
	case EffectObserve:
		return "observe"
	case EffectRelease:
		return "release"
	}
	return fmt.Sprintf("Effect(%d)", int(e))
}

// Transition is the session state machine. It has no side effects.
func Transition(m Machine, evt Event) (Machine, Effect) {
	switch e := evt.(type) {
	case Hosted:
		if m.State == StateIdle {
			return Machine{State: StateHostWaiting, Role: room.RoleHost, Mode: ModeMulti}, EffectNone
		}

	case JoinRequested:
		if m.State == StateIdle {
			return Machine{State: StateJoinPending, Role: room.RoleGuest, Mode: ModeMulti}, EffectNone
		}

	case Joined:
		if m.State == StateJoinPending {
			m.State = StatePlaying
			return m, EffectStartGame
		}

	case JoinFailed:
		if m.State == StateJoinPending {
			return Machine{}, EffectNone
		}

	case Started:
		if m.State == StateIdle {
			return Machine{State: StatePlaying, Role: room.RoleNone, Mode: e.Mode}, EffectStartGame
		}

	case RemoteUpdate:
		active := m.State == StateHostWaiting || m.State == StatePlaying

		switch {
		case active && e.Room.Status == room.StatusEnded:
			m.State = StateEnded
			return m, EffectRelease
		case m.State == StateHostWaiting && m.Role == room.RoleHost &&
			e.Room.Guest != nil && e.Room.Status == room.StatusPlaying:
			m.State = StatePlaying
			return m, EffectStartGame
		case m.State == StatePlaying:
			return m, EffectObserve
		}

	case FrameTick:
		if m.State == StatePlaying {
			return m, EffectStep
		}

	case PointerMoved:
		if m.State == StatePlaying {
			return m, EffectPointer
		}

	case Left:
		if m.State != StateIdle && m.State != StateEnded {
			m.State = StateEnded
			return m, EffectRelease
		}
	}

	return m, EffectNone
}
