package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/tecu23/jeux-server/internal/game"
)

// State is the lifecycle stage of an Invitation.
type State int

const (
	StateOpen State = iota
	StateAccepted
	StateClosed
)

func (st State) String() string {
	switch st {
	case StateOpen:
		return "OPEN"
	case StateAccepted:
		return "ACCEPTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ErrWrongState is returned when an operation is attempted against an
// Invitation in a state that does not permit it.
var ErrWrongState = errors.New("session: invitation in wrong state")

// Invitation represents an offer from a source Session to a target Session
// to play a game, and, once accepted, the Game itself.
type Invitation struct {
	ID uuid.UUID

	Source     *Session
	Target     *Session
	SourceRole game.Role
	TargetRole game.Role

	mu         sync.Mutex
	state      State
	g          game.Game
	sourceSlot int
	targetSlot int
}

// newInvitation builds an Invitation in the OPEN state. It is added to both
// sessions' invitation lists by the caller immediately afterward.
func newInvitation(source, target *Session, sourceRole, targetRole game.Role) *Invitation {
	return &Invitation{
		ID:         uuid.New(),
		Source:     source,
		Target:     target,
		SourceRole: sourceRole,
		TargetRole: targetRole,
		state:      StateOpen,
	}
}

func (inv *Invitation) setSlots(sourceSlot, targetSlot int) {
	inv.mu.Lock()
	inv.sourceSlot = sourceSlot
	inv.targetSlot = targetSlot
	inv.mu.Unlock()
}

// Slots returns the id each side uses to refer to this invitation.
func (inv *Invitation) Slots() (sourceSlot, targetSlot int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.sourceSlot, inv.targetSlot
}

// State returns the invitation's current lifecycle state.
func (inv *Invitation) State() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// Game returns the invitation's game, or nil if it has not been accepted.
func (inv *Invitation) Game() game.Game {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.g
}

// RoleOf returns which role sess plays in this invitation, or game.Null if
// sess is neither the source nor the target.
func (inv *Invitation) RoleOf(sess *Session) game.Role {
	switch sess {
	case inv.Source:
		return inv.SourceRole
	case inv.Target:
		return inv.TargetRole
	default:
		return game.Null
	}
}

// Opponent returns the other participant in the invitation.
func (inv *Invitation) Opponent(sess *Session) *Session {
	if sess == inv.Source {
		return inv.Target
	}
	return inv.Source
}

// accept transitions an OPEN invitation to ACCEPTED, creating the game.
func (inv *Invitation) accept() (game.Game, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != StateOpen {
		return nil, ErrWrongState
	}
	inv.g = game.NewTicTacToe()
	inv.state = StateAccepted
	return inv.g, nil
}

// close transitions an ACCEPTED invitation to CLOSED once its game has
// concluded. It is only ever reached through concludeGame, which already
// holds the exclusive right to close the invitation because accept()
// atomically claimed the OPEN->ACCEPTED transition first.
func (inv *Invitation) close() {
	inv.mu.Lock()
	inv.state = StateClosed
	inv.mu.Unlock()
}

// closeFromOpen atomically transitions the invitation from OPEN to CLOSED,
// checking and setting the state under the same lock acquisition so that a
// concurrent accept() cannot win the race between a caller's state check
// and its subsequent mutation. It reports whether the transition happened;
// false means the invitation was no longer OPEN (already accepted,
// revoked, or declined by a concurrent call) and the caller must not treat
// it as its own to close.
func (inv *Invitation) closeFromOpen() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != StateOpen {
		return false
	}
	inv.state = StateClosed
	return true
}
