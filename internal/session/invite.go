package session

import (
	"errors"

	"go.uber.org/zap"

	"github.com/tecu23/jeux-server/internal/game"
	"github.com/tecu23/jeux-server/internal/protocol"
)

// ErrNotSource is returned when an operation requiring the calling session
// to be an invitation's source is attempted by its target, or vice versa
// for ErrNotTarget.
var (
	ErrNotSource        = errors.New("session: not the source of the invitation")
	ErrNotTarget        = errors.New("session: not the target of the invitation")
	ErrInvitationGone   = errors.New("session: no such invitation")
	ErrCannotInviteSelf = errors.New("session: cannot invite self")
	ErrInvalidRole      = errors.New("session: invalid role")
)

// validRole reports whether r is one of the two playable roles a wire
// packet may legally name; Null and any out-of-range byte value are not.
func validRole(r game.Role) bool {
	return r == game.FirstPlayer || r == game.SecondPlayer
}

// MakeInvitation offers target a game in which s plays sourceRole and
// target plays targetRole. It sends an INVITED packet to target. The slot
// id assigned in s's own invitation list is returned for use in later
// RevokeInvitation calls.
func (s *Session) MakeInvitation(target *Session, sourceRole, targetRole game.Role) (int, error) {
	if target == s {
		return -1, ErrCannotInviteSelf
	}
	if !validRole(sourceRole) || !validRole(targetRole) || sourceRole == targetRole {
		return -1, ErrInvalidRole
	}

	inv := newInvitation(s, target, sourceRole, targetRole)
	sourceSlot, err := s.addInvitation(inv)
	if err != nil {
		return -1, err
	}
	targetSlot, err := target.addInvitation(inv)
	if err != nil {
		s.removeInvitationAt(sourceSlot, inv)
		return -1, err
	}
	inv.setSlots(sourceSlot, targetSlot)

	name := s.PlayerName()
	hdr := protocol.NewHeader(protocol.Invited, uint8(targetSlot), uint8(targetRole), len(name))
	if err := target.send(hdr, []byte(name)); err != nil {
		s.logger.Warn("failed to deliver INVITED", zap.Error(err))
		return -1, err
	}
	return sourceSlot, nil
}

// RevokeInvitation withdraws an OPEN invitation that s made as its source,
// notifying the target with a REVOKED packet. The OPEN->CLOSED transition
// is atomic with the state check (closeFromOpen), so a concurrent
// AcceptInvitation on the target's side cannot slip an accept in between a
// stale state read and this call's mutation.
func (s *Session) RevokeInvitation(id int) error {
	inv := s.invitationAt(id)
	if inv == nil {
		return ErrInvitationGone
	}
	if inv.Source != s {
		return ErrNotSource
	}
	if !inv.closeFromOpen() {
		return ErrWrongState
	}

	s.removeInvitationAt(id, inv)
	_, targetSlot := inv.Slots()
	inv.Target.removeInvitationAt(targetSlot, inv)

	hdr := protocol.NewHeader(protocol.Revoked, uint8(targetSlot), 0, 0)
	return inv.Target.send(hdr, nil)
}

// DeclineInvitation rejects an OPEN invitation of which s is the target,
// notifying the source with a DECLINED packet. See RevokeInvitation for why
// the state check and the close are one atomic step.
func (s *Session) DeclineInvitation(id int) error {
	inv := s.invitationAt(id)
	if inv == nil {
		return ErrInvitationGone
	}
	if inv.Target != s {
		return ErrNotTarget
	}
	if !inv.closeFromOpen() {
		return ErrWrongState
	}

	s.removeInvitationAt(id, inv)
	sourceSlot, _ := inv.Slots()
	inv.Source.removeInvitationAt(sourceSlot, inv)

	hdr := protocol.NewHeader(protocol.Declined, uint8(sourceSlot), 0, 0)
	return inv.Source.send(hdr, nil)
}

// AcceptInvitation accepts an OPEN invitation of which s is the target,
// creating the game. It sends an ACCEPTED packet to the source, carrying
// the initial board state if the source moves first. It returns the
// initial board state that the caller (s) should relay to the accepting
// client as the payload of its own ACK, which is non-nil exactly when s
// itself moves first.
func (s *Session) AcceptInvitation(id int) ([]byte, error) {
	inv := s.invitationAt(id)
	if inv == nil {
		return nil, ErrInvitationGone
	}
	if inv.Target != s {
		return nil, ErrNotTarget
	}

	g, err := inv.accept()
	if err != nil {
		return nil, err
	}

	sourceSlot, _ := inv.Slots()
	hdr := protocol.NewHeader(protocol.Accepted, uint8(sourceSlot), 0, 0)

	if inv.SourceRole == game.FirstPlayer {
		state := []byte(g.Render())
		hdr.Size = uint16(len(state))
		if err := inv.Source.send(hdr, state); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := inv.Source.send(hdr, nil); err != nil {
		return nil, err
	}
	return []byte(g.Render()), nil
}
