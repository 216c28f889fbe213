package session

import (
	"github.com/tecu23/jeux-server/internal/protocol"
)

// ResignGame resigns the game held by the ACCEPTED invitation in slot id,
// awarding the win to s's opponent. The opponent receives a RESIGNED
// packet; if the resulting game state is over (always true for a
// resignation) both players additionally receive ENDED and have their
// ratings updated.
func (s *Session) ResignGame(id int) error {
	inv := s.invitationAt(id)
	if inv == nil {
		return ErrInvitationGone
	}
	g := inv.Game()
	if g == nil {
		return ErrWrongState
	}

	role := inv.RoleOf(s)
	if role == 0 {
		return ErrInvitationGone
	}
	if err := g.Resign(role); err != nil {
		return err
	}

	opponent := inv.Opponent(s)
	opponentSlot := opponentSlotOf(inv, s)
	hdr := protocol.NewHeader(protocol.Resigned, uint8(opponentSlot), 0, 0)
	if err := opponent.send(hdr, nil); err != nil {
		return err
	}

	concludeGame(inv, g.Winner())
	return nil
}

// opponentSlotOf returns the slot id that s's opponent uses to refer to
// inv.
func opponentSlotOf(inv *Invitation, s *Session) int {
	sourceSlot, targetSlot := inv.Slots()
	if s == inv.Source {
		return targetSlot
	}
	return sourceSlot
}
