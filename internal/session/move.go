package session

import (
	"github.com/tecu23/jeux-server/internal/protocol"
)

// MakeMove applies moveStr as s's move in the game held by the ACCEPTED
// invitation in slot id. On success, the opponent receives a MOVED packet
// carrying the new board state; if the move ends the game, both players
// additionally receive ENDED and have their ratings updated.
func (s *Session) MakeMove(id int, moveStr string) error {
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

	move, err := g.ParseMove(role, moveStr)
	if err != nil {
		return err
	}
	if err := g.ApplyMove(move); err != nil {
		return err
	}

	opponent := inv.Opponent(s)
	opponentSlot := opponentSlotOf(inv, s)
	state := []byte(g.Render())
	hdr := protocol.NewHeader(protocol.Moved, uint8(opponentSlot), 0, len(state))
	if err := opponent.send(hdr, state); err != nil {
		return err
	}

	if g.IsOver() {
		concludeGame(inv, g.Winner())
	}
	return nil
}
