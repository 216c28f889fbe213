package session

import (
	"go.uber.org/zap"

	"github.com/tecu23/jeux-server/internal/events"
	"github.com/tecu23/jeux-server/internal/game"
	"github.com/tecu23/jeux-server/internal/player"
	"github.com/tecu23/jeux-server/internal/protocol"
)

// concludeGame is invoked once an invitation's game has ended, whichever
// way it ended (win, draw, or resignation). It removes the invitation from
// both participants' lists, notifies each with an ENDED packet carrying the
// winning role, and posts the result to update both players' ratings.
func concludeGame(inv *Invitation, winner game.Role) {
	sourceSlot, targetSlot := inv.Slots()
	inv.Source.removeInvitationAt(sourceSlot, inv)
	inv.Target.removeInvitationAt(targetSlot, inv)
	inv.close()

	endedHdr := func(id int) protocol.Header {
		return protocol.NewHeader(protocol.Ended, uint8(id), uint8(winner), 0)
	}
	if err := inv.Source.send(endedHdr(sourceSlot), nil); err != nil {
		inv.Source.logger.Warn("failed to deliver ENDED", zap.Error(err))
	}
	if err := inv.Target.send(endedHdr(targetSlot), nil); err != nil {
		inv.Target.logger.Warn("failed to deliver ENDED", zap.Error(err))
	}

	postResult(inv, winner)
}

// postResult maps the winning role to whichever session actually holds
// that role and updates both players' ratings accordingly. This resolves
// an ambiguity in the source material, whose result-posting call assumed a
// fixed positional correspondence between "player1/player2" and
// "target/source" that does not track which session actually held which
// role — here the role is looked up explicitly instead of assumed.
func postResult(inv *Invitation, winner game.Role) {
	sourcePlayer, targetPlayer := inv.Source.Player(), inv.Target.Player()
	if sourcePlayer == nil || targetPlayer == nil {
		return
	}

	var sourceScore, targetScore player.Score
	switch winner {
	case game.Null:
		sourceScore, targetScore = player.Draw, player.Draw
	case inv.SourceRole:
		sourceScore, targetScore = player.Win, player.Loss
	case inv.TargetRole:
		sourceScore, targetScore = player.Loss, player.Win
	default:
		return
	}
	player.PostResult(sourcePlayer, targetPlayer, sourceScore, targetScore)

	inv.Source.publishEvent(events.GameEnded, sourcePlayer.Name(), map[string]int{
		"source_rating": sourcePlayer.Rating(),
		"target_rating": targetPlayer.Rating(),
	})
}
