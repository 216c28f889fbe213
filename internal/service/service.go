// Package service implements the per-connection request loop: decoding
// packets, dispatching them to session operations, and replying with ACK
// or NACK. Until a session has logged in, only a LOGIN packet is honored.
package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tecu23/jeux-server/internal/game"
	"github.com/tecu23/jeux-server/internal/player"
	"github.com/tecu23/jeux-server/internal/protocol"
	"github.com/tecu23/jeux-server/internal/registry"
	"github.com/tecu23/jeux-server/internal/session"
)

// Serve runs sess's request loop until the connection ends, then
// unregisters it (which cascades logout and settles any open
// invitations/games). It returns once the peer disconnects or
// ShutdownAll shuts down the connection's read half.
func Serve(sess *session.Session, cr *registry.ClientRegistry, logger *zap.Logger) {
	defer cr.Unregister(sess)

	for {
		hdr, payload, err := sess.Recv()
		if err != nil {
			if !errors.Is(err, protocol.ErrEndOfStream) {
				logger.Debug("connection read error, closing", zap.Error(err))
			}
			return
		}
		dispatch(sess, cr, hdr, payload, logger)
	}
}

func dispatch(sess *session.Session, cr *registry.ClientRegistry, hdr protocol.Header, payload []byte, logger *zap.Logger) {
	if hdr.Type == protocol.Login {
		handleLogin(sess, cr, payload, logger)
		return
	}

	if sess.Player() == nil {
		nack(sess, logger)
		return
	}

	switch hdr.Type {
	case protocol.Users:
		handleUsers(sess, cr, logger)
	case protocol.Invite:
		handleInvite(sess, cr, hdr, payload, logger)
	case protocol.Revoke:
		handleSlotOp(sess, int(hdr.ID), sess.RevokeInvitation, logger)
	case protocol.Decline:
		handleSlotOp(sess, int(hdr.ID), sess.DeclineInvitation, logger)
	case protocol.Accept:
		handleAccept(sess, hdr, logger)
	case protocol.Move:
		handleMove(sess, hdr, payload, logger)
	case protocol.Resign:
		handleSlotOp(sess, int(hdr.ID), sess.ResignGame, logger)
	default:
		logger.Debug("unrecognized packet type", zap.Stringer("type", hdr.Type))
		nack(sess, logger)
	}
}

func handleLogin(sess *session.Session, cr *registry.ClientRegistry, payload []byte, logger *zap.Logger) {
	if sess.Player() != nil {
		nack(sess, logger)
		return
	}
	name := string(payload)
	if name == "" {
		nack(sess, logger)
		return
	}
	if err := cr.Login(sess, name); err != nil {
		logger.Debug("login rejected", zap.String("name", name), zap.Error(err))
		nack(sess, logger)
		return
	}
	ack(sess, 0, nil, logger)
}

func handleUsers(sess *session.Session, cr *registry.ClientRegistry, logger *zap.Logger) {
	ack(sess, 0, []byte(formatUsers(cr.LoggedInPlayers())), logger)
}

func formatUsers(players []*player.Player) string {
	var b strings.Builder
	for _, p := range players {
		fmt.Fprintf(&b, "%s\t%d\n", p.Name(), p.Rating())
	}
	return b.String()
}

func handleInvite(sess *session.Session, cr *registry.ClientRegistry, hdr protocol.Header, payload []byte, logger *zap.Logger) {
	targetName := string(payload)
	target, ok := cr.LookupSession(targetName)
	if !ok {
		nack(sess, logger)
		return
	}

	targetRole := game.Role(hdr.Role)
	sourceRole := targetRole.Opponent()
	id, err := sess.MakeInvitation(target, sourceRole, targetRole)
	if err != nil {
		logger.Debug("make invitation failed", zap.Error(err))
		nack(sess, logger)
		return
	}
	ack(sess, uint8(id), nil, logger)
}

func handleAccept(sess *session.Session, hdr protocol.Header, logger *zap.Logger) {
	id := int(hdr.ID)
	state, err := sess.AcceptInvitation(id)
	if err != nil {
		logger.Debug("accept invitation failed", zap.Error(err))
		nack(sess, logger)
		return
	}
	ack(sess, uint8(id), state, logger)
}

func handleMove(sess *session.Session, hdr protocol.Header, payload []byte, logger *zap.Logger) {
	if err := sess.MakeMove(int(hdr.ID), string(payload)); err != nil {
		logger.Debug("make move failed", zap.Error(err))
		nack(sess, logger)
		return
	}
	ack(sess, 0, nil, logger)
}

// handleSlotOp runs an invitation-slot operation (revoke, decline, resign)
// that all share the same "id in, ack/nack out" shape.
func handleSlotOp(sess *session.Session, id int, op func(int) error, logger *zap.Logger) {
	if err := op(id); err != nil {
		logger.Debug("invitation slot operation failed", zap.Error(err))
		nack(sess, logger)
		return
	}
	ack(sess, 0, nil, logger)
}

func ack(sess *session.Session, id uint8, payload []byte, logger *zap.Logger) {
	if err := sess.SendAck(id, payload); err != nil {
		logger.Warn("failed to send ACK", zap.Error(err))
	}
}

func nack(sess *session.Session, logger *zap.Logger) {
	if err := sess.SendNack(); err != nil {
		logger.Warn("failed to send NACK", zap.Error(err))
	}
}
