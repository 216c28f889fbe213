package session

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/jeux-server/internal/game"
	"github.com/tecu23/jeux-server/internal/player"
	"github.com/tecu23/jeux-server/internal/protocol"
)

// recordingConn is a minimal net.Conn that captures every packet written
// to it instead of touching a real socket, so session operations can be
// exercised without a listener.
type recordingConn struct {
	mu      sync.Mutex
	raw     []byte
	packets []recordedPacket
}

type recordedPacket struct {
	hdr     protocol.Header
	payload []byte
}

func newRecordingConn() *recordingConn { return &recordingConn{} }

func (c *recordingConn) Write(b []byte) (int, error) {
	// Each session.send call writes the header and, if present, the
	// payload through separate writeFull calls, so one packet may arrive
	// in two Writes; reconstruct packets by buffering raw bytes and
	// decoding greedily.
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = append(c.raw, b...)
	for {
		if len(c.raw) < protocol.HeaderSize {
			return len(b), nil
		}
		hdr, rest, ok := tryDecode(c.raw)
		if !ok {
			return len(b), nil
		}
		c.packets = append(c.packets, recordedPacket{hdr: hdr, payload: rest.payload})
		c.raw = rest.remainder
	}
}

type decoded struct {
	payload   []byte
	remainder []byte
}

func tryDecode(buf []byte) (protocol.Header, decoded, bool) {
	r := &sliceReader{buf: buf}
	hdr, payload, err := protocol.RecvPacket(r)
	if err != nil {
		return protocol.Header{}, decoded{}, false
	}
	return hdr, decoded{payload: payload, remainder: buf[r.off:]}, true
}

// sliceReader adapts a byte slice to io.Reader for use with
// protocol.RecvPacket during test decoding.
type sliceReader struct {
	buf []byte
	off int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.off >= len(r.buf) {
		return 0, errShortRead
	}
	n := copy(p, r.buf[r.off:])
	r.off += n
	return n, nil
}

var errShortRead = &shortReadError{}

type shortReadError struct{}

func (*shortReadError) Error() string { return "session_test: short read" }

func (c *recordingConn) Read([]byte) (int, error)       { return 0, net.ErrClosed }
func (c *recordingConn) Close() error                   { return nil }
func (c *recordingConn) LocalAddr() net.Addr             { return nil }
func (c *recordingConn) RemoteAddr() net.Addr            { return nil }
func (c *recordingConn) SetDeadline(time.Time) error     { return nil }
func (c *recordingConn) SetReadDeadline(time.Time) error { return nil }
func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }

func (c *recordingConn) lastPacket() (recordedPacket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.packets) == 0 {
		return recordedPacket{}, false
	}
	return c.packets[len(c.packets)-1], true
}

func newTestSession(t *testing.T) (*Session, *recordingConn) {
	t.Helper()
	conn := newRecordingConn()
	sess := New(conn, protocol.NewSender(), zap.NewNop())
	return sess, conn
}

func TestMakeInvitationSendsInvited(t *testing.T) {
	src, _ := newTestSession(t)
	tgt, tgtConn := newTestSession(t)

	require.NoError(t, src.SetPlayer(player.New("alice")))
	require.NoError(t, tgt.SetPlayer(player.New("bob")))

	slot, err := src.MakeInvitation(tgt, game.FirstPlayer, game.SecondPlayer)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	pkt, ok := tgtConn.lastPacket()
	require.True(t, ok)
	assert.Equal(t, protocol.Invited, pkt.hdr.Type)
	assert.Equal(t, "alice", string(pkt.payload))
}

func TestAcceptInvitationCreatesGame(t *testing.T) {
	src, srcConn := newTestSession(t)
	tgt, _ := newTestSession(t)
	require.NoError(t, src.SetPlayer(player.New("alice")))
	require.NoError(t, tgt.SetPlayer(player.New("bob")))

	srcSlot, err := src.MakeInvitation(tgt, game.FirstPlayer, game.SecondPlayer)
	require.NoError(t, err)

	targetSlot := 0
	initial, err := tgt.AcceptInvitation(targetSlot)
	require.NoError(t, err)
	assert.Nil(t, initial, "target is SecondPlayer, so it does not move first")

	pkt, ok := srcConn.lastPacket()
	require.True(t, ok)
	assert.Equal(t, protocol.Accepted, pkt.hdr.Type)
	assert.NotEmpty(t, pkt.payload, "source moves first, so ACCEPTED carries the board")

	inv := src.invitationAt(srcSlot)
	require.NotNil(t, inv)
	assert.Equal(t, StateAccepted, inv.State())
}

func TestMakeMoveEndsGameAndUpdatesRatings(t *testing.T) {
	src, _ := newTestSession(t)
	tgt, _ := newTestSession(t)
	alice := player.New("alice")
	bob := player.New("bob")
	require.NoError(t, src.SetPlayer(alice))
	require.NoError(t, tgt.SetPlayer(bob))

	srcSlot, err := src.MakeInvitation(tgt, game.FirstPlayer, game.SecondPlayer)
	require.NoError(t, err)
	_, err = tgt.AcceptInvitation(0)
	require.NoError(t, err)

	// X wins the top row: 1, 4->O, 2, 5->O, 3
	require.NoError(t, src.MakeMove(srcSlot, "1"))
	require.NoError(t, tgt.MakeMove(0, "4"))
	require.NoError(t, src.MakeMove(srcSlot, "2"))
	require.NoError(t, tgt.MakeMove(0, "5"))
	require.NoError(t, src.MakeMove(srcSlot, "3"))

	assert.Equal(t, player.InitialRating+16, alice.Rating())
	assert.Equal(t, player.InitialRating-16, bob.Rating())
	assert.Nil(t, src.invitationAt(srcSlot))
	assert.Nil(t, tgt.invitationAt(0))
}

func TestRevokeInvitationNotifiesTarget(t *testing.T) {
	src, _ := newTestSession(t)
	tgt, tgtConn := newTestSession(t)
	require.NoError(t, src.SetPlayer(player.New("alice")))
	require.NoError(t, tgt.SetPlayer(player.New("bob")))

	slot, err := src.MakeInvitation(tgt, game.FirstPlayer, game.SecondPlayer)
	require.NoError(t, err)

	require.NoError(t, src.RevokeInvitation(slot))
	pkt, ok := tgtConn.lastPacket()
	require.True(t, ok)
	assert.Equal(t, protocol.Revoked, pkt.hdr.Type)
	assert.Nil(t, src.invitationAt(slot))
}

func TestMakeInvitationRejectsOverCap(t *testing.T) {
	src, _ := newTestSession(t)
	tgt, _ := newTestSession(t)
	require.NoError(t, src.SetPlayer(player.New("alice")))
	require.NoError(t, tgt.SetPlayer(player.New("bob")))
	src.SetMaxInvitations(1)

	other, _ := newTestSession(t)
	require.NoError(t, other.SetPlayer(player.New("carol")))

	_, err := src.MakeInvitation(tgt, game.FirstPlayer, game.SecondPlayer)
	require.NoError(t, err)

	_, err = src.MakeInvitation(other, game.FirstPlayer, game.SecondPlayer)
	assert.ErrorIs(t, err, ErrTooManyInvitations)
}

func TestMakeInvitationRejectsInvalidRole(t *testing.T) {
	src, _ := newTestSession(t)
	tgt, _ := newTestSession(t)
	require.NoError(t, src.SetPlayer(player.New("alice")))
	require.NoError(t, tgt.SetPlayer(player.New("bob")))

	_, err := src.MakeInvitation(tgt, game.Null, game.SecondPlayer)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = src.MakeInvitation(tgt, game.Role(7), game.SecondPlayer)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = src.MakeInvitation(tgt, game.FirstPlayer, game.FirstPlayer)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAddInvitationEnforcesUnconditionalSlotCap(t *testing.T) {
	src, _ := newTestSession(t)
	require.NoError(t, src.SetPlayer(player.New("alice")))

	// maxInvitations left at its default (0, unlimited); the hard
	// maxInvitationSlots ceiling must still apply, since the wire header's
	// id field is a single byte.
	for i := 0; i < maxInvitationSlots; i++ {
		tgt, _ := newTestSession(t)
		require.NoError(t, tgt.SetPlayer(player.New(fmt.Sprintf("p%d", i))))
		_, err := src.MakeInvitation(tgt, game.FirstPlayer, game.SecondPlayer)
		require.NoError(t, err)
	}

	overflow, _ := newTestSession(t)
	require.NoError(t, overflow.SetPlayer(player.New("overflow")))
	_, err := src.MakeInvitation(overflow, game.FirstPlayer, game.SecondPlayer)
	assert.ErrorIs(t, err, ErrTooManyInvitations)
}

func TestRevokeLosingRaceAgainstAcceptFailsWithoutOrphaningGame(t *testing.T) {
	src, _ := newTestSession(t)
	tgt, _ := newTestSession(t)
	require.NoError(t, src.SetPlayer(player.New("alice")))
	require.NoError(t, tgt.SetPlayer(player.New("bob")))

	slot, err := src.MakeInvitation(tgt, game.FirstPlayer, game.SecondPlayer)
	require.NoError(t, err)
	inv := src.invitationAt(slot)
	require.NotNil(t, inv)

	// Simulate AcceptInvitation winning a race against a concurrent Revoke
	// that had already read the (now stale) OPEN state.
	_, err = tgt.AcceptInvitation(0)
	require.NoError(t, err)

	err = src.RevokeInvitation(slot)
	assert.ErrorIs(t, err, ErrWrongState)
	assert.Equal(t, StateAccepted, inv.State())
	assert.NotNil(t, inv.Game(), "the accepted game must survive a losing revoke")
	assert.NotNil(t, src.invitationAt(slot), "a losing revoke must not remove the invitation slot")
}

func TestLogoutResignsInProgressGame(t *testing.T) {
	src, _ := newTestSession(t)
	tgt, tgtConn := newTestSession(t)
	require.NoError(t, src.SetPlayer(player.New("alice")))
	require.NoError(t, tgt.SetPlayer(player.New("bob")))

	slot, err := src.MakeInvitation(tgt, game.FirstPlayer, game.SecondPlayer)
	require.NoError(t, err)
	_, err = tgt.AcceptInvitation(0)
	require.NoError(t, err)

	src.Logout()

	pkt, ok := tgtConn.lastPacket()
	require.True(t, ok)
	assert.Contains(t, []protocol.PacketType{protocol.Resigned, protocol.Ended}, pkt.hdr.Type)
	assert.Nil(t, tgt.invitationAt(0))
	assert.Nil(t, src.Player())
	_ = slot
}
