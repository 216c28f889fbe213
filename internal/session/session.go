// Package session implements a logged-in client's connection state: its
// invitation list, its current player identity, and every operation a
// client can perform (inviting, responding to invitations, moving,
// resigning, logging out). Invitation lives in this package alongside
// Session because the two are mutually referential for their entire
// lifetime — a source and target Session each hold a slot referencing the
// same Invitation, and the Invitation holds both Sessions back.
package session

import (
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/jeux-server/internal/events"
	"github.com/tecu23/jeux-server/internal/player"
	"github.com/tecu23/jeux-server/internal/protocol"
)

// invSlotBlock is the number of invitation slots allocated at a time,
// matching the growth increment of the original invitation array.
const invSlotBlock = 10

// maxInvitationSlots is the hard, unconditional ceiling on a session's
// invitation list. The wire header's id field is a single byte, and slot
// ids are truncated into it with uint8(...) at every send site, so a
// session holding more than 256 open invitations would alias two of them
// onto the same wire id. This bound applies regardless of the separately
// configurable maxInvitations, whose zero default sets no lower limit.
const maxInvitationSlots = 256

// ErrAlreadyLoggedIn is returned by SetPlayer when the session already has
// a player attached.
var ErrAlreadyLoggedIn = errors.New("session: already logged in")

// ErrNotLoggedIn is returned by operations that require a player identity.
var ErrNotLoggedIn = errors.New("session: not logged in")

// ErrTooManyInvitations is returned by MakeInvitation when either side of
// the invitation already holds its configured maximum of open invitations,
// or the unconditional maxInvitationSlots ceiling.
var ErrTooManyInvitations = errors.New("session: too many open invitations")

// Session is one connected client, from accept to disconnect. It is safe
// for concurrent use; sess.mu guards only the fields declared here, never
// an Invitation's own state.
type Session struct {
	ID     uuid.UUID
	conn   net.Conn
	sender *protocol.Sender
	logger *zap.Logger

	mu             sync.Mutex
	player         *player.Player
	invs           []*Invitation // sparse; a nil entry is a free slot
	maxInvitations int           // 0 means only maxInvitationSlots applies
	publisher      *events.Publisher
}

// New wraps conn as a fresh, logged-out Session. sender is the process-wide
// packet sender shared by every session, and must never be created
// per-session — the server has exactly one.
func New(conn net.Conn, sender *protocol.Sender, logger *zap.Logger) *Session {
	id := uuid.New()
	return &Session{
		ID:     id,
		conn:   conn,
		sender: sender,
		logger: logger.With(zap.String("session", id.String())),
	}
}

// Close closes the underlying connection, unblocking any in-progress read
// in the session's service loop.
func (s *Session) Close() error {
	return s.conn.Close()
}

// ShutdownRead shuts down only the read half of the underlying connection,
// unblocking any in-progress Recv without closing the write half, so a
// concurrent outbound write to this session — e.g. another session's
// Logout cascade delivering an ENDED or REVOKED notification here — can
// still be delivered instead of failing on a fully closed socket. For a
// net.Conn with no half-close primitive, this falls back to a full Close.
func (s *Session) ShutdownRead() error {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		return tc.CloseRead()
	}
	return s.conn.Close()
}

// Player returns the session's current player identity, or nil if the
// session has not logged in.
func (s *Session) Player() *player.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// PlayerName returns the logged-in player's username, or "" if logged out.
func (s *Session) PlayerName() string {
	p := s.Player()
	if p == nil {
		return ""
	}
	return p.Name()
}

// SetPlayer attaches p as the session's identity. It fails if the session
// is already logged in; uniqueness of p across sessions is enforced by the
// caller (the client registry), not here.
func (s *Session) SetPlayer(p *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		return ErrAlreadyLoggedIn
	}
	s.player = p
	return nil
}

// clearPlayer detaches the session's player identity and returns it, or
// nil if the session was already logged out.
func (s *Session) clearPlayer() *player.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.player
	s.player = nil
	return p
}

// send writes a packet to this session's connection under the process-wide
// send lock.
func (s *Session) send(hdr protocol.Header, payload []byte) error {
	return s.sender.Send(s.conn, hdr, payload)
}

// SendAck sends an ACK carrying an optional payload. id is echoed in the
// header's id field, which most operations leave at zero but which INVITE
// and ACCEPT populate with the relevant invitation slot id.
func (s *Session) SendAck(id uint8, payload []byte) error {
	return s.send(protocol.NewHeader(protocol.Ack, id, 0, len(payload)), payload)
}

// SendNack sends a bare NACK.
func (s *Session) SendNack() error {
	return s.send(protocol.NewHeader(protocol.Nack, 0, 0, 0), nil)
}

// Recv blocks until the next packet arrives on the session's connection.
func (s *Session) Recv() (protocol.Header, []byte, error) {
	return protocol.RecvPacket(s.conn)
}

// SetMaxInvitations caps the number of open invitation slots s may hold at
// once. Zero or less, the zero value of Session, leaves only the
// maxInvitationSlots ceiling, which also bounds any larger n.
func (s *Session) SetMaxInvitations(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxInvitations = n
}

// SetEventPublisher attaches the process-wide lifecycle event bus, so
// operations on s can publish observability events. A nil publisher (the
// default) makes publishEvent a no-op.
func (s *Session) SetEventPublisher(p *events.Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// publishEvent emits an event on s's publisher, if one is attached.
func (s *Session) publishEvent(t events.EventType, subject string, payload interface{}) {
	s.mu.Lock()
	p := s.publisher
	s.mu.Unlock()
	if p == nil {
		return
	}
	p.Publish(events.Event{Type: t, Subject: subject, Payload: payload})
}

// addInvitation stores inv in the first free slot, growing the slice in
// blocks of invSlotBlock the way the original client's invitation array
// grows, and returns the assigned slot id. It fails once the session
// already holds maxInvitations open invitations, and unconditionally fails
// at maxInvitationSlots regardless of maxInvitations (see its doc comment).
func (s *Session) addInvitation(inv *Invitation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := maxInvitationSlots
	if s.maxInvitations > 0 && s.maxInvitations < limit {
		limit = s.maxInvitations
	}
	open := 0
	for _, existing := range s.invs {
		if existing != nil {
			open++
		}
	}
	if open >= limit {
		return -1, ErrTooManyInvitations
	}

	for i, existing := range s.invs {
		if existing == nil {
			s.invs[i] = inv
			return i, nil
		}
	}
	id := len(s.invs)
	s.invs = append(s.invs, make([]*Invitation, invSlotBlock)...)
	s.invs[id] = inv
	return id, nil
}

// removeInvitationAt clears slot id if it still holds inv, and reports
// whether it did.
func (s *Session) removeInvitationAt(id int, inv *Invitation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.invs) || s.invs[id] != inv {
		return false
	}
	s.invs[id] = nil
	return true
}

// invitationAt returns the invitation in slot id, or nil if the slot is
// out of range or empty.
func (s *Session) invitationAt(id int) *Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.invs) {
		return nil
	}
	return s.invs[id]
}

// invSlot pairs an invitation with the slot id it occupies in a session's
// invitation list.
type invSlot struct {
	ID  int
	Inv *Invitation
}

// openInvitations returns a snapshot of every non-nil invitation slot, for
// use by Logout's cascade.
func (s *Session) openInvitations() []invSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]invSlot, 0, len(s.invs))
	for i, inv := range s.invs {
		if inv != nil {
			out = append(out, invSlot{ID: i, Inv: inv})
		}
	}
	return out
}
