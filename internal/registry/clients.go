// Package registry maintains the process-wide table of connected sessions
// and the currently logged-in username-to-session mapping used to enforce
// one active connection per player.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/jeux-server/internal/events"
	"github.com/tecu23/jeux-server/internal/player"
	"github.com/tecu23/jeux-server/internal/session"
)

// ErrFull is returned by Register when the registry is already holding its
// configured maximum number of connections.
var ErrFull = errors.New("registry: at capacity")

// ErrPlayerLoggedInElsewhere is returned by Login when another session is
// already logged in as the requested username.
var ErrPlayerLoggedInElsewhere = errors.New("registry: player already logged in from another session")

// ClientRegistry tracks every connected Session and, among them, which
// ones are currently logged in and under which username. WaitForEmpty
// releases every blocked caller together, via sync.Cond.Broadcast, once
// the registry empties out — unlike the single-permit semaphore in the
// source material, which only ever wakes one waiter per drain.
type ClientRegistry struct {
	mu       sync.Mutex
	cond     *sync.Cond
	sessions       map[uuid.UUID]*session.Session
	byPlayer       map[string]*session.Session
	max            int
	maxInvitations int
	players        *player.Registry
	logger         *zap.Logger
	events         *events.Publisher
}

// NewClientRegistry constructs an empty registry backed by players. A max
// of zero or less means unlimited concurrent connections; maxInvitations
// of zero or less leaves each session bounded only by the session
// package's fixed 256-slot ceiling.
func NewClientRegistry(max, maxInvitations int, players *player.Registry, logger *zap.Logger) *ClientRegistry {
	cr := &ClientRegistry{
		sessions:       make(map[uuid.UUID]*session.Session),
		byPlayer:       make(map[string]*session.Session),
		max:            max,
		maxInvitations: maxInvitations,
		players:        players,
		logger:         logger,
		events:         events.NewPublisher(),
	}
	cr.cond = sync.NewCond(&cr.mu)
	return cr
}

// Events returns the registry's lifecycle event bus, for observability
// hooks to subscribe to session/player/game events.
func (cr *ClientRegistry) Events() *events.Publisher {
	return cr.events
}

// Register adds sess to the registry, failing if the registry is full.
func (cr *ClientRegistry) Register(sess *session.Session) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if cr.max > 0 && len(cr.sessions) >= cr.max {
		return ErrFull
	}
	sess.SetMaxInvitations(cr.maxInvitations)
	sess.SetEventPublisher(cr.events)
	cr.sessions[sess.ID] = sess
	cr.logger.Info("session registered",
		zap.String("session", sess.ID.String()),
		zap.Int("active", len(cr.sessions)),
	)
	cr.events.Publish(events.Event{Type: events.SessionRegistered, Subject: sess.ID.String()})
	return nil
}

// Unregister logs sess out (revoking/declining/resigning anything still
// open) and removes it from the registry. If this drains the registry to
// zero connections, every WaitForEmpty caller is released.
func (cr *ClientRegistry) Unregister(sess *session.Session) {
	name := sess.PlayerName()
	sess.Logout()

	cr.mu.Lock()
	defer cr.mu.Unlock()
	delete(cr.sessions, sess.ID)
	if name != "" {
		delete(cr.byPlayer, name)
	}
	cr.logger.Info("session unregistered",
		zap.String("session", sess.ID.String()),
		zap.Int("active", len(cr.sessions)),
	)
	cr.events.Publish(events.Event{Type: events.SessionUnregistered, Subject: sess.ID.String()})
	if len(cr.sessions) == 0 {
		cr.cond.Broadcast()
	}
}

// Login attaches the player named name to sess, failing if sess is already
// logged in or if another session already holds that username.
func (cr *ClientRegistry) Login(sess *session.Session, name string) error {
	cr.mu.Lock()
	if _, taken := cr.byPlayer[name]; taken {
		cr.mu.Unlock()
		return ErrPlayerLoggedInElsewhere
	}
	cr.byPlayer[name] = sess
	cr.mu.Unlock()

	p := cr.players.Register(name)
	if err := sess.SetPlayer(p); err != nil {
		cr.mu.Lock()
		delete(cr.byPlayer, name)
		cr.mu.Unlock()
		return err
	}
	cr.logger.Info("player logged in", zap.String("name", name), zap.String("session", sess.ID.String()))
	cr.events.Publish(events.Event{Type: events.PlayerLoggedIn, Subject: name})
	return nil
}

// LookupSession returns the session currently logged in under name.
func (cr *ClientRegistry) LookupSession(name string) (*session.Session, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	s, ok := cr.byPlayer[name]
	return s, ok
}

// LoggedInPlayers returns a snapshot of every currently logged-in player,
// sorted by username, for the USERS reply.
func (cr *ClientRegistry) LoggedInPlayers() []*player.Player {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	out := make([]*player.Player, 0, len(cr.byPlayer))
	for _, s := range cr.byPlayer {
		out = append(out, s.Player())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ShutdownAll shuts down the read half of every registered session's
// connection, unblocking each one's service loop so that it can
// unregister itself, while leaving write halves open so any in-flight
// notification to a shutting-down session (e.g. a peer's Logout cascade)
// can still be delivered. It does not wait for sessions to actually
// unregister; call WaitForEmpty for that.
func (cr *ClientRegistry) ShutdownAll() {
	cr.mu.Lock()
	sessions := make([]*session.Session, 0, len(cr.sessions))
	for _, s := range cr.sessions {
		sessions = append(sessions, s)
	}
	cr.mu.Unlock()

	for _, s := range sessions {
		if err := s.ShutdownRead(); err != nil {
			cr.logger.Warn("error shutting down session read half", zap.Error(err), zap.String("session", s.ID.String()))
		}
	}
}

// WaitForEmpty blocks until no sessions are registered. Every concurrent
// caller unblocks together once the registry drains.
func (cr *ClientRegistry) WaitForEmpty() {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	for len(cr.sessions) > 0 {
		cr.cond.Wait()
	}
}

// Len reports the number of currently registered sessions.
func (cr *ClientRegistry) Len() int {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return len(cr.sessions)
}
