// Package player tracks registered usernames and their Elo ratings across
// the lifetime of the server process.
package player

import (
	"sync"

	"github.com/google/uuid"
)

// InitialRating is the rating assigned to a player the first time their
// username is registered.
const InitialRating = 1500

// Player is a registered username and its current rating. A Player outlives
// any single session; the same username reconnecting later resumes the same
// Player and rating.
type Player struct {
	// ID is a correlation identifier for log lines; it never appears on
	// the wire, where players are identified by username.
	ID uuid.UUID

	mu     sync.Mutex
	name   string
	rating int
}

// New creates a Player with the initial rating. Callers should only invoke
// this from Registry.Register, which guarantees a single Player per
// username.
func New(name string) *Player {
	return &Player{
		ID:     uuid.New(),
		name:   name,
		rating: InitialRating,
	}
}

// Name returns the player's username. Usernames are immutable once a Player
// is created, so this needs no locking.
func (p *Player) Name() string {
	return p.name
}

// Rating returns the player's current rating.
func (p *Player) Rating() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rating
}
