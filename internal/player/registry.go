package player

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry is the process-wide table of every username that has ever
// logged in, keyed by name. Registration is idempotent: registering an
// already-known username returns the existing Player rather than resetting
// its rating.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player
	logger  *zap.Logger
}

// NewRegistry constructs an empty player registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		players: make(map[string]*Player),
		logger:  logger,
	}
}

// Register returns the Player for name, creating one with the initial
// rating on first use.
func (r *Registry) Register(name string) *Player {
	r.mu.RLock()
	p, ok := r.players[name]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[name]; ok {
		return p
	}
	p = New(name)
	r.players[name] = p
	r.logger.Info("player registered", zap.String("name", name), zap.Int("rating", p.Rating()))
	return p
}

// Lookup returns the Player for name, if one has been registered.
func (r *Registry) Lookup(name string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[name]
	return p, ok
}

// AllPlayers returns a snapshot of every registered player, sorted by
// username for deterministic ordering in log output.
func (r *Registry) AllPlayers() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Finalize logs the final standings of every registered player. Called once
// at shutdown, after every session has been torn down.
func (r *Registry) Finalize() {
	players := r.AllPlayers()
	r.logger.Info("finalizing player registry", zap.Int("count", len(players)))
	for _, p := range players {
		r.logger.Info("final standing", zap.String("name", p.Name()), zap.Int("rating", p.Rating()))
	}
}
