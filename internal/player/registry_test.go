package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	p1 := reg.Register("alice")
	PostResult(p1, reg.Register("bob"), Win, Loss)

	p2 := reg.Register("alice")
	assert.Same(t, p1, p2)
	assert.Equal(t, InitialRating+16, p2.Rating())
}

func TestLookupMissingPlayer(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	_, ok := reg.Lookup("nobody")
	assert.False(t, ok)
}

func TestAllPlayersSortedByName(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("zeta")
	reg.Register("alpha")
	reg.Register("mike")

	all := reg.AllPlayers()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "mike", "zeta"}, []string{all[0].Name(), all[1].Name(), all[2].Name()})
}
