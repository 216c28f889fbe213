package player

import "math"

// K is the Elo update coefficient applied to every game result.
const K = 32

// Score is a game outcome expressed the way PostResult expects it: 1 for a
// win, 0 for a loss, 0.5 for a draw.
type Score float64

const (
	Loss Score = 0
	Draw Score = 0.5
	Win  Score = 1
)

// PostResult updates the ratings of p1 and p2 according to the outcome
// scores s1 and s2 (which must sum to 1, i.e. Win/Loss or Draw/Draw). The
// two players' locks are always acquired in the same relative order
// regardless of which is passed first, so concurrent PostResult calls
// naming the same pair in opposite order cannot deadlock.
func PostResult(p1, p2 *Player, s1, s2 Score) {
	first, second := p1, p2
	if first.name > second.name {
		first, second = second, first
	}

	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	r1, r2 := p1.rating, p2.rating
	e1 := expected(r1, r2)
	e2 := expected(r2, r1)

	p1.rating = r1 + int(K*(float64(s1)-e1))
	p2.rating = r2 + int(K*(float64(s2)-e2))
}

// expected returns the probability that a player rated ra is expected to
// score against a player rated rb, per the standard Elo logistic curve.
func expected(ra, rb int) float64 {
	return 1 / (1 + math.Pow(10, float64(rb-ra)/400))
}
