package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicTacToeStartsWithFirstPlayer(t *testing.T) {
	g := NewTicTacToe()
	assert.Equal(t, FirstPlayer, g.NextMover())
	assert.False(t, g.IsOver())
	assert.Equal(t, Null, g.Winner())
}

func TestApplyMoveAlternatesTurns(t *testing.T) {
	g := NewTicTacToe()
	require.NoError(t, g.ApplyMove(Move{Spot: 0, Role: FirstPlayer}))
	assert.Equal(t, SecondPlayer, g.NextMover())
	require.NoError(t, g.ApplyMove(Move{Spot: 1, Role: SecondPlayer}))
	assert.Equal(t, FirstPlayer, g.NextMover())
}

func TestApplyMoveRejectsOutOfTurn(t *testing.T) {
	g := NewTicTacToe()
	err := g.ApplyMove(Move{Spot: 0, Role: SecondPlayer})
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestApplyMoveRejectsOccupiedCell(t *testing.T) {
	g := NewTicTacToe()
	require.NoError(t, g.ApplyMove(Move{Spot: 4, Role: FirstPlayer}))
	err := g.ApplyMove(Move{Spot: 4, Role: SecondPlayer})
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestApplyMoveRejectsOutOfRangeSpot(t *testing.T) {
	g := NewTicTacToe()
	assert.ErrorIs(t, g.ApplyMove(Move{Spot: 9, Role: FirstPlayer}), ErrIllegalMove)
	assert.ErrorIs(t, g.ApplyMove(Move{Spot: -1, Role: FirstPlayer}), ErrIllegalMove)
}

func TestWinningLineEndsGame(t *testing.T) {
	g := NewTicTacToe()
	// X: 0, 1, 2 (top row) with O interleaved elsewhere.
	require.NoError(t, g.ApplyMove(Move{Spot: 0, Role: FirstPlayer}))
	require.NoError(t, g.ApplyMove(Move{Spot: 3, Role: SecondPlayer}))
	require.NoError(t, g.ApplyMove(Move{Spot: 1, Role: FirstPlayer}))
	require.NoError(t, g.ApplyMove(Move{Spot: 4, Role: SecondPlayer}))
	require.NoError(t, g.ApplyMove(Move{Spot: 2, Role: FirstPlayer}))

	assert.True(t, g.IsOver())
	assert.Equal(t, FirstPlayer, g.Winner())

	err := g.ApplyMove(Move{Spot: 5, Role: SecondPlayer})
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestDrawnGameHasNullWinner(t *testing.T) {
	g := NewTicTacToe()
	// X O X
	// X O O
	// O X X
	moves := []Move{
		{Spot: 0, Role: FirstPlayer},
		{Spot: 1, Role: SecondPlayer},
		{Spot: 2, Role: FirstPlayer},
		{Spot: 4, Role: SecondPlayer},
		{Spot: 3, Role: FirstPlayer},
		{Spot: 5, Role: SecondPlayer},
		{Spot: 7, Role: FirstPlayer},
		{Spot: 6, Role: SecondPlayer},
		{Spot: 8, Role: FirstPlayer},
	}
	for _, m := range moves {
		require.NoError(t, g.ApplyMove(m))
	}
	assert.True(t, g.IsOver())
	assert.Equal(t, Null, g.Winner())
}

func TestFinalMoveThatWinsAndFillsBoardIsATie(t *testing.T) {
	g := NewTicTacToe()
	// X ends up on the 0-4-8 diagonal, but its winning move is also the
	// move that fills the last empty cell; a full board is a tie
	// regardless of any completed line.
	moves := []Move{
		{Spot: 0, Role: FirstPlayer},
		{Spot: 2, Role: SecondPlayer},
		{Spot: 1, Role: FirstPlayer},
		{Spot: 5, Role: SecondPlayer},
		{Spot: 3, Role: FirstPlayer},
		{Spot: 6, Role: SecondPlayer},
		{Spot: 4, Role: FirstPlayer},
		{Spot: 7, Role: SecondPlayer},
		{Spot: 8, Role: FirstPlayer}, // completes 0-4-8 and fills the board
	}
	for _, m := range moves {
		require.NoError(t, g.ApplyMove(m))
	}
	assert.True(t, g.IsOver())
	assert.Equal(t, Null, g.Winner(), "a full board is a tie even if the last move also completes a line")
}

func TestResignAwardsOpponent(t *testing.T) {
	g := NewTicTacToe()
	require.NoError(t, g.Resign(FirstPlayer))
	assert.True(t, g.IsOver())
	assert.Equal(t, SecondPlayer, g.Winner())

	assert.ErrorIs(t, g.Resign(SecondPlayer), ErrGameOver)
}

func TestRenderFixedWidth(t *testing.T) {
	g := NewTicTacToe()
	require.NoError(t, g.ApplyMove(Move{Spot: 0, Role: FirstPlayer}))

	rendered := g.Render()
	assert.Len(t, rendered, 40)
	assert.Equal(t, "X| | \n-----\n | | \n-----\n | | \nO to move\n", rendered)
}

func TestParseMoveAcceptsBareDigit(t *testing.T) {
	g := NewTicTacToe()
	move, err := g.ParseMove(FirstPlayer, "5")
	require.NoError(t, err)
	assert.Equal(t, Move{Spot: 4, Role: FirstPlayer}, move)
}

func TestParseMoveValidatesMarkSuffix(t *testing.T) {
	g := NewTicTacToe()
	move, err := g.ParseMove(Null, "1<-X")
	require.NoError(t, err)
	assert.Equal(t, Move{Spot: 0, Role: FirstPlayer}, move)

	_, err = g.ParseMove(Null, "1<-O")
	assert.ErrorIs(t, err, ErrUnparseableMove)
}

func TestParseMoveRejectsWrongTurnRole(t *testing.T) {
	g := NewTicTacToe()
	_, err := g.ParseMove(SecondPlayer, "1")
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestParseMoveRejectsGarbage(t *testing.T) {
	g := NewTicTacToe()
	_, err := g.ParseMove(Null, "")
	assert.ErrorIs(t, err, ErrUnparseableMove)

	_, err = g.ParseMove(Null, "x")
	assert.ErrorIs(t, err, ErrUnparseableMove)

	_, err = g.ParseMove(Null, "0")
	assert.ErrorIs(t, err, ErrUnparseableMove)
}
