package game

import (
	"fmt"
	"strconv"
	"sync"
)

// winLines are the eight index triples that constitute a win, in the same
// order the original checker evaluates them.
var winLines = [8][3]int{
	{2, 4, 6},
	{0, 4, 8},
	{2, 5, 8},
	{1, 4, 7},
	{0, 3, 6},
	{6, 7, 8},
	{3, 4, 5},
	{0, 1, 2},
}

// TicTacToe is a Game implementation of ordinary 3x3 tic-tac-toe.
type TicTacToe struct {
	mu        sync.Mutex
	board     [9]Role
	nextMover Role
	over      bool
	winner    Role // Null until the game ends; stays Null on a draw
}

// NewTicTacToe returns a fresh game with FirstPlayer to move.
func NewTicTacToe() *TicTacToe {
	return &TicTacToe{nextMover: FirstPlayer}
}

func (g *TicTacToe) ApplyMove(move Move) error {
	if move.Spot < 0 || move.Spot > 8 {
		return ErrIllegalMove
	}
	if move.Role != FirstPlayer && move.Role != SecondPlayer {
		return ErrIllegalMove
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return ErrGameOver
	}
	if move.Role != g.nextMover {
		return ErrIllegalMove
	}
	if g.board[move.Spot] != Null {
		return ErrIllegalMove
	}

	g.board[move.Spot] = move.Role
	g.settle()
	g.nextMover = g.nextMover.Opponent()
	return nil
}

func (g *TicTacToe) Resign(role Role) error {
	if role != FirstPlayer && role != SecondPlayer {
		return ErrIllegalMove
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return ErrGameOver
	}
	g.over = true
	g.winner = role.Opponent()
	return nil
}

func (g *TicTacToe) IsOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.over
}

func (g *TicTacToe) Winner() Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

func (g *TicTacToe) NextMover() Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextMover
}

// settle recomputes g.over/g.winner from the current board. Caller must
// hold g.mu. A full board is checked before the win lines, so a move that
// simultaneously completes a line and fills the last cell is a tie, not a
// win, matching the original checker's board-full-first order.
func (g *TicTacToe) settle() {
	full := true
	for _, cell := range g.board {
		if cell == Null {
			full = false
			break
		}
	}
	if full {
		g.over = true
		g.winner = Null
		return
	}

	for _, line := range winLines {
		a, b, c := g.board[line[0]], g.board[line[1]], g.board[line[2]]
		if a != Null && a == b && a == c {
			g.over = true
			g.winner = a
			return
		}
	}
}

func (g *TicTacToe) Render() string {
	g.mu.Lock()
	board := g.board
	mover := g.nextMover
	g.mu.Unlock()

	var b [41]byte
	i := 0
	writeRow := func(r int) {
		b[i] = board[r*3].mark()
		b[i+1] = '|'
		b[i+2] = board[r*3+1].mark()
		b[i+3] = '|'
		b[i+4] = board[r*3+2].mark()
		b[i+5] = '\n'
		i += 6
	}
	writeRow(0)
	copy(b[i:], "-----\n")
	i += 6
	writeRow(1)
	copy(b[i:], "-----\n")
	i += 6
	writeRow(2)
	b[i] = mover.mark()
	i++
	copy(b[i:], " to move\n")
	i += len(" to move\n")
	return string(b[:i])
}

// ParseMove interprets a string of the form "<digit>" or "<digit><-X"/"<-O"
// as a move. The digit selects a board cell numbered 1-9 left-to-right,
// top-to-bottom. When a mark suffix is present it must match the mark
// implied by role (or, if role is Null, by the game's current mover) or the
// move is rejected.
func (g *TicTacToe) ParseMove(role Role, str string) (Move, error) {
	if len(str) == 0 {
		return Move{}, ErrUnparseableMove
	}

	g.mu.Lock()
	mover := g.nextMover
	g.mu.Unlock()

	if role != Null && role != mover {
		return Move{}, ErrIllegalMove
	}
	if role == Null {
		role = mover
	}

	spotDigit, rest := str[0], str[1:]
	spotNum, err := strconv.Atoi(string(spotDigit))
	if err != nil || spotNum < 1 || spotNum > 9 {
		return Move{}, ErrUnparseableMove
	}

	if rest != "" {
		wantMark := fmt.Sprintf("<-%c", role.mark())
		if rest != wantMark {
			return Move{}, ErrUnparseableMove
		}
	}

	return Move{Spot: spotNum - 1, Role: role}, nil
}
