package rules

import "github.com/mcoot/blitzarena/internal/model"

const empty = -1

// TicTacToeLines are the eight winning lines of a 3x3 board
var TicTacToeLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6},            // diagonals
}

// TicTacToeState is a 3x3 board; each cell holds a seat index or -1
type TicTacToeState struct {
	Cells [9]int
}

// TicTacToe is speed tic-tac-toe
type TicTacToe struct{}

var _ Engine = (*TicTacToe)(nil)

// NewTicTacToe creates the tic-tac-toe engine
func NewTicTacToe() *TicTacToe {
	return &TicTacToe{}
}

func (t *TicTacToe) GameType() model.GameType {
	return model.GameTicTacToe
}

func (t *TicTacToe) Symbols() [2]string {
	return [2]string{"X", "O"}
}

func (t *TicTacToe) NewRound(int) any {
	s := &TicTacToeState{}
	for i := range s.Cells {
		s.Cells[i] = empty
	}
	return s
}

func (t *TicTacToe) Apply(state any, seat int, move model.Move) (Result, error) {
	s, ok := state.(*TicTacToeState)
	if !ok {
		return Result{}, stateError(state)
	}

	pos, err := validPosition(move.Position, len(s.Cells))
	if err != nil {
		return Result{}, err
	}
	if s.Cells[pos] != empty {
		return Result{}, model.ErrPositionOccupied
	}

	s.Cells[pos] = seat

	if winner, won := CheckWinner(s.Cells); won {
		return roundWon(winner), nil
	}
	if boardFull(s.Cells) {
		return roundDrawn(), nil
	}
	return continueTurn(), nil
}

func (t *TicTacToe) View(state any) any {
	s, ok := state.(*TicTacToeState)
	if !ok {
		return nil
	}
	symbols := t.Symbols()
	board := make([]string, len(s.Cells))
	for i, c := range s.Cells {
		if c != empty {
			board[i] = symbols[c]
		}
	}
	return map[string]any{"board": board}
}

// CheckWinner returns the seat holding a complete line, if any
func CheckWinner(cells [9]int) (int, bool) {
	for _, line := range TicTacToeLines {
		a := cells[line[0]]
		if a != empty && a == cells[line[1]] && a == cells[line[2]] {
			return a, true
		}
	}
	return model.NoWinner, false
}

func boardFull(cells [9]int) bool {
	for _, c := range cells {
		if c == empty {
			return false
		}
	}
	return true
}
