package rules

import "github.com/mcoot/blitzarena/internal/model"

const (
	// MorrisPoints is the number of board intersections
	MorrisPoints = 24
	// MorrisPieces is the number of pieces each side starts with
	MorrisPieces = 9
	// morrisFlying is the piece count at which a side may move to any empty point
	morrisFlying = 3
)

// Morris phases as reported to clients
const (
	PhasePlacement = "placement"
	PhaseMovement  = "movement"
	PhaseRemoval   = "removal"
)

// MorrisAdjacency lists the neighbours of each point.
//
//	0-----------1-----------2
//	|           |           |
//	|   3-------4-------5   |
//	|   |       |       |   |
//	|   |   6---7---8   |   |
//	|   |   |       |   |   |
//	9---10--11      12--13--14
//	|   |   |       |   |   |
//	|   |   15--16--17  |   |
//	|   |       |       |   |
//	|   18------19------20  |
//	|           |           |
//	21----------22----------23
var MorrisAdjacency = [MorrisPoints][]int{
	0:  {1, 9},
	1:  {0, 2, 4},
	2:  {1, 14},
	3:  {4, 10},
	4:  {1, 3, 5, 7},
	5:  {4, 13},
	6:  {7, 11},
	7:  {4, 6, 8},
	8:  {7, 12},
	9:  {0, 10, 21},
	10: {3, 9, 11, 18},
	11: {6, 10, 15},
	12: {8, 13, 17},
	13: {5, 12, 14, 20},
	14: {2, 13, 23},
	15: {11, 16},
	16: {15, 17, 19},
	17: {12, 16},
	18: {10, 19},
	19: {16, 18, 20, 22},
	20: {13, 19},
	21: {9, 22},
	22: {19, 21, 23},
	23: {14, 22},
}

// MorrisMills lists every line of three points
var MorrisMills = [16][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {9, 10, 11},
	{12, 13, 14}, {15, 16, 17}, {18, 19, 20}, {21, 22, 23},
	{0, 9, 21}, {3, 10, 18}, {6, 11, 15}, {1, 4, 7},
	{16, 19, 22}, {8, 12, 17}, {5, 13, 20}, {2, 14, 23},
}

// MorrisState is a Nine Men's Morris board
type MorrisState struct {
	Board   [MorrisPoints]int // seat index or -1
	InHand  [2]int
	OnBoard [2]int
	// Removing is set after the mover closed a mill and must take an opponent piece
	Removing bool
}

// Phase returns the phase the given seat is in
func (s *MorrisState) Phase(seat int) string {
	switch {
	case s.Removing:
		return PhaseRemoval
	case s.InHand[seat] > 0:
		return PhasePlacement
	default:
		return PhaseMovement
	}
}

// InMill returns true if the piece at pos is part of a complete line
func (s *MorrisState) InMill(pos int) bool {
	owner := s.Board[pos]
	if owner == empty {
		return false
	}
	for _, mill := range MorrisMills {
		if mill[0] != pos && mill[1] != pos && mill[2] != pos {
			continue
		}
		if s.Board[mill[0]] == owner && s.Board[mill[1]] == owner && s.Board[mill[2]] == owner {
			return true
		}
	}
	return false
}

// hasPieceOutsideMill returns true if seat has any piece not in a mill
func (s *MorrisState) hasPieceOutsideMill(seat int) bool {
	for pos, owner := range s.Board {
		if owner == seat && !s.InMill(pos) {
			return true
		}
	}
	return false
}

// CanMove returns true if seat has at least one legal move in the movement phase
func (s *MorrisState) CanMove(seat int) bool {
	flying := s.OnBoard[seat] == morrisFlying
	for pos, owner := range s.Board {
		if owner != seat {
			continue
		}
		if flying {
			for _, other := range s.Board {
				if other == empty {
					return true
				}
			}
			return false
		}
		for _, n := range MorrisAdjacency[pos] {
			if s.Board[n] == empty {
				return true
			}
		}
	}
	return false
}

// Morris is Nine Men's Morris
type Morris struct{}

var _ Engine = (*Morris)(nil)

// NewMorris creates the morris engine
func NewMorris() *Morris {
	return &Morris{}
}

func (m *Morris) GameType() model.GameType {
	return model.GameMorris
}

func (m *Morris) Symbols() [2]string {
	return [2]string{"W", "B"}
}

func (m *Morris) NewRound(int) any {
	s := &MorrisState{
		InHand: [2]int{MorrisPieces, MorrisPieces},
	}
	for i := range s.Board {
		s.Board[i] = empty
	}
	return s
}

func (m *Morris) Apply(state any, seat int, move model.Move) (Result, error) {
	s, ok := state.(*MorrisState)
	if !ok {
		return Result{}, stateError(state)
	}

	switch s.Phase(seat) {
	case PhaseRemoval:
		return m.remove(s, seat, move)
	case PhasePlacement:
		return m.place(s, seat, move)
	default:
		return m.move(s, seat, move)
	}
}

func (m *Morris) place(s *MorrisState, seat int, move model.Move) (Result, error) {
	if move.From != nil || move.To != nil {
		return Result{}, model.ErrInvalidMove
	}
	pos, err := validPosition(move.Position, MorrisPoints)
	if err != nil {
		return Result{}, err
	}
	if s.Board[pos] != empty {
		return Result{}, model.ErrPositionOccupied
	}

	s.Board[pos] = seat
	s.InHand[seat]--
	s.OnBoard[seat]++

	return m.afterLanding(s, seat, pos), nil
}

func (m *Morris) move(s *MorrisState, seat int, move model.Move) (Result, error) {
	if move.Position != nil {
		return Result{}, model.ErrInvalidMove
	}
	from, err := validPosition(move.From, MorrisPoints)
	if err != nil {
		return Result{}, err
	}
	to, err := validPosition(move.To, MorrisPoints)
	if err != nil {
		return Result{}, err
	}
	if s.Board[from] != seat {
		return Result{}, model.ErrNotOwnPiece
	}
	if s.Board[to] != empty {
		return Result{}, model.ErrPositionOccupied
	}
	if s.OnBoard[seat] > morrisFlying && !adjacent(from, to) {
		return Result{}, model.ErrNotAdjacent
	}

	s.Board[from] = empty
	s.Board[to] = seat

	return m.afterLanding(s, seat, to), nil
}

func (m *Morris) remove(s *MorrisState, seat int, move model.Move) (Result, error) {
	if move.Position == nil {
		return Result{}, model.ErrMustRemovePiece
	}
	pos, err := validPosition(move.Position, MorrisPoints)
	if err != nil {
		return Result{}, err
	}

	opp := model.Opponent(seat)
	if s.Board[pos] != opp {
		return Result{}, model.ErrNotOpponentPiece
	}
	if s.InMill(pos) && s.hasPieceOutsideMill(opp) {
		return Result{}, model.ErrCannotRemoveFromMill
	}

	s.Board[pos] = empty
	s.OnBoard[opp]--
	s.Removing = false

	if s.OnBoard[opp]+s.InHand[opp] < morrisFlying {
		return roundWon(seat), nil
	}
	return m.endTurn(s, seat), nil
}

// afterLanding handles a piece arriving at pos: a closed mill starts removal
func (m *Morris) afterLanding(s *MorrisState, seat, pos int) Result {
	opp := model.Opponent(seat)
	if s.InMill(pos) && s.OnBoard[opp] > 0 {
		s.Removing = true
		return keepTurn()
	}
	return m.endTurn(s, seat)
}

// endTurn passes the turn, ending the round if the opponent is blocked
func (m *Morris) endTurn(s *MorrisState, seat int) Result {
	opp := model.Opponent(seat)
	if s.InHand[opp] == 0 && !s.CanMove(opp) {
		return roundWon(seat)
	}
	return continueTurn()
}

func (m *Morris) View(state any) any {
	s, ok := state.(*MorrisState)
	if !ok {
		return nil
	}
	symbols := m.Symbols()
	board := make([]string, MorrisPoints)
	for i, c := range s.Board {
		if c != empty {
			board[i] = symbols[c]
		}
	}
	return map[string]any{
		"board":         board,
		"piecesInHand":  s.InHand,
		"piecesOnBoard": s.OnBoard,
		"phases":        [2]string{s.Phase(0), s.Phase(1)},
		"millFormed":    s.Removing,
	}
}

func adjacent(a, b int) bool {
	for _, n := range MorrisAdjacency[a] {
		if n == b {
			return true
		}
	}
	return false
}
