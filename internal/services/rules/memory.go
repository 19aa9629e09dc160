package rules

import (
	"github.com/mcoot/blitzarena/internal/dependencies/random"
	"github.com/mcoot/blitzarena/internal/model"
)

const (
	// MemoryPairs is the number of card pairs on the table
	MemoryPairs = 6
	// MemoryCards is the number of cards on the table
	MemoryCards = MemoryPairs * 2
	// MemoryPairsToWin is the number of pairs that wins a round
	MemoryPairsToWin = 3
)

// MemoryState is a memory-match table
type MemoryState struct {
	Cards [MemoryCards]int // pair id at each position
	Owner [MemoryCards]int // seat that matched the card, or -1
	// Revealed is the first card flipped this turn, or -1
	Revealed int
	// Mismatch is the last failed pair, left visible until the next flip
	Mismatch [2]int
	Pairs    [2]int
}

// MemoryMatch is the card-matching game
type MemoryMatch struct {
	random random.Random
}

var _ Engine = (*MemoryMatch)(nil)

// NewMemoryMatch creates the memory-match engine
func NewMemoryMatch(rnd random.Random) *MemoryMatch {
	return &MemoryMatch{random: rnd}
}

func (m *MemoryMatch) GameType() model.GameType {
	return model.GameMemoryMatch
}

func (m *MemoryMatch) Symbols() [2]string {
	return [2]string{"A", "B"}
}

func (m *MemoryMatch) NewRound(int) any {
	s := &MemoryState{
		Revealed: empty,
		Mismatch: [2]int{empty, empty},
	}
	for i := range s.Cards {
		s.Cards[i] = i / 2
		s.Owner[i] = empty
	}
	random.Shuffle(m.random, len(s.Cards), func(i, j int) {
		s.Cards[i], s.Cards[j] = s.Cards[j], s.Cards[i]
	})
	return s
}

func (m *MemoryMatch) Apply(state any, seat int, move model.Move) (Result, error) {
	s, ok := state.(*MemoryState)
	if !ok {
		return Result{}, stateError(state)
	}

	pos, err := validPosition(move.Position, MemoryCards)
	if err != nil {
		return Result{}, err
	}
	if s.Owner[pos] != empty {
		return Result{}, model.ErrCardAlreadyMatched
	}
	if pos == s.Revealed {
		return Result{}, model.ErrCardAlreadyRevealed
	}

	// First card of the turn
	if s.Revealed == empty {
		s.Revealed = pos
		s.Mismatch = [2]int{empty, empty}
		return keepTurn(), nil
	}

	first := s.Revealed
	s.Revealed = empty

	if s.Cards[first] != s.Cards[pos] {
		s.Mismatch = [2]int{first, pos}
		return continueTurn(), nil
	}

	s.Owner[first] = seat
	s.Owner[pos] = seat
	s.Pairs[seat]++
	if s.Pairs[seat] >= MemoryPairsToWin {
		return roundWon(seat), nil
	}
	return keepTurn(), nil
}

func (m *MemoryMatch) View(state any) any {
	s, ok := state.(*MemoryState)
	if !ok {
		return nil
	}
	// Hidden cards are reported as -1
	cards := make([]int, MemoryCards)
	for i := range s.Cards {
		if s.Owner[i] != empty || i == s.Revealed || i == s.Mismatch[0] || i == s.Mismatch[1] {
			cards[i] = s.Cards[i]
		} else {
			cards[i] = empty
		}
	}
	return map[string]any{
		"cards":    cards,
		"owners":   s.Owner,
		"pairs":    s.Pairs,
		"revealed": s.Revealed,
	}
}
