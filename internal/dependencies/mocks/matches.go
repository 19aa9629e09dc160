package mocks

import (
	"sync"

	"github.com/mcoot/blitzarena/internal/model"
)

// MatchRecorder captures match results instead of persisting them
type MatchRecorder struct {
	mu      sync.Mutex
	results []model.MatchResult
}

func NewMatchRecorder() *MatchRecorder {
	return &MatchRecorder{}
}

func (r *MatchRecorder) RecordMatchAsync(result model.MatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

// Results returns a copy of every recorded result
func (r *MatchRecorder) Results() []model.MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.MatchResult, len(r.results))
	copy(out, r.results)
	return out
}
