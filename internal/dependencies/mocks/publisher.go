package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/blitzarena/internal/events"
)

// Publisher records published events
type Publisher struct {
	mu     sync.Mutex
	events []events.MatchCompleted
	Err    error
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishMatchCompleted(_ context.Context, evt events.MatchCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *Publisher) Close() error {
	return nil
}

// Events returns a copy of everything published so far
func (p *Publisher) Events() []events.MatchCompleted {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.MatchCompleted, len(p.events))
	copy(out, p.events)
	return out
}
