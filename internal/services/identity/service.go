// Package identity issues guest identities for players who have not signed in.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcoot/blitzarena/internal/dependencies/clock"
	"github.com/mcoot/blitzarena/internal/dependencies/random"
	"github.com/mcoot/blitzarena/internal/model"
)

const (
	// guestSuffixLength is the length of the random part of a guest id
	guestSuffixLength = 11
	// guestSuffixAlphabet is the characters used in the random part of a guest id
	guestSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// MaxDisplayName is the longest display name accepted for a guest
	MaxDisplayName = 32
)

var adjectives = []string{
	"Dancing", "Flying", "Sneaky", "Mighty", "Sleepy", "Crazy", "Happy", "Grumpy",
	"Jolly", "Fuzzy", "Sparkly", "Bouncing", "Spinning", "Zooming", "Giggling",
	"Snoring", "Jumping", "Racing", "Floating", "Dashing", "Clever", "Silly",
	"Brave", "Swift", "Gentle", "Fierce", "Nimble", "Bold", "Quirky", "Witty",
	"Fencing", "Boxing", "Juggling", "Surfing", "Skating", "Skiing", "Diving",
}

var animals = []string{
	"Monkey", "Panda", "Tiger", "Dragon", "Phoenix", "Unicorn", "Penguin", "Koala",
	"Dolphin", "Eagle", "Wolf", "Fox", "Bear", "Rabbit", "Otter", "Raccoon",
	"Squirrel", "Hedgehog", "Hamster", "Owl", "Flamingo", "Parrot", "Gecko",
	"Platypus", "Narwhal", "Walrus", "Sloth", "Alpaca", "Llama", "Chinchilla",
	"Axolotl", "Capybara", "Quokka", "Pangolin", "Meerkat", "Lemur",
}

// Guest is a freshly issued guest identity
type Guest struct {
	UserID      model.UserID `json:"user_id"`
	DisplayName string       `json:"display_name"`
	IssuedAt    time.Time    `json:"issued_at"`
}

// Identity returns the tagged identity for the guest
func (g Guest) Identity() model.Identity {
	return model.Guest(g.UserID)
}

// Service issues guest identities
type Service struct {
	clock  clock.Clock
	random random.Random
}

// New creates an identity Service
func New(clock clock.Clock, random random.Random) *Service {
	return &Service{
		clock:  clock,
		random: random,
	}
}

// IssueGuest creates a guest identity. An empty display name gets a generated one.
func (s *Service) IssueGuest(displayName string) Guest {
	now := s.clock.Now()

	displayName = strings.TrimSpace(displayName)
	if len(displayName) > MaxDisplayName {
		displayName = displayName[:MaxDisplayName]
	}
	if displayName == "" {
		displayName = s.GuestName()
	}

	id := fmt.Sprintf("%s%d_%s", model.GuestPrefix, now.UnixMilli(),
		s.random.String(guestSuffixLength, guestSuffixAlphabet))

	return Guest{
		UserID:      model.UserID(id),
		DisplayName: displayName,
		IssuedAt:    now,
	}
}

// GuestName generates a name like "FencingMonkey124"
func (s *Service) GuestName() string {
	adjective := random.Pick(s.random, adjectives)
	animal := random.Pick(s.random, animals)
	number := s.random.Intn(900) + 100
	return fmt.Sprintf("%s%s%d", adjective, animal, number)
}
