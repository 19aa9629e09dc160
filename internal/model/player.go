package model

import "strings"

// UserID identifies a player across reconnects
type UserID string

// ConnID identifies one live transport connection
type ConnID string

// GuestPrefix marks user identifiers issued to unregistered players
const GuestPrefix = "guest_"

// IdentityKind distinguishes registered players from guests
type IdentityKind string

const (
	IdentityRegistered IdentityKind = "registered"
	IdentityGuest      IdentityKind = "guest"
)

// Identity is a user identifier tagged with its kind.
// Parsed once at the transport boundary; nothing downstream inspects the prefix.
type Identity struct {
	ID   UserID
	Kind IdentityKind
}

// ParseIdentity tags a raw user identifier
func ParseIdentity(raw string) Identity {
	if strings.HasPrefix(raw, GuestPrefix) {
		return Guest(UserID(raw))
	}
	return Registered(UserID(raw))
}

// Registered creates an identity for a registered user
func Registered(id UserID) Identity {
	return Identity{ID: id, Kind: IdentityRegistered}
}

// Guest creates an identity for a guest user
func Guest(id UserID) Identity {
	return Identity{ID: id, Kind: IdentityGuest}
}

// IsGuest returns true for guest identities
func (i Identity) IsGuest() bool {
	return i.Kind == IdentityGuest
}

// String returns the raw user identifier
func (i Identity) String() string {
	return string(i.ID)
}

// PlayerBinding ties a room seat to a connection and user
type PlayerBinding struct {
	ConnID      ConnID
	Identity    Identity
	DisplayName string
}

// WaitingEntry is a queued player awaiting an opponent
type WaitingEntry struct {
	ConnID      ConnID
	Identity    Identity
	DisplayName string
}

// Binding converts a queue entry into a room seat
func (e WaitingEntry) Binding() PlayerBinding {
	return PlayerBinding{
		ConnID:      e.ConnID,
		Identity:    e.Identity,
		DisplayName: e.DisplayName,
	}
}
