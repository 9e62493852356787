package model

import "time"

// PlayerID uniquely identifies a player for the lifetime of its connection
type PlayerID string

// ConnID is the opaque transport handle used to route outbound messages.
// Domain logic never inspects it.
type ConnID string

// Player represents a connected lobby member
type Player struct {
	ID       PlayerID
	Nickname string
	Avatar   string
	Ready    bool
	Conn     ConnID
	JoinedAt time.Time
}

// Profile holds the user-editable fields of a player.
// Empty fields are treated as "unchanged" when merged into an existing record.
type Profile struct {
	Nickname string
	Avatar   string
}
