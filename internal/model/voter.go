package model

import "github.com/google/uuid"

// Voter is a resolved identity. Unresolved visitors exist only as a session
// id inside the staging store and never reach durable vote storage.
type Voter struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Verified bool
}

// SessionID is the client-generated anonymity handle for a browser session.
type SessionID string

const EmptySessionID SessionID = ""
