package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PollType tags the domain flavor of a poll. It only affects how option
// payloads are interpreted by clients, never the voting semantics.
type PollType string

const (
	PollTypeGeneric    PollType = "generic"
	PollTypeDate       PollType = "date_selection"
	PollTypeMovie      PollType = "movie"
	PollTypeCocktail   PollType = "cocktail"
	PollTypeMusicTrack PollType = "music_track"
)

func (t PollType) Valid() bool {
	switch t {
	case PollTypeGeneric, PollTypeDate, PollTypeMovie, PollTypeCocktail, PollTypeMusicTrack:
		return true
	}
	return false
}

type VotingSystem string

const (
	SystemBinary   VotingSystem = "binary"
	SystemApproval VotingSystem = "approval"
	SystemStar     VotingSystem = "star"
	SystemRanked   VotingSystem = "ranked"
)

func (s VotingSystem) Valid() bool {
	switch s {
	case SystemBinary, SystemApproval, SystemStar, SystemRanked:
		return true
	}
	return false
}

type Poll struct {
	ID      uuid.UUID
	EventID uuid.UUID

	// Sequential per-event number used on event pages ("Poll #3").
	DisplayNumber int

	Title        string
	Type         PollType
	VotingSystem VotingSystem
	Phase        Phase
	Deadline     *time.Time

	CreatedAt time.Time
}

// Expired reports whether the poll's deadline has elapsed. Polls without a
// deadline never expire on their own.
func (p Poll) Expired(now time.Time) bool {
	return p.Deadline != nil && !now.Before(*p.Deadline)
}

type OptionStatus string

const (
	OptionActive OptionStatus = "active"
	OptionHidden OptionStatus = "hidden"
)

type PollOption struct {
	ID     uuid.UUID
	PollID uuid.UUID

	Label string
	// Free-form, domain-specific display payload (movie metadata, date
	// candidate, track info). Opaque to the engine.
	Payload json.RawMessage

	Status OptionStatus
	// Creation order inside the poll, used for stable listing and for
	// breaking ranked-score ties.
	Position int
}
