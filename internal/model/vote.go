package model

import (
	"time"

	"github.com/google/uuid"
)

type BinaryChoice string

const (
	ChoiceYes   BinaryChoice = "yes"
	ChoiceNo    BinaryChoice = "no"
	ChoiceMaybe BinaryChoice = "maybe"
)

func (c BinaryChoice) Valid() bool {
	return c == ChoiceYes || c == ChoiceNo || c == ChoiceMaybe
}

const (
	MinStarRating = 1
	MaxStarRating = 5
)

// RawBallot is the unvalidated wire shape of a voter action. Exactly the
// fields relevant to the poll's voting system are expected to be set;
// the rest are ignored by the strategy that normalizes it.
type RawBallot struct {
	Choice   string   `json:"choice,omitempty"`
	Approved *bool    `json:"approved,omitempty"`
	Rating   *int     `json:"rating,omitempty"`
	Ranking  []string `json:"ranking,omitempty"`
}

// BallotValue is a normalized, strategy-validated vote value. Only the field
// matching the poll's voting system carries meaning.
type BallotValue struct {
	Choice   BinaryChoice `json:"choice,omitempty"`
	Approved bool         `json:"approved,omitempty"`
	Rating   int          `json:"rating,omitempty"`
	Ranking  []uuid.UUID  `json:"ranking,omitempty"`
}

// Vote is a durable vote record. For binary/approval/star votes OptionID is
// set and the row is unique per (poll, option, voter). For ranked votes
// OptionID is uuid.Nil, Value.Ranking holds the whole ordered ballot and the
// row is unique per (poll, voter).
type Vote struct {
	ID       uuid.UUID
	PollID   uuid.UUID
	OptionID uuid.UUID
	VoterID  uuid.UUID
	Value    BallotValue

	CastAt time.Time
}

func (v Vote) Ranked() bool {
	return v.OptionID == uuid.Nil
}

// StagedVote is a not-yet-durable vote held in session-scoped staging.
// It carries the same normalized value shapes as Vote. OptionID is uuid.Nil
// for staged ranked ballots.
type StagedVote struct {
	OptionID uuid.UUID    `json:"option_id"`
	System   VotingSystem `json:"system"`
	Value    BallotValue  `json:"value"`
}
