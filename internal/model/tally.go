package model

import "github.com/google/uuid"

// OptionTally is the derived aggregate for one visible option. Only the
// fields of the poll's voting system are populated.
type OptionTally struct {
	OptionID uuid.UUID `json:"option_id"`

	// binary
	Yes      int     `json:"yes,omitempty"`
	No       int     `json:"no,omitempty"`
	Maybe    int     `json:"maybe,omitempty"`
	YesShare float64 `json:"yes_share,omitempty"`

	// approval
	Approvals     int     `json:"approvals,omitempty"`
	ApprovalShare float64 `json:"approval_share,omitempty"`

	// star
	Mean  float64 `json:"mean,omitempty"`
	Count int     `json:"count,omitempty"`

	// ranked (truncated Borda)
	Score int `json:"score,omitempty"`
}

// Tally is recomputed from scratch on every read; it is never stored.
type Tally struct {
	PollID   uuid.UUID                 `json:"poll_id"`
	System   VotingSystem              `json:"system"`
	Voters   int                       `json:"voters"`
	ByOption map[uuid.UUID]OptionTally `json:"by_option"`
	// Ranked polls only: option ids ordered by descending score, ties
	// broken by option creation order.
	Order []uuid.UUID `json:"order,omitempty"`
}

// PollWithTally is the canonical read model viewers re-fetch on every
// "poll changed" signal. Hidden options are excluded before tallying.
type PollWithTally struct {
	Poll    Poll         `json:"poll"`
	Options []PollOption `json:"options"`
	Tally   Tally        `json:"tally"`
}
