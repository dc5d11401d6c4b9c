package votingsystem

import (
	"errors"
	"fmt"

	"github.com/gatherhub/polls/core/internal/model"
)

var (
	ErrInvalidInput  = errors.New("invalid ballot input")
	ErrUnknownSystem = errors.New("unknown voting system")
)

// Strategy normalizes raw voter input for one voting system. Persistence
// shape (per-option upsert vs whole-ranking replace) is decided by
// Strategy.WholeBallot; the aggregate store enforces the matching
// uniqueness rule.
type Strategy interface {
	System() model.VotingSystem

	// Normalize range-checks and coerces raw input into a BallotValue.
	// Out-of-range input is rejected, never clamped.
	Normalize(raw model.RawBallot) (model.BallotValue, error)

	// WholeBallot reports whether a cast replaces the voter's entire
	// ballot for the poll (ranked) instead of targeting one option.
	WholeBallot() bool
}

// ForSystem selects the strategy once per poll via the immutable
// voting_system field.
func ForSystem(system model.VotingSystem) (Strategy, error) {
	switch system {
	case model.SystemBinary:
		return Binary{}, nil
	case model.SystemApproval:
		return Approval{}, nil
	case model.SystemStar:
		return Star{}, nil
	case model.SystemRanked:
		return Ranked{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSystem, system)
}
