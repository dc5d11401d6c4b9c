package votingsystem

import (
	"fmt"

	"github.com/gatherhub/polls/core/internal/model"
	"github.com/google/uuid"
)

// Ranked votes are a whole ordered ballot per (poll, voter). A cast always
// carries the entire new ranking and supersedes any previous one; partial
// updates do not exist.
type Ranked struct{}

func (Ranked) System() model.VotingSystem { return model.SystemRanked }

func (Ranked) WholeBallot() bool { return true }

func (Ranked) Normalize(raw model.RawBallot) (model.BallotValue, error) {
	if len(raw.Ranking) == 0 {
		return model.BallotValue{}, fmt.Errorf("%w: ranking must not be empty", ErrInvalidInput)
	}

	seen := make(map[uuid.UUID]struct{}, len(raw.Ranking))
	ranking := make([]uuid.UUID, 0, len(raw.Ranking))
	for _, id := range raw.Ranking {
		optionID, err := uuid.Parse(id)
		if err != nil {
			return model.BallotValue{}, fmt.Errorf("%w: malformed option id %q", ErrInvalidInput, id)
		}
		if _, dup := seen[optionID]; dup {
			return model.BallotValue{}, fmt.Errorf("%w: option %s ranked twice", ErrInvalidInput, optionID)
		}
		seen[optionID] = struct{}{}
		ranking = append(ranking, optionID)
	}

	return model.BallotValue{Ranking: ranking}, nil
}
