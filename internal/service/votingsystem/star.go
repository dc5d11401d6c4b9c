package votingsystem

import (
	"fmt"

	"github.com/gatherhub/polls/core/internal/model"
)

// Star votes are an integer rating in [1,5]. Out-of-range ratings are
// rejected outright; there is no clamping path.
type Star struct{}

func (Star) System() model.VotingSystem { return model.SystemStar }

func (Star) WholeBallot() bool { return false }

func (Star) Normalize(raw model.RawBallot) (model.BallotValue, error) {
	if raw.Rating == nil {
		return model.BallotValue{}, fmt.Errorf("%w: rating required", ErrInvalidInput)
	}
	rating := *raw.Rating
	if rating < model.MinStarRating || rating > model.MaxStarRating {
		return model.BallotValue{}, fmt.Errorf("%w: rating %d out of range [%d,%d]",
			ErrInvalidInput, rating, model.MinStarRating, model.MaxStarRating)
	}
	return model.BallotValue{Rating: rating}, nil
}
