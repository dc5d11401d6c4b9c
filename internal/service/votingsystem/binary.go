package votingsystem

import (
	"fmt"

	"github.com/gatherhub/polls/core/internal/model"
)

// Binary votes carry one of {yes, no, maybe} per option.
type Binary struct{}

func (Binary) System() model.VotingSystem { return model.SystemBinary }

func (Binary) WholeBallot() bool { return false }

func (Binary) Normalize(raw model.RawBallot) (model.BallotValue, error) {
	choice := model.BinaryChoice(raw.Choice)
	if !choice.Valid() {
		return model.BallotValue{}, fmt.Errorf("%w: unknown binary choice %q", ErrInvalidInput, raw.Choice)
	}
	return model.BallotValue{Choice: choice}, nil
}
