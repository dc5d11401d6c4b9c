package votingsystem

import (
	"fmt"

	"github.com/gatherhub/polls/core/internal/model"
)

// Approval votes are a boolean per option. Casting approved=false is
// equivalent to clearing: absence of a record means "not approved", so the
// value is normalized but the usecase turns it into a clear.
type Approval struct{}

func (Approval) System() model.VotingSystem { return model.SystemApproval }

func (Approval) WholeBallot() bool { return false }

func (Approval) Normalize(raw model.RawBallot) (model.BallotValue, error) {
	if raw.Approved == nil {
		return model.BallotValue{}, fmt.Errorf("%w: approved flag required", ErrInvalidInput)
	}
	return model.BallotValue{Approved: *raw.Approved}, nil
}
