package tally

import (
	"testing"

	"github.com/gatherhub/polls/core/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func starPoll() model.Poll {
	return model.Poll{ID: uuid.New(), VotingSystem: model.SystemStar}
}

func option(pollID uuid.UUID, position int) model.PollOption {
	return model.PollOption{ID: uuid.New(), PollID: pollID, Status: model.OptionActive, Position: position}
}

func starVote(pollID, optionID uuid.UUID, rating int) model.Vote {
	return model.Vote{
		ID: uuid.New(), PollID: pollID, OptionID: optionID, VoterID: uuid.New(),
		Value: model.BallotValue{Rating: rating},
	}
}

func TestComputeStar(t *testing.T) {
	calc := New(2)
	poll := starPoll()
	opt := option(poll.ID, 0)

	t.Run("mean and count over all ratings", func(t *testing.T) {
		tally := calc.Compute(poll, []model.PollOption{opt}, []model.Vote{
			starVote(poll.ID, opt.ID, 5),
			starVote(poll.ID, opt.ID, 3),
		})

		ot := tally.ByOption[opt.ID]
		assert.Equal(t, 4.0, ot.Mean)
		assert.Equal(t, 2, ot.Count)
		assert.Equal(t, 2, tally.Voters)
	})

	t.Run("mean is rounded to configured precision", func(t *testing.T) {
		tally := calc.Compute(poll, []model.PollOption{opt}, []model.Vote{
			starVote(poll.ID, opt.ID, 5),
			starVote(poll.ID, opt.ID, 5),
			starVote(poll.ID, opt.ID, 4),
		})

		assert.Equal(t, 4.67, tally.ByOption[opt.ID].Mean)
	})

	t.Run("no votes leaves zero mean", func(t *testing.T) {
		tally := calc.Compute(poll, []model.PollOption{opt}, nil)

		ot := tally.ByOption[opt.ID]
		assert.Zero(t, ot.Mean)
		assert.Zero(t, ot.Count)
		assert.Zero(t, tally.Voters)
	})
}

func TestComputeBinary(t *testing.T) {
	calc := New(2)
	poll := model.Poll{ID: uuid.New(), VotingSystem: model.SystemBinary}
	opt := option(poll.ID, 0)

	binary := func(choice model.BinaryChoice) model.Vote {
		return model.Vote{
			ID: uuid.New(), PollID: poll.ID, OptionID: opt.ID, VoterID: uuid.New(),
			Value: model.BallotValue{Choice: choice},
		}
	}

	tally := calc.Compute(poll, []model.PollOption{opt}, []model.Vote{
		binary(model.ChoiceYes),
		binary(model.ChoiceYes),
		binary(model.ChoiceNo),
		binary(model.ChoiceMaybe),
	})

	ot := tally.ByOption[opt.ID]
	assert.Equal(t, 2, ot.Yes)
	assert.Equal(t, 1, ot.No)
	assert.Equal(t, 1, ot.Maybe)
	assert.Equal(t, 0.5, ot.YesShare)
	assert.Equal(t, 4, tally.Voters)
}

func TestComputeApproval(t *testing.T) {
	calc := New(2)
	poll := model.Poll{ID: uuid.New(), VotingSystem: model.SystemApproval}
	first := option(poll.ID, 0)
	second := option(poll.ID, 1)

	voterA, voterB := uuid.New(), uuid.New()
	approval := func(optionID, voterID uuid.UUID) model.Vote {
		return model.Vote{
			ID: uuid.New(), PollID: poll.ID, OptionID: optionID, VoterID: voterID,
			Value: model.BallotValue{Approved: true},
		}
	}

	// Approval rows only exist for approved options; share is per distinct voter.
	tally := calc.Compute(poll, []model.PollOption{first, second}, []model.Vote{
		approval(first.ID, voterA),
		approval(second.ID, voterA),
		approval(first.ID, voterB),
	})

	assert.Equal(t, 2, tally.Voters)
	assert.Equal(t, 2, tally.ByOption[first.ID].Approvals)
	assert.Equal(t, 1.0, tally.ByOption[first.ID].ApprovalShare)
	assert.Equal(t, 1, tally.ByOption[second.ID].Approvals)
	assert.Equal(t, 0.5, tally.ByOption[second.ID].ApprovalShare)
}

func TestComputeRanked(t *testing.T) {
	calc := New(2)
	poll := model.Poll{ID: uuid.New(), VotingSystem: model.SystemRanked}
	a := option(poll.ID, 0)
	b := option(poll.ID, 1)
	c := option(poll.ID, 2)
	options := []model.PollOption{a, b, c}

	ranked := func(ranking ...uuid.UUID) model.Vote {
		return model.Vote{
			ID: uuid.New(), PollID: poll.ID, OptionID: uuid.Nil, VoterID: uuid.New(),
			Value: model.BallotValue{Ranking: ranking},
		}
	}

	t.Run("borda points with truncation", func(t *testing.T) {
		// Ballot [c, a] over 3 options: c gets 3 points, a gets 2, b nothing.
		tally := calc.Compute(poll, options, []model.Vote{ranked(c.ID, a.ID)})

		assert.Equal(t, 3, tally.ByOption[c.ID].Score)
		assert.Equal(t, 2, tally.ByOption[a.ID].Score)
		assert.Equal(t, 0, tally.ByOption[b.ID].Score)
		assert.Equal(t, []uuid.UUID{c.ID, a.ID, b.ID}, tally.Order)
	})

	t.Run("scores accumulate across ballots", func(t *testing.T) {
		tally := calc.Compute(poll, options, []model.Vote{
			ranked(a.ID, b.ID, c.ID),
			ranked(b.ID, a.ID, c.ID),
		})

		assert.Equal(t, 5, tally.ByOption[a.ID].Score)
		assert.Equal(t, 5, tally.ByOption[b.ID].Score)
		assert.Equal(t, 2, tally.ByOption[c.ID].Score)
		// Tie between a and b resolves to creation order.
		assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, tally.Order)
	})

	t.Run("ranking entries for hidden options count nowhere", func(t *testing.T) {
		hidden := uuid.New()
		tally := calc.Compute(poll, options, []model.Vote{ranked(hidden, a.ID)})

		assert.NotContains(t, tally.ByOption, hidden)
		assert.Equal(t, 2, tally.ByOption[a.ID].Score)
	})
}

func TestComputeIgnoresVotesForUnknownOptions(t *testing.T) {
	calc := New(2)
	poll := starPoll()
	opt := option(poll.ID, 0)

	tally := calc.Compute(poll, []model.PollOption{opt}, []model.Vote{
		starVote(poll.ID, uuid.New(), 5),
	})

	require.Contains(t, tally.ByOption, opt.ID)
	assert.Zero(t, tally.ByOption[opt.ID].Count)
}

func TestNewClampsNegativePrecision(t *testing.T) {
	assert.Equal(t, 2, New(-1).MeanPrecision)
}
