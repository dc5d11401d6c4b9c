package usecase_staging

import (
	"context"
	"testing"
	"time"

	"github.com/gatherhub/polls/core/internal/model"
	usecase_poll "github.com/gatherhub/polls/core/internal/usecase/poll"
	mocks "github.com/gatherhub/polls/core/mocks/repository"
	"github.com/google/uuid"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type UsecaseStagingUnitSuite struct {
	suite.Suite

	mockStore    *mocks.StagingStore
	mockPolls    *mocks.PollDirectory
	mockCaster   *mocks.Caster
	mockResolver *mocks.IdentityResolver
	mockVerifier *mocks.Verifier
	usecase      *Usecase
	ctx          context.Context
}

func votingPoll(system model.VotingSystem) model.Poll {
	return model.Poll{
		ID:           uuid.New(),
		EventID:      uuid.New(),
		Title:        "title",
		Type:         model.PollTypeGeneric,
		VotingSystem: system,
		Phase:        model.PhaseVoting,
	}
}

func stagedStar(optionID uuid.UUID, rating int) model.StagedVote {
	return model.StagedVote{
		OptionID: optionID,
		System:   model.SystemStar,
		Value:    model.BallotValue{Rating: rating},
	}
}

// setup rebuilds the mocks so each subtest asserts against its own calls.
func (s *UsecaseStagingUnitSuite) setup(t provider.T) {
	s.mockStore = mocks.NewStagingStore(t)
	s.mockPolls = mocks.NewPollDirectory(t)
	s.mockCaster = mocks.NewCaster(t)
	s.mockResolver = mocks.NewIdentityResolver(t)
	s.mockVerifier = mocks.NewVerifier(t)
	s.usecase = New(s.mockStore, s.mockPolls, s.mockCaster, s.mockResolver, s.mockVerifier)
	s.ctx = context.Background()
}

func (s *UsecaseStagingUnitSuite) BeforeEach(t provider.T) {
	s.setup(t)
}

func (s *UsecaseStagingUnitSuite) TestStageVote(t provider.T) {
	sessionID := model.SessionID("session-token")

	t.Run("Should stage valid ballot without durable write", func(t provider.T) {
		s.setup(t)
		poll := votingPoll(model.SystemStar)
		optionID := uuid.New()
		rating := 4

		s.mockPolls.On("PollByID", s.ctx, poll.ID).Return(poll, nil).Once()
		s.mockStore.On("Stage", s.ctx, sessionID, poll.ID, stagedStar(optionID, rating)).Return(nil).Once()

		staged, err := s.usecase.StageVote(s.ctx, sessionID, poll.ID, optionID, model.RawBallot{Rating: &rating})

		assert.NoError(t, err)
		assert.Equal(t, optionID, staged.OptionID)
		s.mockCaster.AssertNotCalled(t, "CastVote", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should stage whole ranking under a single slot", func(t provider.T) {
		s.setup(t)
		poll := votingPoll(model.SystemRanked)
		first, second := uuid.New(), uuid.New()

		s.mockPolls.On("PollByID", s.ctx, poll.ID).Return(poll, nil).Once()
		s.mockStore.On("Stage", s.ctx, sessionID, poll.ID, mock.MatchedBy(func(v model.StagedVote) bool {
			return v.OptionID == uuid.Nil && len(v.Value.Ranking) == 2
		})).Return(nil).Once()

		staged, err := s.usecase.StageVote(s.ctx, sessionID, poll.ID, uuid.Nil, model.RawBallot{
			Ranking: []string{first.String(), second.String()},
		})

		assert.NoError(t, err)
		assert.Equal(t, uuid.Nil, staged.OptionID)
	})

	t.Run("Should reject invalid ballot before staging", func(t provider.T) {
		s.setup(t)
		poll := votingPoll(model.SystemStar)
		rating := 7

		s.mockPolls.On("PollByID", s.ctx, poll.ID).Return(poll, nil).Once()

		_, err := s.usecase.StageVote(s.ctx, sessionID, poll.ID, uuid.New(), model.RawBallot{Rating: &rating})

		assert.ErrorIs(t, err, ErrInvalidInput)
		s.mockStore.AssertNotCalled(t, "Stage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should reject staging against closed poll", func(t provider.T) {
		s.setup(t)
		poll := votingPoll(model.SystemBinary)
		poll.Phase = model.PhaseClosed

		s.mockPolls.On("PollByID", s.ctx, poll.ID).Return(poll, nil).Once()

		_, err := s.usecase.StageVote(s.ctx, sessionID, poll.ID, uuid.New(), model.RawBallot{Choice: "yes"})

		assert.ErrorIs(t, err, usecase_poll.ErrPhaseViolation)
		s.mockStore.AssertNotCalled(t, "Stage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should require a session id", func(t provider.T) {
		s.setup(t)
		rating := 3

		_, err := s.usecase.StageVote(s.ctx, model.EmptySessionID, uuid.New(), uuid.New(), model.RawBallot{Rating: &rating})

		assert.ErrorIs(t, err, ErrInvalidInput)
		s.mockPolls.AssertNotCalled(t, "PollByID", mock.Anything, mock.Anything)
	})
}

func (s *UsecaseStagingUnitSuite) TestReconcile(t provider.T) {
	sessionID := model.SessionID("session-token")

	t.Run("Should commit all staged votes and clear staging", func(t provider.T) {
		s.setup(t)
		pollID := uuid.New()
		firstOption, secondOption := uuid.New(), uuid.New()
		voter := model.Voter{ID: uuid.New(), Name: "name", Email: "name@example.com", Verified: true}

		staged := map[uuid.UUID][]model.StagedVote{
			pollID: {stagedStar(firstOption, 5), stagedStar(secondOption, 2)},
		}

		s.mockStore.On("BySession", s.ctx, sessionID).Return(staged, nil).Once()
		s.mockResolver.On("ResolveOrCreate", s.ctx, "name", "name@example.com").Return(voter, false, nil).Once()
		s.mockCaster.On("CastVote", s.ctx, pollID, voter.ID, firstOption, mock.Anything).Return(model.Vote{}, nil).Once()
		s.mockCaster.On("CastVote", s.ctx, pollID, voter.ID, secondOption, mock.Anything).Return(model.Vote{}, nil).Once()
		s.mockStore.On("Unstage", s.ctx, sessionID, pollID, firstOption).Return(nil).Once()
		s.mockStore.On("Unstage", s.ctx, sessionID, pollID, secondOption).Return(nil).Once()

		report, err := s.usecase.Reconcile(s.ctx, sessionID, "name", "name@example.com")

		assert.NoError(t, err)
		assert.Len(t, report.Committed, 2)
		assert.Empty(t, report.Failed)
		assert.Equal(t, voter.ID, report.Voter.ID)
	})

	t.Run("Should report partial failure and keep failed entry staged", func(t provider.T) {
		s.setup(t)
		pollID := uuid.New()
		goodOption, badOption := uuid.New(), uuid.New()
		voter := model.Voter{ID: uuid.New(), Name: "name", Email: "name@example.com"}

		staged := map[uuid.UUID][]model.StagedVote{
			pollID: {stagedStar(goodOption, 4), stagedStar(badOption, 3)},
		}

		s.mockStore.On("BySession", s.ctx, sessionID).Return(staged, nil).Once()
		s.mockResolver.On("ResolveOrCreate", s.ctx, "name", "name@example.com").Return(voter, false, nil).Once()
		s.mockCaster.On("CastVote", s.ctx, pollID, voter.ID, goodOption, mock.Anything).Return(model.Vote{}, nil).Once()
		s.mockCaster.On("CastVote", s.ctx, pollID, voter.ID, badOption, mock.Anything).
			Return(model.Vote{}, usecase_poll.ErrOptionNotFound).Once()
		s.mockStore.On("Unstage", s.ctx, sessionID, pollID, goodOption).Return(nil).Once()

		report, err := s.usecase.Reconcile(s.ctx, sessionID, "name", "name@example.com")

		assert.NoError(t, err)
		assert.Len(t, report.Committed, 1)
		assert.Len(t, report.Failed, 1)
		assert.Equal(t, badOption, report.Failed[0].OptionID)
		assert.ErrorIs(t, report.Failed[0].Err, usecase_poll.ErrOptionNotFound)
		s.mockStore.AssertNotCalled(t, "Unstage", mock.Anything, mock.Anything, mock.Anything, badOption)
	})

	t.Run("Should preserve staged state when identity resolution fails", func(t provider.T) {
		s.setup(t)
		pollID := uuid.New()
		staged := map[uuid.UUID][]model.StagedVote{
			pollID: {stagedStar(uuid.New(), 4)},
		}

		s.mockStore.On("BySession", s.ctx, sessionID).Return(staged, nil).Once()
		s.mockResolver.On("ResolveOrCreate", s.ctx, "name", "name@example.com").
			Return(model.Voter{}, false, assert.AnError).Once()

		_, err := s.usecase.Reconcile(s.ctx, sessionID, "name", "name@example.com")

		assert.ErrorIs(t, err, ErrIdentityResolution)
		s.mockCaster.AssertNotCalled(t, "CastVote", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		s.mockStore.AssertNotCalled(t, "Unstage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should request verification once for a fresh identity", func(t provider.T) {
		s.setup(t)
		pollID := uuid.New()
		optionID := uuid.New()
		voter := model.Voter{ID: uuid.New(), Name: "name", Email: "name@example.com"}

		staged := map[uuid.UUID][]model.StagedVote{
			pollID: {stagedStar(optionID, 5)},
		}

		verified := make(chan struct{})

		s.mockStore.On("BySession", s.ctx, sessionID).Return(staged, nil).Once()
		s.mockResolver.On("ResolveOrCreate", s.ctx, "name", "name@example.com").Return(voter, true, nil).Once()
		s.mockCaster.On("CastVote", s.ctx, pollID, voter.ID, optionID, mock.Anything).Return(model.Vote{}, nil).Once()
		s.mockStore.On("Unstage", s.ctx, sessionID, pollID, optionID).Return(nil).Once()
		s.mockVerifier.On("RequestVerification", mock.Anything, voter).Return(nil).Once().
			Run(func(_ mock.Arguments) { close(verified) })

		report, err := s.usecase.Reconcile(s.ctx, sessionID, "name", "name@example.com")

		assert.NoError(t, err)
		assert.Len(t, report.Committed, 1)

		select {
		case <-verified:
		case <-time.After(time.Second):
			t.Errorf("verification was not requested")
		}
	})

	t.Run("Should skip verification when nothing committed", func(t provider.T) {
		s.setup(t)
		pollID := uuid.New()
		optionID := uuid.New()
		voter := model.Voter{ID: uuid.New(), Name: "name", Email: "name@example.com"}

		staged := map[uuid.UUID][]model.StagedVote{
			pollID: {stagedStar(optionID, 5)},
		}

		s.mockStore.On("BySession", s.ctx, sessionID).Return(staged, nil).Once()
		s.mockResolver.On("ResolveOrCreate", s.ctx, "name", "name@example.com").Return(voter, true, nil).Once()
		s.mockCaster.On("CastVote", s.ctx, pollID, voter.ID, optionID, mock.Anything).
			Return(model.Vote{}, usecase_poll.ErrPhaseViolation).Once()

		report, err := s.usecase.Reconcile(s.ctx, sessionID, "name", "name@example.com")

		assert.NoError(t, err)
		assert.Empty(t, report.Committed)
		assert.Len(t, report.Failed, 1)
		s.mockVerifier.AssertNotCalled(t, "RequestVerification", mock.Anything, mock.Anything)
	})

	t.Run("Should report empty staging", func(t provider.T) {
		s.setup(t)
		s.mockStore.On("BySession", s.ctx, sessionID).Return(map[uuid.UUID][]model.StagedVote{}, nil).Once()

		_, err := s.usecase.Reconcile(s.ctx, sessionID, "name", "name@example.com")

		assert.ErrorIs(t, err, ErrNothingStaged)
	})

	t.Run("Should require name and email", func(t provider.T) {
		s.setup(t)
		_, err := s.usecase.Reconcile(s.ctx, sessionID, "", "")

		assert.ErrorIs(t, err, ErrInvalidInput)
		s.mockStore.AssertNotCalled(t, "BySession", mock.Anything, mock.Anything)
	})
}

func (s *UsecaseStagingUnitSuite) TestStagedVotes(t provider.T) {
	sessionID := model.SessionID("session-token")

	t.Run("Should list staged votes by poll", func(t provider.T) {
		s.setup(t)
		pollID := uuid.New()
		staged := map[uuid.UUID][]model.StagedVote{
			pollID: {stagedStar(uuid.New(), 2)},
		}

		s.mockStore.On("BySession", s.ctx, sessionID).Return(staged, nil).Once()

		result, err := s.usecase.StagedVotes(s.ctx, sessionID)

		assert.NoError(t, err)
		assert.Len(t, result[pollID], 1)
	})
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecaseStagingUnitSuite))
}
