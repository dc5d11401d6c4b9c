package integrationtest

import (
	"context"
	"testing"

	infra_pg_init "github.com/gatherhub/polls/core/internal/infra/postgres/init"
	infra_postgres_poll "github.com/gatherhub/polls/core/internal/infra/postgres/poll"
	"github.com/gatherhub/polls/core/internal/model"
	"github.com/gatherhub/polls/core/internal/service/tally"
	usecase_poll "github.com/gatherhub/polls/core/internal/usecase/poll"
	mocks "github.com/gatherhub/polls/core/mocks/repository"

	"github.com/google/uuid"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type UsecasePollIntegrationSuite struct {
	suite.Suite
	uc   *usecase_poll.Usecase
	repo *infra_postgres_poll.Driver
}

func (s *UsecasePollIntegrationSuite) BeforeAll(t provider.T) {
	cfg := getConfig()

	pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)
	s.repo = infra_postgres_poll.New(pgConn)

	notifier := mocks.NewNotifier(t)
	notifier.On("PollChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	s.uc = usecase_poll.New(s.repo, notifier, tally.New(cfg.Polls.MeanPrecision))
}

func (s *UsecasePollIntegrationSuite) TestIntegrationLifecycle(t provider.T) {
	ctx := context.Background()

	t.Run("star poll from creation to tally", func(t provider.T) {
		poll, err := s.uc.CreatePoll(ctx, model.Poll{
			EventID:      uuid.New(),
			Title:        "where to eat",
			Type:         model.PollTypeGeneric,
			VotingSystem: model.SystemStar,
		})
		assert.NoError(t, err)
		assert.Equal(t, model.PhaseBuilding, poll.Phase)
		assert.Equal(t, 1, poll.DisplayNumber)

		option, err := s.uc.AddOption(ctx, poll.ID, "sushi place", nil)
		assert.NoError(t, err)
		_, err = s.uc.AddOption(ctx, poll.ID, "pizza place", nil)
		assert.NoError(t, err)

		_, err = s.uc.TransitionPhase(ctx, poll.ID, model.PhaseVoting, uuid.New())
		assert.NoError(t, err)

		rate := func(rating int) model.RawBallot {
			return model.RawBallot{Rating: &rating}
		}
		_, err = s.uc.CastVote(ctx, poll.ID, uuid.New(), option.ID, rate(5))
		assert.NoError(t, err)
		_, err = s.uc.CastVote(ctx, poll.ID, uuid.New(), option.ID, rate(3))
		assert.NoError(t, err)

		result, err := s.uc.GetPollWithTally(ctx, poll.ID)
		assert.NoError(t, err)
		assert.Equal(t, 2, result.Tally.Voters)
		assert.Equal(t, 4.0, result.Tally.ByOption[option.ID].Mean)
		assert.Equal(t, 2, result.Tally.ByOption[option.ID].Count)

		_, err = s.uc.TransitionPhase(ctx, poll.ID, model.PhaseClosed, uuid.New())
		assert.NoError(t, err)

		_, err = s.uc.CastVote(ctx, poll.ID, uuid.New(), option.ID, rate(4))
		assert.ErrorIs(t, err, usecase_poll.ErrPhaseViolation)
	})

	t.Run("repeated star cast replaces the previous rating", func(t provider.T) {
		poll, err := s.uc.CreatePoll(ctx, model.Poll{
			EventID:      uuid.New(),
			Title:        "rate the venue",
			Type:         model.PollTypeGeneric,
			VotingSystem: model.SystemStar,
		})
		assert.NoError(t, err)

		option, err := s.uc.AddOption(ctx, poll.ID, "venue", nil)
		assert.NoError(t, err)
		_, err = s.uc.TransitionPhase(ctx, poll.ID, model.PhaseVoting, uuid.New())
		assert.NoError(t, err)

		voter := uuid.New()
		rate := func(rating int) model.RawBallot {
			return model.RawBallot{Rating: &rating}
		}
		_, err = s.uc.CastVote(ctx, poll.ID, voter, option.ID, rate(2))
		assert.NoError(t, err)
		_, err = s.uc.CastVote(ctx, poll.ID, voter, option.ID, rate(5))
		assert.NoError(t, err)

		result, err := s.uc.GetPollWithTally(ctx, poll.ID)
		assert.NoError(t, err)
		assert.Equal(t, 1, result.Tally.ByOption[option.ID].Count)
		assert.Equal(t, 5.0, result.Tally.ByOption[option.ID].Mean)
	})

	t.Run("voting system is immutable once voting starts", func(t provider.T) {
		poll, err := s.uc.CreatePoll(ctx, model.Poll{
			EventID:      uuid.New(),
			Title:        "bring snacks",
			Type:         model.PollTypeGeneric,
			VotingSystem: model.SystemBinary,
		})
		assert.NoError(t, err)

		err = s.uc.ChangeVotingSystem(ctx, poll.ID, model.SystemApproval)
		assert.NoError(t, err)

		option, err := s.uc.AddOption(ctx, poll.ID, "chips", nil)
		assert.NoError(t, err)
		_, err = s.uc.TransitionPhase(ctx, poll.ID, model.PhaseVoting, uuid.New())
		assert.NoError(t, err)

		err = s.uc.ChangeVotingSystem(ctx, poll.ID, model.SystemStar)
		assert.ErrorIs(t, err, usecase_poll.ErrPhaseViolation)

		approved := true
		_, err = s.uc.CastVote(ctx, poll.ID, uuid.New(), option.ID, model.RawBallot{Approved: &approved})
		assert.NoError(t, err)

		err = s.repo.ChangeVotingSystem(ctx, poll.ID, model.SystemStar)
		assert.ErrorIs(t, err, usecase_poll.ErrVotingSystemLocked)

		result, err := s.uc.GetPollWithTally(ctx, poll.ID)
		assert.NoError(t, err)
		assert.Equal(t, model.SystemApproval, result.Poll.VotingSystem)
	})

	t.Run("ranked cast replaces the whole ballot", func(t provider.T) {
		poll, err := s.uc.CreatePoll(ctx, model.Poll{
			EventID:      uuid.New(),
			Title:        "movie night",
			Type:         model.PollTypeMovie,
			VotingSystem: model.SystemRanked,
		})
		assert.NoError(t, err)

		a, err := s.uc.AddOption(ctx, poll.ID, "first", nil)
		assert.NoError(t, err)
		b, err := s.uc.AddOption(ctx, poll.ID, "second", nil)
		assert.NoError(t, err)
		c, err := s.uc.AddOption(ctx, poll.ID, "third", nil)
		assert.NoError(t, err)

		_, err = s.uc.TransitionPhase(ctx, poll.ID, model.PhaseVoting, uuid.New())
		assert.NoError(t, err)

		voter := uuid.New()
		_, err = s.uc.CastVote(ctx, poll.ID, voter, uuid.Nil, model.RawBallot{
			Ranking: []string{a.ID.String(), b.ID.String(), c.ID.String()},
		})
		assert.NoError(t, err)

		_, err = s.uc.CastVote(ctx, poll.ID, voter, uuid.Nil, model.RawBallot{
			Ranking: []string{c.ID.String(), a.ID.String()},
		})
		assert.NoError(t, err)

		ballot, err := s.uc.VoterBallot(ctx, poll.ID, voter)
		assert.NoError(t, err)
		assert.Len(t, ballot, 1)
		assert.Equal(t, []uuid.UUID{c.ID, a.ID}, ballot[0].Value.Ranking)

		result, err := s.uc.GetPollWithTally(ctx, poll.ID)
		assert.NoError(t, err)
		assert.Equal(t, 3, result.Tally.ByOption[c.ID].Score)
		assert.Equal(t, 2, result.Tally.ByOption[a.ID].Score)
		assert.Equal(t, 0, result.Tally.ByOption[b.ID].Score)
		assert.Equal(t, []uuid.UUID{c.ID, a.ID, b.ID}, result.Tally.Order)
	})
}

func TestPollIntegrationSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecasePollIntegrationSuite))
}
