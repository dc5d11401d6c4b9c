package usecase_poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatherhub/polls/core/internal/model"
	"github.com/gatherhub/polls/core/internal/service/tally"
	"github.com/gatherhub/polls/core/internal/service/votingsystem"
	"github.com/google/uuid"
)

var (
	ErrInternal           = errors.New("internal error")
	ErrPollNotFound       = errors.New("poll not found")
	ErrOptionNotFound     = errors.New("option not found")
	ErrVoteNotFound       = errors.New("vote not found")
	ErrInvalidInput       = votingsystem.ErrInvalidInput
	ErrPhaseViolation     = errors.New("phase violation")
	ErrStorageConflict    = errors.New("storage conflict")
	ErrVotingSystemLocked = errors.New("voting system locked by existing votes")
)

// PhaseViolationError reports which phase rejected which action. It matches
// errors.Is(err, ErrPhaseViolation).
type PhaseViolationError struct {
	Phase  model.Phase
	Action string
}

func (e *PhaseViolationError) Error() string {
	return fmt.Sprintf("phase violation: %s not allowed in phase %q", e.Action, e.Phase)
}

func (e *PhaseViolationError) Unwrap() error { return ErrPhaseViolation }

//go:generate mockery --name=PollRepository --output=../../../mocks/repository --outpkg=mocks --filename=poll_repository.go
type PollRepository interface {
	CreatePoll(ctx context.Context, poll model.Poll) (model.Poll, error)
	PollByID(ctx context.Context, pollID uuid.UUID) (model.Poll, error)
	ChangeVotingSystem(ctx context.Context, pollID uuid.UUID, system model.VotingSystem) error

	AddOption(ctx context.Context, option model.PollOption) (model.PollOption, error)
	HideOption(ctx context.Context, pollID, optionID uuid.UUID) error
	VisibleOptions(ctx context.Context, pollID uuid.UUID) ([]model.PollOption, error)

	// VisibleVotes returns the poll's votes restricted to non-hidden
	// options; ranked ballots are returned whole.
	VisibleVotes(ctx context.Context, pollID uuid.UUID) ([]model.Vote, error)
	VotesByVoter(ctx context.Context, pollID, voterID uuid.UUID) ([]model.Vote, error)

	UpsertVote(ctx context.Context, vote model.Vote) (model.Vote, error)
	ReplaceRanking(ctx context.Context, vote model.Vote) (model.Vote, error)
	DeleteVote(ctx context.Context, pollID, optionID, voterID uuid.UUID) error
	DeleteRanking(ctx context.Context, pollID, voterID uuid.UUID) error

	TransitionPhase(ctx context.Context, pollID uuid.UUID, target model.Phase) (model.Poll, error)
	CloseExpired(ctx context.Context, now time.Time) ([]model.Poll, error)
}

// Notifier publishes payload-free "poll changed" invalidation signals to the
// poll's own channel and the owning event's aggregate channel.
//
//go:generate mockery --name=Notifier --output=../../../mocks/repository --outpkg=mocks --filename=notifier.go
type Notifier interface {
	PollChanged(ctx context.Context, pollID, eventID uuid.UUID) error
}

type Usecase struct {
	repository PollRepository
	notifier   Notifier
	calculator tally.Calculator

	// Bounded retries for serialization conflicts.
	conflictRetries int

	logger *slog.Logger
}

type Option func(*Usecase)

func WithLogger(logger *slog.Logger) Option {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func WithConflictRetries(n int) Option {
	return func(u *Usecase) {
		if n > 0 {
			u.conflictRetries = n
		}
	}
}

func New(repository PollRepository, notifier Notifier, calculator tally.Calculator, opts ...Option) *Usecase {
	u := &Usecase{
		repository:      repository,
		notifier:        notifier,
		calculator:      calculator,
		conflictRetries: 3,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Usecase) CreatePoll(ctx context.Context, poll model.Poll) (model.Poll, error) {
	if poll.Title == "" || poll.EventID == uuid.Nil {
		return model.Poll{}, fmt.Errorf("%w: title and event id required", ErrInvalidInput)
	}
	if poll.Type == "" {
		poll.Type = model.PollTypeGeneric
	}
	if !poll.Type.Valid() {
		return model.Poll{}, fmt.Errorf("%w: unknown poll type %q", ErrInvalidInput, poll.Type)
	}
	if !poll.VotingSystem.Valid() {
		return model.Poll{}, fmt.Errorf("%w: unknown voting system %q", ErrInvalidInput, poll.VotingSystem)
	}

	poll.ID = uuid.New()
	poll.Phase = model.PhaseBuilding

	// The per-event display number is raced by concurrent creates; the
	// unique index turns the race into a retryable conflict.
	var created model.Poll
	err := u.withConflictRetry(ctx, func() error {
		var createErr error
		created, createErr = u.repository.CreatePoll(ctx, poll)
		return createErr
	})
	if err != nil {
		if errors.Is(err, ErrStorageConflict) {
			return model.Poll{}, err
		}
		return model.Poll{}, errors.Join(ErrInternal, err)
	}
	return created, nil
}

// ChangeVotingSystem is a building-phase operation; the store rejects it
// once any vote exists.
func (u *Usecase) ChangeVotingSystem(ctx context.Context, pollID uuid.UUID, system model.VotingSystem) error {
	if !system.Valid() {
		return fmt.Errorf("%w: unknown voting system %q", ErrInvalidInput, system)
	}

	poll, err := u.pollForWrite(ctx, pollID)
	if err != nil {
		return err
	}
	if poll.Phase != model.PhaseBuilding {
		return &PhaseViolationError{Phase: poll.Phase, Action: "change voting system"}
	}

	if err := u.repository.ChangeVotingSystem(ctx, pollID, system); err != nil {
		switch {
		case errors.Is(err, ErrVotingSystemLocked), errors.Is(err, ErrPollNotFound):
			return err
		}
		return errors.Join(ErrInternal, err)
	}
	return nil
}

func (u *Usecase) AddOption(ctx context.Context, pollID uuid.UUID, label string, payload []byte) (model.PollOption, error) {
	if label == "" {
		return model.PollOption{}, fmt.Errorf("%w: option label required", ErrInvalidInput)
	}

	poll, err := u.pollForWrite(ctx, pollID)
	if err != nil {
		return model.PollOption{}, err
	}
	if !poll.Phase.AllowsNewOptions() {
		return model.PollOption{}, &PhaseViolationError{Phase: poll.Phase, Action: "add option"}
	}

	option := model.PollOption{
		ID:      uuid.New(),
		PollID:  pollID,
		Label:   label,
		Payload: payload,
		Status:  model.OptionActive,
	}

	created, err := u.repository.AddOption(ctx, option)
	if err != nil {
		if errors.Is(err, ErrPhaseViolation) || errors.Is(err, ErrPollNotFound) {
			return model.PollOption{}, err
		}
		return model.PollOption{}, errors.Join(ErrInternal, err)
	}

	u.notifyChanged(ctx, poll)
	return created, nil
}

// HideOption soft-hides an option. Its votes are kept but it disappears from
// every public listing and tally. Options are never hard-deleted.
func (u *Usecase) HideOption(ctx context.Context, pollID, optionID uuid.UUID) error {
	poll, err := u.pollForWrite(ctx, pollID)
	if err != nil {
		return err
	}
	if poll.Phase == model.PhaseClosed {
		return &PhaseViolationError{Phase: poll.Phase, Action: "hide option"}
	}

	if err := u.repository.HideOption(ctx, pollID, optionID); err != nil {
		if errors.Is(err, ErrOptionNotFound) || errors.Is(err, ErrPollNotFound) {
			return err
		}
		return errors.Join(ErrInternal, err)
	}

	u.notifyChanged(ctx, poll)
	return nil
}

// CastVote validates the raw ballot against the poll's voting system and
// commits it. Binary/approval/star casts upsert one row per
// (poll, option, voter); ranked casts replace the voter's whole ranking.
func (u *Usecase) CastVote(ctx context.Context, pollID, voterID, optionID uuid.UUID, raw model.RawBallot) (model.Vote, error) {
	poll, err := u.pollForWrite(ctx, pollID)
	if err != nil {
		return model.Vote{}, err
	}
	if !poll.Phase.AllowsCasting() {
		return model.Vote{}, &PhaseViolationError{Phase: poll.Phase, Action: "cast vote"}
	}

	strategy, err := votingsystem.ForSystem(poll.VotingSystem)
	if err != nil {
		return model.Vote{}, errors.Join(ErrInternal, err)
	}
	value, err := strategy.Normalize(raw)
	if err != nil {
		return model.Vote{}, err
	}

	vote := model.Vote{
		ID:      uuid.New(),
		PollID:  pollID,
		VoterID: voterID,
		Value:   value,
	}

	var committed model.Vote
	err = u.withConflictRetry(ctx, func() error {
		var commitErr error
		switch {
		case strategy.WholeBallot():
			committed, commitErr = u.repository.ReplaceRanking(ctx, vote)
		case poll.VotingSystem == model.SystemApproval && !value.Approved:
			// Absence of a record means "not approved".
			commitErr = u.repository.DeleteVote(ctx, pollID, optionID, voterID)
			if errors.Is(commitErr, ErrVoteNotFound) {
				commitErr = nil
			}
			committed = model.Vote{PollID: pollID, OptionID: optionID, VoterID: voterID, Value: value}
		default:
			vote.OptionID = optionID
			committed, commitErr = u.repository.UpsertVote(ctx, vote)
		}
		return commitErr
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrOptionNotFound),
			errors.Is(err, ErrPollNotFound),
			errors.Is(err, ErrPhaseViolation),
			errors.Is(err, ErrStorageConflict):
			return model.Vote{}, err
		}
		return model.Vote{}, errors.Join(ErrInternal, err)
	}

	u.notifyChanged(ctx, poll)
	return committed, nil
}

func (u *Usecase) ClearVote(ctx context.Context, pollID, voterID, optionID uuid.UUID) error {
	poll, err := u.pollForWrite(ctx, pollID)
	if err != nil {
		return err
	}
	if !poll.Phase.AllowsCasting() {
		return &PhaseViolationError{Phase: poll.Phase, Action: "clear vote"}
	}

	err = u.withConflictRetry(ctx, func() error {
		if poll.VotingSystem == model.SystemRanked {
			return u.repository.DeleteRanking(ctx, pollID, voterID)
		}
		return u.repository.DeleteVote(ctx, pollID, optionID, voterID)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrVoteNotFound), errors.Is(err, ErrStorageConflict):
			return err
		}
		return errors.Join(ErrInternal, err)
	}

	u.notifyChanged(ctx, poll)
	return nil
}

// GetPollWithTally is the canonical read path. Hidden options are excluded
// from both the option list and the aggregation.
func (u *Usecase) GetPollWithTally(ctx context.Context, pollID uuid.UUID) (model.PollWithTally, error) {
	poll, err := u.pollForWrite(ctx, pollID)
	if err != nil {
		return model.PollWithTally{}, err
	}

	options, err := u.repository.VisibleOptions(ctx, pollID)
	if err != nil {
		return model.PollWithTally{}, errors.Join(ErrInternal, err)
	}
	votes, err := u.repository.VisibleVotes(ctx, pollID)
	if err != nil {
		return model.PollWithTally{}, errors.Join(ErrInternal, err)
	}

	return model.PollWithTally{
		Poll:    poll,
		Options: options,
		Tally:   u.calculator.Compute(poll, options, votes),
	}, nil
}

func (u *Usecase) VoterBallot(ctx context.Context, pollID, voterID uuid.UUID) ([]model.Vote, error) {
	votes, err := u.repository.VotesByVoter(ctx, pollID, voterID)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) {
			return nil, err
		}
		return nil, errors.Join(ErrInternal, err)
	}
	return votes, nil
}

// TransitionPhase applies an explicit organizer transition. Closing is
// terminal; attempting to leave closed fails with PhaseViolation.
// Authorization of the actor happens in the delivery layer.
func (u *Usecase) TransitionPhase(ctx context.Context, pollID uuid.UUID, target model.Phase, actorID uuid.UUID) (model.Poll, error) {
	if !target.Valid() || target == model.PhaseBuilding {
		return model.Poll{}, fmt.Errorf("%w: invalid target phase %q", ErrInvalidInput, target)
	}

	poll, err := u.repository.TransitionPhase(ctx, pollID, target)
	if err != nil {
		switch {
		case errors.Is(err, ErrPhaseViolation), errors.Is(err, ErrPollNotFound):
			return model.Poll{}, err
		}
		return model.Poll{}, errors.Join(ErrInternal, err)
	}

	u.logger.Info("poll phase changed",
		slog.String("poll_id", pollID.String()),
		slog.String("phase", string(target)),
		slog.String("actor_id", actorID.String()))

	u.notifyChanged(ctx, poll)
	return poll, nil
}

// CloseExpired closes every poll whose deadline elapsed. Safe to run
// concurrently with lazy closure on the read path; closing is idempotent.
func (u *Usecase) CloseExpired(ctx context.Context, now time.Time) (int, error) {
	closed, err := u.repository.CloseExpired(ctx, now)
	if err != nil {
		return 0, errors.Join(ErrInternal, err)
	}
	for _, poll := range closed {
		u.notifyChanged(ctx, poll)
	}
	return len(closed), nil
}

// pollForWrite loads a poll, letting the store apply lazy deadline closure
// first so phase checks always see the effective phase.
func (u *Usecase) pollForWrite(ctx context.Context, pollID uuid.UUID) (model.Poll, error) {
	poll, err := u.repository.PollByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) {
			return model.Poll{}, ErrPollNotFound
		}
		return model.Poll{}, errors.Join(ErrInternal, err)
	}
	return poll, nil
}

func (u *Usecase) withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= u.conflictRetries; attempt++ {
		if err = fn(); !errors.Is(err, ErrStorageConflict) {
			return err
		}
		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
	}
	return err
}

// notifyChanged publishes the invalidation signal after every successful
// durable mutation. The cast itself is already committed, so a publish
// failure is logged and not surfaced; the bus is at-least-once anyway.
func (u *Usecase) notifyChanged(ctx context.Context, poll model.Poll) {
	if err := u.notifier.PollChanged(ctx, poll.ID, poll.EventID); err != nil {
		u.logger.Error("failed to publish poll changed",
			slog.String("poll_id", poll.ID.String()),
			slog.String("error", err.Error()))
	}
}
