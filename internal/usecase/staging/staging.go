package usecase_staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gatherhub/polls/core/internal/model"
	"github.com/gatherhub/polls/core/internal/service/votingsystem"
	usecase_poll "github.com/gatherhub/polls/core/internal/usecase/poll"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrInternal           = errors.New("internal error")
	ErrInvalidInput       = votingsystem.ErrInvalidInput
	ErrIdentityResolution = errors.New("identity resolution failed")
	ErrNothingStaged      = errors.New("nothing staged for session")
)

// StagingStore holds not-yet-durable votes keyed by (session, poll). No Vote
// rows exist for staged entries; the store is private to the session and
// needs no cross-session locking.
//
//go:generate mockery --name=StagingStore --output=../../../mocks/repository --outpkg=mocks --filename=staging_store.go
type StagingStore interface {
	Stage(ctx context.Context, sessionID model.SessionID, pollID uuid.UUID, staged model.StagedVote) error
	// Unstage removes one staged entry; optionID is uuid.Nil for a staged
	// ranking.
	Unstage(ctx context.Context, sessionID model.SessionID, pollID, optionID uuid.UUID) error
	BySession(ctx context.Context, sessionID model.SessionID) (map[uuid.UUID][]model.StagedVote, error)
}

//go:generate mockery --name=IdentityResolver --output=../../../mocks/repository --outpkg=mocks --filename=identity_resolver.go
type IdentityResolver interface {
	// ResolveOrCreate never destroys an existing identity's votes when the
	// email is already known; created reports whether the identity is new.
	ResolveOrCreate(ctx context.Context, name, email string) (voter model.Voter, created bool, err error)
}

// Verifier kicks off the out-of-band confirmation step for fresh identities
// (a one-time link by email). It never gates vote durability.
//
//go:generate mockery --name=Verifier --output=../../../mocks/repository --outpkg=mocks --filename=verifier.go
type Verifier interface {
	RequestVerification(ctx context.Context, voter model.Voter) error
}

// PollDirectory is the read surface staging needs to validate against the
// live poll before accepting a staged ballot.
//
//go:generate mockery --name=PollDirectory --output=../../../mocks/repository --outpkg=mocks --filename=poll_directory.go
type PollDirectory interface {
	PollByID(ctx context.Context, pollID uuid.UUID) (model.Poll, error)
}

// Caster is the live casting path; reconciliation replays staged votes
// through it exactly as if the resolved voter had cast them in person.
//
//go:generate mockery --name=Caster --output=../../../mocks/repository --outpkg=mocks --filename=caster.go
type Caster interface {
	CastVote(ctx context.Context, pollID, voterID, optionID uuid.UUID, raw model.RawBallot) (model.Vote, error)
}

type CommittedVote struct {
	PollID   uuid.UUID `json:"poll_id"`
	OptionID uuid.UUID `json:"option_id,omitempty"`
}

type FailedVote struct {
	PollID   uuid.UUID `json:"poll_id"`
	OptionID uuid.UUID `json:"option_id,omitempty"`
	Reason   string    `json:"reason"`

	Err error `json:"-"`
}

// Report is the full per-item outcome of a reconciliation. Partial success
// is permitted and always reported, never silently dropped.
type Report struct {
	Voter     model.Voter     `json:"voter"`
	Committed []CommittedVote `json:"committed"`
	Failed    []FailedVote    `json:"failed"`
}

type Usecase struct {
	store    StagingStore
	polls    PollDirectory
	caster   Caster
	resolver IdentityResolver
	verifier Verifier

	logger *slog.Logger
}

type Option func(*Usecase)

func WithLogger(logger *slog.Logger) Option {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func New(store StagingStore, polls PollDirectory, caster Caster, resolver IdentityResolver, verifier Verifier, opts ...Option) *Usecase {
	u := &Usecase{
		store:    store,
		polls:    polls,
		caster:   caster,
		resolver: resolver,
		verifier: verifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// StageVote validates a ballot against the live poll and holds it in
// session-scoped state. Nothing durable is written.
func (u *Usecase) StageVote(ctx context.Context, sessionID model.SessionID, pollID, optionID uuid.UUID, raw model.RawBallot) (model.StagedVote, error) {
	if sessionID == model.EmptySessionID {
		return model.StagedVote{}, fmt.Errorf("%w: session id required", ErrInvalidInput)
	}

	poll, err := u.polls.PollByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, usecase_poll.ErrPollNotFound) {
			return model.StagedVote{}, usecase_poll.ErrPollNotFound
		}
		return model.StagedVote{}, errors.Join(ErrInternal, err)
	}
	if !poll.Phase.AllowsCasting() {
		return model.StagedVote{}, &usecase_poll.PhaseViolationError{Phase: poll.Phase, Action: "stage vote"}
	}

	strategy, err := votingsystem.ForSystem(poll.VotingSystem)
	if err != nil {
		return model.StagedVote{}, errors.Join(ErrInternal, err)
	}
	value, err := strategy.Normalize(raw)
	if err != nil {
		return model.StagedVote{}, err
	}

	staged := model.StagedVote{
		System: poll.VotingSystem,
		Value:  value,
	}
	if !strategy.WholeBallot() {
		staged.OptionID = optionID
	}

	if err := u.store.Stage(ctx, sessionID, pollID, staged); err != nil {
		return model.StagedVote{}, errors.Join(ErrInternal, err)
	}
	return staged, nil
}

// StagedVotes lists the session's staged state by poll, for page re-render.
func (u *Usecase) StagedVotes(ctx context.Context, sessionID model.SessionID) (map[uuid.UUID][]model.StagedVote, error) {
	staged, err := u.store.BySession(ctx, sessionID)
	if err != nil {
		return nil, errors.Join(ErrInternal, err)
	}
	return staged, nil
}

// Reconcile turns the session's staged votes into durable Vote records under
// a resolved identity. Identity failure commits nothing and preserves staged
// state for retry. Individual cast failures are collected while the rest
// commit; every committed entry is cleared from staging.
func (u *Usecase) Reconcile(ctx context.Context, sessionID model.SessionID, name, email string) (Report, error) {
	if name == "" || email == "" {
		return Report{}, fmt.Errorf("%w: name and email required", ErrInvalidInput)
	}

	staged, err := u.store.BySession(ctx, sessionID)
	if err != nil {
		return Report{}, errors.Join(ErrInternal, err)
	}
	if len(staged) == 0 {
		return Report{}, ErrNothingStaged
	}

	voter, created, err := u.resolver.ResolveOrCreate(ctx, name, email)
	if err != nil {
		// Staged state stays untouched so the visitor can retry.
		return Report{}, errors.Join(ErrIdentityResolution, err)
	}

	report := Report{Voter: voter}
	for pollID, entries := range staged {
		for _, entry := range entries {
			if err := u.commitStaged(ctx, voter, pollID, entry); err != nil {
				report.Failed = append(report.Failed, FailedVote{
					PollID:   pollID,
					OptionID: entry.OptionID,
					Reason:   err.Error(),
					Err:      err,
				})
				continue
			}

			report.Committed = append(report.Committed, CommittedVote{PollID: pollID, OptionID: entry.OptionID})
			if err := u.store.Unstage(ctx, sessionID, pollID, entry.OptionID); err != nil {
				u.logger.Error("failed to clear reconciled staged vote",
					slog.String("session_id", string(sessionID)),
					slog.String("poll_id", pollID.String()),
					slog.String("error", err.Error()))
			}
		}
	}

	if created && len(report.Committed) > 0 {
		// Fire-and-forget: verification never blocks vote durability.
		go func(voter model.Voter) {
			if err := u.verifier.RequestVerification(context.Background(), voter); err != nil {
				u.logger.Error("failed to request identity verification",
					slog.String("voter_id", voter.ID.String()),
					slog.String("error", err.Error()))
			}
		}(voter)
	}

	return report, nil
}

func (u *Usecase) commitStaged(ctx context.Context, voter model.Voter, pollID uuid.UUID, entry model.StagedVote) error {
	_, err := u.caster.CastVote(ctx, pollID, voter.ID, entry.OptionID, rawFromStaged(entry))
	return err
}

// rawFromStaged rebuilds the wire ballot so the staged value passes through
// the very same strategy validation as a live cast.
func rawFromStaged(entry model.StagedVote) model.RawBallot {
	switch entry.System {
	case model.SystemBinary:
		return model.RawBallot{Choice: string(entry.Value.Choice)}
	case model.SystemApproval:
		approved := entry.Value.Approved
		return model.RawBallot{Approved: &approved}
	case model.SystemStar:
		rating := entry.Value.Rating
		return model.RawBallot{Rating: &rating}
	case model.SystemRanked:
		return model.RawBallot{Ranking: lo.Map(entry.Value.Ranking, func(id uuid.UUID, _ int) string {
			return id.String()
		})}
	}
	return model.RawBallot{}
}
