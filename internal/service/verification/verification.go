package service_verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatherhub/polls/core/internal/model"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("verification token invalid or expired")
	ErrInternal     = errors.New("internal error")
)

// TokenCache holds one-time confirmation tokens. Tokens expire on their own;
// a consumed token is deleted immediately.
type TokenCache interface {
	Set(key string, value string, ttl time.Duration) error
	Get(key string) (string, error)
	Del(key string) error
}

// Mailer delivers the confirmation link. Mail transport belongs to the
// surrounding application; tests and local runs use a logging stub.
type Mailer interface {
	SendVerificationLink(ctx context.Context, voter model.Voter, token string) error
}

type VoterRepository interface {
	VoterByID(ctx context.Context, voterID uuid.UUID) (model.Voter, error)
	MarkVerified(ctx context.Context, voterID uuid.UUID) error
}

// Service implements the async identity-verification step of reconciliation.
// Requesting verification never blocks or gates vote durability; votes are
// visible before the voter ever clicks the link.
type Service struct {
	tokens TokenCache
	mailer Mailer
	voters VoterRepository
	ttl    time.Duration

	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(tokens TokenCache, mailer Mailer, voters VoterRepository, opts ...Option) *Service {
	s := &Service{
		tokens: tokens,
		mailer: mailer,
		voters: voters,
		ttl:    48 * time.Hour,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) RequestVerification(ctx context.Context, voter model.Voter) error {
	token := uuid.NewString()
	if err := s.tokens.Set(token, voter.ID.String(), s.ttl); err != nil {
		return errors.Join(ErrInternal, err)
	}

	if err := s.mailer.SendVerificationLink(ctx, voter, token); err != nil {
		return errors.Join(ErrInternal, err)
	}

	s.logger.Info("verification requested",
		slog.String("voter_id", voter.ID.String()))
	return nil
}

func (s *Service) Confirm(ctx context.Context, token string) (model.Voter, error) {
	raw, err := s.tokens.Get(token)
	if err != nil {
		return model.Voter{}, errors.Join(ErrInternal, err)
	}
	if raw == "" {
		return model.Voter{}, ErrTokenInvalid
	}

	voterID, err := uuid.Parse(raw)
	if err != nil {
		return model.Voter{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if err := s.voters.MarkVerified(ctx, voterID); err != nil {
		return model.Voter{}, errors.Join(ErrInternal, err)
	}
	_ = s.tokens.Del(token)

	voter, err := s.voters.VoterByID(ctx, voterID)
	if err != nil {
		return model.Voter{}, errors.Join(ErrInternal, err)
	}
	return voter, nil
}

// LogMailer is the local stand-in for the application's mail transport.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerificationLink(ctx context.Context, voter model.Voter, token string) error {
	m.logger.Info("verification link issued",
		slog.String("email", voter.Email),
		slog.String("token", token))
	return nil
}
