package infra_postgres_poll

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/gatherhub/polls/core/internal/model"
	usecase_poll "github.com/gatherhub/polls/core/internal/usecase/poll"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Driver is the poll aggregate store. It is the only component that touches
// poll/option/vote rows; every mutation runs inside a transaction that
// re-checks the effective phase, so gating holds under concurrency no matter
// what the usecase saw before.
type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

type pollDTO struct {
	ID            uuid.UUID    `db:"id"`
	EventID       uuid.UUID    `db:"event_id"`
	DisplayNumber int          `db:"display_number"`
	Title         string       `db:"title"`
	PollType      string       `db:"poll_type"`
	VotingSystem  string       `db:"voting_system"`
	Phase         string       `db:"phase"`
	Deadline      sql.NullTime `db:"deadline"`
	CreatedAt     time.Time    `db:"created_at"`
}

func (d pollDTO) toModel() model.Poll {
	poll := model.Poll{
		ID:            d.ID,
		EventID:       d.EventID,
		DisplayNumber: d.DisplayNumber,
		Title:         d.Title,
		Type:          model.PollType(d.PollType),
		VotingSystem:  model.VotingSystem(d.VotingSystem),
		Phase:         model.Phase(d.Phase),
		CreatedAt:     d.CreatedAt,
	}
	if d.Deadline.Valid {
		deadline := d.Deadline.Time
		poll.Deadline = &deadline
	}
	return poll
}

type optionDTO struct {
	ID       uuid.UUID `db:"id"`
	PollID   uuid.UUID `db:"poll_id"`
	Label    string    `db:"label"`
	Payload  []byte    `db:"payload"`
	Status   string    `db:"status"`
	Position int       `db:"position"`
}

func (d optionDTO) toModel() model.PollOption {
	return model.PollOption{
		ID:       d.ID,
		PollID:   d.PollID,
		Label:    d.Label,
		Payload:  json.RawMessage(d.Payload),
		Status:   model.OptionStatus(d.Status),
		Position: d.Position,
	}
}

type voteDTO struct {
	ID       uuid.UUID      `db:"id"`
	PollID   uuid.UUID      `db:"poll_id"`
	OptionID uuid.NullUUID  `db:"option_id"`
	VoterID  uuid.UUID      `db:"voter_id"`
	Choice   sql.NullString `db:"choice"`
	Approved sql.NullBool   `db:"approved"`
	Rating   sql.NullInt64  `db:"rating"`
	Ranking  pq.StringArray `db:"ranking"`
	CastAt   time.Time      `db:"cast_at"`
}

func (d voteDTO) toModel() model.Vote {
	vote := model.Vote{
		ID:      d.ID,
		PollID:  d.PollID,
		VoterID: d.VoterID,
		CastAt:  d.CastAt,
	}
	if d.OptionID.Valid {
		vote.OptionID = d.OptionID.UUID
	}
	if d.Choice.Valid {
		vote.Value.Choice = model.BinaryChoice(d.Choice.String)
	}
	if d.Approved.Valid {
		vote.Value.Approved = d.Approved.Bool
	}
	if d.Rating.Valid {
		vote.Value.Rating = int(d.Rating.Int64)
	}
	for _, raw := range d.Ranking {
		if optionID, err := uuid.Parse(raw); err == nil {
			vote.Value.Ranking = append(vote.Value.Ranking, optionID)
		}
	}
	return vote
}

func (d *Driver) CreatePoll(ctx context.Context, poll model.Poll) (model.Poll, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Poll{}, mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	// Sequential per-event display number; the unique index on
	// (event_id, display_number) turns a concurrent race into a
	// retryable conflict.
	var displayNumber int
	numberQuery := `
		SELECT COALESCE(MAX(display_number), 0) + 1
		FROM polls
		WHERE event_id = $1
	`
	if err := tx.GetContext(ctx, &displayNumber, numberQuery, poll.EventID); err != nil {
		return model.Poll{}, mapError(err)
	}

	insertQuery := `
		INSERT INTO polls (id, event_id, display_number, title, poll_type, voting_system, phase, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`
	var createdAt time.Time
	err = tx.QueryRowxContext(ctx, insertQuery,
		poll.ID, poll.EventID, displayNumber, poll.Title,
		string(poll.Type), string(poll.VotingSystem), string(poll.Phase),
		deadlineValue(poll.Deadline),
	).Scan(&createdAt)
	if err != nil {
		return model.Poll{}, mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return model.Poll{}, mapError(err)
	}

	poll.DisplayNumber = displayNumber
	poll.CreatedAt = createdAt
	return poll, nil
}

// PollByID applies lazy deadline closure before reading, so callers always
// observe the effective phase.
func (d *Driver) PollByID(ctx context.Context, pollID uuid.UUID) (model.Poll, error) {
	if err := d.closeIfExpired(ctx, d.db, pollID); err != nil {
		return model.Poll{}, err
	}

	var dto pollDTO
	query := `
		SELECT id, event_id, display_number, title, poll_type, voting_system, phase, deadline, created_at
		FROM polls
		WHERE id = $1
	`
	if err := d.db.GetContext(ctx, &dto, query, pollID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Poll{}, usecase_poll.ErrPollNotFound
		}
		return model.Poll{}, mapError(err)
	}
	return dto.toModel(), nil
}

func (d *Driver) ChangeVotingSystem(ctx context.Context, pollID uuid.UUID, system model.VotingSystem) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := d.lockPoll(ctx, tx, pollID); err != nil {
		return err
	}

	var hasVotes bool
	existsQuery := `SELECT EXISTS (SELECT 1 FROM votes WHERE poll_id = $1)`
	if err := tx.GetContext(ctx, &hasVotes, existsQuery, pollID); err != nil {
		return mapError(err)
	}
	if hasVotes {
		return usecase_poll.ErrVotingSystemLocked
	}

	updateQuery := `UPDATE polls SET voting_system = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, pollID, string(system)); err != nil {
		return mapError(err)
	}
	return tx.Commit()
}

func (d *Driver) AddOption(ctx context.Context, option model.PollOption) (model.PollOption, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.PollOption{}, mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	poll, err := d.lockPoll(ctx, tx, option.PollID)
	if err != nil {
		return model.PollOption{}, err
	}
	if !poll.Phase.AllowsNewOptions() {
		return model.PollOption{}, &usecase_poll.PhaseViolationError{Phase: poll.Phase, Action: "add option"}
	}

	var position int
	positionQuery := `
		SELECT COALESCE(MAX(position), 0) + 1
		FROM poll_options
		WHERE poll_id = $1
	`
	if err := tx.GetContext(ctx, &position, positionQuery, option.PollID); err != nil {
		return model.PollOption{}, mapError(err)
	}

	insertQuery := `
		INSERT INTO poll_options (id, poll_id, label, payload, status, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	payload := []byte(option.Payload)
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, err = tx.ExecContext(ctx, insertQuery,
		option.ID, option.PollID, option.Label, payload, string(model.OptionActive), position)
	if err != nil {
		return model.PollOption{}, mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return model.PollOption{}, mapError(err)
	}

	option.Status = model.OptionActive
	option.Position = position
	return option, nil
}

// HideOption keeps the option's votes but removes it from public listings
// and tallies. There is no hard delete.
func (d *Driver) HideOption(ctx context.Context, pollID, optionID uuid.UUID) error {
	query := `
		UPDATE poll_options
		SET status = $3
		WHERE id = $2 AND poll_id = $1
	`
	res, err := d.db.ExecContext(ctx, query, pollID, optionID, string(model.OptionHidden))
	if err != nil {
		return mapError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return usecase_poll.ErrOptionNotFound
	}
	return nil
}

func (d *Driver) VisibleOptions(ctx context.Context, pollID uuid.UUID) ([]model.PollOption, error) {
	var dtos []optionDTO
	query := `
		SELECT id, poll_id, label, payload, status, position
		FROM poll_options
		WHERE poll_id = $1 AND status = $2
		ORDER BY position
	`
	if err := d.db.SelectContext(ctx, &dtos, query, pollID, string(model.OptionActive)); err != nil {
		return nil, mapError(err)
	}

	options := make([]model.PollOption, 0, len(dtos))
	for _, dto := range dtos {
		options = append(options, dto.toModel())
	}
	return options, nil
}

// VisibleVotes excludes votes on hidden options. Ranked ballots carry no
// option id and are returned whole; hidden entries inside a ranking are
// ignored downstream by the tally calculator.
func (d *Driver) VisibleVotes(ctx context.Context, pollID uuid.UUID) ([]model.Vote, error) {
	var dtos []voteDTO
	query := `
		SELECT v.id, v.poll_id, v.option_id, v.voter_id, v.choice, v.approved, v.rating, v.ranking, v.cast_at
		FROM votes v
		LEFT JOIN poll_options o ON o.id = v.option_id
		WHERE v.poll_id = $1 AND (v.option_id IS NULL OR o.status = $2)
	`
	if err := d.db.SelectContext(ctx, &dtos, query, pollID, string(model.OptionActive)); err != nil {
		return nil, mapError(err)
	}

	votes := make([]model.Vote, 0, len(dtos))
	for _, dto := range dtos {
		votes = append(votes, dto.toModel())
	}
	return votes, nil
}

func (d *Driver) VotesByVoter(ctx context.Context, pollID, voterID uuid.UUID) ([]model.Vote, error) {
	var dtos []voteDTO
	query := `
		SELECT id, poll_id, option_id, voter_id, choice, approved, rating, ranking, cast_at
		FROM votes
		WHERE poll_id = $1 AND voter_id = $2
	`
	if err := d.db.SelectContext(ctx, &dtos, query, pollID, voterID); err != nil {
		return nil, mapError(err)
	}

	votes := make([]model.Vote, 0, len(dtos))
	for _, dto := range dtos {
		votes = append(votes, dto.toModel())
	}
	return votes, nil
}

// UpsertVote writes a binary/approval/star vote. The unique index on
// (poll_id, option_id, voter_id) guarantees a second cast by the same voter
// overwrites the first instead of adding a row.
func (d *Driver) UpsertVote(ctx context.Context, vote model.Vote) (model.Vote, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Vote{}, mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	poll, err := d.lockPoll(ctx, tx, vote.PollID)
	if err != nil {
		return model.Vote{}, err
	}
	if !poll.Phase.AllowsCasting() {
		return model.Vote{}, &usecase_poll.PhaseViolationError{Phase: poll.Phase, Action: "cast vote"}
	}

	if err := d.requireActiveOption(ctx, tx, vote.PollID, vote.OptionID); err != nil {
		return model.Vote{}, err
	}

	upsertQuery := `
		INSERT INTO votes (id, poll_id, option_id, voter_id, choice, approved, rating, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (poll_id, option_id, voter_id) WHERE option_id IS NOT NULL
		DO UPDATE SET choice = EXCLUDED.choice, approved = EXCLUDED.approved,
		              rating = EXCLUDED.rating, cast_at = EXCLUDED.cast_at
		RETURNING id, cast_at
	`
	err = tx.QueryRowxContext(ctx, upsertQuery,
		vote.ID, vote.PollID, vote.OptionID, vote.VoterID,
		choiceValue(vote.Value), approvedValue(vote.Value), ratingValue(vote.Value),
	).Scan(&vote.ID, &vote.CastAt)
	if err != nil {
		return model.Vote{}, mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return model.Vote{}, mapError(err)
	}
	return vote, nil
}

// ReplaceRanking supersedes the voter's whole ranking in one transaction:
// delete then insert, so the last full submission is authoritative and
// partial updates cannot exist.
func (d *Driver) ReplaceRanking(ctx context.Context, vote model.Vote) (model.Vote, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Vote{}, mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	poll, err := d.lockPoll(ctx, tx, vote.PollID)
	if err != nil {
		return model.Vote{}, err
	}
	if !poll.Phase.AllowsCasting() {
		return model.Vote{}, &usecase_poll.PhaseViolationError{Phase: poll.Phase, Action: "cast vote"}
	}

	ranking := make([]string, 0, len(vote.Value.Ranking))
	for _, optionID := range vote.Value.Ranking {
		if err := d.requireActiveOption(ctx, tx, vote.PollID, optionID); err != nil {
			return model.Vote{}, err
		}
		ranking = append(ranking, optionID.String())
	}

	deleteQuery := `
		DELETE FROM votes
		WHERE poll_id = $1 AND voter_id = $2 AND option_id IS NULL
	`
	if _, err := tx.ExecContext(ctx, deleteQuery, vote.PollID, vote.VoterID); err != nil {
		return model.Vote{}, mapError(err)
	}

	insertQuery := `
		INSERT INTO votes (id, poll_id, option_id, voter_id, ranking, cast_at)
		VALUES ($1, $2, NULL, $3, $4, NOW())
		RETURNING cast_at
	`
	err = tx.QueryRowxContext(ctx, insertQuery,
		vote.ID, vote.PollID, vote.VoterID, pq.Array(ranking),
	).Scan(&vote.CastAt)
	if err != nil {
		return model.Vote{}, mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return model.Vote{}, mapError(err)
	}
	return vote, nil
}

func (d *Driver) DeleteVote(ctx context.Context, pollID, optionID, voterID uuid.UUID) error {
	query := `
		DELETE FROM votes
		WHERE poll_id = $1 AND option_id = $2 AND voter_id = $3
	`
	res, err := d.db.ExecContext(ctx, query, pollID, optionID, voterID)
	if err != nil {
		return mapError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// Distinguish "no such vote" from "no such option": clearing a vote
		// that was never cast is fine, clearing against an unknown option
		// is not.
		var exists bool
		existsQuery := `
			SELECT EXISTS (
				SELECT 1 FROM poll_options
				WHERE id = $2 AND poll_id = $1 AND status = $3
			)
		`
		if err := d.db.GetContext(ctx, &exists, existsQuery, pollID, optionID, string(model.OptionActive)); err != nil {
			return mapError(err)
		}
		if !exists {
			return usecase_poll.ErrOptionNotFound
		}
		return usecase_poll.ErrVoteNotFound
	}
	return nil
}

func (d *Driver) DeleteRanking(ctx context.Context, pollID, voterID uuid.UUID) error {
	query := `
		DELETE FROM votes
		WHERE poll_id = $1 AND voter_id = $2 AND option_id IS NULL
	`
	res, err := d.db.ExecContext(ctx, query, pollID, voterID)
	if err != nil {
		return mapError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return usecase_poll.ErrVoteNotFound
	}
	return nil
}

func (d *Driver) TransitionPhase(ctx context.Context, pollID uuid.UUID, target model.Phase) (model.Poll, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Poll{}, mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	poll, err := d.lockPoll(ctx, tx, pollID)
	if err != nil {
		return model.Poll{}, err
	}

	// Closing twice is a no-op success so concurrent closure attempts
	// (organizer action vs deadline sweep) stay safe.
	if poll.Phase == model.PhaseClosed && target == model.PhaseClosed {
		return poll, tx.Commit()
	}
	if !poll.Phase.CanTransitionTo(target) {
		return model.Poll{}, &usecase_poll.PhaseViolationError{Phase: poll.Phase, Action: "transition to " + string(target)}
	}

	updateQuery := `UPDATE polls SET phase = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, pollID, string(target)); err != nil {
		return model.Poll{}, mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return model.Poll{}, mapError(err)
	}

	poll.Phase = target
	return poll, nil
}

// CloseExpired is the sweep counterpart of lazy closure. A single guarded
// UPDATE keeps it idempotent under concurrent sweeps.
func (d *Driver) CloseExpired(ctx context.Context, now time.Time) ([]model.Poll, error) {
	var dtos []pollDTO
	query := `
		UPDATE polls
		SET phase = $1
		WHERE phase <> $1 AND deadline IS NOT NULL AND deadline <= $2
		RETURNING id, event_id, display_number, title, poll_type, voting_system, phase, deadline, created_at
	`
	if err := d.db.SelectContext(ctx, &dtos, query, string(model.PhaseClosed), now); err != nil {
		return nil, mapError(err)
	}

	closed := make([]model.Poll, 0, len(dtos))
	for _, dto := range dtos {
		closed = append(closed, dto.toModel())
	}
	return closed, nil
}

// lockPoll applies lazy deadline closure, then takes a row lock so the phase
// cannot change under the transaction. Lock acquisition is bounded: waiting
// longer than lockTimeout fails with the retryable conflict error instead of
// queueing behind a long-held lock.
func (d *Driver) lockPoll(ctx context.Context, tx *sqlx.Tx, pollID uuid.UUID) (model.Poll, error) {
	if _, err := tx.ExecContext(ctx, `SET LOCAL lock_timeout = '3s'`); err != nil {
		return model.Poll{}, mapError(err)
	}

	if err := d.closeIfExpired(ctx, tx, pollID); err != nil {
		return model.Poll{}, err
	}

	var dto pollDTO
	query := `
		SELECT id, event_id, display_number, title, poll_type, voting_system, phase, deadline, created_at
		FROM polls
		WHERE id = $1
		FOR UPDATE
	`
	if err := tx.GetContext(ctx, &dto, query, pollID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Poll{}, usecase_poll.ErrPollNotFound
		}
		return model.Poll{}, mapError(err)
	}
	return dto.toModel(), nil
}

func (d *Driver) closeIfExpired(ctx context.Context, q sqlx.ExecerContext, pollID uuid.UUID) error {
	query := `
		UPDATE polls
		SET phase = $2
		WHERE id = $1 AND phase <> $2 AND deadline IS NOT NULL AND deadline <= NOW()
	`
	if _, err := q.ExecContext(ctx, query, pollID, string(model.PhaseClosed)); err != nil {
		return mapError(err)
	}
	return nil
}

func (d *Driver) requireActiveOption(ctx context.Context, tx *sqlx.Tx, pollID, optionID uuid.UUID) error {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM poll_options
			WHERE id = $2 AND poll_id = $1 AND status = $3
		)
	`
	if err := tx.GetContext(ctx, &exists, query, pollID, optionID, string(model.OptionActive)); err != nil {
		return mapError(err)
	}
	if !exists {
		return usecase_poll.ErrOptionNotFound
	}
	return nil
}

func deadlineValue(deadline *time.Time) interface{} {
	if deadline == nil {
		return nil
	}
	return *deadline
}

func choiceValue(v model.BallotValue) interface{} {
	if v.Choice == "" {
		return nil
	}
	return string(v.Choice)
}

func approvedValue(v model.BallotValue) interface{} {
	if v.Choice != "" || v.Rating != 0 {
		return nil
	}
	return v.Approved
}

func ratingValue(v model.BallotValue) interface{} {
	if v.Rating == 0 {
		return nil
	}
	return v.Rating
}

// mapError translates serialization failures, deadlocks, uniqueness races
// and lock-wait timeouts into the retryable conflict error; the usecase
// retries a bounded number of times.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505", "55P03":
			return errors.Join(usecase_poll.ErrStorageConflict, err)
		}
	}
	return err
}
