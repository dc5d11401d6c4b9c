package infra_postgres_identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gatherhub/polls/core/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrVoterNotFound = errors.New("voter not found")

// Driver resolves (name, email) pairs against the voters table. It stands in
// for the surrounding application's identity context; reconciliation only
// ever needs resolve-or-create plus the verification flag.
type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

type voterDTO struct {
	ID       uuid.UUID `db:"id"`
	Name     string    `db:"name"`
	Email    string    `db:"email"`
	Verified bool      `db:"verified"`
}

func (d voterDTO) toModel() model.Voter {
	return model.Voter{
		ID:       d.ID,
		Name:     d.Name,
		Email:    d.Email,
		Verified: d.Verified,
	}
}

// ResolveOrCreate returns the existing identity for a known email untouched,
// so a returning voter's prior votes are never disturbed. A fresh email
// creates an unverified identity.
func (d *Driver) ResolveOrCreate(ctx context.Context, name, email string) (model.Voter, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var dto voterDTO
	selectQuery := `SELECT id, name, email, verified FROM voters WHERE email = $1`
	err := d.db.GetContext(ctx, &dto, selectQuery, email)
	if err == nil {
		return dto.toModel(), false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Voter{}, false, err
	}

	voter := model.Voter{
		ID:    uuid.New(),
		Name:  name,
		Email: email,
	}
	insertQuery := `
		INSERT INTO voters (id, name, email, verified, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
	`
	if _, err := d.db.ExecContext(ctx, insertQuery, voter.ID, voter.Name, voter.Email, time.Now()); err != nil {
		// A concurrent reconcile may have created the same email; treat
		// the uniqueness race as a plain resolve.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if err := d.db.GetContext(ctx, &dto, selectQuery, email); err != nil {
				return model.Voter{}, false, err
			}
			return dto.toModel(), false, nil
		}
		return model.Voter{}, false, err
	}

	return voter, true, nil
}

func (d *Driver) VoterByID(ctx context.Context, voterID uuid.UUID) (model.Voter, error) {
	var dto voterDTO
	query := `SELECT id, name, email, verified FROM voters WHERE id = $1`
	if err := d.db.GetContext(ctx, &dto, query, voterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Voter{}, ErrVoterNotFound
		}
		return model.Voter{}, err
	}
	return dto.toModel(), nil
}

func (d *Driver) MarkVerified(ctx context.Context, voterID uuid.UUID) error {
	query := `UPDATE voters SET verified = TRUE WHERE id = $1`
	res, err := d.db.ExecContext(ctx, query, voterID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrVoterNotFound
	}
	return nil
}
