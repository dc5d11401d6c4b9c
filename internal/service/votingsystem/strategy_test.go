package votingsystem

import (
	"testing"

	"github.com/gatherhub/polls/core/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForSystem(t *testing.T) {
	for _, system := range []model.VotingSystem{
		model.SystemBinary, model.SystemApproval, model.SystemStar, model.SystemRanked,
	} {
		strategy, err := ForSystem(system)
		require.NoError(t, err)
		assert.Equal(t, system, strategy.System())
	}

	_, err := ForSystem(model.VotingSystem("quadratic"))
	assert.ErrorIs(t, err, ErrUnknownSystem)
}

func TestBinaryNormalize(t *testing.T) {
	tests := []struct {
		name    string
		choice  string
		want    model.BinaryChoice
		wantErr bool
	}{
		{name: "yes", choice: "yes", want: model.ChoiceYes},
		{name: "no", choice: "no", want: model.ChoiceNo},
		{name: "maybe", choice: "maybe", want: model.ChoiceMaybe},
		{name: "empty", choice: "", wantErr: true},
		{name: "unknown", choice: "perhaps", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Binary{}.Normalize(model.RawBallot{Choice: tt.choice})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, value.Choice)
		})
	}
}

func TestApprovalNormalize(t *testing.T) {
	approved := true
	value, err := Approval{}.Normalize(model.RawBallot{Approved: &approved})
	require.NoError(t, err)
	assert.True(t, value.Approved)

	// An explicit false is a valid ballot; the cast path turns it into a clear.
	approved = false
	value, err = Approval{}.Normalize(model.RawBallot{Approved: &approved})
	require.NoError(t, err)
	assert.False(t, value.Approved)

	_, err = Approval{}.Normalize(model.RawBallot{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStarNormalize(t *testing.T) {
	tests := []struct {
		name    string
		rating  int
		wantErr bool
	}{
		{name: "lowest", rating: 1},
		{name: "highest", rating: 5},
		{name: "middle", rating: 3},
		{name: "zero rejected not clamped", rating: 0, wantErr: true},
		{name: "above range rejected not clamped", rating: 6, wantErr: true},
		{name: "negative", rating: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Star{}.Normalize(model.RawBallot{Rating: &tt.rating})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rating, value.Rating)
		})
	}

	t.Run("missing rating", func(t *testing.T) {
		_, err := Star{}.Normalize(model.RawBallot{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestRankedNormalize(t *testing.T) {
	first, second := uuid.New(), uuid.New()

	t.Run("keeps ballot order", func(t *testing.T) {
		value, err := Ranked{}.Normalize(model.RawBallot{
			Ranking: []string{second.String(), first.String()},
		})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{second, first}, value.Ranking)
	})

	t.Run("rejects empty ranking", func(t *testing.T) {
		_, err := Ranked{}.Normalize(model.RawBallot{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects duplicate option", func(t *testing.T) {
		_, err := Ranked{}.Normalize(model.RawBallot{
			Ranking: []string{first.String(), first.String()},
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects malformed option id", func(t *testing.T) {
		_, err := Ranked{}.Normalize(model.RawBallot{
			Ranking: []string{"not-a-uuid"},
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestWholeBallot(t *testing.T) {
	assert.False(t, Binary{}.WholeBallot())
	assert.False(t, Approval{}.WholeBallot())
	assert.False(t, Star{}.WholeBallot())
	assert.True(t, Ranked{}.WholeBallot())
}
