package tally

import (
	"math"
	"sort"

	"github.com/gatherhub/polls/core/internal/model"
	"github.com/google/uuid"
)

// Calculator turns a poll's raw vote records into per-option aggregates.
// It is pure and recomputes from scratch on every call, which is what makes
// the invalidate-and-refetch notification scheme correct: duplicates and
// reordering of "poll changed" signals cannot corrupt anything.
type Calculator struct {
	// Decimal places star means are rounded to.
	MeanPrecision int
}

func New(meanPrecision int) Calculator {
	if meanPrecision < 0 {
		meanPrecision = 2
	}
	return Calculator{MeanPrecision: meanPrecision}
}

// Compute expects options to be the poll's visible (non-hidden) options in
// creation order and votes to be restricted to those options. Votes against
// hidden options must be filtered out by the caller; they count nowhere.
func (c Calculator) Compute(poll model.Poll, options []model.PollOption, votes []model.Vote) model.Tally {
	t := model.Tally{
		PollID:   poll.ID,
		System:   poll.VotingSystem,
		ByOption: make(map[uuid.UUID]model.OptionTally, len(options)),
	}

	for _, opt := range options {
		t.ByOption[opt.ID] = model.OptionTally{OptionID: opt.ID}
	}

	voters := make(map[uuid.UUID]struct{}, len(votes))
	for _, v := range votes {
		voters[v.VoterID] = struct{}{}
	}
	t.Voters = len(voters)

	switch poll.VotingSystem {
	case model.SystemBinary:
		c.computeBinary(&t, votes)
	case model.SystemApproval:
		c.computeApproval(&t, votes)
	case model.SystemStar:
		c.computeStar(&t, votes)
	case model.SystemRanked:
		c.computeRanked(&t, options, votes)
	}

	return t
}

func (c Calculator) computeBinary(t *model.Tally, votes []model.Vote) {
	for _, v := range votes {
		ot, ok := t.ByOption[v.OptionID]
		if !ok {
			continue
		}
		switch v.Value.Choice {
		case model.ChoiceYes:
			ot.Yes++
		case model.ChoiceNo:
			ot.No++
		case model.ChoiceMaybe:
			ot.Maybe++
		}
		t.ByOption[v.OptionID] = ot
	}
	for id, ot := range t.ByOption {
		if total := ot.Yes + ot.No + ot.Maybe; total > 0 {
			ot.YesShare = float64(ot.Yes) / float64(total)
		}
		t.ByOption[id] = ot
	}
}

func (c Calculator) computeApproval(t *model.Tally, votes []model.Vote) {
	for _, v := range votes {
		if !v.Value.Approved {
			continue
		}
		ot, ok := t.ByOption[v.OptionID]
		if !ok {
			continue
		}
		ot.Approvals++
		t.ByOption[v.OptionID] = ot
	}
	for id, ot := range t.ByOption {
		if t.Voters > 0 {
			ot.ApprovalShare = float64(ot.Approvals) / float64(t.Voters)
		}
		t.ByOption[id] = ot
	}
}

func (c Calculator) computeStar(t *model.Tally, votes []model.Vote) {
	sums := make(map[uuid.UUID]int, len(t.ByOption))
	for _, v := range votes {
		ot, ok := t.ByOption[v.OptionID]
		if !ok {
			continue
		}
		sums[v.OptionID] += v.Value.Rating
		ot.Count++
		t.ByOption[v.OptionID] = ot
	}
	for id, ot := range t.ByOption {
		if ot.Count > 0 {
			ot.Mean = c.round(float64(sums[id]) / float64(ot.Count))
		}
		t.ByOption[id] = ot
	}
}

// computeRanked scores ballots with a truncated Borda count: with N visible
// options, position i (0-based) on a ballot is worth N-i points and unranked
// options get nothing. Ties are broken by option creation order.
func (c Calculator) computeRanked(t *model.Tally, options []model.PollOption, votes []model.Vote) {
	n := len(options)
	for _, v := range votes {
		for i, optionID := range v.Value.Ranking {
			ot, ok := t.ByOption[optionID]
			if !ok {
				continue
			}
			ot.Score += n - i
			t.ByOption[optionID] = ot
		}
	}

	position := make(map[uuid.UUID]int, n)
	order := make([]uuid.UUID, 0, n)
	for i, opt := range options {
		position[opt.ID] = i
		order = append(order, opt.ID)
	}
	sort.SliceStable(order, func(i, j int) bool {
		si, sj := t.ByOption[order[i]].Score, t.ByOption[order[j]].Score
		if si != sj {
			return si > sj
		}
		return position[order[i]] < position[order[j]]
	})
	t.Order = order
}

func (c Calculator) round(v float64) float64 {
	scale := math.Pow10(c.MeanPrecision)
	return math.Round(v*scale) / scale
}
