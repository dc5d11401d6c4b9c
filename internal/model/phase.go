package model

type Phase string

const (
	PhaseBuilding          Phase = "building"
	PhaseVoting            Phase = "voting"
	PhaseVotingSuggestions Phase = "voting_with_suggestions"
	PhaseVotingOnly        Phase = "voting_only"
	PhaseClosed            Phase = "closed"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseBuilding, PhaseVoting, PhaseVotingSuggestions, PhaseVotingOnly, PhaseClosed:
		return true
	}
	return false
}

// AllowsCasting reports whether votes may be cast or cleared in this phase.
func (p Phase) AllowsCasting() bool {
	switch p {
	case PhaseVoting, PhaseVotingSuggestions, PhaseVotingOnly:
		return true
	}
	return false
}

// AllowsNewOptions reports whether new options may be added in this phase.
func (p Phase) AllowsNewOptions() bool {
	return p == PhaseBuilding || p == PhaseVotingSuggestions
}

// CanTransitionTo validates the phase state machine:
// building -> any voting variant, voting variants may be toggled between
// each other, anything but closed -> closed. closed is terminal.
func (p Phase) CanTransitionTo(target Phase) bool {
	if p == PhaseClosed || !target.Valid() {
		return false
	}
	switch target {
	case PhaseClosed:
		return true
	case PhaseVoting, PhaseVotingSuggestions, PhaseVotingOnly:
		return p == PhaseBuilding || p.AllowsCasting()
	}
	return false
}
