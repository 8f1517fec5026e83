package event

import (
	"fmt"

	"github.com/google/uuid"
)

type SlotState int

const (
	SlotUnresolved SlotState = iota
	// Waiting on the outcome of another match
	SlotPending
	SlotResolved
)

var slotStateNames = map[SlotState]string{
	SlotUnresolved: "unresolved",
	SlotPending:    "pending",
	SlotResolved:   "resolved",
}

func (s SlotState) String() string {
	return slotStateNames[s]
}

func (s SlotState) MarshalText() ([]byte, error) {
	name, ok := slotStateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown slot state %d", int(s))
	}
	return []byte(name), nil
}

func (s *SlotState) UnmarshalText(b []byte) error {
	for state, name := range slotStateNames {
		if name == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown slot state %q", string(b))
}

type Outcome string

const (
	OutcomeWinner Outcome = "winner"
	OutcomeLoser  Outcome = "loser"
)

// TeamSlot is one participant position of a match.
type TeamSlot struct {
	State         SlotState `json:"state"`
	Team          uuid.UUID `json:"teamId,omitzero"`
	SourceMatchID uuid.UUID `json:"sourceMatchId,omitzero"`
	SourceOutcome Outcome   `json:"sourceOutcome,omitempty"`
}

func Resolved(teamID uuid.UUID) TeamSlot {
	return TeamSlot{State: SlotResolved, Team: teamID}
}

func Pending(matchID uuid.UUID, outcome Outcome) TeamSlot {
	return TeamSlot{State: SlotPending, SourceMatchID: matchID, SourceOutcome: outcome}
}

func (s TeamSlot) TeamID() (uuid.UUID, bool) {
	if s.State != SlotResolved {
		return uuid.Nil, false
	}
	return s.Team, true
}

func (s TeamSlot) IsResolved() bool {
	return s.State == SlotResolved
}

// Awaits reports whether the slot is filled by the given outcome of matchID.
func (s TeamSlot) Awaits(matchID uuid.UUID, outcome Outcome) bool {
	return s.State == SlotPending && s.SourceMatchID == matchID && s.SourceOutcome == outcome
}
