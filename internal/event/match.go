package event

import (
	"slices"
	"time"

	"github.com/AdamBeresnev/matchday/internal/utils"
	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchFinalized MatchStatus = "finalized"
	// A bracket reset that turned out not to be needed
	MatchCancelled MatchStatus = "cancelled"
)

type BracketSide string

const (
	WinnersSide  BracketSide = "winners"
	LosersSide   BracketSide = "losers"
	FinalsSide   BracketSide = "finals"
	LeagueSide   BracketSide = "league"
	PlayoffsSide BracketSide = "playoffs"
)

// Side is the half of the bracket drawing a match sits in.
type Side string

const (
	SideLeft  Side = "LEFT"
	SideRight Side = "RIGHT"
	SideNone  Side = "NONE"
)

type SetResult struct {
	Team1Score int `json:"team1Score"`
	Team2Score int `json:"team2Score"`
}

type Match struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"eventId"`
	DivisionID uuid.UUID `json:"divisionId"`

	// Position in the competition for reconstructing the view
	BracketSide BracketSide `json:"bracketSide"`
	RoundNumber int         `json:"roundNumber"`
	MatchOrder  int         `json:"matchOrder"`

	Team1 TeamSlot `json:"team1"`
	Team2 TeamSlot `json:"team2"`

	TeamRefereeID *uuid.UUID `json:"teamRefereeId,omitempty"`
	RefereeID     *uuid.UUID `json:"refereeId,omitempty"`

	FieldID  *uuid.UUID `json:"fieldId,omitempty"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	BufferMs int64      `json:"bufferMs"`

	Side          Side `json:"side"`
	LosersBracket bool `json:"losersBracket"`

	PreviousLeftMatchID  *uuid.UUID `json:"previousLeftMatchId,omitempty"`
	PreviousRightMatchID *uuid.UUID `json:"previousRightMatchId,omitempty"`
	WinnerNextMatchID    *uuid.UUID `json:"winnerNextMatchId,omitempty"`
	LoserNextMatchID     *uuid.UUID `json:"loserNextMatchId,omitempty"`

	Team1Points int         `json:"team1Points"`
	Team2Points int         `json:"team2Points"`
	SetResults  []SetResult `json:"setResults"`

	Locked           bool        `json:"locked"`
	RefereeCheckedIn bool        `json:"refereeCheckedIn"`
	Status           MatchStatus `json:"status"`
}

func (m *Match) IsPlaced() bool {
	return m.FieldID != nil && m.Start != nil && m.End != nil
}

func (m *Match) IsFinalized() bool {
	return m.Status == MatchFinalized
}

func (m *Match) IsCancelled() bool {
	return m.Status == MatchCancelled
}

// Buffer is the rest time that follows the match on its field.
func (m *Match) Buffer() time.Duration {
	return time.Duration(m.BufferMs) * time.Millisecond
}

// OccupiedUntil is the end of the match plus its buffer.
func (m *Match) OccupiedUntil() time.Time {
	if m.End == nil {
		return time.Time{}
	}
	return m.End.Add(m.Buffer())
}

func (m *Match) ClearPlacement() {
	m.FieldID = nil
	m.Start = nil
	m.End = nil
}

// Predecessors lists the matches feeding this one.
func (m *Match) Predecessors() []uuid.UUID {
	var ids []uuid.UUID
	if m.PreviousLeftMatchID != nil {
		ids = append(ids, *m.PreviousLeftMatchID)
	}
	if m.PreviousRightMatchID != nil && !utils.Equal(m.PreviousRightMatchID, m.PreviousLeftMatchID) {
		ids = append(ids, *m.PreviousRightMatchID)
	}
	return ids
}

// Successors lists the matches this one feeds.
func (m *Match) Successors() []uuid.UUID {
	var ids []uuid.UUID
	if m.WinnerNextMatchID != nil {
		ids = append(ids, *m.WinnerNextMatchID)
	}
	if m.LoserNextMatchID != nil && !utils.Equal(m.LoserNextMatchID, m.WinnerNextMatchID) {
		ids = append(ids, *m.LoserNextMatchID)
	}
	return ids
}

// TeamIDs returns the resolved participants.
func (m *Match) TeamIDs() []uuid.UUID {
	var ids []uuid.UUID
	if id, ok := m.Team1.TeamID(); ok {
		ids = append(ids, id)
	}
	if id, ok := m.Team2.TeamID(); ok {
		ids = append(ids, id)
	}
	return ids
}

func (m *Match) HasTeam(id uuid.UUID) bool {
	return slices.Contains(m.TeamIDs(), id)
}

func (m *Match) Clone() Match {
	c := *m
	c.TeamRefereeID = utils.Copy(m.TeamRefereeID)
	c.RefereeID = utils.Copy(m.RefereeID)
	c.FieldID = utils.Copy(m.FieldID)
	c.Start = utils.Copy(m.Start)
	c.End = utils.Copy(m.End)
	c.PreviousLeftMatchID = utils.Copy(m.PreviousLeftMatchID)
	c.PreviousRightMatchID = utils.Copy(m.PreviousRightMatchID)
	c.WinnerNextMatchID = utils.Copy(m.WinnerNextMatchID)
	c.LoserNextMatchID = utils.Copy(m.LoserNextMatchID)
	c.SetResults = slices.Clone(m.SetResults)
	return c
}
