package event

import (
	"bytes"
	"slices"
	"time"

	"github.com/AdamBeresnev/matchday/internal/utils"
	"github.com/google/uuid"
)

type Type string

const (
	TournamentType Type = "tournament"
	LeagueType     Type = "league"
)

// Event is the competition container. A tournament is an elimination bracket per
// division, a league is a round robin per division with optional playoffs.
type Event struct {
	ID     uuid.UUID `db:"id" json:"id"`
	HostID uuid.UUID `db:"host_id" json:"hostId"`
	Name   string    `db:"name" json:"name"`
	Type   Type      `db:"event_type" json:"type"`

	// Scheduling window. End is ignored as a hard limit when NoFixedEndDateTime is set.
	Start              time.Time `db:"start_at" json:"start"`
	End                time.Time `db:"end_at" json:"end"`
	NoFixedEndDateTime bool      `db:"no_fixed_end" json:"noFixedEndDateTime"`

	// Tournament config
	DoubleElimination bool `db:"double_elimination" json:"doubleElimination"`
	WinnerSetCount    int  `db:"winner_set_count" json:"winnerSetCount"`
	LoserSetCount     int  `db:"loser_set_count" json:"loserSetCount"`

	UsesSets             bool `db:"uses_sets" json:"usesSets"`
	SetsPerMatch         int  `db:"sets_per_match" json:"setsPerMatch"`
	SetDurationMinutes   int  `db:"set_duration_minutes" json:"setDurationMinutes"`
	MatchDurationMinutes int  `db:"match_duration_minutes" json:"matchDurationMinutes"`
	RestTimeMinutes      int  `db:"rest_time_minutes" json:"restTimeMinutes"`

	// League config
	GamesPerOpponent int  `db:"games_per_opponent" json:"gamesPerOpponent"`
	IncludePlayoffs  bool `db:"include_playoffs" json:"includePlayoffs"`
	PlayoffTeamCount int  `db:"playoff_team_count" json:"playoffTeamCount"`

	DoTeamsRef              bool `db:"do_teams_ref" json:"doTeamsRef"`
	DeferUnresolvedMatches  bool `db:"defer_unresolved_matches" json:"deferUnresolvedMatches"`
	RegistrationCutoffHours int  `db:"registration_cutoff_hours" json:"registrationCutoffHours"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Divisions []Division `db:"-" json:"divisions"`
	Teams     []Team     `db:"-" json:"teams"`
	Fields    []Field    `db:"-" json:"fields"`
	TimeSlots []TimeSlot `db:"-" json:"timeSlots"`
	Referees  []Referee  `db:"-" json:"referees"`
	Matches   []Match    `db:"-" json:"matches"`
}

func (e *Event) IsLeague() bool {
	return e.Type == LeagueType
}

// RegistrationCutoff is the last moment teams may register.
func (e *Event) RegistrationCutoff() time.Time {
	return e.Start.Add(-time.Duration(e.RegistrationCutoffHours) * time.Hour)
}

func (e *Event) Division(id uuid.UUID) *Division {
	for i := range e.Divisions {
		if e.Divisions[i].ID == id {
			return &e.Divisions[i]
		}
	}
	return nil
}

func (e *Event) Team(id uuid.UUID) *Team {
	for i := range e.Teams {
		if e.Teams[i].ID == id {
			return &e.Teams[i]
		}
	}
	return nil
}

func (e *Event) Field(id uuid.UUID) *Field {
	for i := range e.Fields {
		if e.Fields[i].ID == id {
			return &e.Fields[i]
		}
	}
	return nil
}

func (e *Event) Referee(id uuid.UUID) *Referee {
	for i := range e.Referees {
		if e.Referees[i].ID == id {
			return &e.Referees[i]
		}
	}
	return nil
}

// DivisionTeams returns the division's teams ordered by seed, then id.
func (e *Event) DivisionTeams(divisionID uuid.UUID) []Team {
	var teams []Team
	for _, t := range e.Teams {
		if t.DivisionID == divisionID {
			teams = append(teams, t)
		}
	}
	slices.SortStableFunc(teams, func(a, b Team) int {
		if a.Seed != b.Seed {
			return a.Seed - b.Seed
		}
		return CompareIDs(a.ID, b.ID)
	})
	return teams
}

// MatchIndex maps match ids to their position in Matches.
func (e *Event) MatchIndex() map[uuid.UUID]int {
	idx := make(map[uuid.UUID]int, len(e.Matches))
	for i, m := range e.Matches {
		idx[m.ID] = i
	}
	return idx
}

func (e *Event) Match(id uuid.UUID) *Match {
	for i := range e.Matches {
		if e.Matches[i].ID == id {
			return &e.Matches[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Nothing in the copy aliases the receiver.
func (e *Event) Clone() *Event {
	c := *e
	c.Divisions = slices.Clone(e.Divisions)
	for i := range c.Divisions {
		c.Divisions[i].FieldIDs = slices.Clone(c.Divisions[i].FieldIDs)
	}
	c.Teams = slices.Clone(e.Teams)
	for i := range c.Teams {
		c.Teams[i].PlayerIDs = slices.Clone(c.Teams[i].PlayerIDs)
		c.Teams[i].CaptainID = utils.Copy(c.Teams[i].CaptainID)
	}
	c.Fields = slices.Clone(e.Fields)
	for i := range c.Fields {
		c.Fields[i].DivisionIDs = slices.Clone(c.Fields[i].DivisionIDs)
		c.Fields[i].RentalSlots = cloneSlots(c.Fields[i].RentalSlots)
	}
	c.TimeSlots = cloneSlots(e.TimeSlots)
	c.Referees = slices.Clone(e.Referees)
	for i := range c.Referees {
		c.Referees[i].DivisionIDs = slices.Clone(c.Referees[i].DivisionIDs)
	}
	c.Matches = slices.Clone(e.Matches)
	for i := range c.Matches {
		c.Matches[i] = e.Matches[i].Clone()
	}
	return &c
}

func cloneSlots(slots []TimeSlot) []TimeSlot {
	if slots == nil {
		return nil
	}
	out := make([]TimeSlot, len(slots))
	for i, s := range slots {
		s.DayOfWeek = utils.Copy(s.DayOfWeek)
		s.EndDate = utils.Copy(s.EndDate)
		s.DivisionIDs = slices.Clone(s.DivisionIDs)
		out[i] = s
	}
	return out
}

// CompareIDs orders ids bytewise. Used wherever ties need a stable answer.
func CompareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
