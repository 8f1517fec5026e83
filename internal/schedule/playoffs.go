package schedule

import (
	"slices"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

// Standings orders a division's teams by wins, then fewest losses, then seed.
func Standings(ev *event.Event, divisionID uuid.UUID) []event.Team {
	teams := ev.DivisionTeams(divisionID)
	slices.SortStableFunc(teams, func(a, b event.Team) int {
		if a.Wins != b.Wins {
			return b.Wins - a.Wins
		}
		if a.Losses != b.Losses {
			return a.Losses - b.Losses
		}
		return a.Seed - b.Seed
	})
	return teams
}

// BuildPlayoffs seeds a single elimination bracket from the standings of a division
// whose regular season is fully played. The matches are returned unplaced.
func BuildPlayoffs(ev *event.Event, divisionID uuid.UUID, opts Options) ([]event.Match, error) {
	if !ev.IsLeague() || !ev.IncludePlayoffs {
		return nil, configErrorf(divisionID, "event has no playoffs")
	}
	if ev.Division(divisionID) == nil {
		return nil, configErrorf(divisionID, "unknown division")
	}
	if hasPlayoffs(ev, divisionID) {
		return nil, configErrorf(divisionID, "playoffs already exist")
	}
	if !regularSeasonComplete(ev, divisionID) {
		return nil, configErrorf(divisionID, "regular season is not complete")
	}

	standings := Standings(ev, divisionID)
	if ev.PlayoffTeamCount < 2 || ev.PlayoffTeamCount > len(standings) {
		return nil, configErrorf(divisionID, "playoff team count %d must be between 2 and %d", ev.PlayoffTeamCount, len(standings))
	}

	b := newBuilder(ev, opts.normalize())
	b.elimination(divisionID, event.PlayoffsSide, standings[:ev.PlayoffTeamCount])
	return b.matches, nil
}

func hasPlayoffs(ev *event.Event, divisionID uuid.UUID) bool {
	for _, m := range ev.Matches {
		if m.DivisionID == divisionID && m.BracketSide == event.PlayoffsSide {
			return true
		}
	}
	return false
}

func regularSeasonComplete(ev *event.Event, divisionID uuid.UUID) bool {
	seen := false
	for _, m := range ev.Matches {
		if m.DivisionID != divisionID || m.BracketSide != event.LeagueSide {
			continue
		}
		seen = true
		if m.Status == event.MatchScheduled {
			return false
		}
	}
	return seen
}

func playoffsReady(ev *event.Event, divisionID uuid.UUID) bool {
	return ev.IsLeague() && ev.IncludePlayoffs &&
		!hasPlayoffs(ev, divisionID) && regularSeasonComplete(ev, divisionID)
}
