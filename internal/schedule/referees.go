package schedule

import (
	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

// assignReferees fills the referee of each listed match that has none. Referees
// are picked by fewest assignments, then list order. With DoTeamsRef a team of the
// same division that is free at that time officiates instead, fewest duties then seed.
func assignReferees(ev *event.Event, ids []uuid.UUID) {
	load := make(map[uuid.UUID]int)
	for _, m := range ev.Matches {
		if m.IsCancelled() {
			continue
		}
		if m.RefereeID != nil {
			load[*m.RefereeID]++
		}
		if m.TeamRefereeID != nil {
			load[*m.TeamRefereeID]++
		}
	}

	idx := ev.MatchIndex()
	for _, id := range ids {
		i, ok := idx[id]
		if !ok {
			continue
		}
		m := &ev.Matches[i]
		if !m.IsPlaced() || m.IsCancelled() {
			continue
		}

		if ev.DoTeamsRef {
			if m.TeamRefereeID != nil {
				continue
			}
			if t, ok := pickTeamReferee(ev, m, load); ok {
				m.TeamRefereeID = &t
				load[t]++
			}
			continue
		}

		if m.RefereeID != nil {
			continue
		}
		if r, ok := pickReferee(ev, m, load); ok {
			m.RefereeID = &r
			load[r]++
		}
	}
}

func pickReferee(ev *event.Event, m *event.Match, load map[uuid.UUID]int) (uuid.UUID, bool) {
	var best uuid.UUID
	found := false
	for _, r := range ev.Referees {
		if !r.DivisionIDs.Allows(m.DivisionID) || refereeBusy(ev, m, r.ID) {
			continue
		}
		if !found || load[r.ID] < load[best] {
			best = r.ID
			found = true
		}
	}
	return best, found
}

func pickTeamReferee(ev *event.Event, m *event.Match, load map[uuid.UUID]int) (uuid.UUID, bool) {
	var best uuid.UUID
	found := false
	for _, t := range ev.DivisionTeams(m.DivisionID) {
		if m.HasTeam(t.ID) || teamBusy(ev, m, t.ID) {
			continue
		}
		if !found || load[t.ID] < load[best] {
			best = t.ID
			found = true
		}
	}
	return best, found
}

// refereeBusy reports whether the referee officiates another match overlapping m.
func refereeBusy(ev *event.Event, m *event.Match, refereeID uuid.UUID) bool {
	for i := range ev.Matches {
		o := &ev.Matches[i]
		if o.ID == m.ID || o.RefereeID == nil || *o.RefereeID != refereeID {
			continue
		}
		if playingOverlap(m, o) {
			return true
		}
	}
	return false
}

// teamBusy reports whether the team plays or officiates another match overlapping m.
func teamBusy(ev *event.Event, m *event.Match, teamID uuid.UUID) bool {
	for i := range ev.Matches {
		o := &ev.Matches[i]
		if o.ID == m.ID {
			continue
		}
		involved := o.HasTeam(teamID) || (o.TeamRefereeID != nil && *o.TeamRefereeID == teamID)
		if involved && playingOverlap(m, o) {
			return true
		}
	}
	return false
}

// playingOverlap compares [start, end) of two placed, live matches.
func playingOverlap(a, b *event.Match) bool {
	if !a.IsPlaced() || !b.IsPlaced() || a.IsCancelled() || b.IsCancelled() {
		return false
	}
	return a.Start.Before(*b.End) && b.Start.Before(*a.End)
}
