package schedule

import (
	"fmt"
	"slices"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

type Result struct {
	Team1Points int               `json:"team1Points"`
	Team2Points int               `json:"team2Points"`
	SetResults  []event.SetResult `json:"setResults"`
}

// winner returns 1 or 2 for the winning slot, 0 for a draw. Sets decide when
// present, points otherwise.
func (r Result) winner() int {
	if len(r.SetResults) > 0 {
		var won1, won2 int
		for _, s := range r.SetResults {
			switch {
			case s.Team1Score > s.Team2Score:
				won1++
			case s.Team2Score > s.Team1Score:
				won2++
			}
		}
		if won1 != won2 {
			if won1 > won2 {
				return 1
			}
			return 2
		}
	}
	switch {
	case r.Team1Points > r.Team2Points:
		return 1
	case r.Team2Points > r.Team1Points:
		return 2
	}
	return 0
}

type FinalizeResult struct {
	Event *event.Event `json:"event"`
	Match event.Match  `json:"match"`
	// Other matches changed as a consequence, in the order they were touched
	Affected []event.Match `json:"affected"`
}

// FinalizeMatch records a result, updates standings, advances teams into the
// successor matches and places any successor that was waiting on them.
//
// When that placement runs out of calendar the result is still returned along with
// a *WindowExceededError: the result stands, only the downstream placement failed.
func FinalizeMatch(in *event.Event, matchID uuid.UUID, res Result, opts Options) (*FinalizeResult, error) {
	opts = opts.normalize()
	ev := in.Clone()

	m := ev.Match(matchID)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if m.Status != event.MatchScheduled {
		return nil, fmt.Errorf("%w: %s", ErrMatchFinalized, matchID)
	}
	team1, ok1 := m.Team1.TeamID()
	team2, ok2 := m.Team2.TeamID()
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: both teams of match %s must be known", ErrInvalidResult, matchID)
	}
	if res.Team1Points < 0 || res.Team2Points < 0 {
		return nil, fmt.Errorf("%w: points cannot be negative", ErrInvalidResult)
	}

	slot := res.winner()
	if slot == 0 && m.BracketSide != event.LeagueSide {
		return nil, fmt.Errorf("%w: elimination matches need a winner", ErrInvalidResult)
	}

	m.Team1Points = res.Team1Points
	m.Team2Points = res.Team2Points
	m.SetResults = slices.Clone(res.SetResults)
	m.Status = event.MatchFinalized

	var affected []uuid.UUID
	touch := func(id uuid.UUID) {
		if !slices.Contains(affected, id) {
			affected = append(affected, id)
		}
	}

	if slot != 0 {
		winner, loser := team1, team2
		if slot == 2 {
			winner, loser = team2, team1
		}
		if t := ev.Team(winner); t != nil {
			t.Wins++
		}
		if t := ev.Team(loser); t != nil {
			t.Losses++
		}
		for _, id := range advance(ev, m, winner, loser) {
			touch(id)
		}

		// The winners bracket champion taking the grand final makes the reset moot
		if m.BracketSide == event.FinalsSide && m.RoundNumber == 1 && slot == 1 && m.WinnerNextMatchID != nil {
			if reset := ev.Match(*m.WinnerNextMatchID); reset != nil && reset.Status == event.MatchScheduled {
				reset.Status = event.MatchCancelled
				reset.ClearPlacement()
				reset.Locked = false
				reset.RefereeID = nil
				reset.TeamRefereeID = nil
				touch(reset.ID)
			}
		}
	}

	divisionID := m.DivisionID
	bracket := m.BracketSide
	successors := m.Successors()

	targets := make(map[uuid.UUID]bool)
	collectUnplaced(ev, successors, targets)

	if bracket == event.LeagueSide && playoffsReady(ev, divisionID) {
		playoffs, err := BuildPlayoffs(ev, divisionID, opts)
		if err != nil {
			return nil, err
		}
		// m is not valid past this append
		ev.Matches = append(ev.Matches, playoffs...)
		for _, pm := range playoffs {
			targets[pm.ID] = true
			touch(pm.ID)
		}
	}

	var packErr error
	if len(targets) > 0 {
		p := newPacker(ev, opts)
		packErr = p.pack(targets)
		assignReferees(ev, p.placed)
		for _, id := range p.placed {
			touch(id)
		}
	}

	out := &FinalizeResult{Event: ev, Match: ev.Match(matchID).Clone()}
	for _, id := range affected {
		if am := ev.Match(id); am != nil {
			out.Affected = append(out.Affected, am.Clone())
		}
	}
	if packErr != nil {
		return out, packErr
	}
	return out, nil
}

// advance writes the finalized teams into every successor slot waiting on them.
func advance(ev *event.Event, m *event.Match, winner, loser uuid.UUID) []uuid.UUID {
	var changed []uuid.UUID
	for _, sid := range m.Successors() {
		succ := ev.Match(sid)
		if succ == nil {
			continue
		}
		for _, slot := range []*event.TeamSlot{&succ.Team1, &succ.Team2} {
			switch {
			case slot.Awaits(m.ID, event.OutcomeWinner):
				*slot = event.Resolved(winner)
			case slot.Awaits(m.ID, event.OutcomeLoser):
				*slot = event.Resolved(loser)
			default:
				continue
			}
			changed = append(changed, succ.ID)
		}
	}
	return changed
}

// collectUnplaced walks forward from ids and marks every live, unlocked match
// that still needs a field and time.
func collectUnplaced(ev *event.Event, ids []uuid.UUID, targets map[uuid.UUID]bool) {
	seen := make(map[uuid.UUID]bool)
	queue := slices.Clone(ids)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		m := ev.Match(id)
		if m == nil {
			continue
		}
		if m.Status == event.MatchScheduled && !m.Locked && !m.IsPlaced() {
			targets[id] = true
		}
		queue = append(queue, m.Successors()...)
	}
}
