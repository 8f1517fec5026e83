package views

import (
	"cmp"
	"slices"
	"sort"
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

// BracketData groups one division's matches by bracket side and round.
type BracketData struct {
	Division event.Division
	Sides    []SideRounds
}

type SideRounds struct {
	Side      event.BracketSide
	Rounds    map[int][]event.Match
	RoundNums []int
}

// DayData is one calendar day of placed matches, ordered by start then field.
type DayData struct {
	Date    time.Time
	Matches []event.Match
}

type ScheduleData struct {
	Event     *event.Event
	Brackets  []BracketData
	Days      []DayData
	Unplaced  []event.Match
	TeamNames map[uuid.UUID]string
	Fields    map[uuid.UUID]event.Field
	Referees  map[uuid.UUID]string
}

var sideOrder = []event.BracketSide{
	event.WinnersSide, event.LosersSide, event.FinalsSide, event.LeagueSide, event.PlayoffsSide,
}

func PrepareScheduleData(ev *event.Event) ScheduleData {
	data := ScheduleData{
		Event:     ev,
		TeamNames: make(map[uuid.UUID]string, len(ev.Teams)),
		Fields:    make(map[uuid.UUID]event.Field, len(ev.Fields)),
		Referees:  make(map[uuid.UUID]string, len(ev.Referees)),
	}
	for _, t := range ev.Teams {
		data.TeamNames[t.ID] = t.Name
	}
	for _, f := range ev.Fields {
		data.Fields[f.ID] = f
	}
	for _, r := range ev.Referees {
		data.Referees[r.ID] = r.Name
	}

	for _, d := range ev.Divisions {
		bd := BracketData{Division: d}
		for _, side := range sideOrder {
			sr := SideRounds{Side: side, Rounds: make(map[int][]event.Match)}
			for _, m := range ev.Matches {
				if m.DivisionID != d.ID || m.BracketSide != side {
					continue
				}
				if _, exists := sr.Rounds[m.RoundNumber]; !exists {
					sr.RoundNums = append(sr.RoundNums, m.RoundNumber)
				}
				sr.Rounds[m.RoundNumber] = append(sr.Rounds[m.RoundNumber], m)
			}
			if len(sr.RoundNums) == 0 {
				continue
			}
			sort.Ints(sr.RoundNums)
			sortRounds(sr.Rounds, sr.RoundNums)
			bd.Sides = append(bd.Sides, sr)
		}
		data.Brackets = append(data.Brackets, bd)
	}

	var placed []event.Match
	for _, m := range ev.Matches {
		switch {
		case m.IsCancelled():
		case m.IsPlaced():
			placed = append(placed, m)
		default:
			data.Unplaced = append(data.Unplaced, m)
		}
	}
	slices.SortStableFunc(placed, func(a, b event.Match) int {
		if c := a.Start.Compare(*b.Start); c != 0 {
			return c
		}
		return cmp.Compare(data.Fields[*a.FieldID].FieldNumber, data.Fields[*b.FieldID].FieldNumber)
	})
	for _, m := range placed {
		y, mo, d := m.Start.Date()
		day := time.Date(y, mo, d, 0, 0, 0, 0, m.Start.Location())
		if n := len(data.Days); n == 0 || !data.Days[n-1].Date.Equal(day) {
			data.Days = append(data.Days, DayData{Date: day})
		}
		data.Days[len(data.Days)-1].Matches = append(data.Days[len(data.Days)-1].Matches, m)
	}
	return data
}

// SlotLabel names who fills a match slot, or what it is waiting on.
func (d ScheduleData) SlotLabel(s event.TeamSlot) string {
	switch s.State {
	case event.SlotResolved:
		if name, ok := d.TeamNames[s.Team]; ok {
			return name
		}
		return "Unknown team"
	case event.SlotPending:
		if s.SourceOutcome == event.OutcomeLoser {
			return "Loser of " + d.matchLabel(s.SourceMatchID)
		}
		return "Winner of " + d.matchLabel(s.SourceMatchID)
	}
	return "TBD"
}

func (d ScheduleData) matchLabel(id uuid.UUID) string {
	if m := d.Event.Match(id); m != nil {
		return MatchLabel(m)
	}
	return "an earlier match"
}

func sortRounds(rounds map[int][]event.Match, roundNums []int) {
	for _, r := range roundNums {
		sort.Slice(rounds[r], func(i, j int) bool {
			return rounds[r][i].MatchOrder < rounds[r][j].MatchOrder
		})
	}
}
