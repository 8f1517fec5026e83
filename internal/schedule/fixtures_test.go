package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/AdamBeresnev/matchday/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// A Saturday
var day0 = time.Date(2026, time.June, 6, 0, 0, 0, 0, time.UTC)

var (
	testEventID    = uuid.MustParse("6b1f2c1e-0000-4000-8000-000000000001")
	testDivisionID = uuid.MustParse("6b1f2c1e-0000-4000-8000-0000000000d1")
)

func fieldID(n int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "field-%d", n))
}

func teamID(div uuid.UUID, n int) uuid.UUID {
	return uuid.NewSHA1(div, fmt.Appendf(nil, "team-%d", n))
}

func refereeID(n int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "referee-%d", n))
}

func at(hour, minute int) time.Time {
	return day0.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// newTournament is a one-division single elimination event on one field, open
// Saturday 08:00 to 20:00, 60 minute matches with 10 minutes of rest.
func newTournament(teamCount int) *event.Event {
	ev := &event.Event{
		ID:                   testEventID,
		Name:                 "Summer Cup",
		Type:                 event.TournamentType,
		Start:                day0,
		End:                  day0.Add(24 * time.Hour),
		MatchDurationMinutes: 60,
		RestTimeMinutes:      10,
		Divisions:            []event.Division{{ID: testDivisionID, EventID: testEventID, Name: "Open"}},
		Fields:               []event.Field{{ID: fieldID(1), EventID: testEventID, FieldNumber: 1, Name: "Court 1"}},
		TimeSlots: []event.TimeSlot{{
			ID:               uuid.NewSHA1(uuid.NameSpaceOID, []byte("slot-sat")),
			EventID:          testEventID,
			DayOfWeek:        utils.Ptr(int(time.Saturday)),
			StartDate:        day0,
			Repeating:        true,
			StartTimeMinutes: 8 * 60,
			EndTimeMinutes:   20 * 60,
		}},
	}
	addTeams(ev, testDivisionID, teamCount)
	return ev
}

func newLeague(teamCount int) *event.Event {
	ev := newTournament(teamCount)
	ev.Type = event.LeagueType
	ev.Name = "Spring League"
	ev.GamesPerOpponent = 1
	return ev
}

func addTeams(ev *event.Event, div uuid.UUID, count int) {
	for i := 1; i <= count; i++ {
		ev.Teams = append(ev.Teams, event.Team{
			ID:         teamID(div, i),
			EventID:    ev.ID,
			DivisionID: div,
			Name:       fmt.Sprintf("Team %d", i),
			Seed:       i,
		})
	}
}

func addField(ev *event.Event, n int) uuid.UUID {
	id := fieldID(n)
	ev.Fields = append(ev.Fields, event.Field{ID: id, EventID: ev.ID, FieldNumber: n, Name: fmt.Sprintf("Court %d", n)})
	return id
}

func addReferee(ev *event.Event, n int) uuid.UUID {
	id := refereeID(n)
	ev.Referees = append(ev.Referees, event.Referee{ID: id, EventID: ev.ID, Name: fmt.Sprintf("Ref %d", n), Position: n})
	return id
}

func mustSchedule(t *testing.T, ev *event.Event) *event.Event {
	t.Helper()
	res, err := Schedule(ev, DefaultOptions())
	require.NoError(t, err)
	return res.Event
}

func matchesBy(ev *event.Event, side event.BracketSide, round int) []event.Match {
	var out []event.Match
	for _, m := range ev.Matches {
		if m.BracketSide == side && (round == 0 || m.RoundNumber == round) {
			out = append(out, m)
		}
	}
	return out
}

// finalizeWin finalizes a match with team1 or team2 winning 2 sets to 0.
func finalizeWin(t *testing.T, ev *event.Event, id uuid.UUID, winner int) *event.Event {
	t.Helper()
	res := Result{Team1Points: 21, Team2Points: 15}
	if winner == 2 {
		res = Result{Team1Points: 15, Team2Points: 21}
	}
	out, err := FinalizeMatch(ev, id, res, DefaultOptions())
	require.NoError(t, err)
	return out.Event
}

// assertNoDoubleBooking checks that no two live matches share a field over
// overlapping [start, end+buffer) spans.
func assertNoDoubleBooking(t *testing.T, ev *event.Event) {
	t.Helper()
	for i := range ev.Matches {
		a := &ev.Matches[i]
		if !a.IsPlaced() || a.IsCancelled() {
			continue
		}
		for j := i + 1; j < len(ev.Matches); j++ {
			b := &ev.Matches[j]
			if !b.IsPlaced() || b.IsCancelled() || *a.FieldID != *b.FieldID {
				continue
			}
			require.False(t, fieldOverlap(a, b), "matches %s and %s overlap on field %s", a.ID, b.ID, *a.FieldID)
		}
	}
}
