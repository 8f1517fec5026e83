package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	appdb "github.com/AdamBeresnev/matchday/internal/db"
	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/AdamBeresnev/matchday/internal/notify"
	"github.com/AdamBeresnev/matchday/internal/schedule"
	"github.com/AdamBeresnev/matchday/internal/store"
	users "github.com/AdamBeresnev/matchday/internal/user"
	"github.com/AdamBeresnev/matchday/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A Saturday
var day0 = time.Date(2026, time.June, 6, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day0.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (p *fakePublisher) Publish(eventID uuid.UUID, msg notify.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg.EventID = eventID
	p.messages = append(p.messages, msg)
}

func (p *fakePublisher) types() []notify.MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notify.MessageType
	for _, m := range p.messages {
		out = append(out, m.Type)
	}
	return out
}

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)
	require.NoError(t, appdb.RunMigrations(database.DB))
	t.Cleanup(func() { database.Close() })
	return database
}

func newTestService(t *testing.T) (*ScheduleService, *fakePublisher) {
	t.Helper()
	db := setupTestDB(t)
	pub := &fakePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduleService(db, store.NewEventStore(db), pub, schedule.DefaultOptions(), logger), pub
}

// newEventInput is a single division tournament on one court, open Saturday 08:00
// to 20:00. Ids are left for the service to fill in.
func newEventInput(teamCount int) *event.Event {
	ev := &event.Event{
		Name:                 "Summer Cup",
		Type:                 event.TournamentType,
		Start:                day0,
		End:                  day0.Add(24 * time.Hour),
		MatchDurationMinutes: 60,
		RestTimeMinutes:      10,
		Divisions:            []event.Division{{Name: "Open"}},
		Fields:               []event.Field{{Name: "Court 1"}},
		TimeSlots: []event.TimeSlot{{
			DayOfWeek:        utils.Ptr(int(time.Saturday)),
			StartDate:        day0,
			Repeating:        true,
			StartTimeMinutes: 8 * 60,
			EndTimeMinutes:   20 * 60,
		}},
	}
	for i := 1; i <= teamCount; i++ {
		ev.Teams = append(ev.Teams, event.Team{Name: fmt.Sprintf("Team %d", i)})
	}
	return ev
}

func createEvent(t *testing.T, svc *ScheduleService, in *event.Event) *event.Event {
	t.Helper()
	ev, err := svc.CreateEvent(context.Background(), users.GuestID, in)
	require.NoError(t, err)
	return ev
}

func roundMatches(matches []event.Match, round int) []event.Match {
	var out []event.Match
	for _, m := range matches {
		if m.BracketSide == event.WinnersSide && m.RoundNumber == round {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b event.Match) int { return a.MatchOrder - b.MatchOrder })
	return out
}

func TestCreateEventFillsIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ev := createEvent(t, svc, newEventInput(4))

	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, users.GuestID, ev.HostID)
	require.Len(t, ev.Divisions, 1)
	assert.NotEqual(t, uuid.Nil, ev.Divisions[0].ID)
	assert.Equal(t, 1, ev.Fields[0].FieldNumber)
	require.Len(t, ev.Teams, 4)
	for i, team := range ev.Teams {
		assert.NotEqual(t, uuid.Nil, team.ID)
		assert.Equal(t, ev.Divisions[0].ID, team.DivisionID)
		assert.Equal(t, i+1, team.Seed)
	}
	assert.Empty(t, ev.Matches)

	events, err := svc.ListEvents(context.Background(), users.GuestID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev.ID, events[0].ID)
}

func TestCreateEventRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ev *event.Event)
	}{
		{"blank name", func(ev *event.Event) { ev.Name = "  " }},
		{"unknown type", func(ev *event.Event) { ev.Type = "cup" }},
		{"no start", func(ev *event.Event) { ev.Start = time.Time{} }},
		{"end before start", func(ev *event.Event) { ev.End = day0.Add(-time.Hour) }},
		{"team in unknown division", func(ev *event.Event) {
			ev.Divisions = append(ev.Divisions, event.Division{Name: "Juniors"})
			ev.Teams[0].DivisionID = uuid.New()
		}},
		{"slot on unknown field", func(ev *event.Event) { ev.TimeSlots[0].FieldID = uuid.New() }},
		{"day of week out of range", func(ev *event.Event) { ev.TimeSlots[0].DayOfWeek = utils.Ptr(9) }},
		{"slot minutes out of range", func(ev *event.Event) { ev.TimeSlots[0].EndTimeMinutes = 30 * 60 }},
		{"overnight slot", func(ev *event.Event) { ev.TimeSlots[0].StartTimeMinutes = 21 * 60 }},
		{"rental day of week out of range", func(ev *event.Event) {
			ev.Fields[0].RentalSlots = []event.TimeSlot{{
				DayOfWeek:        utils.Ptr(-1),
				StartDate:        day0,
				Repeating:        true,
				StartTimeMinutes: 8 * 60,
				EndTimeMinutes:   12 * 60,
			}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			in := newEventInput(4)
			tt.mutate(in)
			_, err := svc.CreateEvent(context.Background(), users.GuestID, in)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestScheduleEventPersistsAndPublishes(t *testing.T) {
	svc, pub := newTestService(t)
	ev := createEvent(t, svc, newEventInput(4))

	res, err := svc.ScheduleEvent(context.Background(), users.GuestID, ev.ID)
	require.NoError(t, err)
	require.Len(t, res.Matches, 3)

	stored, err := svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Matches, stored.Matches)
	assert.Equal(t, []notify.MessageType{notify.ScheduleUpdated}, pub.types())

	round1 := roundMatches(stored.Matches, 1)
	assert.Equal(t, at(8, 0), *round1[0].Start)
	assert.Equal(t, at(9, 10), *round1[1].Start)
}

func TestScheduleEventAccess(t *testing.T) {
	svc, pub := newTestService(t)
	ev := createEvent(t, svc, newEventInput(4))

	_, err := svc.ScheduleEvent(context.Background(), uuid.New(), ev.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ScheduleEvent(context.Background(), users.GuestID, uuid.New())
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Empty(t, pub.types())
}

func TestScheduleEventWindowExceeded(t *testing.T) {
	svc, pub := newTestService(t)
	in := newEventInput(4)
	in.TimeSlots[0].EndTimeMinutes = 9 * 60
	ev := createEvent(t, svc, in)

	_, err := svc.ScheduleEvent(context.Background(), users.GuestID, ev.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrScheduleWindowExceeded)
	assert.Contains(t, err.Error(), "no available time slots remaining for scheduling")

	stored, err := svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Matches)
	assert.Empty(t, pub.types())
}

func TestUpdateMatchPersists(t *testing.T) {
	svc, pub := newTestService(t)
	ev := createEvent(t, svc, newEventInput(4))
	sched, err := svc.ScheduleEvent(context.Background(), users.GuestID, ev.ID)
	require.NoError(t, err)
	first := roundMatches(sched.Matches, 1)[0]

	res, err := svc.UpdateMatch(context.Background(), users.GuestID, ev.ID, first.ID, schedule.MatchPatch{Locked: utils.Ptr(true)})
	require.NoError(t, err)
	assert.True(t, res.Match.Locked)

	stored, err := svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.True(t, stored.Match(first.ID).Locked)
	assert.Equal(t, []notify.MessageType{notify.ScheduleUpdated, notify.MatchesUpdated}, pub.types())

	_, err = svc.UpdateMatch(context.Background(), users.GuestID, ev.ID, uuid.New(), schedule.MatchPatch{Locked: utils.Ptr(true)})
	assert.ErrorIs(t, err, schedule.ErrMatchNotFound)
}

func TestUpdateMatchesAllOrNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ev := createEvent(t, svc, newEventInput(4))
	sched, err := svc.ScheduleEvent(context.Background(), users.GuestID, ev.ID)
	require.NoError(t, err)
	round1 := roundMatches(sched.Matches, 1)

	_, err = svc.UpdateMatches(context.Background(), users.GuestID, ev.ID, []schedule.MatchUpdate{
		{MatchID: round1[0].ID, MatchPatch: schedule.MatchPatch{Locked: utils.Ptr(true)}},
		// Onto the other match's time on the only court
		{MatchID: round1[1].ID, MatchPatch: schedule.MatchPatch{Start: round1[0].Start, End: round1[0].End}},
	})
	assert.ErrorIs(t, err, schedule.ErrMatchConflict)

	stored, err := svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.False(t, stored.Match(round1[0].ID).Locked)

	res, err := svc.UpdateMatches(context.Background(), users.GuestID, ev.ID, []schedule.MatchUpdate{
		{MatchID: round1[0].ID, MatchPatch: schedule.MatchPatch{Locked: utils.Ptr(true)}},
		{MatchID: round1[1].ID, MatchPatch: schedule.MatchPatch{RefereeCheckedIn: utils.Ptr(true)}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 2)

	stored, err = svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.True(t, stored.Match(round1[0].ID).Locked)
	assert.True(t, stored.Match(round1[1].ID).RefereeCheckedIn)
}

func TestFinalizeMatchUpdatesRecords(t *testing.T) {
	svc, pub := newTestService(t)
	ev := createEvent(t, svc, newEventInput(4))
	sched, err := svc.ScheduleEvent(context.Background(), users.GuestID, ev.ID)
	require.NoError(t, err)
	first := roundMatches(sched.Matches, 1)[0]
	winner, _ := first.Team1.TeamID()

	res, err := svc.FinalizeMatch(context.Background(), users.GuestID, ev.ID, first.ID, schedule.Result{Team1Points: 21, Team2Points: 15})
	require.NoError(t, err)
	assert.Equal(t, event.MatchFinalized, res.Match.Status)

	stored, err := svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, event.MatchFinalized, stored.Match(first.ID).Status)
	assert.Equal(t, 1, stored.Team(winner).Wins)
	final := roundMatches(stored.Matches, 2)[0]
	assert.Equal(t, event.Resolved(winner), final.Team1)
	assert.Equal(t, []notify.MessageType{notify.ScheduleUpdated, notify.MatchFinalized}, pub.types())

	_, err = svc.FinalizeMatch(context.Background(), users.GuestID, ev.ID, first.ID, schedule.Result{Team1Points: 21, Team2Points: 15})
	assert.ErrorIs(t, err, schedule.ErrMatchFinalized)
}

func TestFinalizeMatchEndLimitKeepsResult(t *testing.T) {
	svc, pub := newTestService(t)
	in := newEventInput(4)
	in.DeferUnresolvedMatches = true
	in.TimeSlots[0].EndTimeMinutes = 10*60 + 30
	ev := createEvent(t, svc, in)

	sched, err := svc.ScheduleEvent(context.Background(), users.GuestID, ev.ID)
	require.NoError(t, err)
	round1 := roundMatches(sched.Matches, 1)
	final := roundMatches(sched.Matches, 2)[0]

	_, err = svc.FinalizeMatch(context.Background(), users.GuestID, ev.ID, round1[0].ID, schedule.Result{Team1Points: 21, Team2Points: 10})
	require.NoError(t, err)

	res, err := svc.FinalizeMatch(context.Background(), users.GuestID, ev.ID, round1[1].ID, schedule.Result{Team1Points: 21, Team2Points: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAutoRescheduleEndLimit)
	assert.ErrorIs(t, err, schedule.ErrScheduleWindowExceeded)
	require.NotNil(t, res)

	// The result was committed regardless
	stored, err := svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, event.MatchFinalized, stored.Match(round1[1].ID).Status)
	storedFinal := stored.Match(final.ID)
	assert.True(t, storedFinal.Team1.IsResolved())
	assert.True(t, storedFinal.Team2.IsResolved())
	assert.False(t, storedFinal.IsPlaced())

	assert.Equal(t, []notify.MessageType{
		notify.ScheduleUpdated, notify.MatchFinalized, notify.MatchFinalized, notify.HostAlert,
	}, pub.types())
	alert, ok := pub.messages[3].Payload.(notify.Alert)
	require.True(t, ok)
	assert.Equal(t, "AUTO_RESCHEDULE_END_LIMIT", alert.Code)
	require.NotNil(t, alert.MatchID)
	assert.Equal(t, final.ID, *alert.MatchID)
}

func TestRescheduleEventAfterAddingField(t *testing.T) {
	svc, pub := newTestService(t)
	ev := createEvent(t, svc, newEventInput(8))
	sched, err := svc.ScheduleEvent(context.Background(), users.GuestID, ev.ID)
	require.NoError(t, err)
	locked := roundMatches(sched.Matches, 1)[2]
	_, err = svc.UpdateMatch(context.Background(), users.GuestID, ev.ID, locked.ID, schedule.MatchPatch{Locked: utils.Ptr(true)})
	require.NoError(t, err)

	current, err := svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	edit := current.Clone()
	edit.Fields = append(edit.Fields, event.Field{Name: "Court 2", FieldNumber: 2})
	_, err = svc.UpdateEvent(context.Background(), users.GuestID, ev.ID, edit)
	require.NoError(t, err)

	res, err := svc.RescheduleEvent(context.Background(), users.GuestID, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	stored, err := svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	require.Len(t, stored.Fields, 2)
	got := stored.Match(locked.ID)
	assert.True(t, got.Locked)
	assert.Equal(t, *locked.Start, *got.Start)
	assert.Equal(t, *locked.FieldID, *got.FieldID)

	courts := map[uuid.UUID]bool{}
	for _, m := range stored.Matches {
		require.True(t, m.IsPlaced())
		courts[*m.FieldID] = true
	}
	assert.Len(t, courts, 2)
	assert.Equal(t, notify.ScheduleUpdated, pub.types()[len(pub.types())-1])
}

func TestUpdateEventKeepsRecords(t *testing.T) {
	svc, _ := newTestService(t)
	ev := createEvent(t, svc, newEventInput(4))
	sched, err := svc.ScheduleEvent(context.Background(), users.GuestID, ev.ID)
	require.NoError(t, err)
	first := roundMatches(sched.Matches, 1)[0]
	winner, _ := first.Team1.TeamID()
	_, err = svc.FinalizeMatch(context.Background(), users.GuestID, ev.ID, first.ID, schedule.Result{Team1Points: 2, Team2Points: 0})
	require.NoError(t, err)

	edit := ev.Clone()
	edit.Name = "Summer Cup 2026"
	for i := range edit.Teams {
		edit.Teams[i].Wins = 9
	}
	updated, err := svc.UpdateEvent(context.Background(), users.GuestID, ev.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, "Summer Cup 2026", updated.Name)

	stored, err := svc.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summer Cup 2026", stored.Name)
	assert.Equal(t, 1, stored.Team(winner).Wins)
	assert.Len(t, stored.Matches, 3)

	_, err = svc.UpdateEvent(context.Background(), uuid.New(), ev.ID, edit)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEventLocksSerialize(t *testing.T) {
	locks := newEventLocks()
	id := uuid.New()

	var (
		wg      sync.WaitGroup
		running int
		maxSeen int
		mu      sync.Mutex
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(id)
			defer unlock()

			mu.Lock()
			running++
			maxSeen = max(maxSeen, running)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locks.size())

	// Different events do not wait on each other
	unlockA := locks.lock(uuid.New())
	unlockB := locks.lock(uuid.New())
	assert.Equal(t, 2, locks.size())
	unlockA()
	unlockB()
}
