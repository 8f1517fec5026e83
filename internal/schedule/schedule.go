// Package schedule builds match graphs for events and packs them into field time.
//
// Every exported operation takes the event by pointer, works on a deep copy and
// returns the copy. Inputs are never mutated, nothing is logged.
package schedule

import (
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

const (
	DefaultMatchDuration = 60 * time.Minute
	DefaultSetDuration   = 20 * time.Minute
	// Rest added per set when the event has no explicit rest time
	SetRestTime    = 5 * time.Minute
	DefaultHorizon = 365 * 24 * time.Hour
)

// Options carries the defaults used when an event leaves a value unset.
type Options struct {
	MatchDuration time.Duration
	SetDuration   time.Duration
	SetRest       time.Duration
	// How far past the nominal end open-ended events may be scheduled
	Horizon time.Duration
}

func DefaultOptions() Options {
	return Options{
		MatchDuration: DefaultMatchDuration,
		SetDuration:   DefaultSetDuration,
		SetRest:       SetRestTime,
		Horizon:       DefaultHorizon,
	}
}

func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.MatchDuration <= 0 {
		o.MatchDuration = d.MatchDuration
	}
	if o.SetDuration <= 0 {
		o.SetDuration = d.SetDuration
	}
	if o.SetRest <= 0 {
		o.SetRest = d.SetRest
	}
	if o.Horizon <= 0 {
		o.Horizon = d.Horizon
	}
	return o
}

type ScheduleResult struct {
	Event   *event.Event  `json:"event"`
	Matches []event.Match `json:"matches"`
}

// Schedule builds every match of the event from scratch and packs them. Existing
// matches, results and locks are discarded.
func Schedule(in *event.Event, opts Options) (*ScheduleResult, error) {
	opts = opts.normalize()
	ev := in.Clone()

	matches, err := Build(ev, opts)
	if err != nil {
		return nil, err
	}
	for i := range ev.Teams {
		ev.Teams[i].Wins = 0
		ev.Teams[i].Losses = 0
	}
	ev.Matches = matches

	targets := make(map[uuid.UUID]bool, len(matches))
	for _, m := range matches {
		targets[m.ID] = true
	}

	p := newPacker(ev, opts)
	if err := p.pack(targets); err != nil {
		return nil, err
	}
	assignReferees(ev, p.placed)

	return &ScheduleResult{Event: ev, Matches: ev.Matches}, nil
}

func validateEvent(ev *event.Event) error {
	switch ev.Type {
	case event.TournamentType, event.LeagueType:
	default:
		return configErrorf(uuid.Nil, "unknown event type %q", ev.Type)
	}
	if ev.Start.IsZero() {
		return configErrorf(uuid.Nil, "event start is required")
	}
	if !ev.NoFixedEndDateTime && !ev.End.After(ev.Start) {
		return configErrorf(uuid.Nil, "event end must be after its start")
	}
	if ev.MatchDurationMinutes < 0 || ev.SetDurationMinutes < 0 || ev.RestTimeMinutes < 0 {
		return configErrorf(uuid.Nil, "durations cannot be negative")
	}
	if len(ev.Divisions) == 0 {
		return configErrorf(uuid.Nil, "event has no divisions")
	}

	counts := make(map[uuid.UUID]int, len(ev.Divisions))
	for _, d := range ev.Divisions {
		counts[d.ID] = 0
	}
	for _, t := range ev.Teams {
		if _, ok := counts[t.DivisionID]; !ok {
			return configErrorf(t.DivisionID, "team %s belongs to an unknown division", t.ID)
		}
		counts[t.DivisionID]++
	}

	for _, d := range ev.Divisions {
		n := counts[d.ID]
		if n < 2 {
			return configErrorf(d.ID, "needs at least 2 teams, has %d", n)
		}
		if ev.IsLeague() && ev.IncludePlayoffs && (ev.PlayoffTeamCount < 2 || ev.PlayoffTeamCount > n) {
			return configErrorf(d.ID, "playoff team count %d must be between 2 and %d", ev.PlayoffTeamCount, n)
		}
	}
	if ev.IsLeague() && ev.GamesPerOpponent < 0 {
		return configErrorf(uuid.Nil, "games per opponent cannot be negative")
	}
	return ValidateSlots(ev)
}
