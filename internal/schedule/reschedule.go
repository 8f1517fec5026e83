package schedule

import (
	"slices"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

type WarningCode string

const (
	WarnLockedOutsideWindow   WarningCode = "LOCKED_MATCH_OUTSIDE_WINDOW"
	WarnLockedFieldIneligible WarningCode = "LOCKED_MATCH_FIELD_INELIGIBLE"
	WarnLockedConflict        WarningCode = "LOCKED_MATCH_CONFLICT"
	WarnLockedOrder           WarningCode = "LOCKED_MATCH_ORDER"
	WarnLockedRemoved         WarningCode = "LOCKED_MATCH_REMOVED"
	WarnLockedBlocks          WarningCode = "LOCKED_MATCH_BLOCKS_SUCCESSOR"
)

var warningMessages = map[WarningCode]string{
	WarnLockedOutsideWindow:   "locked matches fall outside the event window or its available time slots",
	WarnLockedFieldIneligible: "locked matches are on fields their division may not use",
	WarnLockedConflict:        "locked matches overlap other matches on the same field",
	WarnLockedOrder:           "matches had to be placed after the locked match they feed",
	WarnLockedRemoved:         "locked matches no longer exist after the draw was rebuilt",
	WarnLockedBlocks:          "matches following a locked match could not be placed inside the event window",
}

type Warning struct {
	Code     WarningCode `json:"code"`
	Message  string      `json:"message"`
	MatchIDs []uuid.UUID `json:"matchIds"`
}

// warnings keeps one record per code, in the order codes first appear.
type warnings struct {
	list []Warning
}

func (w *warnings) add(code WarningCode, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	i := slices.IndexFunc(w.list, func(x Warning) bool { return x.Code == code })
	if i < 0 {
		w.list = append(w.list, Warning{Code: code, Message: warningMessages[code]})
		i = len(w.list) - 1
	}
	for _, id := range ids {
		if !slices.Contains(w.list[i].MatchIDs, id) {
			w.list[i].MatchIDs = append(w.list[i].MatchIDs, id)
		}
	}
}

type RescheduleResult struct {
	Event    *event.Event  `json:"event"`
	Matches  []event.Match `json:"matches"`
	Warnings []Warning     `json:"warnings"`
}

// Reschedule re-packs every match that is not locked, finalized or cancelled.
// Locked matches never move; problems with them come back as warnings. The draw
// is rebuilt only when the teams or divisions changed.
func Reschedule(in *event.Event, opts Options) (*RescheduleResult, error) {
	opts = opts.normalize()
	ev := in.Clone()
	if err := validateEvent(ev); err != nil {
		return nil, err
	}

	var warns warnings
	if compositionChanged(ev) {
		removed, err := rebuild(ev, opts)
		if err != nil {
			return nil, err
		}
		warns.add(WarnLockedRemoved, removed...)
	}

	targets := make(map[uuid.UUID]bool)
	for i := range ev.Matches {
		m := &ev.Matches[i]
		if m.Locked || m.Status != event.MatchScheduled {
			continue
		}
		m.ClearPlacement()
		m.RefereeID = nil
		m.TeamRefereeID = nil
		m.RefereeCheckedIn = false
		targets[m.ID] = true
	}

	p := newPacker(ev, opts)
	p.tolerateLocked = true
	if err := p.pack(targets); err != nil {
		return nil, err
	}
	assignReferees(ev, p.placed)

	warns.add(WarnLockedOrder, p.outOfOrder...)
	warns.add(WarnLockedBlocks, p.blocked...)
	checkLocked(ev, p.windows, &warns)

	return &RescheduleResult{Event: ev, Matches: ev.Matches, Warnings: warns.list}, nil
}

// compositionChanged compares the teams referenced by matches against the event's
// current teams and their divisions.
func compositionChanged(ev *event.Event) bool {
	if len(ev.Matches) == 0 {
		return true
	}

	current := make(map[uuid.UUID]uuid.UUID, len(ev.Teams))
	for _, t := range ev.Teams {
		current[t.ID] = t.DivisionID
	}
	seen := make(map[uuid.UUID]uuid.UUID)
	divisions := make(map[uuid.UUID]bool)
	for _, m := range ev.Matches {
		if m.IsCancelled() {
			continue
		}
		divisions[m.DivisionID] = true
		for _, t := range m.TeamIDs() {
			seen[t] = m.DivisionID
		}
	}

	for t, d := range seen {
		if cd, ok := current[t]; !ok || cd != d {
			return true
		}
	}
	for t := range current {
		if _, ok := seen[t]; !ok {
			return true
		}
	}
	for _, d := range ev.Divisions {
		if !divisions[d.ID] {
			return true
		}
	}
	return len(divisions) != len(ev.Divisions)
}

// rebuild replaces the draw. Locked matches whose position survives keep their
// placement and lock; results are discarded with the old draw. Returns the locked
// matches that no longer exist.
func rebuild(ev *event.Event, opts Options) ([]uuid.UUID, error) {
	fresh, err := Build(ev, opts)
	if err != nil {
		return nil, err
	}
	idx := make(map[uuid.UUID]int, len(fresh))
	for i, m := range fresh {
		idx[m.ID] = i
	}

	var removed []uuid.UUID
	for _, old := range ev.Matches {
		if !old.Locked {
			continue
		}
		j, ok := idx[old.ID]
		if !ok {
			removed = append(removed, old.ID)
			continue
		}
		nm := &fresh[j]
		nm.FieldID = old.FieldID
		nm.Start = old.Start
		nm.End = old.End
		nm.RefereeID = old.RefereeID
		nm.TeamRefereeID = old.TeamRefereeID
		nm.Locked = true
	}

	for i := range ev.Teams {
		ev.Teams[i].Wins = 0
		ev.Teams[i].Losses = 0
	}
	ev.Matches = fresh
	return removed, nil
}

// checkLocked validates every placed locked match against the current configuration.
func checkLocked(ev *event.Event, windows []window, warns *warnings) {
	for i := range ev.Matches {
		m := &ev.Matches[i]
		if !m.Locked || !m.IsPlaced() || m.IsCancelled() {
			continue
		}

		if outsideEventWindow(ev, m) || !coveredByWindow(windows, m) {
			warns.add(WarnLockedOutsideWindow, m.ID)
		}

		f := ev.Field(*m.FieldID)
		div := ev.Division(m.DivisionID)
		if f == nil || div == nil || !f.AcceptsDivision(div) {
			warns.add(WarnLockedFieldIneligible, m.ID)
		}

		for j := range ev.Matches {
			o := &ev.Matches[j]
			if i == j || !o.IsPlaced() || o.IsCancelled() || *o.FieldID != *m.FieldID {
				continue
			}
			if fieldOverlap(m, o) {
				warns.add(WarnLockedConflict, m.ID, o.ID)
			}
		}
	}
}

func outsideEventWindow(ev *event.Event, m *event.Match) bool {
	if m.Start.Before(ev.Start) {
		return true
	}
	return !ev.NoFixedEndDateTime && m.End.After(ev.End)
}

func coveredByWindow(windows []window, m *event.Match) bool {
	for _, w := range windows {
		if w.fieldID == *m.FieldID && w.allows(m.DivisionID) && w.covers(*m.Start, *m.End) {
			return true
		}
	}
	return false
}

// fieldOverlap compares [start, end+buffer) of two placed matches.
func fieldOverlap(a, b *event.Match) bool {
	return a.Start.Before(b.OccupiedUntil()) && b.Start.Before(a.OccupiedUntil())
}
