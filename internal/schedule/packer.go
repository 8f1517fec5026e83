package schedule

import (
	"slices"
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

// interval is a half-open occupied span [start, end).
type interval struct {
	start, end time.Time
	matchID    uuid.UUID
}

func (iv interval) overlaps(start, end time.Time) bool {
	return start.Before(iv.end) && iv.start.Before(end)
}

type candidate struct {
	fieldID     uuid.UUID
	fieldNumber int
	start       time.Time
}

// Earliest start wins. Equal starts go to the lowest field number, then field id.
func (c candidate) better(o candidate) bool {
	if !c.start.Equal(o.start) {
		return c.start.Before(o.start)
	}
	if c.fieldNumber != o.fieldNumber {
		return c.fieldNumber < o.fieldNumber
	}
	return event.CompareIDs(c.fieldID, o.fieldID) < 0
}

type packer struct {
	ev      *event.Event
	opts    Options
	idx     map[uuid.UUID]int
	fields  map[uuid.UUID]*event.Field
	windows []window

	fieldBusy map[uuid.UUID][]interval
	teamBusy  map[uuid.UUID][]interval

	level        map[uuid.UUID]int
	divisionRank map[uuid.UUID]int

	// Leave matches stuck behind a locked predecessor unplaced instead of failing
	tolerateLocked bool

	placed []uuid.UUID
	// Matches that could only be placed after their locked successor
	outOfOrder []uuid.UUID
	blocked    []uuid.UUID
}

func newPacker(ev *event.Event, opts Options) *packer {
	from, to := searchRange(ev, opts)
	p := &packer{
		ev:           ev,
		opts:         opts,
		idx:          ev.MatchIndex(),
		fields:       make(map[uuid.UUID]*event.Field, len(ev.Fields)),
		windows:      expandWindows(ev, from, to),
		fieldBusy:    make(map[uuid.UUID][]interval),
		teamBusy:     make(map[uuid.UUID][]interval),
		level:        levels(ev),
		divisionRank: make(map[uuid.UUID]int, len(ev.Divisions)),
	}
	for i := range ev.Fields {
		p.fields[ev.Fields[i].ID] = &ev.Fields[i]
	}
	for i, d := range ev.Divisions {
		p.divisionRank[d.ID] = i
	}
	return p
}

// pack places every match in targets that can be placed. All other placed matches
// are reserved as they are.
func (p *packer) pack(targets map[uuid.UUID]bool) error {
	for i := range p.ev.Matches {
		m := &p.ev.Matches[i]
		if targets[m.ID] || m.IsCancelled() || !m.IsPlaced() {
			continue
		}
		p.reserve(m)
	}

	for _, id := range p.order(targets) {
		m := &p.ev.Matches[p.idx[id]]
		if m.IsPlaced() || m.Status != event.MatchScheduled {
			continue
		}
		earliest, ok := p.earliestStart(m)
		if !ok {
			continue
		}
		if err := p.place(m, earliest); err != nil {
			return err
		}
	}

	if p.ev.NoFixedEndDateTime {
		p.extendEnd()
	}
	return nil
}

func (p *packer) reserve(m *event.Match) {
	iv := interval{start: *m.Start, end: m.OccupiedUntil(), matchID: m.ID}
	p.fieldBusy[*m.FieldID] = append(p.fieldBusy[*m.FieldID], iv)
	for _, t := range m.TeamIDs() {
		p.teamBusy[t] = append(p.teamBusy[t], iv)
	}
	if m.TeamRefereeID != nil {
		p.teamBusy[*m.TeamRefereeID] = append(p.teamBusy[*m.TeamRefereeID], iv)
	}
}

// order sorts targets by progression level, round, bracket, division, then match order.
func (p *packer) order(targets map[uuid.UUID]bool) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(targets))
	for id := range targets {
		if _, ok := p.idx[id]; ok {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		ma, mb := &p.ev.Matches[p.idx[a]], &p.ev.Matches[p.idx[b]]
		if d := p.level[a] - p.level[b]; d != 0 {
			return d
		}
		if d := ma.RoundNumber - mb.RoundNumber; d != 0 {
			return d
		}
		if d := bracketRank(ma.BracketSide) - bracketRank(mb.BracketSide); d != 0 {
			return d
		}
		if d := p.divisionRank[ma.DivisionID] - p.divisionRank[mb.DivisionID]; d != 0 {
			return d
		}
		if d := ma.MatchOrder - mb.MatchOrder; d != 0 {
			return d
		}
		return event.CompareIDs(a, b)
	})
	return ids
}

func bracketRank(side event.BracketSide) int {
	switch side {
	case event.LeagueSide, event.WinnersSide:
		return 0
	case event.LosersSide:
		return 1
	case event.PlayoffsSide:
		return 2
	default:
		return 3
	}
}

// earliestStart returns false when the match cannot be placed yet.
func (p *packer) earliestStart(m *event.Match) (time.Time, bool) {
	if p.ev.DeferUnresolvedMatches && (!m.Team1.IsResolved() || !m.Team2.IsResolved()) {
		return time.Time{}, false
	}

	earliest := p.ev.Start
	for _, pid := range m.Predecessors() {
		j, ok := p.idx[pid]
		if !ok {
			continue
		}
		pred := &p.ev.Matches[j]
		if !pred.IsPlaced() {
			if pred.Status != event.MatchScheduled {
				continue
			}
			return time.Time{}, false
		}
		if t := pred.OccupiedUntil(); t.After(earliest) {
			earliest = t
		}
	}

	if m.BracketSide == event.PlayoffsSide {
		if t := p.regularSeasonEnd(m.DivisionID); t.After(earliest) {
			earliest = t
		}
	}
	return earliest, true
}

func (p *packer) regularSeasonEnd(divisionID uuid.UUID) time.Time {
	var end time.Time
	for i := range p.ev.Matches {
		m := &p.ev.Matches[i]
		if m.DivisionID == divisionID && m.BracketSide == event.LeagueSide && m.IsPlaced() {
			if t := m.OccupiedUntil(); t.After(end) {
				end = t
			}
		}
	}
	return end
}

func (p *packer) place(m *event.Match, earliest time.Time) error {
	dur := matchDuration(p.ev, m, p.opts)

	if deadline, ok := p.lockedDeadline(m); ok {
		if c, found := p.search(m, earliest, dur, deadline); found {
			p.assign(m, c, dur)
			return nil
		}
		p.outOfOrder = append(p.outOfOrder, m.ID)
	}

	c, found := p.search(m, earliest, dur, time.Time{})
	if !found {
		if p.tolerateLocked && p.hasLockedPredecessor(m) {
			p.blocked = append(p.blocked, m.ID)
			return nil
		}
		if p.ev.NoFixedEndDateTime {
			return configErrorf(m.DivisionID, "no recurring availability fits match %s within %s of the event", m.ID, p.opts.Horizon)
		}
		return &WindowExceededError{MatchID: m.ID}
	}
	p.assign(m, c, dur)
	return nil
}

// lockedDeadline is the latest moment the match and its buffer may end so that a
// locked successor still follows it.
func (p *packer) lockedDeadline(m *event.Match) (time.Time, bool) {
	var deadline time.Time
	found := false
	for _, sid := range m.Successors() {
		j, ok := p.idx[sid]
		if !ok {
			continue
		}
		succ := &p.ev.Matches[j]
		if !succ.Locked || !succ.IsPlaced() {
			continue
		}
		if !found || succ.Start.Before(deadline) {
			deadline = *succ.Start
			found = true
		}
	}
	return deadline, found
}

func (p *packer) hasLockedPredecessor(m *event.Match) bool {
	for _, pid := range m.Predecessors() {
		if j, ok := p.idx[pid]; ok && p.ev.Matches[j].Locked {
			return true
		}
	}
	return false
}

// search scans the windows for the earliest feasible start. A zero deadline means none.
func (p *packer) search(m *event.Match, earliest time.Time, dur time.Duration, deadline time.Time) (candidate, bool) {
	div := p.ev.Division(m.DivisionID)
	teams := m.TeamIDs()
	buf := m.Buffer()

	var best candidate
	found := false
	for _, w := range p.windows {
		if found && w.start.After(best.start) {
			break
		}
		if !w.allows(m.DivisionID) {
			continue
		}
		f := p.fields[w.fieldID]
		if f == nil || (div != nil && !f.AcceptsDivision(div)) {
			continue
		}

		start := w.start
		if earliest.After(start) {
			start = earliest
		}
		for {
			end := start.Add(dur)
			if end.After(w.end) {
				break
			}
			if !deadline.IsZero() && end.Add(buf).After(deadline) {
				break
			}
			if next, clash := p.clash(w.fieldID, teams, start, end.Add(buf)); clash {
				start = next
				continue
			}
			c := candidate{fieldID: w.fieldID, fieldNumber: w.fieldNumber, start: start}
			if !found || c.better(best) {
				best = c
				found = true
			}
			break
		}
	}
	return best, found
}

// clash reports whether [start, end) collides with the field or a team, and the
// first moment after every colliding interval.
func (p *packer) clash(fieldID uuid.UUID, teams []uuid.UUID, start, end time.Time) (time.Time, bool) {
	var next time.Time
	hit := false
	check := func(busy []interval) {
		for _, iv := range busy {
			if iv.overlaps(start, end) {
				hit = true
				if iv.end.After(next) {
					next = iv.end
				}
			}
		}
	}
	check(p.fieldBusy[fieldID])
	for _, t := range teams {
		check(p.teamBusy[t])
	}
	return next, hit
}

func (p *packer) assign(m *event.Match, c candidate, dur time.Duration) {
	fieldID := c.fieldID
	start := c.start
	end := start.Add(dur)
	m.FieldID = &fieldID
	m.Start = &start
	m.End = &end
	p.reserve(m)
	p.placed = append(p.placed, m.ID)
}

func (p *packer) extendEnd() {
	for i := range p.ev.Matches {
		m := &p.ev.Matches[i]
		if m.IsPlaced() && !m.IsCancelled() && m.End.After(p.ev.End) {
			p.ev.End = *m.End
		}
	}
}

// levels is the longest predecessor chain above each match, computed with Kahn's
// algorithm over the previous pointers.
func levels(ev *event.Event) map[uuid.UUID]int {
	idx := ev.MatchIndex()
	n := len(ev.Matches)
	indegree := make([]int, n)
	next := make([][]int, n)
	for i := range ev.Matches {
		for _, pid := range ev.Matches[i].Predecessors() {
			if j, ok := idx[pid]; ok {
				indegree[i]++
				next[j] = append(next[j], i)
			}
		}
	}

	queue := make([]int, 0, n)
	for i := range indegree {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	level := make([]int, n)
	for head := 0; head < len(queue); head++ {
		i := queue[head]
		for _, k := range next[i] {
			level[k] = max(level[k], level[i]+1)
			indegree[k]--
			if indegree[k] == 0 {
				queue = append(queue, k)
			}
		}
	}

	out := make(map[uuid.UUID]int, n)
	for i, m := range ev.Matches {
		if indegree[i] > 0 {
			// Part of a cycle, place it last
			out[m.ID] = n
			continue
		}
		out[m.ID] = level[i]
	}
	return out
}
